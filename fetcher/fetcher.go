// Package fetcher retrieves a named archive over HTTP with streaming
// progress reporting, retrying transient failures with exponential backoff
// (backoff.Retry(ctx, operation, backoff.WithBackOff(...))) and using
// sdboyer/constext to AND a per-attempt timeout with the caller's
// cancellation context.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/home-lang/pantry-sub000/internal/fsutil"
	"github.com/sdboyer/constext"
)

// Progress is one throttled progress update. When TotalBytes is 0 the
// server did not send Content-Length; Indeterminate is set and Percent is
// meaningless.
type Progress struct {
	BytesReceived int64
	TotalBytes    int64
	Percent       int
	Indeterminate bool
	Done          bool
}

// ProgressFunc receives throttled progress updates during a Fetch.
type ProgressFunc func(Progress)

// Options configures a single Fetch call.
type Options struct {
	// AttemptTimeout bounds a single HTTP attempt; zero means no per-attempt
	// timeout beyond ctx's own deadline.
	AttemptTimeout time.Duration
	// MaxAttempts bounds retries on NetworkError/TimeoutError. HttpError
	// (4xx/5xx) is never retried. Zero means 1 (no retries).
	MaxAttempts int
	// Client is the http.Client to use; defaults to http.DefaultClient.
	Client *http.Client
	// OnProgress, if set, receives throttled progress updates.
	OnProgress ProgressFunc
}

// Fetch streams url's body to destPath, reporting progress via
// opts.OnProgress. Network failures and timeouts are retried up to
// opts.MaxAttempts with exponential backoff; an HTTP status >= 400 fails
// immediately without retry.
func Fetch(ctx context.Context, url, destPath string, opts Options) error {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if opts.AttemptTimeout > 0 {
			attemptCtx, cancel = combineTimeout(ctx, opts.AttemptTimeout)
		}
		if cancel != nil {
			defer cancel()
		}

		err := doFetch(attemptCtx, client, url, destPath, opts.OnProgress)
		if err == nil {
			return struct{}{}, nil
		}

		switch err.(type) {
		case *HttpError:
			// Not retryable: surface immediately.
			return struct{}{}, backoff.Permanent(err)
		default:
			return struct{}{}, err
		}
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
	)
	return err
}

// combineTimeout ANDs ctx with a fresh per-attempt deadline, via constext's
// Cons: combining two independently-owned contexts' lifetimes without one
// cancellation silently overriding the other's deadline reporting.
func combineTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	deadlineCtx, deadlineCancel := context.WithTimeout(context.Background(), d)
	combined, cancel := constext.Cons(ctx, deadlineCtx)
	return combined, func() {
		deadlineCancel()
		cancel()
	}
}

func doFetch(ctx context.Context, client *http.Client, url, destPath string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{URL: url, Cause: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &TimeoutError{URL: url}
		}
		return &NetworkError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &HttpError{URL: url, Status: resp.StatusCode}
	}

	total := resp.ContentLength

	return fsutil.WriteAtomic(destPath, func(f *os.File) error {
		pr := &progressReader{r: resp.Body, total: total, onProgress: onProgress}
		if total <= 0 && onProgress != nil {
			onProgress(Progress{Indeterminate: true})
		}
		if _, err := io.Copy(f, pr); err != nil {
			if ctx.Err() != nil {
				return &TimeoutError{URL: url}
			}
			return &StreamError{URL: url, Cause: err}
		}
		if onProgress != nil {
			onProgress(Progress{BytesReceived: pr.received, TotalBytes: total, Percent: 100, Done: true})
		}
		return nil
	})
}

// progressReader wraps the response body, emitting throttled progress
// updates at most once per 5-percentage-point step.
type progressReader struct {
	r          io.Reader
	total      int64
	received   int64
	lastBucket int
	onProgress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.received += int64(n)
		if p.total > 0 && p.onProgress != nil {
			percent := roundToNearest5(int(p.received * 100 / p.total))
			bucket := percent / 5
			if bucket != p.lastBucket {
				p.lastBucket = bucket
				p.onProgress(Progress{BytesReceived: p.received, TotalBytes: p.total, Percent: percent})
			}
		}
	}
	return n, err
}

// roundToNearest5 rounds pct to the nearest multiple of 5, the progress
// granularity callers are expected to report at.
func roundToNearest5(pct int) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return ((pct + 2) / 5) * 5
}
