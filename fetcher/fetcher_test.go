package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "11")
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	var updates []Progress
	err := Fetch(context.Background(), srv.URL, dest, Options{
		OnProgress: func(p Progress) { updates = append(updates, p) },
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "hello world" {
		t.Fatalf("fetched content = %q, %v, want %q, nil", data, err, "hello world")
	}

	if len(updates) == 0 || !updates[len(updates)-1].Done {
		t.Errorf("expected a final Done progress update, got %+v", updates)
	}
}

func TestFetchHttpErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	err := Fetch(context.Background(), srv.URL, dest, Options{MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	httpErr, ok := err.(*HttpError)
	if !ok {
		t.Fatalf("error = %T (%v), want *HttpError", err, err)
	}
	if httpErr.Status != 404 {
		t.Errorf("HttpError.Status = %d, want 404", httpErr.Status)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (HttpError must not be retried)", attempts)
	}
}

func TestFetchIndeterminateProgressWithoutContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Force chunked transfer so Content-Length is unset.
		flusher, _ := w.(http.Flusher)
		w.Write([]byte("chunk1"))
		if flusher != nil {
			flusher.Flush()
		}
		w.Write([]byte("chunk2"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	var sawIndeterminate bool
	err := Fetch(context.Background(), srv.URL, dest, Options{
		OnProgress: func(p Progress) {
			if p.Indeterminate {
				sawIndeterminate = true
			}
		},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !sawIndeterminate {
		t.Error("expected an Indeterminate progress update when Content-Length is absent")
	}
}

func TestRoundToNearest5(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 0, 3: 5, 24: 25, 47: 45, 48: 50, 97: 95, 98: 100, 100: 100}
	for in, want := range cases {
		if got := roundToNearest5(in); got != want {
			t.Errorf("roundToNearest5(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // connections to this address now refuse

	dest := filepath.Join(t.TempDir(), "archive.tar.gz")
	err := Fetch(context.Background(), url, dest, Options{MaxAttempts: 1})
	if err == nil {
		t.Fatal("expected a network error after closing the server")
	}
}
