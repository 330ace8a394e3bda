// Package upgrade implements the UpgradeEngine: query a well-known release
// endpoint for the latest tag, compare it to the running version, and
// delegate to the install-from-release pathway when they differ. The HTTP
// leg uses net/http directly; the "Would run ..." dry-run texture is
// grounded on txn_writer.go's SafeWriter.PrintPreparedActions.
package upgrade

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/home-lang/pantry-sub000/version"
	"github.com/pkg/errors"
)

// DefaultReleaseEndpoint is the well-known endpoint queried for the latest
// release tag.
const DefaultReleaseEndpoint = "https://launchpad.sh/api/releases/latest"

// release is the subset of the release endpoint's JSON response this
// package cares about.
type release struct {
	Tag string `json:"tag"`
}

// Runner executes the assembled install-from-release command. The CLI's
// execRunner (cmd/launchpad/internal/cmd) is the production
// implementation; tests inject a fake.
type Runner interface {
	Run(ctx context.Context, command []string) error
}

// Options configures an Upgrade run.
type Options struct {
	// CurrentVersion is the running binary's version, compared against
	// the release endpoint's latest tag.
	CurrentVersion string
	// ReleaseEndpoint overrides DefaultReleaseEndpoint; used by tests.
	ReleaseEndpoint string
	// Client is the http.Client used to query ReleaseEndpoint; defaults
	// to http.DefaultClient.
	Client *http.Client
	// Runner executes the assembled install command. Required unless
	// DryRun is set.
	Runner Runner

	Release string // --release: install a specific tag instead of latest
	Target  string // --target: install prefix
	Force   bool   // --force: reinstall even if already current
	Verbose bool   // --verbose: pass through to the install pathway
	DryRun  bool   // --dry-run: print the planned command, don't execute it
}

// Result reports what an Upgrade run did.
type Result struct {
	// LatestTag is the tag reported by the release endpoint (or
	// Options.Release, if the caller pinned one).
	LatestTag string
	// AlreadyCurrent is true when CurrentVersion already matches
	// LatestTag and Force was not set; no install command ran.
	AlreadyCurrent bool
	// Command is the assembled install-from-release command, populated
	// whether or not it was actually executed.
	Command []string
}

// manualFallbackTemplate is printed when the release endpoint can't be
// reached, so the user has something actionable instead of a bare error.
const manualFallbackTemplate = `could not reach the release endpoint: %s

You can upgrade manually by running:

  %s
`

// Run queries the release endpoint, decides whether an upgrade is needed,
// and — unless already current or DryRun is set — executes the assembled
// install-from-release command via opts.Runner.
func Run(ctx context.Context, opts Options) (*Result, error) {
	endpoint := opts.ReleaseEndpoint
	if endpoint == "" {
		endpoint = DefaultReleaseEndpoint
	}

	tag := opts.Release
	if tag == "" {
		latest, err := fetchLatestTag(ctx, endpoint, opts.Client)
		if err != nil {
			command := assembleCommand("latest", opts)
			return nil, errors.New(fmt.Sprintf(manualFallbackTemplate, err, strings.Join(command, " ")))
		}
		tag = latest
	}

	result := &Result{LatestTag: tag, Command: assembleCommand(tag, opts)}

	if !opts.Force && version.Compare(version.Parse(tag), version.Parse(opts.CurrentVersion)) == 0 {
		result.AlreadyCurrent = true
		return result, nil
	}

	if opts.DryRun {
		return result, nil
	}

	if opts.Runner == nil {
		return nil, errors.New("upgrade: no Runner configured to execute the install command")
	}
	if err := opts.Runner.Run(ctx, result.Command); err != nil {
		return nil, errors.Wrap(err, "running install-from-release command")
	}
	return result, nil
}

// PrintPlan renders the planned command the way txn_writer.go's
// PrintPreparedActions renders a dry-run manifest/lock: an explanatory
// line followed by the command itself.
func PrintPlan(w io.Writer, result *Result) {
	if result.AlreadyCurrent {
		fmt.Fprintf(w, "Already at %s; nothing to do.\n", result.LatestTag)
		return
	}
	fmt.Fprintln(w, "Would run the following command:")
	fmt.Fprintln(w, strings.Join(result.Command, " "))
}

// assembleCommand builds the install-from-release invocation, with flags
// assembled from {--release, --target, --force, --verbose}.
func assembleCommand(tag string, opts Options) []string {
	command := []string{"sh", "-c", installScriptURL, "--", "--release", tag}
	if opts.Target != "" {
		command = append(command, "--target", opts.Target)
	}
	if opts.Force {
		command = append(command, "--force")
	}
	if opts.Verbose {
		command = append(command, "--verbose")
	}
	return command
}

const installScriptURL = "https://launchpad.sh/install.sh"

// fetchLatestTag retrieves and decodes the release endpoint's response.
func fetchLatestTag(ctx context.Context, endpoint string, client *http.Client) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "building release request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "reaching release endpoint")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", errors.Errorf("release endpoint returned HTTP %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", errors.Wrap(err, "decoding release response")
	}
	if rel.Tag == "" {
		return "", errors.New("release response carried no tag")
	}
	return rel.Tag, nil
}
