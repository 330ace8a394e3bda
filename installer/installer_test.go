package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/home-lang/pantry-sub000/cache"
	"github.com/home-lang/pantry-sub000/fetcher"
	"github.com/home-lang/pantry-sub000/resolver"
)

// buildTarGz constructs a minimal tar.gz archive containing a single
// executable at bin/<name>, for use as a fake distribution artifact.
func buildTarGz(t *testing.T, binName, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name: "bin/" + binName,
		Mode: 0o755,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func TestInstallOneFetchesExtractsAndWritesMetadata(t *testing.T) {
	ResetInstalledTracker()
	archive := buildTarGz(t, "widget", "#!/bin/sh\necho hi\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	envRoot := t.TempDir()
	c := cache.New(t.TempDir())

	pkg := &resolver.ResolvedPackage{Domain: "widget.dev", Version: "1.2.3", Platform: "linux", Arch: "amd64"}

	opts := Options{
		EnvRoot: envRoot,
		Cache:   c,
		URL:     func(domain, version, platform, arch, ext string) string { return srv.URL },
	}

	ip, err := InstallOne(context.Background(), pkg, opts)
	if err != nil {
		t.Fatalf("InstallOne: %v", err)
	}
	if ip == nil {
		t.Fatal("InstallOne returned nil InstalledPackage on first install")
	}

	binPath := filepath.Join(envRoot, "widget.dev", "v1.2.3", "bin", "widget")
	if _, err := os.Stat(binPath); err != nil {
		t.Errorf("expected extracted binary at %s: %v", binPath, err)
	}

	found := false
	for _, b := range ip.Binaries {
		if b == "widget" {
			found = true
		}
	}
	if !found {
		t.Errorf("Binaries = %v, want to contain %q", ip.Binaries, "widget")
	}

	meta, err := ReadMetadata(envRoot, "widget.dev", "1.2.3")
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.Domain != "widget.dev" || meta.Version != "1.2.3" {
		t.Errorf("metadata = %+v, want domain widget.dev version 1.2.3", meta)
	}

	if _, hit := c.Lookup("widget.dev", "1.2.3", "tar.gz"); !hit {
		t.Error("expected the archive to be cached after install")
	}
}

func TestInstallOneSkipsAlreadyTrackedPackage(t *testing.T) {
	ResetInstalledTracker()
	archive := buildTarGz(t, "widget", "x")

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(archive)
	}))
	defer srv.Close()

	envRoot := t.TempDir()
	c := cache.New(t.TempDir())
	pkg := &resolver.ResolvedPackage{Domain: "widget.dev", Version: "1.2.3", Platform: "linux", Arch: "amd64"}
	opts := Options{
		EnvRoot: envRoot,
		Cache:   c,
		URL:     func(domain, version, platform, arch, ext string) string { return srv.URL },
	}

	if _, err := InstallOne(context.Background(), pkg, opts); err != nil {
		t.Fatalf("first InstallOne: %v", err)
	}
	ip, err := InstallOne(context.Background(), pkg, opts)
	if err != nil {
		t.Fatalf("second InstallOne: %v", err)
	}
	if ip != nil {
		t.Error("second InstallOne for the same (domain, version) should return nil, not reinstall")
	}
	if calls != 1 {
		t.Errorf("server was hit %d times, want 1 (second install should be skipped by the tracker)", calls)
	}
}

func TestInstallAllContinuesAfterPerPackageFailure(t *testing.T) {
	ResetInstalledTracker()
	good := buildTarGz(t, "good", "x")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(good)
	}))
	defer srv.Close()

	envRoot := t.TempDir()
	c := cache.New(t.TempDir())
	pkgs := []*resolver.ResolvedPackage{
		{Domain: "good.dev", Version: "1.0.0", Platform: "linux", Arch: "amd64"},
		{Domain: "bad.dev", Version: "1.0.0", Platform: "linux", Arch: "amd64"},
	}
	opts := Options{
		EnvRoot: envRoot,
		Cache:   c,
		URL: func(domain, version, platform, arch, ext string) string {
			if domain == "bad.dev" {
				return srv.URL + "/bad"
			}
			return srv.URL + "/good"
		},
		Fetch: fetcher.Options{MaxAttempts: 1},
	}

	res, err := InstallAll(context.Background(), pkgs, opts)
	if err != nil {
		t.Fatalf("InstallAll: %v", err)
	}
	if len(res.Installed) != 1 || res.Installed[0].Domain != "good.dev" {
		t.Errorf("Installed = %+v, want just good.dev", res.Installed)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Domain != "bad.dev" {
		t.Errorf("Warnings = %+v, want one warning for bad.dev", res.Warnings)
	}
}

func TestInstallAllFailsWhenNothingInstalled(t *testing.T) {
	ResetInstalledTracker()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	envRoot := t.TempDir()
	c := cache.New(t.TempDir())
	pkgs := []*resolver.ResolvedPackage{
		{Domain: "bad.dev", Version: "1.0.0", Platform: "linux", Arch: "amd64"},
	}
	opts := Options{
		EnvRoot: envRoot,
		Cache:   c,
		URL:     func(domain, version, platform, arch, ext string) string { return srv.URL },
		Fetch:   fetcher.Options{MaxAttempts: 1},
	}

	res, err := InstallAll(context.Background(), pkgs, opts)
	if err == nil {
		t.Fatal("expected an error when every package in the batch fails")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %+v, want exactly one", res.Warnings)
	}
}
