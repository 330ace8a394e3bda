// Package installer drives the fetch -> extract -> lay out -> symlink
// pipeline that turns a resolver.ResolvedPackage into files under an
// environment's package tree, with a "one failure records a warning, the
// batch keeps going unless nothing at all succeeded" batch-outcome shape.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/home-lang/pantry-sub000/cache"
	"github.com/home-lang/pantry-sub000/fetcher"
	"github.com/home-lang/pantry-sub000/resolver"
	"github.com/home-lang/pantry-sub000/specparser"
	"github.com/pkg/errors"
)

// layoutDirs are the subdirectories created under a package's install
// directory regardless of whether the archive populates them, so consumers
// (pathscan, envbuild) can always assume they exist.
var layoutDirs = []string{"bin", "sbin", "lib", "lib64", "share", "include"}

// URLFunc builds the fetch URL for a (domain, version, platform, arch, ext)
// tuple. The catalog this module ships doesn't publish a URL template, so
// callers inject one; DefaultURLFunc is a reasonable placeholder for a
// single-mirror deployment.
type URLFunc func(domain, version, platform, arch, ext string) string

// DefaultURLFunc builds URLs against a single conventional mirror layout.
func DefaultURLFunc(domain, version, platform, arch, ext string) string {
	return fmt.Sprintf("https://dist.launchpad.sh/%s/v%s/%s-%s.%s", domain, version, platform, arch, ext)
}

// Options configures the installer pipeline.
type Options struct {
	EnvRoot   string
	Cache     *cache.Cache
	Extractor Extractor
	URL       URLFunc
	Fetch     fetcher.Options
	// Strict, if true, makes InstallAll fail the whole batch on the first
	// per-package error instead of recording a warning and continuing.
	Strict bool
}

// Warning records a per-package install failure that didn't abort the rest
// of the batch.
type Warning struct {
	Domain string
	Reason string
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %s", w.Domain, w.Reason) }

// Result is the outcome of an InstallAll batch.
type Result struct {
	Installed []InstalledPackage
	Warnings  []Warning
}

// archiveExt picks the archive extension the mirror is expected to publish
// for a platform; windows gets zip, everything else gets tar.gz.
func archiveExt(platform string) string {
	if platform == "windows" {
		return "zip"
	}
	return "tar.gz"
}

// InstallAll installs every package in pkgs into opts.EnvRoot, skipping any
// (domain, version) already marked installed this run. The batch as a
// whole succeeds if at least one package installed; with opts.Strict set,
// any single failure fails the whole batch immediately.
func InstallAll(ctx context.Context, pkgs []*resolver.ResolvedPackage, opts Options) (*Result, error) {
	res := &Result{}

	for _, pkg := range pkgs {
		ip, err := InstallOne(ctx, pkg, opts)
		if err != nil {
			if opts.Strict {
				return res, err
			}
			res.Warnings = append(res.Warnings, Warning{
				Domain: pkg.Domain,
				Reason: aliasHintedReason(pkg.Domain, err),
			})
			continue
		}
		if ip != nil {
			res.Installed = append(res.Installed, *ip)
		}
	}

	if len(res.Installed) == 0 && len(pkgs) > 0 && !opts.Strict {
		return res, errors.New("no package in the batch installed successfully")
	}
	return res, nil
}

// aliasHintedReason appends an "(alias of X)" hint to an install failure
// reason when domain is itself a known alias, naming the canonical domain
// X it resolves to.
func aliasHintedReason(domain string, err error) string {
	if canonical := specparser.ResolveAlias(domain); canonical != domain {
		return fmt.Sprintf("%s (alias of %s)", err, canonical)
	}
	return err.Error()
}

// InstallOne installs a single resolved package, returning nil, nil if it
// was already installed this run (the tracker short-circuits a repeat
// install of the same (domain, version) pair within one process).
func InstallOne(ctx context.Context, pkg *resolver.ResolvedPackage, opts Options) (*InstalledPackage, error) {
	if defaultTracker.seen(pkg.Domain, pkg.Version) {
		return nil, nil
	}

	ext := archiveExt(pkg.Platform)
	urlFn := opts.URL
	if urlFn == nil {
		urlFn = DefaultURLFunc
	}

	archivePath, err := fetchArchive(ctx, pkg, ext, urlFn, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s@%s", pkg.Domain, pkg.Version)
	}

	installDir := InstallDir(opts.EnvRoot, pkg.Domain, pkg.Version)
	for _, d := range layoutDirs {
		if err := os.MkdirAll(filepath.Join(installDir, d), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating %s layout dir", d)
		}
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = DefaultExtractor{}
	}
	if err := extractor.Extract(archivePath, installDir); err != nil {
		// A corrupt or truncated archive: evict so the next attempt
		// re-fetches instead of re-extracting the same bad bytes.
		_ = opts.Cache.Evict(pkg.Domain, pkg.Version, ext)
		return nil, errors.Wrapf(err, "extracting %s@%s", pkg.Domain, pkg.Version)
	}

	if err := applyLibRules(filepath.Join(installDir, "lib")); err != nil {
		return nil, errors.Wrap(err, "applying library symlinks")
	}
	if err := applyVersionTags(filepath.Join(opts.EnvRoot, pkg.Domain), pkg.Domain, pkg.Version); err != nil {
		return nil, errors.Wrap(err, "applying version tag symlinks")
	}

	binaries := discoverBinaries(installDir)
	ip := InstalledPackage{
		Domain:      pkg.Domain,
		Version:     pkg.Version,
		InstalledAt: nowISO8601(),
		Binaries:    binaries,
		InstallPath: installDir,
	}
	if err := writeMetadata(opts.EnvRoot, ip); err != nil {
		return nil, errors.Wrap(err, "writing install metadata")
	}

	defaultTracker.mark(pkg.Domain, pkg.Version)
	return &ip, nil
}

// fetchArchive returns the on-disk path of the package archive, serving it
// from cache when present and fetching (then populating the cache) on miss.
// The download lands in a scratch temp file first, since fetcher.Fetch does
// its own atomic write and cache.Store's callback must write directly into
// the cache's own temp file rather than nest a second atomic rename inside it.
func fetchArchive(ctx context.Context, pkg *resolver.ResolvedPackage, ext string, urlFn URLFunc, opts Options) (string, error) {
	if p, hit := opts.Cache.Lookup(pkg.Domain, pkg.Version, ext); hit {
		return p, nil
	}

	scratch, err := os.CreateTemp("", "launchpad-fetch-*")
	if err != nil {
		return "", errors.Wrap(err, "creating scratch download file")
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer os.Remove(scratchPath)

	url := urlFn(pkg.Domain, pkg.Version, pkg.Platform, pkg.Arch, ext)
	if err := fetcher.Fetch(ctx, url, scratchPath, opts.Fetch); err != nil {
		return "", err
	}

	return opts.Cache.Store(pkg.Domain, pkg.Version, ext, func(dest *os.File) error {
		src, err := os.Open(scratchPath)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dest, src)
		return err
	})
}

// discoverBinaries lists the executables a package installed under its
// bin/ and sbin/ directories, for the metadata.json Binaries field.
func discoverBinaries(installDir string) []string {
	var names []string
	for _, sub := range []string{"bin", "sbin"} {
		entries, err := os.ReadDir(filepath.Join(installDir, sub))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	return names
}
