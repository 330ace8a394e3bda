// Package launchpad wires the ManifestLoader, SpecParser, Resolver,
// Installer, and EnvBuilder into the single `dev` pipeline the CLI drives,
// and wires the ServiceSupervisor against an environment's installed
// layout: one small struct holding every collaborator, with a handful of
// top-level entry points a CLI command calls directly rather than a
// framework.
package launchpad

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/home-lang/pantry-sub000/cache"
	"github.com/home-lang/pantry-sub000/catalog"
	"github.com/home-lang/pantry-sub000/envbuild"
	"github.com/home-lang/pantry-sub000/envhash"
	"github.com/home-lang/pantry-sub000/fetcher"
	"github.com/home-lang/pantry-sub000/installer"
	"github.com/home-lang/pantry-sub000/manifest"
	"github.com/home-lang/pantry-sub000/resolver"
	"github.com/home-lang/pantry-sub000/service"
	"github.com/home-lang/pantry-sub000/specparser"
	"github.com/pkg/errors"
)

// Config is the set of paths and runtime knobs every pipeline entry point
// needs. HomeDir and DataDir default to os.UserHomeDir and
// os.UserHomeDir/.local/share/launchpad respectively when empty.
type Config struct {
	HomeDir  string
	DataDir  string
	Platform string
	Arch     string
	Trace    bool
}

// ResolveDefaults fills in HomeDir/DataDir/Platform/Arch from the runtime
// environment when the caller left them empty.
func (c Config) ResolveDefaults() (Config, error) {
	if c.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return c, errors.Wrap(err, "resolving home directory")
		}
		c.HomeDir = home
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(c.HomeDir, ".local", "share", "launchpad")
	}
	if c.Platform == "" {
		c.Platform = runtime.GOOS
	}
	if c.Arch == "" {
		c.Arch = runtime.GOARCH
	}
	return c, nil
}

// EnvsRoot is the directory under which every per-project environment
// lives, keyed by EnvHasher ID.
func (c Config) EnvsRoot() string { return filepath.Join(c.DataDir, "envs") }

// GlobalRoot is the directory holding global (cross-project) package
// installs, as declared via a manifest's `global: true`.
func (c Config) GlobalRoot() string { return filepath.Join(c.DataDir, "global") }

// CacheRoot is the shared content-addressed archive cache.
func (c Config) CacheRoot() string { return filepath.Join(c.DataDir, "cache") }

// DevResult is what the `dev` pipeline reports back to its caller.
type DevResult struct {
	EnvRoot           string
	ActivationSnippet string
	Installed         []installer.InstalledPackage
	Warnings          []string
	FastPath          bool
}

// DevOptions configures a single Dev invocation.
type DevOptions struct {
	ProjectPath string
	Cat         catalog.Catalog
	DryRun      bool
	// URL and Client override the installer's fetch target and HTTP
	// client; both default to production values when left zero, and
	// exist so tests can point installs at an httptest server.
	URL    installer.URLFunc
	Client *http.Client
}

// Dev is the `dev` pipeline: discover the manifest, resolve its
// dependencies, install anything missing, and build the environment's
// shims and activation snippet. On the fast path (pathscan.CheckEnvironmentReady
// finds at least one installed package directory under the environment
// root), the manifest is not read and resolution and install are skipped
// entirely; only the activation snippet is rebuilt, so dependencies added
// to the manifest since the last install are not installed on that path.
// The activation snippet is emitted only after all install work completes,
// or, on the fast path, immediately.
func Dev(ctx context.Context, cfg Config, opts DevOptions) (*DevResult, error) {
	cfg, err := cfg.ResolveDefaults()
	if err != nil {
		return nil, err
	}

	envID, err := envhash.ID(opts.ProjectPath)
	if err != nil {
		return nil, errors.Wrap(err, "hashing project path")
	}
	envRoot := filepath.Join(cfg.EnvsRoot(), envID)

	if ready, err := fastPathReady(envRoot); err != nil {
		return nil, err
	} else if ready {
		snippet, err := envbuild.BuildEnvironment(envbuild.Plan{EnvRoot: envRoot, ProjectPath: opts.ProjectPath})
		if err != nil {
			return nil, err
		}
		return &DevResult{EnvRoot: envRoot, ActivationSnippet: snippet, FastPath: true}, nil
	}

	m, warnings, err := manifest.Discover(opts.ProjectPath)
	if err != nil {
		return nil, errors.Wrap(err, "discovering manifest")
	}
	var warningStrings []string
	for _, w := range warnings {
		warningStrings = append(warningStrings, w.Error())
	}

	var requests []resolver.Request
	if m != nil {
		for _, dep := range m.Dependencies {
			requests = append(requests, resolver.Request{
				Name:       dep.Domain,
				Constraint: dep.Constraint,
				IsGlobal:   dep.Global,
			})
		}
	}

	resolved, resolveWarnings := resolver.Resolve(requests, opts.Cat, resolver.Options{
		Platform: cfg.Platform,
		Arch:     cfg.Arch,
		Trace:    cfg.Trace,
	})
	for _, w := range resolveWarnings {
		warningStrings = append(warningStrings, w.Error())
	}

	if opts.DryRun {
		return &DevResult{EnvRoot: envRoot, Installed: nil, Warnings: warningStrings}, nil
	}

	if err := os.MkdirAll(envRoot, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating environment root %s", envRoot)
	}

	urlFn := opts.URL
	if urlFn == nil {
		urlFn = installer.DefaultURLFunc
	}
	instResult, err := installer.InstallAll(ctx, resolved, installer.Options{
		EnvRoot:   envRoot,
		Cache:     cache.New(cfg.CacheRoot()),
		Extractor: installer.DefaultExtractor{},
		URL:       urlFn,
		Fetch:     fetcher.Options{MaxAttempts: 3, Client: opts.Client},
	})
	if err != nil {
		return nil, err
	}
	for _, w := range instResult.Warnings {
		warningStrings = append(warningStrings, w.Error())
	}

	snippet, err := envbuild.BuildEnvironment(envbuild.Plan{EnvRoot: envRoot, ProjectPath: opts.ProjectPath})
	if err != nil {
		return nil, err
	}

	return &DevResult{
		EnvRoot:           envRoot,
		ActivationSnippet: snippet,
		Installed:         instResult.Installed,
		Warnings:          warningStrings,
	}, nil
}

// fastPathReady wraps envbuild.FastPathReady, tolerating a not-yet-created
// environment root as "not ready" rather than an error.
func fastPathReady(envRoot string) (bool, error) {
	if _, err := os.Stat(envRoot); os.IsNotExist(err) {
		return false, nil
	}
	return envbuild.FastPathReady(envRoot)
}

// Install resolves and installs a single package specifier directly into
// envRoot, bypassing manifest discovery — the `install <spec>` CLI path.
func Install(ctx context.Context, cfg Config, envRoot, spec string, cat catalog.Catalog) (*installer.Result, error) {
	cfg, err := cfg.ResolveDefaults()
	if err != nil {
		return nil, err
	}

	parsed, err := specparser.Parse(spec)
	if err != nil {
		return nil, err
	}
	resolved, warnings := resolver.Resolve([]resolver.Request{{Name: parsed.Name, Constraint: parsed.Constraint}}, cat, resolver.Options{
		Platform: cfg.Platform,
		Arch:     cfg.Arch,
	})
	if len(resolved) == 0 {
		reason := spec
		if len(warnings) > 0 {
			reason = warnings[0].Error()
		}
		return nil, errors.Errorf("could not resolve %s: %s", spec, reason)
	}

	if err := os.MkdirAll(envRoot, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating environment root %s", envRoot)
	}

	return installer.InstallAll(ctx, resolved, installer.Options{
		EnvRoot:   envRoot,
		Cache:     cache.New(cfg.CacheRoot()),
		Extractor: installer.DefaultExtractor{},
		URL:       installer.DefaultURLFunc,
		Fetch:     fetcher.Options{MaxAttempts: 3},
	})
}

// CleanOptions configures a Clean invocation.
type CleanOptions struct {
	ProjectPath string
	KeepGlobal  bool
	DryRun      bool
	Force       bool
}

// CleanPlan is the outcome of a Clean call: what was (or, under DryRun,
// would be) removed, and what was preserved because a global manifest
// declared it.
type CleanPlan struct {
	EnvRoot  string
	Removed  []string // "domain@version"
	Kept     []string // "domain@version", kept because of --keep-global
	Executed bool
}

// Clean removes every installed package under the project's environment
// root, optionally preserving ones declared `global: true` in either the
// project or ~/.dotfiles manifest when KeepGlobal is set.
func Clean(ctx context.Context, cfg Config, opts CleanOptions) (*CleanPlan, error) {
	cfg, err := cfg.ResolveDefaults()
	if err != nil {
		return nil, err
	}

	envID, err := envhash.ID(opts.ProjectPath)
	if err != nil {
		return nil, errors.Wrap(err, "hashing project path")
	}
	envRoot := filepath.Join(cfg.EnvsRoot(), envID)
	plan := &CleanPlan{EnvRoot: envRoot}

	keepDomains := make(map[string]bool)
	if opts.KeepGlobal {
		for _, discover := range []func() (*manifest.Manifest, []manifest.Warning, error){
			func() (*manifest.Manifest, []manifest.Warning, error) { return manifest.Discover(opts.ProjectPath) },
			func() (*manifest.Manifest, []manifest.Warning, error) { return manifest.DiscoverGlobal(cfg.HomeDir) },
		} {
			m, _, err := discover()
			if err != nil {
				return nil, err
			}
			if m == nil {
				continue
			}
			for _, dep := range m.Dependencies {
				if dep.Global {
					keepDomains[dep.Domain] = true
				}
			}
		}
	}

	pkgsRoot := filepath.Join(envRoot, "pkgs")
	domainEntries, err := os.ReadDir(pkgsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return plan, nil
		}
		return nil, errors.Wrapf(err, "reading %s", pkgsRoot)
	}

	for _, domainEntry := range domainEntries {
		if !domainEntry.IsDir() {
			continue
		}
		domain := domainEntry.Name()
		versionEntries, err := os.ReadDir(filepath.Join(pkgsRoot, domain))
		if err != nil {
			continue
		}
		for _, versionEntry := range versionEntries {
			if !versionEntry.IsDir() {
				continue
			}
			ver := strings.TrimPrefix(versionEntry.Name(), "v")
			label := domain + "@" + ver

			if keepDomains[domain] {
				plan.Kept = append(plan.Kept, label)
				continue
			}
			plan.Removed = append(plan.Removed, label)

			if opts.DryRun {
				continue
			}
			ip, err := installer.ReadMetadata(envRoot, domain, ver)
			if err == nil && ip.InstallPath != "" {
				if err := os.RemoveAll(ip.InstallPath); err != nil && !opts.Force {
					return nil, errors.Wrapf(err, "removing %s", label)
				}
			}
			if err := os.RemoveAll(filepath.Join(pkgsRoot, domain, versionEntry.Name())); err != nil && !opts.Force {
				return nil, errors.Wrapf(err, "removing metadata for %s", label)
			}
		}
	}
	plan.Executed = !opts.DryRun
	return plan, nil
}

// NewServiceSupervisor builds a Supervisor scoped to envRoot's own lock
// directory, wiring service.Options the way Dev wires installer.Options.
func NewServiceSupervisor(envRoot string, runner service.Runner, testMode bool) (*service.Supervisor, error) {
	reg, err := service.NewRegistry()
	if err != nil {
		return nil, errors.Wrap(err, "loading service registry")
	}
	lockDir := filepath.Join(envRoot, ".locks")
	if !testMode {
		if err := os.MkdirAll(lockDir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating lock dir %s", lockDir)
		}
	}
	return service.NewSupervisor(service.Options{
		Registry: reg,
		Runner:   runner,
		TestMode: testMode,
		LockDir:  lockDir,
	}), nil
}
