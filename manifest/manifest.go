// Package manifest loads a project's dependency manifest: filename
// recognition and a best-effort decode posture over a small set of
// recognized YAML filenames.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RecognizedFilenames are the manifest filenames ManifestLoader looks for,
// in priority order, in both the project root and ~/.dotfiles.
var RecognizedFilenames = []string{
	"deps.yaml", "deps.yml",
	"dependencies.yaml", "dependencies.yml",
	"pkgx.yaml", "pkgx.yml",
	"launchpad.yaml", "launchpad.yml",
}

// PackageSpec is a single dependency normalized out of the manifest's
// tagged DependencyEntry variant: a simple constraint string, or an
// extended {version, global} mapping.
type PackageSpec struct {
	Domain     string
	Constraint string
	Global     bool
}

// Manifest is one loaded and normalized manifest file.
type Manifest struct {
	Path         string
	Dependencies []PackageSpec
	Env          map[string]string
	Services     ServicesConfig
	Global       bool
}

// ServicesConfig is the manifest's "services:" block.
type ServicesConfig struct {
	Enabled   bool
	AutoStart []string
}

// Warning records a manifest that couldn't be loaded cleanly; this is
// recoverable, not fatal.
type Warning struct {
	File  string
	Cause error
}

func (w Warning) Error() string { return "manifest " + w.File + ": " + w.Cause.Error() }

// rawManifest is the YAML document shape, decoded before normalization.
type rawManifest struct {
	Dependencies map[string]dependencyEntry `yaml:"dependencies"`
	Env          map[string]string          `yaml:"env"`
	Services     rawServices                `yaml:"services"`
	Global       bool                       `yaml:"global"`
}

type rawServices struct {
	Enabled   bool     `yaml:"enabled"`
	AutoStart []string `yaml:"autoStart"`
}

// dependencyEntry implements a tagged variant:
//
//	domain: constraint             # simple string form
//	domain:                        # extended mapping form
//	  version: constraint
//	  global: true|false
type dependencyEntry struct {
	Simple   string
	Extended *extendedDependency
}

type extendedDependency struct {
	Version string `yaml:"version"`
	Global  *bool  `yaml:"global"`
}

func (d *dependencyEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&d.Simple)
	}

	var ext extendedDependency
	if err := node.Decode(&ext); err != nil {
		return err
	}
	d.Extended = &ext
	return nil
}

// Load parses data (a manifest file's raw bytes) into a normalized
// Manifest rooted at path. Malformed YAML is returned as an error rather
// than panicking; callers that want recoverable-warning behavior should
// wrap the error in a Warning themselves.
func Load(path string, data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", path)
	}

	m := &Manifest{
		Path:   path,
		Env:    raw.Env,
		Global: raw.Global,
		Services: ServicesConfig{
			Enabled:   raw.Services.Enabled,
			AutoStart: raw.Services.AutoStart,
		},
	}

	for domain, entry := range raw.Dependencies {
		spec := PackageSpec{Domain: domain, Global: raw.Global}
		if entry.Extended != nil {
			spec.Constraint = entry.Extended.Version
			if entry.Extended.Global != nil {
				spec.Global = *entry.Extended.Global
			}
		} else {
			spec.Constraint = entry.Simple
		}
		m.Dependencies = append(m.Dependencies, spec)
	}

	return m, nil
}

// LoadFile reads and loads the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", path)
	}
	return Load(path, data)
}

// discoverIn finds and loads the first recognized manifest filename inside
// dir, returning (nil, nil, nil) if none is present.
func discoverIn(dir string) (*Manifest, *Warning, error) {
	for _, name := range RecognizedFilenames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		m, err := LoadFile(path)
		if err != nil {
			return nil, &Warning{File: path, Cause: err}, nil
		}
		return m, nil, nil
	}
	return nil, nil, nil
}

// Discover loads the project manifest from projectDir. A malformed
// manifest is reported as a Warning rather than an error; a missing
// manifest is reported by returning (nil, nil, nil).
func Discover(projectDir string) (*Manifest, []Warning, error) {
	m, warning, err := discoverIn(projectDir)
	if err != nil {
		return nil, nil, err
	}
	if warning != nil {
		return nil, []Warning{*warning}, nil
	}
	return m, nil, nil
}

// DiscoverGlobal loads the user-scope manifest from homeDir/.dotfiles, the
// source of `global: true` dependencies that `clean --keep-global` must
// preserve even when they aren't declared in the current project manifest.
func DiscoverGlobal(homeDir string) (*Manifest, []Warning, error) {
	m, warning, err := discoverIn(filepath.Join(homeDir, ".dotfiles"))
	if err != nil {
		return nil, nil, err
	}
	if warning != nil {
		return nil, []Warning{*warning}, nil
	}
	return m, nil, nil
}
