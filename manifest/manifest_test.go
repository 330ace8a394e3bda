package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func domains(specs []PackageSpec) []string {
	var out []string
	for _, s := range specs {
		out = append(out, s.Domain)
	}
	sort.Strings(out)
	return out
}

func TestLoadSimpleAndExtendedDependencies(t *testing.T) {
	data := []byte(`
dependencies:
  nodejs.org: ^20.0.0
  postgresql.org:
    version: ">=14.0.0"
    global: true
env:
  NODE_ENV: development
services:
  enabled: true
  autoStart: [postgresql.org]
global: false
`)
	m, err := Load("deps.yaml", data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := domains(m.Dependencies); len(got) != 2 || got[0] != "nodejs.org" || got[1] != "postgresql.org" {
		t.Fatalf("Dependencies domains = %v, want [nodejs.org postgresql.org]", got)
	}

	byDomain := map[string]PackageSpec{}
	for _, s := range m.Dependencies {
		byDomain[s.Domain] = s
	}

	node := byDomain["nodejs.org"]
	if node.Constraint != "^20.0.0" {
		t.Errorf("nodejs.org constraint = %q, want ^20.0.0", node.Constraint)
	}
	if node.Global {
		t.Error("nodejs.org should inherit file-scope global=false")
	}

	pg := byDomain["postgresql.org"]
	if pg.Constraint != ">=14.0.0" {
		t.Errorf("postgresql.org constraint = %q, want >=14.0.0", pg.Constraint)
	}
	if !pg.Global {
		t.Error("postgresql.org should have its own global=true override")
	}

	if m.Env["NODE_ENV"] != "development" {
		t.Errorf("Env[NODE_ENV] = %q, want development", m.Env["NODE_ENV"])
	}
	if !m.Services.Enabled || len(m.Services.AutoStart) != 1 || m.Services.AutoStart[0] != "postgresql.org" {
		t.Errorf("Services = %+v, want enabled with autoStart [postgresql.org]", m.Services)
	}
}

func TestLoadEmptyDependenciesIsValid(t *testing.T) {
	m, err := Load("deps.yaml", []byte("dependencies:\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want empty", m.Dependencies)
	}
}

func TestLoadFileScopeGlobalInheritance(t *testing.T) {
	data := []byte(`
global: true
dependencies:
  bun.sh: "*"
`)
	m, err := Load("deps.yaml", data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Dependencies) != 1 || !m.Dependencies[0].Global {
		t.Errorf("Dependencies = %+v, want bun.sh to inherit global=true", m.Dependencies)
	}
}

func TestLoadMalformedYAMLReturnsError(t *testing.T) {
	_, err := Load("deps.yaml", []byte("dependencies: [this is not a mapping"))
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestDiscoverFindsRecognizedFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkgx.yaml")
	if err := os.WriteFile(path, []byte("dependencies:\n  go.dev: ^1.21\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, warnings, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if m == nil || len(m.Dependencies) != 1 || m.Dependencies[0].Domain != "go.dev" {
		t.Fatalf("Discover result = %+v, want one dependency go.dev", m)
	}
}

func TestDiscoverMissingManifestIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	m, warnings, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if m != nil || len(warnings) != 0 {
		t.Errorf("Discover = %+v, %v, want nil, no warnings", m, warnings)
	}
}

func TestDiscoverMalformedManifestIsWarningNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deps.yaml")
	if err := os.WriteFile(path, []byte("dependencies: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, warnings, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover returned a hard error, want a Warning: %v", err)
	}
	if m != nil {
		t.Errorf("m = %+v, want nil on a malformed manifest", m)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
}

func TestDiscoverGlobalReadsDotfiles(t *testing.T) {
	home := t.TempDir()
	dotfiles := filepath.Join(home, ".dotfiles")
	if err := os.MkdirAll(dotfiles, 0o755); err != nil {
		t.Fatal(err)
	}
	data := []byte("global: true\ndependencies:\n  bun.sh: \"*\"\n")
	if err := os.WriteFile(filepath.Join(dotfiles, "deps.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	m, warnings, err := DiscoverGlobal(home)
	if err != nil {
		t.Fatalf("DiscoverGlobal: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if m == nil || len(m.Dependencies) != 1 || m.Dependencies[0].Domain != "bun.sh" || !m.Dependencies[0].Global {
		t.Fatalf("DiscoverGlobal result = %+v, want global bun.sh dependency", m)
	}
}
