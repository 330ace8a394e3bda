package envbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/home-lang/pantry-sub000/installer"
)

func writeFakeMetadata(t *testing.T, envRoot, domain, version, binName string) {
	t.Helper()
	installPath := installer.InstallDir(envRoot, domain, version)
	binDir := filepath.Join(installPath, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, binName), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	metaPath := installer.MetadataPath(envRoot, domain, version)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{
  "domain": "` + domain + `",
  "version": "` + version + `",
  "installedAt": "2026-01-01T00:00:00Z",
  "binaries": ["` + binName + `"],
  "installPath": "` + filepath.ToSlash(installPath) + `"
}`
	if err := os.WriteFile(metaPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildEnvironmentWritesShims(t *testing.T) {
	envRoot := t.TempDir()
	writeFakeMetadata(t, envRoot, "nodejs.org", "20.0.0", "node")

	snippet, err := BuildEnvironment(Plan{EnvRoot: envRoot, ProjectPath: "/home/user/myproject"})
	if err != nil {
		t.Fatalf("BuildEnvironment: %v", err)
	}

	shimPath := filepath.Join(envRoot, "bin", "node")
	data, err := os.ReadFile(shimPath)
	if err != nil {
		t.Fatalf("expected shim at %s: %v", shimPath, err)
	}

	shim := string(data)
	for _, want := range []string{
		"_ORIG_PATH=", "_ORIG_LD_LIBRARY_PATH=", "_ORIG_DYLD_LIBRARY_PATH=", "_ORIG_DYLD_FALLBACK_LIBRARY_PATH=",
		"trap _cleanup_env EXIT",
		"exec ",
	} {
		if !strings.Contains(shim, want) {
			t.Errorf("shim script missing %q:\n%s", want, shim)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(shim), `"$@"`) {
		t.Errorf("shim script should end execing with $@, got:\n%s", shim)
	}

	if !strings.Contains(snippet, "LAUNCHPAD_ORIGINAL_PATH") {
		t.Error("activation snippet missing LAUNCHPAD_ORIGINAL_PATH")
	}
	if !strings.Contains(snippet, "_launchpad_dev_try_bye") {
		t.Error("activation snippet missing _launchpad_dev_try_bye")
	}
}

func TestActivationSnippetContainsExpectedExports(t *testing.T) {
	plan := Plan{EnvRoot: t.TempDir(), ProjectPath: "/home/user/proj"}
	snippet := ActivationSnippet(plan, filepath.Join(plan.EnvRoot, "bin"), []string{"/some/lib"})

	for _, want := range []string{
		"LAUNCHPAD_ENV_BIN_PATH",
		"LAUNCHPAD_CURRENT_PROJECT",
		"LAUNCHPAD_ORIGINAL_PATH",
		"LAUNCHPAD_ORIGINAL_LD_LIBRARY_PATH",
		"LAUNCHPAD_ORIGINAL_DYLD_LIBRARY_PATH",
		"LAUNCHPAD_ORIGINAL_DYLD_FALLBACK_LIBRARY_PATH",
		"_launchpad_dev_try_bye",
	} {
		if !strings.Contains(snippet, want) {
			t.Errorf("snippet missing %q:\n%s", want, snippet)
		}
	}
}

func TestFastPathReady(t *testing.T) {
	envRoot := t.TempDir()
	ready, err := FastPathReady(envRoot)
	if err != nil {
		t.Fatalf("FastPathReady: %v", err)
	}
	if ready {
		t.Error("expected not ready for an empty environment")
	}

	writeFakeMetadata(t, envRoot, "nodejs.org", "20.0.0", "node")
	ready, err = FastPathReady(envRoot)
	if err != nil {
		t.Fatalf("FastPathReady: %v", err)
	}
	if !ready {
		t.Error("expected ready once a package is installed")
	}
}

func TestShellIntegrationPreambleRegistersChpwd(t *testing.T) {
	preamble := ShellIntegrationPreamble()
	for _, want := range []string{
		"__launchpad_chpwd",
		"__launchpad_find_deps_file",
		"go.mod", "Cargo.toml", "pyproject.toml", "Gemfile", "package.json",
	} {
		if !strings.Contains(preamble, want) {
			t.Errorf("preamble missing %q", want)
		}
	}
}
