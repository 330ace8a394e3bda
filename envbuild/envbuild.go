// Package envbuild materializes an Environment: per-project shim scripts,
// the shell activation/deactivation snippet, and the shell-integration
// preamble, built with strings.Builder rather than a templating engine;
// text/template is reserved for service/, where a named-field data shape
// is already a better fit.
package envbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/home-lang/pantry-sub000/installer"
	"github.com/home-lang/pantry-sub000/pathscan"
	"github.com/pkg/errors"
)

// libraryPathVars are the dynamic-linker search-path variables shims and
// the activation snippet both save, prepend to, and restore.
var libraryPathVars = []string{"LD_LIBRARY_PATH", "DYLD_LIBRARY_PATH", "DYLD_FALLBACK_LIBRARY_PATH"}

// Plan is what BuildEnvironment needs to know about an environment: its
// root directory and the project it belongs to.
type Plan struct {
	EnvRoot     string
	ProjectPath string
}

// BuildEnvironment populates envRoot/bin with shims for every binary the
// installed packages provide, then returns the shell activation snippet to
// emit on stdout. It is the always-run path; callers wanting the fast-path
// skip behavior should call FastPathReady first and only fall through to
// BuildEnvironment on a miss.
func BuildEnvironment(plan Plan) (string, error) {
	libPaths, err := pathscan.ScanLibraryPaths(plan.EnvRoot)
	if err != nil {
		return "", errors.Wrap(err, "scanning library paths")
	}

	shimDir := filepath.Join(plan.EnvRoot, "bin")
	if err := os.MkdirAll(shimDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating shim dir %s", shimDir)
	}

	binaries, err := discoverInstalledBinaries(plan.EnvRoot)
	if err != nil {
		return "", err
	}

	for name, realPath := range binaries {
		if err := writeShim(filepath.Join(shimDir, name), shimDir, realPath, libPaths); err != nil {
			return "", errors.Wrapf(err, "writing shim for %s", name)
		}
	}

	return ActivationSnippet(plan, shimDir, libPaths), nil
}

// FastPathReady reports whether envRoot already has at least one installed
// package, letting the caller skip straight to rebuilding and emitting the
// activation snippet without resolving or installing anything.
func FastPathReady(envRoot string) (bool, error) {
	ready, _, _, err := pathscan.CheckEnvironmentReady(envRoot)
	return ready, err
}

// discoverInstalledBinaries maps each binary name a package's
// metadata.json advertises to its real on-disk path.
func discoverInstalledBinaries(envRoot string) (map[string]string, error) {
	pkgsRoot := filepath.Join(envRoot, "pkgs")
	domains, err := os.ReadDir(pkgsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "reading %s", pkgsRoot)
	}

	out := make(map[string]string)
	for _, domainEntry := range domains {
		if !domainEntry.IsDir() {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(pkgsRoot, domainEntry.Name()))
		if err != nil {
			continue
		}
		for _, versionEntry := range versions {
			if !versionEntry.IsDir() || !strings.HasPrefix(versionEntry.Name(), "v") {
				continue
			}
			version := strings.TrimPrefix(versionEntry.Name(), "v")
			ip, err := installer.ReadMetadata(envRoot, domainEntry.Name(), version)
			if err != nil {
				continue
			}
			for _, name := range ip.Binaries {
				for _, sub := range []string{"bin", "sbin"} {
					candidate := filepath.Join(ip.InstallPath, sub, name)
					if _, err := os.Stat(candidate); err == nil {
						out[name] = candidate
					}
				}
			}
		}
	}
	return out, nil
}

// writeShim writes a shell shim at shimPath that saves PATH and the library
// path variables, prepends the environment's bin directory and the
// discovered library directories, restores on EXIT, and execs realPath.
func writeShim(shimPath, shimDir, realPath string, libPaths []string) error {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("_ORIG_PATH=\"$PATH\"\n")
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, "_ORIG_%s=\"$%s\"\n", v, v)
	}

	b.WriteString("_cleanup_env() {\n")
	b.WriteString("  export PATH=\"$_ORIG_PATH\"\n")
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, "  export %s=\"$_ORIG_%s\"\n", v, v)
	}
	b.WriteString("}\n")
	b.WriteString("trap _cleanup_env EXIT\n")

	fmt.Fprintf(&b, "export PATH=\"%s\"\n", joinPrepend([]string{shimDir}, "$PATH"))
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, "export %s=\"%s\"\n", v, joinPrepend(libPaths, "$"+v))
	}

	fmt.Fprintf(&b, "exec %q \"$@\"\n", realPath)

	if err := os.WriteFile(shimPath, []byte(b.String()), 0o755); err != nil {
		return errors.Wrapf(err, "writing shim %s", shimPath)
	}
	return nil
}

// joinPrepend builds a colon-separated path list with dirs prepended ahead
// of tail (tail is typically a shell variable reference like "$PATH").
func joinPrepend(dirs []string, tail string) string {
	if len(dirs) == 0 {
		return tail
	}
	return strings.Join(dirs, ":") + ":" + tail
}

// ActivationSnippet builds the shell snippet emitted on stdout by `dev`:
// LAUNCHPAD_* exports, prepended PATH/library paths, and the
// _launchpad_dev_try_bye restore function.
func ActivationSnippet(plan Plan, shimDir string, libPaths []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "export LAUNCHPAD_ENV_BIN_PATH=%q\n", shimDir)
	fmt.Fprintf(&b, "export LAUNCHPAD_CURRENT_PROJECT=%q\n", plan.ProjectPath)

	b.WriteString("if [ -z \"${LAUNCHPAD_ORIGINAL_PATH+x}\" ]; then\n")
	b.WriteString("  export LAUNCHPAD_ORIGINAL_PATH=\"$PATH\"\n")
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, "  export LAUNCHPAD_ORIGINAL_%s=\"$%s\"\n", v, v)
	}
	b.WriteString("fi\n")

	fmt.Fprintf(&b, "export PATH=\"%s\"\n", joinPrepend([]string{shimDir}, "$PATH"))
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, "export %s=\"%s\"\n", v, joinPrepend(libPaths, "$"+v))
	}

	b.WriteString("_launchpad_dev_try_bye() {\n")
	fmt.Fprintf(&b, "  case \"$PWD\" in\n    %q|%q/*) return ;;\n  esac\n", plan.ProjectPath, plan.ProjectPath)
	b.WriteString("  export PATH=\"$LAUNCHPAD_ORIGINAL_PATH\"\n")
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, "  export %s=\"$LAUNCHPAD_ORIGINAL_%s\"\n", v, v)
	}
	b.WriteString("  unset LAUNCHPAD_ORIGINAL_PATH")
	for _, v := range libraryPathVars {
		fmt.Fprintf(&b, " LAUNCHPAD_ORIGINAL_%s", v)
	}
	b.WriteString("\n}\n")

	return b.String()
}

// ShellIntegrationPreamble is the snippet a separate subcommand emits for
// a user's shell rc file: it registers __launchpad_chpwd on every directory
// change and defines __launchpad_find_deps_file to walk up from $PWD
// looking for a recognized manifest filename or a well-known project
// marker.
func ShellIntegrationPreamble() string {
	markers := []string{
		"deps.yaml", "deps.yml", "dependencies.yaml", "dependencies.yml",
		"pkgx.yaml", "pkgx.yml", "launchpad.yaml", "launchpad.yml",
		"Cargo.toml", "pyproject.toml", "go.mod", "Gemfile", "package.json",
	}

	var b strings.Builder
	b.WriteString("__launchpad_find_deps_file() {\n")
	b.WriteString("  dir=\"$PWD\"\n")
	b.WriteString("  while [ \"$dir\" != \"/\" ]; do\n")
	for _, m := range markers {
		fmt.Fprintf(&b, "    [ -f \"$dir/%s\" ] && { echo \"$dir/%s\"; return 0; }\n", m, m)
	}
	b.WriteString("    dir=$(dirname \"$dir\")\n")
	b.WriteString("  done\n")
	b.WriteString("  return 1\n")
	b.WriteString("}\n")

	b.WriteString("__launchpad_chpwd() {\n")
	b.WriteString("  deps_file=$(__launchpad_find_deps_file)\n")
	b.WriteString("  if [ -n \"$deps_file\" ]; then\n")
	b.WriteString("    eval \"$(launchpad dev --shell)\"\n")
	b.WriteString("  elif [ -n \"$LAUNCHPAD_CURRENT_PROJECT\" ]; then\n")
	b.WriteString("    _launchpad_dev_try_bye\n")
	b.WriteString("  fi\n")
	b.WriteString("}\n")

	return b.String()
}
