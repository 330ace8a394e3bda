// Package pathscan walks an installed environment's tree to discover the
// library search-path directories the environment engine must prepend to
// DYLD_LIBRARY_PATH/LD_LIBRARY_PATH, and the bin/sbin directories a global
// (machine-wide) package set exposes, using karrick/godirwalk for fast,
// allocation-light directory walks over a package tree.
package pathscan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// libExtensions are the file extensions (or extension prefixes, for
// versioned shared objects like "libfoo.so.1") that mark a file as
// library-sized content worth exposing a directory for.
var libExtensions = []string{".so", ".dylib", ".a"}

// minLibSize is the byte-size floor below which a file isn't considered a
// real library (stub placeholders and symlink targets notwithstanding,
// which stat resolves through anyway).
const minLibSize = 100

// envRootSkipDirs are envRoot's own top-level bookkeeping directories,
// skipped both as *candidates* for the library-path result and as subtrees
// to descend into at all: "pkgs" holds only metadata.json pointers, never
// library files, since installed package trees live directly under envRoot.
var envRootSkipDirs = map[string]bool{
	"bin": true, "sbin": true, "lib": true, "lib64": true,
	"share": true, "include": true, "etc": true, "pkgs": true,
	".tmp": true, ".cache": true,
}

// ScanLibraryPaths walks envRoot and returns, in stable first-seen order,
// every directory containing at least one library-sized file. envRoot's
// own top-level bin/sbin/lib/lib64/share/include/etc/pkgs/.tmp/.cache
// directories are excluded from the result and never descended into; a
// package's own nested lib/lib64 directories are included. A directory
// belonging to a package that ships bin/php is always included, since PHP
// extension libraries are often too small to clear the size floor.
func ScanLibraryPaths(envRoot string) ([]string, error) {
	phpPackageDirs, err := packageDirsWithBinPHP(envRoot)
	if err != nil {
		return nil, err
	}

	var found []string
	seen := make(map[string]bool)

	err = godirwalk.Walk(envRoot, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == envRoot || !de.IsDir() {
				return nil
			}

			rel, relErr := filepath.Rel(envRoot, path)
			if relErr == nil && !strings.Contains(rel, string(os.PathSeparator)) && envRootSkipDirs[filepath.Base(path)] {
				return godirwalk.SkipThis
			}

			qualifies, err := hasLibraryFile(path)
			if err != nil {
				return nil
			}
			if !qualifies && underAny(path, phpPackageDirs) {
				qualifies = true
			}
			if qualifies && !seen[path] {
				seen[path] = true
				found = append(found, path)
			}
			return nil
		},
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	return found, nil
}

// underAny reports whether path is dirs[i] itself or a descendant of it,
// for any i.
func underAny(path string, dirs []string) bool {
	for _, d := range dirs {
		if path == d || strings.HasPrefix(path, d+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// packageDirsWithBinPHP returns the package version directories
// (envRoot/{domain}/v{version}) that ship a bin/php executable.
func packageDirsWithBinPHP(envRoot string) ([]string, error) {
	domains, err := os.ReadDir(envRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	for _, domainEntry := range domains {
		if !domainEntry.IsDir() || envRootSkipDirs[domainEntry.Name()] {
			continue
		}
		domainDir := filepath.Join(envRoot, domainEntry.Name())
		versions, err := os.ReadDir(domainDir)
		if err != nil {
			continue
		}
		for _, versionEntry := range versions {
			if !versionEntry.IsDir() {
				continue
			}
			versionDir := filepath.Join(domainDir, versionEntry.Name())
			if _, err := os.Stat(filepath.Join(versionDir, "bin", "php")); err == nil {
				dirs = append(dirs, versionDir)
			}
		}
	}
	return dirs, nil
}

// hasLibraryFile reports whether dir directly contains a file matching
// libExtensions and at least minLibSize bytes.
func hasLibraryFile(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isLibraryName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() >= minLibSize {
			return true, nil
		}
	}
	return false, nil
}

// isLibraryName reports whether name looks like a shared/static library,
// including versioned shared objects like "libfoo.so.1.2".
func isLibraryName(name string) bool {
	for _, ext := range libExtensions {
		if strings.Contains(name, ext) {
			return true
		}
	}
	return false
}

// ScanGlobalPaths enumerates globalRoot's bin and sbin directories. For
// domains with multiple installed versions, only the lexicographically
// greatest "v…" version directory is considered.
func ScanGlobalPaths(globalRoot string) ([]string, error) {
	domains, err := os.ReadDir(globalRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []string
	for _, domainEntry := range domains {
		if !domainEntry.IsDir() || envRootSkipDirs[domainEntry.Name()] {
			continue
		}
		domainDir := filepath.Join(globalRoot, domainEntry.Name())
		versionEntries, err := os.ReadDir(domainDir)
		if err != nil {
			continue
		}

		var versions []string
		for _, v := range versionEntries {
			if v.IsDir() && strings.HasPrefix(v.Name(), "v") {
				versions = append(versions, v.Name())
			}
		}
		if len(versions) == 0 {
			continue
		}
		sort.Strings(versions)
		latest := versions[len(versions)-1]
		versionDir := filepath.Join(domainDir, latest)

		for _, sub := range []string{"bin", "sbin"} {
			p := filepath.Join(versionDir, sub)
			if fi, err := os.Stat(p); err == nil && fi.IsDir() {
				found = append(found, p)
			}
		}
	}
	return found, nil
}

// CheckEnvironmentReady reports the environment's readiness for
// activation: whether it has any installed package at all, whether its
// bin/ directory exists, and whether any library search path was
// discovered.
func CheckEnvironmentReady(envRoot string) (ready, binExists, hasLibraries bool, err error) {
	if entries, statErr := os.ReadDir(envRoot); statErr == nil {
		for _, e := range entries {
			if e.IsDir() && !envRootSkipDirs[e.Name()] {
				ready = true
				break
			}
		}
	} else if !os.IsNotExist(statErr) {
		return false, false, false, statErr
	}

	if fi, statErr := os.Stat(filepath.Join(envRoot, "bin")); statErr == nil && fi.IsDir() {
		binExists = true
	}

	libs, err := ScanLibraryPaths(envRoot)
	if err != nil {
		return ready, binExists, false, err
	}
	hasLibraries = len(libs) > 0

	return ready, binExists, hasLibraries, nil
}
