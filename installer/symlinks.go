package installer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// libRule is one library-compatibility symlink rule: any lib/*.dylib file
// whose name matches pattern gets a sibling symlink named by applying
// replacement to the match (via regexp ReplaceAllString semantics).
type libRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// libRules is a fixed table of library-compatibility symlinks: runtime
// linkers on some platforms look for an unversioned or differently-named
// alias of a library a package actually ships.
var libRules = []libRule{
	// libncursesw.6.dylib, libncursesw.dylib -> libncurses(.6).dylib
	{regexp.MustCompile(`^libncursesw(\.\d+)?\.dylib$`), "libncurses$1.dylib"},
	// libpcre2-8.0.dylib -> libpcre2-8.dylib (drop the minor compat suffix)
	{regexp.MustCompile(`^libpcre2-(8|16|32)\.\d+\.dylib$`), "libpcre2-$1.dylib"},
	// libpng16.dylib -> libpng.dylib
	{regexp.MustCompile(`^libpng\d+\.dylib$`), "libpng.dylib"},
}

// applyLibRules walks libDir (non-recursively; library symlink quirks are a
// flat-directory concern) creating any missing compatibility symlinks named
// by libRules. Existing targets are left alone.
func applyLibRules(libDir string) error {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading lib dir %s", libDir)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, rule := range libRules {
			if !rule.pattern.MatchString(name) {
				continue
			}
			aliasName := rule.pattern.ReplaceAllString(name, rule.replacement)
			if aliasName == name {
				continue
			}
			aliasPath := filepath.Join(libDir, aliasName)
			if _, err := os.Lstat(aliasPath); err == nil {
				continue // already present, don't clobber
			}
			if err := os.Symlink(name, aliasPath); err != nil {
				return errors.Wrapf(err, "linking %s -> %s", aliasPath, name)
			}
		}
	}
	return nil
}

// versionTags maps a domain to the set of compatibility-tag symlinks
// (pointing at the real "v{version}" install directory) its consumers
// expect to find alongside the fully-qualified version directory (e.g.
// openssl.org installs get v1, v1.0, v1.1 aliases).
var versionTags = map[string][]string{
	"openssl.org": {"v1", "v1.0", "v1.1"},
}

// applyVersionTags creates pkgDir's domain-specific compatibility-tag
// symlinks, each pointing at "v{version}" inside pkgDir. Only the tags
// compatible with version's major.minor are created; a v2.x install never
// gets a "v1" alias.
func applyVersionTags(pkgDir, domain, version string) error {
	tags, ok := versionTags[domain]
	if !ok {
		return nil
	}
	target := "v" + version
	major, minor := majorMinorPrefix(version)

	for _, tag := range tags {
		if !tagMatches(tag, major, minor) {
			continue
		}
		linkPath := filepath.Join(pkgDir, tag)
		_ = os.Remove(linkPath)
		if err := os.Symlink(target, linkPath); err != nil {
			return errors.Wrapf(err, "linking %s -> %s", linkPath, target)
		}
	}
	return nil
}

// tagMatches reports whether tag ("v1", "v1.0", "v1.1", ...) is consistent
// with a version's major ("1") and major.minor ("1.1") prefixes.
func tagMatches(tag, major, majorMinor string) bool {
	stripped := strings.TrimPrefix(tag, "v")
	return stripped == major || stripped == majorMinor
}

func majorMinorPrefix(version string) (major, majorMinor string) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) == 0 {
		return "", ""
	}
	major = parts[0]
	if len(parts) >= 2 {
		majorMinor = parts[0] + "." + parts[1]
	}
	return major, majorMinor
}
