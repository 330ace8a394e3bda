// Package envhash derives the stable per-project environment identifier
// Launchpad uses to key its on-disk environment directories, by hashing a
// canonicalized path with crypto/md5 to get a short, stable,
// collision-resistant ID.
package envhash

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"

	"github.com/pkg/errors"
)

// ID returns the environment identifier for projectPath, in the form
// "{basename}_{hash8}" where hash8 is the first 8 hex characters of the
// MD5 digest of the symlink-resolved absolute path. Resolving symlinks
// first means two paths that reach the same project directory (e.g. via a
// symlinked checkout) hash identically.
func ID(projectPath string) (string, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", errors.Wrapf(err, "resolving absolute path for %s", projectPath)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolving symlinks for %s", abs)
	}

	sum := md5.Sum([]byte(resolved))
	hash8 := hex.EncodeToString(sum[:])[:8]

	base := filepath.Base(resolved)
	return base + "_" + hash8, nil
}
