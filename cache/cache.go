// Package cache implements the content-addressed archive store keyed by
// (domain, version), shared across all project environments. Integrity is
// size-based only; extraction failure is responsible for catching a
// truncated or corrupt archive and triggering a re-fetch.
package cache

import (
	"os"
	"path/filepath"

	"github.com/home-lang/pantry-sub000/internal/fsutil"
	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// Cache is a directory-backed content-addressed store.
//
//	{root}/packages/{domain}-{version}/package.{ext}
//
// A per-entry flock guards concurrent writers racing to
// populate the same entry from two environments at once.
type Cache struct {
	root string
}

// New returns a Cache rooted at root (conventionally
// $XDG_CACHE_HOME/launchpad/binaries).
func New(root string) *Cache {
	return &Cache{root: root}
}

// Root returns the cache's root directory.
func (c *Cache) Root() string { return c.root }

func entryDir(root, domain, version string) string {
	return filepath.Join(root, "packages", domain+"-"+version)
}

// Path returns the on-disk path an archive for (domain, version, ext) would
// occupy, whether or not it currently exists.
func (c *Cache) Path(domain, version, ext string) string {
	return filepath.Join(entryDir(c.root, domain, version), "package."+ext)
}

// Lookup reports whether a non-empty archive already exists for
// (domain, version, ext). A zero-length file is treated as a miss, per the
// spec's "file present and non-empty is a hit" policy.
func (c *Cache) Lookup(domain, version, ext string) (path string, hit bool) {
	p := c.Path(domain, version, ext)
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() || fi.Size() == 0 {
		return "", false
	}
	return p, true
}

// Store writes data read from src into the cache entry for
// (domain, version, ext), using a per-entry lock plus temp-then-rename so
// concurrent writers from different environments never observe a partial
// file, and so a crash mid-write never leaves a corrupt entry in place.
func (c *Cache) Store(domain, version, ext string, write func(dest *os.File) error) (string, error) {
	dir := entryDir(c.root, domain, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating cache entry dir %s", dir)
	}

	lockPath := filepath.Join(dir, ".lock")
	fl := flock.NewFlock(lockPath)
	if err := fl.Lock(); err != nil {
		return "", errors.Wrapf(err, "locking cache entry %s", lockPath)
	}
	defer fl.Unlock()

	dest := c.Path(domain, version, ext)
	if p, hit := c.Lookup(domain, version, ext); hit {
		// Another writer won the race while we waited for the lock.
		return p, nil
	}

	if err := fsutil.WriteAtomic(dest, write); err != nil {
		return "", errors.Wrapf(err, "writing cache entry %s", dest)
	}
	return dest, nil
}

// Evict removes a (possibly corrupt) cache entry so the next Lookup misses
// and the caller re-fetches: extraction failure evicts and re-fetches.
func (c *Cache) Evict(domain, version, ext string) error {
	p := c.Path(domain, version, ext)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "evicting cache entry %s", p)
	}
	return nil
}
