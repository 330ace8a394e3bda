package catalog

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/home-lang/pantry-sub000/specparser"
	"github.com/home-lang/pantry-sub000/version"
	"github.com/pkg/errors"
)

// fileEntry is the on-disk JSON shape of one catalog domain, loaded from a
// single snapshot file rather than hitting the network on every lookup.
type fileEntry struct {
	Versions     []string     `json:"versions"`
	Programs     []string     `json:"programs"`
	Dependencies []Dependency `json:"dependencies"`
	Companions   []string     `json:"companions"`
}

// FileCatalog is a Catalog backed by a single JSON snapshot file:
//
//	{ "domain.com": { "versions": [...], "programs": [...], "dependencies": [...] } }
type FileCatalog struct {
	entries map[string]fileEntry
}

// LoadFileCatalog reads and parses the snapshot at path.
func LoadFileCatalog(path string) (*FileCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog snapshot %s", path)
	}
	defer f.Close()

	var raw map[string]fileEntry
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "parsing catalog snapshot %s", path)
	}

	return &FileCatalog{entries: raw}, nil
}

func (c *FileCatalog) Versions(domain string) []string {
	e, ok := c.entries[domain]
	if !ok {
		return []string{}
	}
	return version.SortDescending(e.Versions)
}

func (c *FileCatalog) Info(domain string) *Info {
	e, ok := c.entries[domain]
	if !ok {
		return nil
	}
	latest := ""
	if vs := c.Versions(domain); len(vs) > 0 {
		latest = vs[0]
	}
	return &Info{
		LatestVersion: latest,
		Dependencies:  e.Dependencies,
		Programs:      e.Programs,
		Companions:    e.Companions,
	}
}

func (c *FileCatalog) ResolveAlias(alias string) string {
	resolved := specparser.ResolveAlias(alias)
	if _, ok := c.entries[resolved]; ok {
		return resolved
	}
	// Fall back to a case-insensitive scan of known domains, since the
	// static alias table in specparser only covers the well-known set.
	lower := strings.ToLower(alias)
	for domain := range c.entries {
		if strings.ToLower(domain) == lower {
			return domain
		}
	}
	return resolved
}
