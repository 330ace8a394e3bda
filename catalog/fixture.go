package catalog

import (
	"strings"

	"github.com/home-lang/pantry-sub000/version"
)

// Fixture is a deterministic, fully in-memory Catalog for tests: a
// map-literal stand-in for a real source manager.
type Fixture struct {
	Entries      map[string]Info
	versionLists map[string][]string
	Aliases      map[string]string
}

// NewFixture returns an empty Fixture ready for domains to be registered
// with AddDomain.
func NewFixture() *Fixture {
	return &Fixture{
		Entries:      make(map[string]Info),
		versionLists: make(map[string][]string),
		Aliases:      make(map[string]string),
	}
}

// AddDomain registers a domain with an explicit version list and metadata.
func (f *Fixture) AddDomain(domain string, versions []string, deps []Dependency, programs, companions []string) {
	f.versionLists[domain] = versions
	f.Entries[domain] = Info{
		LatestVersion: firstOrEmpty(version.SortDescending(versions)),
		Dependencies:  deps,
		Programs:      programs,
		Companions:    companions,
	}
}

func firstOrEmpty(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func (f *Fixture) Versions(domain string) []string {
	vs, ok := f.versionLists[domain]
	if !ok {
		return []string{}
	}
	return version.SortDescending(vs)
}

func (f *Fixture) Info(domain string) *Info {
	e, ok := f.Entries[domain]
	if !ok {
		return nil
	}
	return &e
}

func (f *Fixture) ResolveAlias(alias string) string {
	if resolved, ok := f.Aliases[alias]; ok {
		return resolved
	}
	for name, resolved := range f.Aliases {
		if strings.EqualFold(name, alias) {
			return resolved
		}
	}
	return alias
}
