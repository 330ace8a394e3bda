// Package resolver resolves a set of requested package specifiers against a
// Catalog into a deduplicated transitive closure of concrete
// (domain, version) pairs. The worklist/queue shape is adapted from the
// deps.dev npm resolver's tree-walk (a processed queue draining into
// dependency lookups), flattened to Launchpad's whole-graph, keep-newest
// dedup model rather than npm's per-branch tree. Trace output is gated by
// a Trace flag, ✓/✗-prefixed lines.
package resolver

import (
	"fmt"
	"sort"

	"github.com/home-lang/pantry-sub000/catalog"
	"github.com/home-lang/pantry-sub000/version"
)

// Request is one entry from a manifest or CLI invocation: an unresolved
// domain/alias name plus its constraint string.
type Request struct {
	Name       string
	Constraint string
	IsGlobal   bool
}

// ResolvedPackage is a concrete resolved dependency.
type ResolvedPackage struct {
	Domain       string
	Version      string
	Platform     string
	Arch         string
	Dependencies []*ResolvedPackage
	IsGlobal     bool
}

// Warning records a per-package resolution failure that did not abort the
// rest of the closure.
type Warning struct {
	Name   string
	Reason string
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %s", w.Name, w.Reason) }

// Options configures a Resolve call.
type Options struct {
	Platform string
	Arch     string
	Trace    bool
	TraceFn  func(format string, args ...interface{})
}

type workItem struct {
	domain     string
	constraint string
	isGlobal   bool
}

// Resolve computes the transitive closure of requests against cat:
// worklist-driven BFS, cycle detection via emitted-set membership, and
// dedup-by-domain-keep-newest after the closure completes. Results are
// returned sorted by domain for deterministic output; per-package
// failures are reported as warnings rather than aborting the batch.
func Resolve(requests []Request, cat catalog.Catalog, opts Options) ([]*ResolvedPackage, []Warning) {
	tr := tracer{enabled: opts.Trace, logf: opts.TraceFn}

	emitted := make(map[string]*ResolvedPackage) // "domain@version" -> package
	byDomain := make(map[string][]*ResolvedPackage)
	childDomains := make(map[string][]string) // "domain@version" -> dependency domains
	var warnings []Warning

	worklist := make([]workItem, 0, len(requests))
	for _, r := range requests {
		worklist = append(worklist, workItem{
			domain:     cat.ResolveAlias(r.Name),
			constraint: r.Constraint,
			isGlobal:   r.IsGlobal,
		})
	}

	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		versions := cat.Versions(item.domain)
		v, ok := version.Resolve(item.constraint, versions)
		if !ok {
			reason := fmt.Sprintf("no version of %s satisfies %q", item.domain, item.constraint)
			warnings = append(warnings, Warning{Name: item.domain, Reason: reason})
			tr.fail(item.domain, item.constraint)
			continue
		}

		key := item.domain + "@" + v
		if existing, ok := emitted[key]; ok {
			// Already emitted: either a diamond dependency on the same
			// version, or a cycle closing back on itself. Either way,
			// don't re-walk its dependencies.
			if existing.IsGlobal != item.isGlobal && item.isGlobal {
				existing.IsGlobal = true
			}
			continue
		}

		rp := &ResolvedPackage{
			Domain:   item.domain,
			Version:  v,
			Platform: opts.Platform,
			Arch:     opts.Arch,
			IsGlobal: item.isGlobal,
		}
		emitted[key] = rp
		byDomain[item.domain] = append(byDomain[item.domain], rp)
		tr.selected(item.domain, v)

		if info := cat.Info(item.domain); info != nil {
			for _, dep := range info.Dependencies {
				depDomain := cat.ResolveAlias(dep.Domain)
				childDomains[key] = append(childDomains[key], depDomain)
				worklist = append(worklist, workItem{domain: depDomain, constraint: dep.Constraint})
			}
		}
	}

	final := make(map[string]*ResolvedPackage, len(byDomain))
	for domain, pkgs := range byDomain {
		best := pkgs[0]
		for _, p := range pkgs[1:] {
			if version.Compare(version.Parse(p.Version), version.Parse(best.Version)) > 0 {
				best = p
			}
		}
		final[domain] = best
	}

	for domain, rp := range final {
		key := domain + "@" + rp.Version
		for _, depDomain := range childDomains[key] {
			if dp, ok := final[depDomain]; ok {
				rp.Dependencies = append(rp.Dependencies, dp)
			}
		}
	}

	result := make([]*ResolvedPackage, 0, len(final))
	for _, rp := range final {
		result = append(result, rp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Domain < result[j].Domain })

	tr.finish(result, warnings)
	return result, warnings
}
