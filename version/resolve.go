package version

import "strings"

// Resolve implements the constraint-to-version selection table: versions
// need not be pre-sorted; Resolve sorts internally. Returns ("", false)
// when nothing satisfies the constraint.
func Resolve(constraint string, versions []string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	sorted := SortDescending(versions)
	c := ParseConstraint(constraint)

	switch c.Kind {
	case KindGte, KindGt, KindLte, KindLt, KindCaret, KindTilde:
		if c.V == "" {
			// A bare operator (">=") has no operand and satisfies nothing.
			return "", false
		}
	}

	switch c.Kind {
	case KindAny:
		return sorted[0], true
	case KindExact:
		for _, v := range sorted {
			if v == c.V {
				return v, true
			}
		}
		// c.V may be a partial prefix (e.g. "1.1"): fall back to the newest
		// version whose string form starts with it.
		return firstMatching(sorted, func(v Version) bool { return strings.HasPrefix(v.String(), c.V) })
	case KindCaret:
		return resolveCaret(c.V, sorted)
	case KindTilde:
		return resolveTilde(c.V, sorted)
	case KindGte:
		return firstMatching(sorted, func(v Version) bool { return Compare(v, Parse(c.V)) >= 0 })
	case KindGt:
		return firstMatching(sorted, func(v Version) bool { return Compare(v, Parse(c.V)) > 0 })
	case KindLte:
		return firstMatching(sorted, func(v Version) bool { return Compare(v, Parse(c.V)) <= 0 })
	case KindLt:
		return firstMatching(sorted, func(v Version) bool { return Compare(v, Parse(c.V)) < 0 })
	case KindRange:
		lo, hi := Parse(c.Lo), Parse(c.Hi)
		return firstMatching(sorted, func(v Version) bool {
			return Compare(v, lo) >= 0 && Compare(v, hi) <= 0
		})
	case KindPattern:
		return resolvePattern(c.V, sorted)
	case KindConjunction:
		return resolveConjunction(c.V, sorted)
	}

	return "", false
}

func firstMatching(sorted []string, ok func(Version) bool) (string, bool) {
	for _, v := range sorted {
		if ok(Parse(v)) {
			return v, true
		}
	}
	return "", false
}

// resolveCaret implements "^maj[.min[.patch]]": newest version with the same
// major; if minor given, minor must be >= specified; if patch given too,
// patch must be >= specified whenever minor ties.
func resolveCaret(spec string, sorted []string) (string, bool) {
	want := Parse(spec)
	n := want.NumComponents()

	return firstMatching(sorted, func(v Version) bool {
		if v.Major() != want.Major() {
			return false
		}
		if n < 2 {
			return true
		}
		if v.Minor() < want.Minor() {
			return false
		}
		if v.Minor() > want.Minor() {
			return true
		}
		if n < 3 {
			return true
		}
		return v.Patch() >= want.Patch()
	})
}

// resolveTilde implements "~maj.min[.patch]": newest version with the same
// major AND minor; patch >= specified if given.
func resolveTilde(spec string, sorted []string) (string, bool) {
	want := Parse(spec)
	n := want.NumComponents()

	return firstMatching(sorted, func(v Version) bool {
		if v.Major() != want.Major() || v.Minor() != want.Minor() {
			return false
		}
		if n < 3 {
			return true
		}
		return v.Patch() >= want.Patch()
	})
}

// resolvePattern implements "maj.x[.x]"-style wildcard matching.
func resolvePattern(spec string, sorted []string) (string, bool) {
	specParts := strings.Split(spec, ".")
	return firstMatching(sorted, func(v Version) bool {
		vParts := strings.Split(v.String(), ".")
		if len(vParts) < len(specParts) {
			return false
		}
		for i, sp := range specParts {
			if strings.EqualFold(sp, "x") {
				continue
			}
			if i >= len(vParts) || vParts[i] != sp {
				return false
			}
		}
		return true
	})
}

// resolveConjunction handles multi-operator strings like ">=1.1.0<1.1.43" by
// scanning left to right for operator/operand pairs and ANDing every
// resulting clause, per the Open Question decision recorded in DESIGN.md.
func resolveConjunction(spec string, sorted []string) (string, bool) {
	clauses := splitClauses(spec)
	if len(clauses) == 0 {
		return "", false
	}

	return firstMatching(sorted, func(v Version) bool {
		for _, cl := range clauses {
			c := ParseConstraint(cl)
			if !satisfies(v, c) {
				return false
			}
		}
		return true
	})
}

func satisfies(v Version, c Constraint) bool {
	switch c.Kind {
	case KindGte:
		return Compare(v, Parse(c.V)) >= 0
	case KindGt:
		return Compare(v, Parse(c.V)) > 0
	case KindLte:
		return Compare(v, Parse(c.V)) <= 0
	case KindLt:
		return Compare(v, Parse(c.V)) < 0
	case KindExact:
		return v.String() == c.V
	default:
		return true
	}
}

// splitClauses breaks a chained operator string into individual
// operator+operand substrings, e.g. ">=1.1.0<1.1.43" -> [">=1.1.0", "<1.1.43"].
func splitClauses(s string) []string {
	var clauses []string
	var opStarts []int
	i := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], ">="), strings.HasPrefix(s[i:], "<="):
			opStarts = append(opStarts, i)
			i += 2
		case s[i] == '>' || s[i] == '<':
			opStarts = append(opStarts, i)
			i++
		default:
			i++
		}
	}
	for idx, start := range opStarts {
		end := len(s)
		if idx+1 < len(opStarts) {
			end = opStarts[idx+1]
		}
		clauses = append(clauses, s[start:end])
	}
	return clauses
}
