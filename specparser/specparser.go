// Package specparser parses a package specifier string ("pcre.org/v2>=10.30")
// into a name and an optional constraint, and resolves the built-in alias
// table, with a priority-ordered chain of simple field checks rather than
// a grammar library.
package specparser

import (
	"strings"

	"github.com/pkg/errors"
)

// Spec is the parsed (name, constraint) pair. Constraint is empty when the
// input carried none.
type Spec struct {
	Name       string
	Constraint string
}

// operators in required priority order, checked before the trailing "@"
// form.
var operators = []string{">=", "<=", ">", "<", "^", "~"}

// ErrInvalidSpec is returned only when the input is empty after trimming.
var ErrInvalidSpec = errors.New("invalid spec")

// Parse splits a specifier into name and constraint.
func Parse(spec string) (Spec, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return Spec{}, ErrInvalidSpec
	}

	for _, op := range operators {
		if idx := strings.Index(trimmed, op); idx > 0 {
			return Spec{Name: trimmed[:idx], Constraint: trimmed[idx:]}, nil
		}
	}

	return parseAtForm(trimmed), nil
}

// parseAtForm handles the "@" separator, which uses the *last* "@" in the
// string so that scoped names ("@scoped/pkg@1.0.0") and domains containing
// "@" ("org@domain.com/pkg@1.0.0") both resolve correctly. A leading "@" is
// kept as part of the name.
func parseAtForm(s string) Spec {
	last := strings.LastIndex(s, "@")
	if last <= 0 {
		// No "@", or the only "@" is a leading scope marker with nothing
		// after it to split on.
		return Spec{Name: s}
	}

	return Spec{Name: s[:last], Constraint: s[last+1:]}
}

// aliases is the fixed, case-insensitive alias table.
var aliases = map[string]string{
	"node":      "nodejs.org",
	"postgres":  "postgresql.org",
	"postgresql": "postgresql.org",
	"go":        "go.dev",
	"golang":    "go.dev",
	"ripgrep":   "github.com/BurntSushi/ripgrep",
	"rg":        "github.com/BurntSushi/ripgrep",
	"python":    "python.org",
	"py":        "python.org",
	"ruby":      "ruby-lang.org",
	"rust":      "rust-lang.org",
	"wget":      "gnu.org/wget",
}

// ResolveAlias looks up name case-insensitively in the built-in alias
// table. Unknown names pass through unchanged.
func ResolveAlias(name string) string {
	if resolved, ok := aliases[strings.ToLower(name)]; ok {
		return resolved
	}
	return name
}
