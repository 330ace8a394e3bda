package specparser

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in         string
		wantName   string
		wantConstr string
	}{
		{"pcre.org/v2>=10.30", "pcre.org/v2", ">=10.30"},
		{"@scoped/pkg@1.0.0", "@scoped/pkg", "1.0.0"},
		{"org@domain.com/pkg@1.0.0", "org@domain.com/pkg", "1.0.0"},
		{"bun.sh", "bun.sh", ""},
		{"node@20", "node", "20"},
		{"foo^1.2", "foo", "^1.2"},
		{"foo~1.2", "foo", "~1.2"},
		{"foo<2", "foo", "<2"},
		{"package>=", "package", ">="},
	}

	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", c.in, err)
		}
		if got.Name != c.wantName || got.Constraint != c.wantConstr {
			t.Errorf("Parse(%q) = {%q, %q}, want {%q, %q}", c.in, got.Name, got.Constraint, c.wantName, c.wantConstr)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse("   "); err != ErrInvalidSpec {
		t.Errorf("Parse(whitespace) error = %v, want ErrInvalidSpec", err)
	}
}

func TestResolveAlias(t *testing.T) {
	cases := map[string]string{
		"node":     "nodejs.org",
		"NODE":     "nodejs.org",
		"Postgres": "postgresql.org",
		"go":       "go.dev",
		"rg":       "github.com/BurntSushi/ripgrep",
		"unknown":  "unknown",
	}
	for in, want := range cases {
		if got := ResolveAlias(in); got != want {
			t.Errorf("ResolveAlias(%q) = %q, want %q", in, got, want)
		}
	}
}
