package catalog

import "testing"

func TestFixtureVersionsUnknownDomain(t *testing.T) {
	f := NewFixture()
	if vs := f.Versions("nope.dev"); len(vs) != 0 {
		t.Errorf("Versions(unknown) = %v, want empty", vs)
	}
	if info := f.Info("nope.dev"); info != nil {
		t.Errorf("Info(unknown) = %+v, want nil", info)
	}
}

func TestFixtureAddDomain(t *testing.T) {
	f := NewFixture()
	f.AddDomain("nodejs.org", []string{"18.0.0", "20.1.0", "20.0.0"},
		[]Dependency{{Domain: "openssl.org", Constraint: "^1.1"}},
		[]string{"node", "npm"}, []string{"npm"})

	vs := f.Versions("nodejs.org")
	if len(vs) != 3 || vs[0] != "20.1.0" {
		t.Errorf("Versions(nodejs.org) = %v, want newest-first starting 20.1.0", vs)
	}

	info := f.Info("nodejs.org")
	if info == nil || info.LatestVersion != "20.1.0" {
		t.Fatalf("Info(nodejs.org) = %+v, want LatestVersion 20.1.0", info)
	}
	if len(info.Dependencies) != 1 || info.Dependencies[0].Domain != "openssl.org" {
		t.Errorf("Info(nodejs.org).Dependencies = %+v, want openssl.org dep", info.Dependencies)
	}
}

func TestFixtureResolveAlias(t *testing.T) {
	f := NewFixture()
	f.Aliases["node"] = "nodejs.org"
	if got := f.ResolveAlias("node"); got != "nodejs.org" {
		t.Errorf("ResolveAlias(node) = %q, want nodejs.org", got)
	}
	if got := f.ResolveAlias("unmapped"); got != "unmapped" {
		t.Errorf("ResolveAlias(unmapped) = %q, want passthrough", got)
	}
}
