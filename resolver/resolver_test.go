package resolver

import (
	"testing"

	"github.com/home-lang/pantry-sub000/catalog"
)

func fixtureWithDiamond() *catalog.Fixture {
	f := catalog.NewFixture()
	f.AddDomain("app.dev", []string{"1.0.0"},
		[]catalog.Dependency{{Domain: "libfoo.org", Constraint: "^1"}, {Domain: "libbar.org", Constraint: "^1"}},
		nil, nil)
	f.AddDomain("libfoo.org", []string{"1.2.0"},
		[]catalog.Dependency{{Domain: "libcommon.org", Constraint: ">=1.0.0"}}, nil, nil)
	f.AddDomain("libbar.org", []string{"1.1.0"},
		[]catalog.Dependency{{Domain: "libcommon.org", Constraint: "^1.0"}}, nil, nil)
	f.AddDomain("libcommon.org", []string{"1.0.0", "1.1.0"}, nil, nil, nil)
	return f
}

func TestResolveTransitiveClosureDedup(t *testing.T) {
	f := fixtureWithDiamond()
	result, warnings := Resolve([]Request{{Name: "app.dev"}}, f, Options{})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	byDomain := map[string]*ResolvedPackage{}
	for _, rp := range result {
		if _, dup := byDomain[rp.Domain]; dup {
			t.Fatalf("domain %s emitted more than once in result", rp.Domain)
		}
		byDomain[rp.Domain] = rp
	}

	if len(byDomain) != 4 {
		t.Fatalf("got %d resolved packages, want 4 (app, foo, bar, common): %+v", len(byDomain), byDomain)
	}

	common, ok := byDomain["libcommon.org"]
	if !ok {
		t.Fatal("libcommon.org missing from result")
	}
	if common.Version != "1.1.0" {
		t.Errorf("libcommon.org version = %s, want newest 1.1.0 (dedup keeps newest)", common.Version)
	}
}

func TestResolveCycle(t *testing.T) {
	f := catalog.NewFixture()
	f.AddDomain("a.dev", []string{"1.0.0"}, []catalog.Dependency{{Domain: "b.dev", Constraint: "*"}}, nil, nil)
	f.AddDomain("b.dev", []string{"1.0.0"}, []catalog.Dependency{{Domain: "a.dev", Constraint: "*"}}, nil, nil)

	done := make(chan struct{})
	var result []*ResolvedPackage
	go func() {
		result, _ = Resolve([]Request{{Name: "a.dev"}}, f, Options{})
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done

	if len(result) != 2 {
		t.Fatalf("cyclic resolve got %d packages, want 2", len(result))
	}
}

func TestResolveUnsatisfiableRecordsWarningAndContinues(t *testing.T) {
	f := catalog.NewFixture()
	f.AddDomain("good.dev", []string{"1.0.0"}, nil, nil, nil)
	f.AddDomain("bad.dev", []string{"1.0.0"}, nil, nil, nil)

	result, warnings := Resolve([]Request{
		{Name: "good.dev"},
		{Name: "bad.dev", Constraint: ">999.0.0"},
	}, f, Options{})

	if len(warnings) != 1 || warnings[0].Name != "bad.dev" {
		t.Fatalf("warnings = %+v, want one warning for bad.dev", warnings)
	}
	if len(result) != 1 || result[0].Domain != "good.dev" {
		t.Fatalf("result = %+v, want only good.dev resolved", result)
	}
}

func TestResolveAliasIndirection(t *testing.T) {
	f := catalog.NewFixture()
	f.Aliases["node"] = "nodejs.org"
	f.AddDomain("nodejs.org", []string{"20.0.0"}, nil, nil, nil)

	result, _ := Resolve([]Request{{Name: "node"}}, f, Options{})
	if len(result) != 1 || result[0].Domain != "nodejs.org" {
		t.Fatalf("result = %+v, want alias resolved to nodejs.org", result)
	}
}

func TestResolveIsGlobalPropagates(t *testing.T) {
	f := catalog.NewFixture()
	f.AddDomain("bun.sh", []string{"1.0.0"}, nil, nil, nil)

	result, _ := Resolve([]Request{{Name: "bun.sh", IsGlobal: true}}, f, Options{})
	if len(result) != 1 || !result[0].IsGlobal {
		t.Fatalf("result = %+v, want IsGlobal true", result)
	}
}
