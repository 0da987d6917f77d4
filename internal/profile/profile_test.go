package profile

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestBuiltins_Validate(t *testing.T) {
	for name, p := range Builtins() {
		if p.Name != name {
			t.Errorf("profile %q has Name %q", name, p.Name)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("builtin %q should validate: %v", name, err)
		}
	}
}

func TestBuiltins_KindConsistency(t *testing.T) {
	profiles := Builtins()
	if len(profiles) != 4 {
		t.Fatalf("expected 4 builtin profiles, got %d", len(profiles))
	}

	for _, name := range []string{NameDev, NameDevDeps} {
		p := profiles[name]
		if p.Kind != Development {
			t.Errorf("%s: expected development kind, got %s", name, p.Kind)
		}
		if p.PGO != PGOOff {
			t.Errorf("%s: expected pgo off, got %q", name, p.PGO)
		}
		if !p.DebugAssertions || !p.OverflowChecks {
			t.Errorf("%s: expected assertions and overflow checks on", name)
		}
	}
	for _, name := range []string{NameRelease, NameReleaseDeps} {
		p := profiles[name]
		if p.Kind != Release {
			t.Errorf("%s: expected release kind, got %s", name, p.Kind)
		}
		if p.PGO == PGOOff {
			t.Errorf("%s: expected pgo enabled", name)
		}
		if p.DebugAssertions || p.OverflowChecks {
			t.Errorf("%s: expected assertions and overflow checks off", name)
		}
	}

	if profiles[NameRelease].AllPackages || !profiles[NameReleaseDeps].AllPackages {
		t.Error("only release-deps should apply flags to all packages")
	}
	if profiles[NameDev].AllPackages || !profiles[NameDevDeps].AllPackages {
		t.Error("only dev-deps should apply flags to all packages")
	}
}

func TestValidate_Inconsistent(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantMsg string
	}{
		{"dev with pgo", func(p *Profile) { p.Kind = Development; p.PGO = "auto"; p.DebugAssertions = true }, "must disable pgo"},
		{"dev without assertions", func(p *Profile) { p.Kind = Development; p.PGO = PGOOff; p.DebugAssertions = false }, "must enable debug assertions"},
		{"release without pgo", func(p *Profile) { p.PGO = PGOOff }, "must enable pgo"},
		{"release with assertions", func(p *Profile) { p.DebugAssertions = true }, "must disable debug assertions"},
		{"bad opt level", func(p *Profile) { p.OptLevel = 3 }, "opt_level 3"},
		{"zero codegen units", func(p *Profile) { p.CodegenUnits = 0 }, "codegen_units"},
		{"bad debug", func(p *Profile) { p.Debug = "verbose" }, "invalid debug level"},
		{"bad kind", func(p *Profile) { p.Kind = "bench" }, "invalid kind"},
		{"empty pgo", func(p *Profile) { p.PGO = "" }, "pgo is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Builtins()[NameRelease]
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestFlags(t *testing.T) {
	profiles := Builtins()

	tests := []struct {
		name string
		want []string
	}{
		{NameRelease, []string{"-gcflags=-c=1", "-ldflags=-s -w", "-pgo=auto"}},
		{NameReleaseDeps, []string{"-gcflags=all=-c=1", "-ldflags=-s -w", "-pgo=auto"}},
		{NameDev, []string{"-gcflags=-N -l -c=4", "-tags=aeassert,aeoverflow", "-pgo=off"}},
		{NameDevDeps, []string{"-gcflags=all=-N -l -c=4", "-tags=aeassert,aeoverflow", "-pgo=off"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := profiles[tt.name].Flags()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLDFlags_Lines(t *testing.T) {
	p := Profile{Debug: DebugLines}
	if got := p.LDFlags(); got != "-w" {
		t.Errorf("expected -w, got %q", got)
	}
	p.OptLevel = 1
	if got := p.GCFlags(); got != "-l" {
		t.Errorf("expected -l, got %q", got)
	}
}

func TestLookup(t *testing.T) {
	overrides := map[string]Profile{
		"bench": {Kind: Release, OptLevel: 2, Debug: DebugLines, PGO: "default.pgo", CodegenUnits: 2},
		NameDev: {Kind: Development, OptLevel: 1, Debug: DebugFull, DebugAssertions: true, PGO: PGOOff, CodegenUnits: 1},
	}

	p, err := Lookup("bench", overrides)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "bench" || p.PGO != "default.pgo" {
		t.Errorf("unexpected profile: %+v", p)
	}

	p, err = Lookup(NameDev, overrides)
	if err != nil {
		t.Fatal(err)
	}
	if p.OptLevel != 1 {
		t.Errorf("expected override to replace builtin dev, got opt_level %d", p.OptLevel)
	}

	_, err = Lookup("nope", overrides)
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
	if !strings.Contains(err.Error(), "bench") {
		t.Errorf("expected available names in error, got %q", err.Error())
	}

	names := Names(overrides)
	want := []string{"bench", NameDev, NameDevDeps, NameRelease, NameReleaseDeps}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}
