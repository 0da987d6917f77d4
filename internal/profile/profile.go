// Package profile defines named build profiles and renders them as go
// build/test flags.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind separates optimized builds from debugging builds.
type Kind string

const (
	Release     Kind = "release"
	Development Kind = "development"
)

// DebugInfo controls how much symbol and DWARF information the linker keeps.
type DebugInfo string

const (
	DebugNone  DebugInfo = "none"  // -ldflags "-s -w"
	DebugLines DebugInfo = "lines" // -ldflags "-w"
	DebugFull  DebugInfo = "full"  // linker defaults
)

// Build tags understood by package ae.
const (
	TagAssertions = "aeassert"
	TagOverflow   = "aeoverflow"
)

// PGOOff disables profile-guided optimization.
const PGOOff = "off"

// Profile is a named set of compiler and linker settings.
type Profile struct {
	Name            string    `yaml:"-" json:"name"`
	Kind            Kind      `yaml:"kind" json:"kind"`
	OptLevel        int       `yaml:"opt_level" json:"opt_level"` // 0: -N -l, 1: -l, 2: compiler default
	Debug           DebugInfo `yaml:"debug" json:"debug"`
	OverflowChecks  bool      `yaml:"overflow_checks" json:"overflow_checks"`
	DebugAssertions bool      `yaml:"debug_assertions" json:"debug_assertions"`
	PGO             string    `yaml:"pgo" json:"pgo"`                     // "auto", "off", or a profile path
	CodegenUnits    int       `yaml:"codegen_units" json:"codegen_units"` // compiler backend concurrency (-c)
	AllPackages     bool      `yaml:"all_packages" json:"all_packages"`   // apply gcflags to dependencies too
}

// Built-in profile names.
const (
	NameRelease     = "release"
	NameReleaseDeps = "release-deps"
	NameDev         = "dev"
	NameDevDeps     = "dev-deps"
)

// Builtins returns the four standard profiles.
func Builtins() map[string]Profile {
	release := Profile{
		Kind:         Release,
		OptLevel:     2,
		Debug:        DebugNone,
		PGO:          "auto",
		CodegenUnits: 1,
	}
	dev := Profile{
		Kind:            Development,
		OptLevel:        0,
		Debug:           DebugFull,
		OverflowChecks:  true,
		DebugAssertions: true,
		PGO:             PGOOff,
		CodegenUnits:    4,
	}

	releaseDeps := release
	releaseDeps.AllPackages = true
	devDeps := dev
	devDeps.AllPackages = true

	profiles := map[string]Profile{
		NameRelease:     release,
		NameReleaseDeps: releaseDeps,
		NameDev:         dev,
		NameDevDeps:     devDeps,
	}
	for name, p := range profiles {
		p.Name = name
		profiles[name] = p
	}
	return profiles
}

// ErrUnknownProfile is returned by Lookup for names that are not defined.
var ErrUnknownProfile = errors.New("unknown build profile")

// Merge returns the built-in profiles overlaid with user-defined ones.
func Merge(overrides map[string]Profile) map[string]Profile {
	profiles := Builtins()
	for name, p := range overrides {
		p.Name = name
		profiles[name] = p
	}
	return profiles
}

// Lookup resolves a profile by name from the built-ins plus overrides.
func Lookup(name string, overrides map[string]Profile) (Profile, error) {
	p, ok := Merge(overrides)[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, name, strings.Join(Names(overrides), ", "))
	}
	return p, nil
}

// Names returns all profile names, sorted.
func Names(overrides map[string]Profile) []string {
	profiles := Merge(overrides)
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that a profile's settings agree with its kind. Development
// profiles keep PGO off and assertions on; release profiles do the inverse.
func (p Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if p.OptLevel < 0 || p.OptLevel > 2 {
		errs = append(errs, fmt.Errorf("opt_level %d out of range 0..2", p.OptLevel))
	}
	if p.CodegenUnits < 1 {
		errs = append(errs, fmt.Errorf("codegen_units must be >= 1, got %d", p.CodegenUnits))
	}
	switch p.Debug {
	case DebugNone, DebugLines, DebugFull:
	default:
		errs = append(errs, fmt.Errorf("invalid debug level %q (valid: none, lines, full)", p.Debug))
	}
	if p.PGO == "" {
		errs = append(errs, errors.New("pgo is empty (use \"off\", \"auto\", or a path)"))
	}

	switch p.Kind {
	case Development:
		if p.PGO != PGOOff {
			errs = append(errs, errors.New("development profiles must disable pgo"))
		}
		if !p.DebugAssertions {
			errs = append(errs, errors.New("development profiles must enable debug assertions"))
		}
	case Release:
		if p.PGO == PGOOff {
			errs = append(errs, errors.New("release profiles must enable pgo"))
		}
		if p.DebugAssertions {
			errs = append(errs, errors.New("release profiles must disable debug assertions"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid kind %q (valid: release, development)", p.Kind))
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile %q: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

// Tags returns the build tags implied by the profile.
func (p Profile) Tags() []string {
	var tags []string
	if p.DebugAssertions {
		tags = append(tags, TagAssertions)
	}
	if p.OverflowChecks {
		tags = append(tags, TagOverflow)
	}
	return tags
}

// GCFlags returns the compiler flags, without the -gcflags= prefix.
func (p Profile) GCFlags() string {
	var parts []string
	switch p.OptLevel {
	case 0:
		parts = append(parts, "-N", "-l")
	case 1:
		parts = append(parts, "-l")
	}
	if p.CodegenUnits > 0 {
		parts = append(parts, "-c="+strconv.Itoa(p.CodegenUnits))
	}
	flags := strings.Join(parts, " ")
	if p.AllPackages && flags != "" {
		flags = "all=" + flags
	}
	return flags
}

// LDFlags returns the linker flags, without the -ldflags= prefix.
func (p Profile) LDFlags() string {
	switch p.Debug {
	case DebugNone:
		return "-s -w"
	case DebugLines:
		return "-w"
	default:
		return ""
	}
}

// Flags renders the profile as arguments for go build or go test.
func (p Profile) Flags() []string {
	var args []string
	if gc := p.GCFlags(); gc != "" {
		args = append(args, "-gcflags="+gc)
	}
	if ld := p.LDFlags(); ld != "" {
		args = append(args, "-ldflags="+ld)
	}
	if tags := p.Tags(); len(tags) > 0 {
		args = append(args, "-tags="+strings.Join(tags, ","))
	}
	if p.PGO != "" {
		args = append(args, "-pgo="+p.PGO)
	}
	return args
}
