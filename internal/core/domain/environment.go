package domain

import (
	"slices"
	"strings"
)

// DependencySpec is one dependency line from the configuration. Raw carries
// the specifier text verbatim (name plus optional version constraint, e.g.
// "Django>=3.0,<3.1"). Guard, when non-empty, restricts the spec to
// environments whose factor set contains it ("django30: Django>=3.0,<3.1").
type DependencySpec struct {
	Guard string
	Raw   string
}

// AppliesTo reports whether the spec is active for the given factor set.
func (d DependencySpec) AppliesTo(factors []string) bool {
	return d.Guard == "" || slices.Contains(factors, d.Guard)
}

// EnvConfig is the body of one declared environment section. A section
// overrides the default section per key: a key set here replaces the default
// value, an absent key inherits it.
type EnvConfig struct {
	Deps        []DependencySpec
	CommandsPre []string
	Commands    []string
	Depends     []string
	PassEnv     []string
	Allowlist   []string
}

// merge overlays o onto c and returns the result. Nil slices in o mean
// "not set"; empty non-nil slices deliberately clear the inherited value.
func (c EnvConfig) merge(o EnvConfig) EnvConfig {
	out := c
	if o.Deps != nil {
		out.Deps = o.Deps
	}
	if o.CommandsPre != nil {
		out.CommandsPre = o.CommandsPre
	}
	if o.Commands != nil {
		out.Commands = o.Commands
	}
	if o.Depends != nil {
		out.Depends = o.Depends
	}
	if o.PassEnv != nil {
		out.PassEnv = o.PassEnv
	}
	if o.Allowlist != nil {
		out.Allowlist = o.Allowlist
	}
	return out
}

// Environment is one concrete, fully resolved execution context: every
// template axis expanded, guards applied, defaults merged. It is immutable
// once produced by Matrix.Resolve.
type Environment struct {
	Name    InternedString
	Factors []string

	// Deps are the active dependency specifiers, in declaration order.
	Deps []string

	// Commands is the full ordered command list (commands_pre prefix
	// followed by commands); a failing entry aborts the remainder.
	Commands []string

	// Depends names environments that must have run first.
	Depends []InternedString

	// PassEnv lists variable names forwarded from the invoking process.
	PassEnv []string

	// Allowlist names executables that may run unmanaged.
	Allowlist []string
}

// Factors splits an environment name into its factor set. The name
// "py-django30" has factors ["py", "django30"].
func Factors(name string) []string {
	return strings.Split(name, "-")
}

// concretize materializes the concrete environment for name from a merged
// section configuration.
func concretize(name string, cfg EnvConfig) Environment {
	factors := Factors(name)

	var deps []string
	for _, d := range cfg.Deps {
		if d.AppliesTo(factors) {
			deps = append(deps, d.Raw)
		}
	}

	commands := make([]string, 0, len(cfg.CommandsPre)+len(cfg.Commands))
	commands = append(commands, cfg.CommandsPre...)
	commands = append(commands, cfg.Commands...)

	var depends []InternedString
	for _, dep := range cfg.Depends {
		for _, concrete := range ExpandName(dep) {
			depends = append(depends, NewInternedString(concrete))
		}
	}

	return Environment{
		Name:      NewInternedString(name),
		Factors:   factors,
		Deps:      deps,
		Commands:  commands,
		Depends:   depends,
		PassEnv:   slices.Clone(cfg.PassEnv),
		Allowlist: slices.Clone(cfg.Allowlist),
	}
}
