// Package domain contains the core models for the environment matrix: the
// declared matrix, template expansion, and resolution into a concrete,
// dependency-ordered run plan.
package domain

import "go.trai.ch/zerr"

// Section is one declared [env:<name>] block. The name may carry template
// axes and then declares every expanded concrete environment at once.
type Section struct {
	Name   string
	Config EnvConfig
}

// Matrix is the full declared environment set: the default selection
// (envlist), the [env:default] body inherited by every environment, and the
// declared sections in file order.
type Matrix struct {
	Envlist  []string
	Defaults EnvConfig
	Sections []Section
}

// visit states for the dependency walk.
const (
	unvisited = iota
	visiting
	visited
)

// Resolve expands template axes and produces the concrete run plan for the
// given selection (the envlist when selection is empty). Environments named
// in depends are scheduled before their dependents; independent environments
// keep selection order. It fails with ErrUnknownEnvironment when a name does
// not resolve and with ErrCyclicDependency when depends edges form a cycle.
func (m *Matrix) Resolve(selection []string) ([]Environment, error) {
	if len(selection) == 0 {
		selection = m.Envlist
	}

	known := m.knownEnvironments()
	requested := ExpandNames(selection)
	for _, name := range requested {
		if _, ok := known[name]; !ok {
			return nil, zerr.With(ErrUnknownEnvironment, "environment", name)
		}
	}

	plan := make([]Environment, 0, len(requested))
	state := make(map[string]int, len(requested))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		state[name] = visiting
		path = append(path, name)

		env := concretize(name, known[name])
		for _, dep := range env.Depends {
			depName := dep.String()
			if _, ok := known[depName]; !ok {
				return zerr.With(ErrUnknownEnvironment, "environment", depName)
			}
			switch state[depName] {
			case visiting:
				return cycleError(path, depName)
			case unvisited:
				if err := visit(depName); err != nil {
					return err
				}
			}
		}

		state[name] = visited
		path = path[:len(path)-1]
		plan = append(plan, env)
		return nil
	}

	for _, name := range requested {
		if state[name] == unvisited {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}

	return plan, nil
}

// knownEnvironments maps every resolvable concrete name to its merged
// configuration. Names come from the expanded envlist (defaults only) and
// from expanded section names (defaults overlaid with the section body);
// when several sections expand to the same name the last declaration wins.
func (m *Matrix) knownEnvironments() map[string]EnvConfig {
	known := make(map[string]EnvConfig)
	for _, name := range ExpandNames(m.Envlist) {
		known[name] = m.Defaults
	}
	for _, sec := range m.Sections {
		for _, name := range ExpandName(sec.Name) {
			known[name] = m.Defaults.merge(sec.Config)
		}
	}
	return known
}

// cycleError builds an ErrCyclicDependency whose metadata spells out the
// offending path, e.g. "a -> b -> a".
func cycleError(path []string, dep string) error {
	start := 0
	for i, node := range path {
		if node == dep {
			start = i
			break
		}
	}
	cycle := ""
	for _, node := range path[start:] {
		cycle += node + " -> "
	}
	cycle += dep
	return zerr.With(ErrCyclicDependency, "cycle", cycle)
}
