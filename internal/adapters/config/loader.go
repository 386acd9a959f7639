// Package config loads and serializes the matrix configuration file.
//
// The file is an ini dialect with python-style multiline values:
//
//	[tool]
//	envlist = py-django{30,31}, lint
//
//	[env:default]
//	deps =
//	    pytest
//	    django30: Django>=3.0,<3.1
//
//	[env:lint]
//	deps = flake8
//	commands = flake8 tagging
package config

import (
	"os"
	"strings"

	"go.trai.ch/matrix/internal/core/domain"
	"go.trai.ch/matrix/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/ini.v1"
)

const (
	toolSection      = "tool"
	envSectionPrefix = "env:"
	defaultEnvName   = "default"
)

// Loader implements ports.ConfigLoader for ini matrix files.
type Loader struct {
	log ports.Logger
}

// NewLoader creates a new Loader.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads the matrix configuration from the given path.
func (l *Loader) Load(path string) (*domain.Matrix, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes configuration bytes into a Matrix.
func Parse(data []byte) (*domain.Matrix, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
	}, data)
	if err != nil {
		return nil, zerr.With(domain.ErrParse, "reason", err.Error())
	}

	m := &domain.Matrix{}
	for _, sec := range f.Sections() {
		name := sec.Name()
		switch {
		case name == ini.DefaultSection:
			if len(sec.Keys()) > 0 {
				return nil, zerr.With(domain.ErrParse, "reason", "keys outside of a section")
			}
		case name == toolSection:
			if err := parseToolSection(sec, m); err != nil {
				return nil, err
			}
		case strings.HasPrefix(name, envSectionPrefix):
			envName := strings.TrimPrefix(name, envSectionPrefix)
			cfg, err := parseEnvSection(sec)
			if err != nil {
				return nil, err
			}
			if envName == defaultEnvName {
				m.Defaults = cfg
			} else {
				m.Sections = append(m.Sections, domain.Section{Name: envName, Config: cfg})
			}
		default:
			return nil, zerr.With(domain.ErrParse, "section", name)
		}
	}

	return m, nil
}

func parseToolSection(sec *ini.Section, m *domain.Matrix) error {
	for _, key := range sec.Keys() {
		switch key.Name() {
		case "envlist":
			m.Envlist = splitList(key.String())
		default:
			return zerr.With(domain.ErrParse, "key", toolSection+"."+key.Name())
		}
	}
	return nil
}

func parseEnvSection(sec *ini.Section) (domain.EnvConfig, error) {
	var cfg domain.EnvConfig
	for _, key := range sec.Keys() {
		value := key.String()
		switch key.Name() {
		case "deps":
			cfg.Deps = parseDeps(value)
		case "commands_pre":
			cfg.CommandsPre = splitLines(value)
		case "commands":
			cfg.Commands = splitLines(value)
		case "depends":
			cfg.Depends = splitList(value)
		case "passenv":
			cfg.PassEnv = splitWords(value)
		case "allowlist_externals":
			cfg.Allowlist = splitWords(value)
		default:
			return domain.EnvConfig{}, zerr.With(domain.ErrParse, "key", sec.Name()+"."+key.Name())
		}
	}
	return cfg, nil
}

// parseDeps splits a deps value into one spec per line. A line of the form
// "factor: spec" guards the spec on that factor; a colon inside the
// specifier itself (e.g. a URL) does not introduce a guard.
func parseDeps(value string) []domain.DependencySpec {
	lines := splitLines(value)
	deps := make([]domain.DependencySpec, 0, len(lines))
	for _, line := range lines {
		guard, rest, found := strings.Cut(line, ":")
		if found && isFactorName(guard) {
			deps = append(deps, domain.DependencySpec{
				Guard: guard,
				Raw:   strings.TrimSpace(rest),
			})
			continue
		}
		deps = append(deps, domain.DependencySpec{Raw: line})
	}
	return deps
}

// isFactorName reports whether s looks like a template-axis value, which is
// what distinguishes a guard prefix from a colon inside a specifier.
func isFactorName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// splitList splits a comma- or newline-separated list, dropping empties.
// Commas inside braces belong to a template axis ("py-django{30,31}") and do
// not separate entries.
func splitList(value string) []string {
	var out []string
	var entry strings.Builder
	depth := 0

	flush := func() {
		if part := strings.TrimSpace(entry.String()); part != "" {
			out = append(out, part)
		}
		entry.Reset()
	}

	for _, r := range value {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush()
				continue
			}
		case '\n':
			// An axis never spans lines; an unterminated brace is kept
			// verbatim and later expands to itself.
			depth = 0
			flush()
			continue
		}
		entry.WriteRune(r)
	}
	flush()
	return out
}

// splitLines splits a multiline value into trimmed non-empty lines.
func splitLines(value string) []string {
	var out []string
	for _, line := range strings.Split(value, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitWords splits on any whitespace, dropping empties.
func splitWords(value string) []string {
	return strings.Fields(value)
}
