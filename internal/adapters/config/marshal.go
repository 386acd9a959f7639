package config

import (
	"strings"

	"go.trai.ch/matrix/internal/core/domain"
)

// Marshal renders a Matrix in the canonical configuration file format.
// Parse(Marshal(m)) resolves to the same concrete environments as m.
func Marshal(m *domain.Matrix) []byte {
	var b strings.Builder

	b.WriteString("[" + toolSection + "]\n")
	if len(m.Envlist) > 0 {
		b.WriteString("envlist = " + strings.Join(m.Envlist, ", ") + "\n")
	}

	writeSection(&b, defaultEnvName, m.Defaults)
	for _, sec := range m.Sections {
		writeSection(&b, sec.Name, sec.Config)
	}

	return []byte(b.String())
}

func writeSection(b *strings.Builder, name string, cfg domain.EnvConfig) {
	lines := make([]string, 0, len(cfg.Deps))
	for _, dep := range cfg.Deps {
		if dep.Guard != "" {
			lines = append(lines, dep.Guard+": "+dep.Raw)
			continue
		}
		lines = append(lines, dep.Raw)
	}

	empty := len(lines) == 0 && len(cfg.CommandsPre) == 0 && len(cfg.Commands) == 0 &&
		len(cfg.Depends) == 0 && len(cfg.PassEnv) == 0 && len(cfg.Allowlist) == 0
	if empty {
		return
	}

	b.WriteString("\n[" + envSectionPrefix + name + "]\n")
	writeMultiline(b, "deps", lines)
	writeMultiline(b, "commands_pre", cfg.CommandsPre)
	writeMultiline(b, "commands", cfg.Commands)
	if len(cfg.Depends) > 0 {
		b.WriteString("depends = " + strings.Join(cfg.Depends, ", ") + "\n")
	}
	if len(cfg.PassEnv) > 0 {
		b.WriteString("passenv = " + strings.Join(cfg.PassEnv, " ") + "\n")
	}
	if len(cfg.Allowlist) > 0 {
		b.WriteString("allowlist_externals = " + strings.Join(cfg.Allowlist, " ") + "\n")
	}
}

// writeMultiline emits a key in python multiline style, one value per
// indented line, so commands containing commas survive the round trip.
func writeMultiline(b *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		return
	}
	b.WriteString(key + " =\n")
	for _, v := range values {
		b.WriteString("    " + v + "\n")
	}
}
