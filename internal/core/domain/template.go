package domain

import "strings"

// ExpandName expands brace template axes in an environment name into the
// cross product of their values: "py-django{30,31}" yields
// ["py-django30", "py-django31"], and a name with two axes yields one entry
// per combination. A name without braces expands to itself. Axis values are
// trimmed of surrounding whitespace so "{30, 31}" behaves like "{30,31}".
func ExpandName(name string) []string {
	open := strings.IndexByte(name, '{')
	if open < 0 {
		return []string{name}
	}
	closing := strings.IndexByte(name[open:], '}')
	if closing < 0 {
		// Unterminated brace: treat literally rather than guessing.
		return []string{name}
	}
	closing += open

	prefix := name[:open]
	rest := name[closing+1:]

	var out []string
	for _, value := range strings.Split(name[open+1:closing], ",") {
		value = strings.TrimSpace(value)
		for _, tail := range ExpandName(rest) {
			out = append(out, prefix+value+tail)
		}
	}
	return out
}

// ExpandNames expands every entry of names, preserving order.
func ExpandNames(names []string) []string {
	var out []string
	for _, name := range names {
		out = append(out, ExpandName(name)...)
	}
	return out
}
