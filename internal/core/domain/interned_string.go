package domain

import "unique"

// InternedString wraps a unique.Handle[string]. Environment names occur in
// the matrix, in depends lists, in the plan and in every result, so interning
// keeps the many copies cheap to hold and compare.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s and returns the handle wrapper.
func NewInternedString(s string) InternedString {
	return InternedString{
		h: unique.Make(s),
	}
}

// String returns the underlying string value. The zero value yields "".
func (is InternedString) String() string {
	var zero unique.Handle[string]
	if is.h == zero {
		return ""
	}
	return is.h.Value()
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}
