package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// GenerateEnvID returns a deterministic identifier for a provisioned
// dependency set. Two environments with the same ordered dependency
// specifiers share an ID and may reuse the same installation.
func GenerateEnvID(deps []string) string {
	h := xxhash.New()
	for _, spec := range deps {
		_, _ = h.WriteString(spec)
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
