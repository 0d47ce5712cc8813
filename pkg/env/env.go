package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among the given environment keys,
// or fallback when none is set.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
