// Package enums holds the string enums stored in postgres enum columns and
// carried on the wire.
package enums

import (
	"fmt"
	"slices"
)

func known[T ~string](valid []T, v T) bool {
	return slices.Contains(valid, v)
}

func parse[T ~string](kind string, valid []T, raw string) (T, error) {
	if v := T(raw); slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
