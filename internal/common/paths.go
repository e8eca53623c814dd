// Package common holds filesystem helpers shared across packages.
package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Within reports whether path is base or lies below it.
func Within(path, base string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// JoinPath joins elements onto base and fails when the result escapes base.
func JoinPath(base string, elements ...string) (string, error) {
	joined := filepath.Join(append([]string{base}, elements...)...)
	if !Within(joined, base) {
		return "", fmt.Errorf("path %q is outside %q", joined, base)
	}
	return joined, nil
}
