// Package input expands flag values that point at stdin (-) or a file
// (@path).
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ExpandValue returns v, or the contents of stdin when v is "-", or the
// contents of a file when v is "@path". A single trailing newline is
// dropped; other whitespace is kept so markdown survives.
func ExpandValue(v string, stdin io.Reader) (string, error) {
	switch {
	case v == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return trimNewline(string(data)), nil
	case strings.HasPrefix(v, "@") && len(v) > 1:
		path := strings.TrimPrefix(v, "@")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return trimNewline(string(data)), nil
	default:
		return v, nil
	}
}

func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
