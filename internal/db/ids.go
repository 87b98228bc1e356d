package db

import (
	"strings"

	"github.com/google/uuid"
)

const idPrefix = "tk-"

// NormalizeTaskID accepts "tk-abc12345", "abc12345" or "TK-ABC12345" and
// returns the stored form.
func NormalizeTaskID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" || strings.HasPrefix(id, idPrefix) {
		return id
	}
	return idPrefix + id
}

// newTaskID returns tk- plus the first 8 hex digits of a random uuid.
func newTaskID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return idPrefix + strings.ReplaceAll(u.String(), "-", "")[:8], nil
}
