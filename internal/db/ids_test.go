package db

import (
	"regexp"
	"testing"
)

func TestNormalizeTaskID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tk-abc12345", "tk-abc12345"},
		{"abc12345", "tk-abc12345"},
		{"  TK-ABC12345 ", "tk-abc12345"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTaskID(tt.in); got != tt.want {
			t.Errorf("NormalizeTaskID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewTaskID(t *testing.T) {
	pattern := regexp.MustCompile(`^tk-[0-9a-f]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := newTaskID()
		if err != nil {
			t.Fatal(err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("id %q does not match tk-<8 hex>", id)
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct ids out of 50", len(seen))
	}
}
