package sync

import (
	"testing"
	"time"

	"github.com/marcus/tasksync/internal/models"
)

func TestResolveConflict(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *models.Task {
		return &models.Task{ID: "tk-1", UpdatedAt: base.Add(d)}
	}

	tests := []struct {
		name       string
		local      *models.Task
		server     *models.Task
		wantLocal  bool
		wantServer bool
	}{
		{"local newer", at(time.Second), at(0), true, false},
		{"server newer", at(0), at(time.Second), false, true},
		{"equal goes to server", at(0), at(0), false, true},
		{"one nanosecond is enough", at(time.Nanosecond), at(0), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveConflict(tt.local, tt.server)
			if tt.wantLocal && got != tt.local {
				t.Error("expected local to win")
			}
			if tt.wantServer && got != tt.server {
				t.Error("expected server to win")
			}
		})
	}
}

func TestResolveConflict_Nil(t *testing.T) {
	task := &models.Task{ID: "tk-1"}
	if ResolveConflict(nil, task) != task {
		t.Error("nil local should yield server")
	}
	if ResolveConflict(task, nil) != task {
		t.Error("nil server should yield local")
	}
	if ResolveConflict(nil, nil) != nil {
		t.Error("both nil should yield nil")
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		retries int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{7, 64 * time.Minute},
		{8, 90 * time.Minute},
		{40, 90 * time.Minute},
	}
	for _, tt := range tests {
		if got := backoffDelay(tt.retries, time.Minute, 90*time.Minute); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.retries, got, tt.want)
		}
	}
}
