package output

import (
	"strings"
	"testing"
	"time"

	"github.com/marcus/tasksync/internal/models"
)

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{30 * time.Minute, "30m ago"},
		{time.Hour, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{6 * 24 * time.Hour, "6d ago"},
	}

	for _, tc := range tests {
		got := FormatTimeAgo(time.Now().Add(-tc.ago))
		if got != tc.want {
			t.Errorf("FormatTimeAgo(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestFormatTimeAgoDate(t *testing.T) {
	old := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	if got := FormatTimeAgo(old); got != "2024-03-09" {
		t.Errorf("FormatTimeAgo(old) = %q, want 2024-03-09", got)
	}
}

func TestFormatSyncStatus(t *testing.T) {
	for _, s := range []models.SyncStatus{models.SyncStatusPending, models.SyncStatusSynced, models.SyncStatusError} {
		if got := FormatSyncStatus(s); !strings.Contains(got, string(s)) {
			t.Errorf("FormatSyncStatus(%q) = %q", s, got)
		}
	}
	if got := FormatSyncStatus("weird"); got != "weird" {
		t.Errorf("unknown status = %q, want passthrough", got)
	}
}

func TestFormatTaskShort(t *testing.T) {
	task := &models.Task{
		ID:         "tk-abc123",
		Title:      "Write the quarterly report for the board",
		SyncStatus: models.SyncStatusPending,
	}

	got := FormatTaskShort(task, 0)
	for _, want := range []string{"tk-abc123", "[ ]", "quarterly report", "pending"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTaskShort missing %q: %q", want, got)
		}
	}

	got = FormatTaskShort(task, 10)
	if strings.Contains(got, "quarterly") {
		t.Errorf("title not truncated: %q", got)
	}

	task.Completed = true
	task.Deleted = true
	got = FormatTaskShort(task, 0)
	if !strings.Contains(got, "[x]") || !strings.Contains(got, "[deleted]") {
		t.Errorf("completed deleted task = %q", got)
	}
}

func TestFormatTaskLong(t *testing.T) {
	synced := time.Now().Add(-2 * time.Hour)
	lastErr := "HTTP 500: boom"
	task := &models.Task{
		ID:           "tk-abc123",
		Title:        "Ship it",
		Description:  "raw description",
		CreatedAt:    time.Now().Add(-3 * time.Hour),
		UpdatedAt:    time.Now(),
		SyncStatus:   models.SyncStatusSynced,
		ServerID:     "srv-1",
		LastSyncedAt: &synced,
	}
	queued := []*models.SyncQueueItem{{
		ID:         "0123456789abcdef",
		TaskID:     task.ID,
		Operation:  models.OperationUpdate,
		RetryCount: 2,
		LastError:  &lastErr,
		CreatedAt:  time.Now(),
	}}

	got := FormatTaskLong(task, "", queued)
	for _, want := range []string{
		"tk-abc123: Ship it",
		"State: open",
		"Server ID: srv-1",
		"Last synced: 2h ago",
		"raw description",
		"Queued operations:",
		"01234567",
		"retries=2",
		lastErr,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTaskLong missing %q:\n%s", want, got)
		}
	}

	got = FormatTaskLong(task, "rendered", nil)
	if strings.Contains(got, "raw description") || !strings.Contains(got, "rendered") {
		t.Errorf("rendered description not used:\n%s", got)
	}
	if strings.Contains(got, "Queued operations") {
		t.Error("empty queue should omit the section")
	}
}

func TestRenderMarkdownWithWidth(t *testing.T) {
	got, err := RenderMarkdownWithWidth("# Heading\n\nSome **bold** text.", 40)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "Heading") || !strings.Contains(got, "bold") {
		t.Errorf("rendered = %q", got)
	}

	got, err = RenderMarkdownWithWidth("   ", 40)
	if err != nil || got != "" {
		t.Errorf("blank input = %q, %v", got, err)
	}
}

func TestTerminalWidthFallback(t *testing.T) {
	t.Setenv("COLUMNS", "")
	if got := TerminalWidth(0); got <= 0 {
		t.Errorf("TerminalWidth(0) = %d", got)
	}
	t.Setenv("COLUMNS", "132")
	if !IsTerminal() {
		if got := TerminalWidth(80); got != 132 {
			t.Errorf("TerminalWidth with COLUMNS=132 = %d", got)
		}
	}
}
