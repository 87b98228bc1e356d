// Package monitor is the live sync queue dashboard behind `tasksync watch`.
package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/tasksync/internal/db"
	"github.com/marcus/tasksync/internal/models"
	"github.com/marcus/tasksync/internal/scheduler"
	tdsync "github.com/marcus/tasksync/internal/sync"
)

// Source is the read side of the local store the dashboard polls.
type Source interface {
	PendingSyncItems() ([]*models.SyncQueueItem, error)
	CountTasksBySyncStatus() (map[models.SyncStatus]int, error)
	GetSyncState() (*db.SyncState, error)
}

// Syncer runs a pass on demand.
type Syncer interface {
	Run(ctx context.Context, opts scheduler.RunOptions) (*tdsync.Result, error)
}

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 10

// Model is the main Bubble Tea model for the queue dashboard
type Model struct {
	Source Source
	Syncer Syncer

	// Window dimensions
	Width  int
	Height int

	// Polled data
	Queue       []*models.SyncQueueItem
	Counts      map[models.SyncStatus]int
	State       *db.SyncState
	LastRefresh time.Time
	Err         error

	// Sync in flight, started with "s"
	Syncing    bool
	Spinner    spinner.Model
	LastResult *tdsync.Result
	LastErr    error

	ScrollOffset int
	ShowHelp     bool

	RefreshInterval time.Duration
}

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed data
type RefreshDataMsg struct {
	Queue     []*models.SyncQueueItem
	Counts    map[models.SyncStatus]int
	State     *db.SyncState
	Err       error
	Timestamp time.Time
}

// SyncDoneMsg reports the outcome of a pass started from the dashboard.
type SyncDoneMsg struct {
	Result *tdsync.Result
	Err    error
}

// NewModel creates a new dashboard model
func NewModel(source Source, syncer Syncer, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		Source:          source,
		Syncer:          syncer,
		Spinner:         sp,
		RefreshInterval: interval,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Queue = msg.Queue
			m.Counts = msg.Counts
			m.State = msg.State
		}
		m.LastRefresh = msg.Timestamp
		m.clampScroll()
		return m, nil

	case SyncDoneMsg:
		m.Syncing = false
		m.LastErr = msg.Err
		if msg.Result != nil {
			m.LastResult = msg.Result
		}
		return m, m.fetchData()

	case spinner.TickMsg:
		if !m.Syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.ScrollOffset++
		m.clampScroll()
		return m, nil

	case "k", "up":
		if m.ScrollOffset > 0 {
			m.ScrollOffset--
		}
		return m, nil

	case "r":
		return m, m.fetchData()

	case "s":
		if m.Syncing || m.Syncer == nil {
			return m, nil
		}
		m.Syncing = true
		return m, tea.Batch(m.Spinner.Tick, m.runSync())

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

func (m *Model) clampScroll() {
	if m.ScrollOffset > len(m.Queue)-1 {
		m.ScrollOffset = max(len(m.Queue)-1, 0)
	}
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that fetches all data and sends a RefreshDataMsg
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		return FetchData(m.Source)
	}
}

func (m Model) runSync() tea.Cmd {
	syncer := m.Syncer
	return func() tea.Msg {
		res, err := syncer.Run(context.Background(), scheduler.RunOptions{})
		return SyncDoneMsg{Result: res, Err: err}
	}
}
