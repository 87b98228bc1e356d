package monitor

import (
	"time"
)

// FetchData retrieves everything the dashboard shows in one pass.
func FetchData(source Source) RefreshDataMsg {
	msg := RefreshDataMsg{Timestamp: time.Now()}

	queue, err := source.PendingSyncItems()
	if err != nil {
		msg.Err = err
		return msg
	}
	counts, err := source.CountTasksBySyncStatus()
	if err != nil {
		msg.Err = err
		return msg
	}
	state, err := source.GetSyncState()
	if err != nil {
		msg.Err = err
		return msg
	}

	msg.Queue = queue
	msg.Counts = counts
	msg.State = state
	return msg
}
