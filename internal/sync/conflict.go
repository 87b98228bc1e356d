package sync

import "github.com/marcus/tasksync/internal/models"

// ResolveConflict picks the winner between a local task and the server's
// view of it. Local wins only with a strictly later UpdatedAt; ties go to
// the server. A nil side loses to the other.
func ResolveConflict(local, server *models.Task) *models.Task {
	if local == nil {
		return server
	}
	if server == nil {
		return local
	}
	if local.UpdatedAt.After(server.UpdatedAt) {
		return local
	}
	return server
}
