//go:build unix

package db

import (
	"golang.org/x/sys/unix"
)

func (l *writeLocker) tryLock() error {
	return unix.Flock(int(l.lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func (l *writeLocker) unlock() {
	if l.lockFile == nil {
		return
	}
	unix.Flock(int(l.lockFile.Fd()), unix.LOCK_UN)
}

// isProcessAlive probes pid with signal 0. EPERM still means it exists.
func isProcessAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
