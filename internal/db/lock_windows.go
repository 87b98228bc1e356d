//go:build windows

package db

import (
	"golang.org/x/sys/windows"
)

// LockFileEx locks a one-byte range at the start of db.lock.
const lockBytes = 1

func (l *writeLocker) tryLock() error {
	h := windows.Handle(l.lockFile.Fd())
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	return windows.LockFileEx(h, flags, 0, lockBytes, 0, &windows.Overlapped{})
}

func (l *writeLocker) unlock() {
	if l.lockFile == nil {
		return
	}
	windows.UnlockFileEx(windows.Handle(l.lockFile.Fd()), 0, lockBytes, 0, &windows.Overlapped{})
}

func isProcessAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	// A running process is not signaled yet.
	ev, err := windows.WaitForSingleObject(h, 0)
	return err == nil && ev == uint32(windows.WAIT_TIMEOUT)
}
