//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package handler

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an advisory flock(2) on a sidecar file shared by every
// process appending to the same log
type fileLock struct {
	f *os.File
}

func openFileLock(name string) (*fileLock, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) acquire() error {
	if l == nil {
		return nil
	}
	for {
		err := unix.Flock(int(l.f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func (l *fileLock) release() {
	if l == nil {
		return
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}

func (l *fileLock) close() error {
	return l.f.Close()
}
