//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package handler

import "os"

// fileLock only reserves the sidecar file on platforms without flock;
// appends are serialized within the process only
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

func (l *fileLock) acquire() error { return nil }

func (l *fileLock) release() {}

func (l *fileLock) close() error {
	return l.f.Close()
}
