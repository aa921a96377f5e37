//go:build linux

package core

import (
	"simhook/process"
	"simhook/process_linux"
)

func openPID(pid process.ProcessID) (process.Process, error) {
	p, err := process_linux.NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func openSelf() (process.Process, error) {
	p, err := process_linux.NewSelf()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func finder() process.ProcessFinder {
	return process_linux.NewProcessFinder()
}
