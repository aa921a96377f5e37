//go:build windows

package core

import (
	"simhook/process"
	"simhook/process_windows"
)

func openPID(pid process.ProcessID) (process.Process, error) {
	p, err := process_windows.NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func openSelf() (process.Process, error) {
	p, err := process_windows.NewSelf()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func finder() process.ProcessFinder {
	return process_windows.NewProcessFinder()
}
