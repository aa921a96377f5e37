package core

import (
	"errors"
	"fmt"

	"simhook/process"
	"simhook/process_blob"
)

var (
	ErrNotFound  = errors.New("process not found")
	ErrAmbiguous = errors.New("more than one process matches")
)

// Attach opens the process cfg selects
func Attach(cfg Config) (process.Process, error) {
	switch cfg.Host {
	case HostDump:
		m, err := process_blob.LoadDump(cfg.DumpDir)
		if err != nil {
			return nil, err
		}
		return m, nil
	case HostSelf:
		return openSelf()
	case HostRemote:
		pid, err := findPID(cfg)
		if err != nil {
			return nil, err
		}
		return openPID(pid)
	}
	return nil, fmt.Errorf("%w: unknown host %q", ErrConfig, cfg.Host)
}

func findPID(cfg Config) (process.ProcessID, error) {
	if cfg.PID > 0 {
		return process.ProcessID(cfg.PID), nil
	}
	found, err := finder().FindProcessByName(cfg.Name)
	if err != nil {
		return 0, err
	}
	switch len(found) {
	case 0:
		return 0, fmt.Errorf("%q: %w", cfg.Name, ErrNotFound)
	case 1:
		return found[0].PID, nil
	}
	pids := make([]process.ProcessID, len(found))
	for i, p := range found {
		pids[i] = p.PID
	}
	return 0, fmt.Errorf("%q: %w: %v", cfg.Name, ErrAmbiguous, pids)
}
