//go:build linux

package process_linux

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"simhook/process"
)

// LinuxProcessFinder implements the process.ProcessFinder interface
type LinuxProcessFinder struct{}

// NewProcessFinder creates a new LinuxProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &LinuxProcessFinder{}
}

// FindProcessByPID finds a process by its PID
func (f *LinuxProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("process with PID %d does not exist", pid)
	}
	return getProcessInfo(pid)
}

// FindProcessByName finds processes whose comm or executable basename is name
func (f *LinuxProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	return findProcesses(func(info *process.ProcessInfo) bool {
		return info.Name == name || (info.Exe != "" && filepath.Base(info.Exe) == name)
	})
}

// FindProcessByNamePattern finds processes by their name (pattern match)
func (f *LinuxProcessFinder) FindProcessByNamePattern(pattern string) ([]process.ProcessInfo, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return findProcesses(func(info *process.ProcessInfo) bool {
		return re.MatchString(info.Name)
	})
}

func findProcesses(match func(*process.ProcessInfo) bool) ([]process.ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("failed to read /proc: %w", err)
	}

	self := os.Getpid()
	var results []process.ProcessInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}

		info, err := getProcessInfo(process.ProcessID(pid))
		if err != nil {
			// exited while we were reading
			continue
		}
		if match(info) {
			results = append(results, *info)
		}
	}
	return results, nil
}

func getProcessInfo(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)

	nameBytes, err := os.ReadFile(filepath.Join(procPath, "comm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}

	// kernel threads have no exe
	exe, _ := os.Readlink(filepath.Join(procPath, "exe"))

	cmdlineBytes, err := os.ReadFile(filepath.Join(procPath, "cmdline"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process cmdline: %w", err)
	}
	var cmdline []string
	if cmdlineBytes = bytes.TrimSuffix(cmdlineBytes, []byte{0}); len(cmdlineBytes) > 0 {
		for _, arg := range bytes.Split(cmdlineBytes, []byte{0}) {
			cmdline = append(cmdline, string(arg))
		}
	}

	var ppid process.ProcessID
	if status, err := os.ReadFile(filepath.Join(procPath, "status")); err == nil {
		for _, line := range strings.Split(string(status), "\n") {
			if v, ok := strings.CutPrefix(line, "PPid:"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					ppid = process.ProcessID(n)
				}
				break
			}
		}
	}

	return &process.ProcessInfo{
		PID:     pid,
		PPID:    ppid,
		Name:    strings.TrimSpace(string(nameBytes)),
		Exe:     exe,
		Cmdline: cmdline,
	}, nil
}
