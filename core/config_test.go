package core_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"simhook/core"
	"simhook/process/memory_map"
	"simhook/process_blob"
	"simhook/test"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simhook.yaml")
	test.DemandSuccess(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := core.LoadConfig(writeConfig(t, `
name: sim
symbols: symbols/sim.yaml
interval: 20ms
`))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, cfg.Host, core.HostRemote)
	test.ExpectEquality(t, cfg.Name, "sim")
	test.ExpectEquality(t, cfg.Symbols, "symbols/sim.yaml")
	test.ExpectEquality(t, cfg.Interval, 20*time.Millisecond)

	cfg, err = core.LoadConfig(writeConfig(t, "dump_dir: /tmp/d\nsymbols: s.yaml\n"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, cfg.Host, core.HostDump)
	test.ExpectEquality(t, cfg.Interval, core.DefaultInterval)
}

func TestLoadConfigRejects(t *testing.T) {
	for _, body := range []string{
		"pid: -3\nsymbols: s.yaml\n",
		"symbols: s.yaml\n",
		"host: dump\nsymbols: s.yaml\n",
		"host: serial\nsymbols: s.yaml\n",
		"symbols: [1, 2\n",
	} {
		_, err := core.LoadConfig(writeConfig(t, body))
		test.ExpectSuccess(t, errors.Is(err, core.ErrConfig), body)
	}

	_, err := core.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	test.ExpectFailure(t, err)
}

func TestAttachDump(t *testing.T) {
	m := process_blob.NewMemory("target")
	test.DemandSuccess(t, m.Map(0x400000, 0x1000, memory_map.Permissions{Read: true, Execute: true}, "/bin/sim"))
	test.DemandSuccess(t, m.Poke(0x400100, []byte("sim")))
	dir := t.TempDir()
	test.DemandSuccess(t, process_blob.SaveDump(m, "sim", dir))

	proc, err := core.Attach(core.Config{Host: core.HostDump, DumpDir: dir, Symbols: "s.yaml"})
	test.DemandSuccess(t, err)
	s, err := proc.ReadNTS(0x400100, 8)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, s, "sim")

	_, err = core.Attach(core.Config{Host: core.HostDump, DumpDir: filepath.Join(dir, "missing")})
	test.ExpectFailure(t, err)
	_, err = core.Attach(core.Config{Host: "serial"})
	test.ExpectSuccess(t, errors.Is(err, core.ErrConfig))
}
