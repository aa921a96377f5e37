package process_blob

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"simhook/process"
	"simhook/process/memory_map"

	"github.com/klauspost/compress/zstd"
)

// MaxDumpRegion is the largest region SaveDump will store
const MaxDumpRegion = 256 * 1024 * 1024

type dumpMetadata struct {
	PID  process.ProcessID `json:"pid"`
	Name string            `json:"name"`
}

func blobName(r memory_map.MemoryRange) string {
	return fmt.Sprintf("blob_0x%x_%d.bin.zst", r.Start, r.Size())
}

// SaveDump writes the memory map of proc and the contents of every
// readable region to dir. Regions that fail to read are recorded in the
// map but have no blob.
func SaveDump(proc process.Process, name string, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}

	ranges, err := proc.GetMemoryMap()
	if err != nil {
		return fmt.Errorf("memory map: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "metadata.json"), dumpMetadata{PID: proc.GetPID(), Name: name}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "process_memory_map.json"), ranges); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	for _, r := range ranges {
		if !r.Valid || !r.IsReadable() || r.Size() > MaxDumpRegion {
			continue
		}
		data, err := proc.ReadMemory(process.ProcessMemoryAddress(r.Start), process.ProcessMemorySize(r.Size()))
		if err != nil {
			continue
		}
		if err := writeBlob(enc, filepath.Join(dir, blobName(r)), data); err != nil {
			return err
		}
	}
	return nil
}

func writeBlob(enc *zstd.Encoder, filename string, data []byte) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	enc.Reset(f)
	if _, err := enc.Write(data); err != nil {
		return fmt.Errorf("write blob %s: %w", filename, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish blob %s: %w", filename, err)
	}
	return f.Close()
}

func writeJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(filename), err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// LoadDump rebuilds a Memory from a directory written by SaveDump. Regions
// without a blob are mapped zero-filled.
func LoadDump(dir string) (*Memory, error) {
	var meta dumpMetadata
	if err := readJSON(filepath.Join(dir, "metadata.json"), &meta); err != nil {
		return nil, err
	}
	var ranges []memory_map.MemoryRange
	if err := readJSON(filepath.Join(dir, "process_memory_map.json"), &ranges); err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	m := NewMemory(meta.Name)
	m.pid = meta.PID
	for _, r := range ranges {
		if err := m.Map(r.Start, r.Size(), r.Perms, r.Name); err != nil {
			return nil, err
		}
		if !r.Valid {
			m.SetValid(process.ProcessMemoryAddress(r.Start), false)
		}

		data, err := readBlob(dec, filepath.Join(dir, blobName(r)))
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		if err := m.Poke(process.ProcessMemoryAddress(r.Start), data); err != nil {
			return nil, fmt.Errorf("restore region 0x%x: %w", r.Start, err)
		}
	}
	m.log.Infoln("Loaded dump", dir, "pid", meta.PID, len(ranges), "regions")
	return m, nil
}

func readBlob(dec *zstd.Decoder, filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	defer f.Close()

	if err := dec.Reset(f); err != nil {
		return nil, fmt.Errorf("blob %s: %w", filename, err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("blob %s: %w", filename, err)
	}
	return data, nil
}

func readJSON(filename string, v any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(filename), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filepath.Base(filename), err)
	}
	return nil
}
