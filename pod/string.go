package pod

import (
	"bytes"
	"fmt"

	"simhook/abi"
	"simhook/process"
)

const cstringChunk = 64

// ReadCString reads a NUL-terminated string of at most limit bytes. Reads are
// chunked and never cross a page boundary, so a short string at the end of
// a mapping is still readable.
func ReadCString(r process.MemoryReader, addr process.ProcessMemoryAddress, limit int) (string, error) {
	var out []byte
	for len(out) < limit {
		cur := addr.Add(process.ProcessMemorySize(len(out)))
		n := min(cstringChunk, limit-len(out))
		if toPage := int(0x1000 - uint64(cur)%0x1000); n > toPage {
			n = toPage
		}

		chunk, err := r.ReadMemory(cur, process.ProcessMemorySize(n))
		if err != nil {
			if len(out) == 0 {
				return "", err
			}
			return string(out), fmt.Errorf("unterminated string at 0x%x: %w", uint64(addr), err)
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return string(append(out, chunk[:i]...)), nil
		}
		out = append(out, chunk...)
	}
	return string(out), nil
}

// ReadString reads the host std::string at addr
func ReadString(r process.MemoryReader, a abi.ABI, addr process.ProcessMemoryAddress) (string, error) {
	return a.StringAt(r, addr)
}

// WriteString replaces the contents of the host std::string at addr in place
func WriteString(rw abi.ReadWriter, a abi.ABI, addr process.ProcessMemoryAddress, s string) error {
	return a.WriteStringAt(rw, addr, s)
}

// ReadVector reads every element of the std::vector<T> at addr
func ReadVector[T any](r process.MemoryReader, addr process.ProcessMemoryAddress) ([]T, error) {
	v, err := abi.VectorAt(r, addr)
	if err != nil {
		return nil, err
	}
	n := v.Len(SizeOf[T]())
	if n > abi.MaxVectorLength {
		return nil, fmt.Errorf("vector at 0x%x holds %d elements: %w", uint64(addr), n, abi.ErrBadLength)
	}
	return ReadSliceT[T](r, v.Begin, n)
}

// ReadValidPointerVector reads a std::vector<T*> and keeps the entries
// ReadPointerList accepts
func ReadValidPointerVector(r process.MemoryReader, addr process.ProcessMemoryAddress) ([]process.ProcessMemoryAddress, error) {
	v, err := abi.VectorAt(r, addr)
	if err != nil {
		return nil, err
	}
	n := v.Len(process.PointerSize)
	if n > abi.MaxVectorLength {
		return nil, fmt.Errorf("vector at 0x%x holds %d elements: %w", uint64(addr), n, abi.ErrBadLength)
	}
	return ReadPointerList(r, v.Begin, n)
}

// ReadPointerVector reads a std::vector<T*> as addresses
func ReadPointerVector(r process.MemoryReader, addr process.ProcessMemoryAddress) ([]process.ProcessMemoryAddress, error) {
	raw, err := ReadVector[uint64](r, addr)
	if err != nil {
		return nil, err
	}
	out := make([]process.ProcessMemoryAddress, len(raw))
	for i, p := range raw {
		out[i] = process.ProcessMemoryAddress(p)
	}
	return out, nil
}
