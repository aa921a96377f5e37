// Package hexdump renders target memory for the command line: hex and
// ASCII columns, with any pointer into a mapped region shown on the right.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"simhook/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

type Options struct {
	BytesPerLine int

	// Address is printed for the first byte
	Address uint64

	// Changed marks bytes to highlight, e.g. the bytes a patch replaced
	Changed []bool

	// Ranges enables the pointer column when set
	Ranges []memory_map.MemoryRange

	MaxLines int

	// Plain disables colors
	Plain bool
}

func DefaultOptions() Options {
	return Options{BytesPerLine: 16}
}

func Dump(data []byte, opts Options) string {
	var buf bytes.Buffer
	DumpToWriter(&buf, data, opts)
	return buf.String()
}

func DumpToWriter(w io.Writer, data []byte, opts Options) {
	if opts.BytesPerLine <= 0 {
		opts.BytesPerLine = 16
	}
	for line, off := 0, 0; off < len(data); line, off = line+1, off+opts.BytesPerLine {
		if opts.MaxLines > 0 && line >= opts.MaxLines {
			fmt.Fprintf(w, "... %d more bytes\n", len(data)-off)
			return
		}
		end := min(off+opts.BytesPerLine, len(data))
		formatLine(w, data[off:end], off, opts)
	}
}

func (o Options) paint(fg coloransi.ColorCode, s string) string {
	if o.Plain {
		return s
	}
	return coloransi.Foreground(fg, s)
}

func (o Options) changed(i int) bool {
	return i < len(o.Changed) && o.Changed[i]
}

// formatLine writes one line; start is the offset of line in the dump
func formatLine(w io.Writer, line []byte, start int, opts Options) {
	fmt.Fprint(w, opts.paint(coloransi.Cyan, fmt.Sprintf("%016x", opts.Address+uint64(start))), "  ")

	half := opts.BytesPerLine / 2
	var hex strings.Builder
	for i := 0; i < opts.BytesPerLine; i++ {
		if i > 0 {
			hex.WriteByte(' ')
			if i == half && opts.BytesPerLine >= 8 {
				hex.WriteString("| ")
			}
		}
		if i >= len(line) {
			hex.WriteString("  ")
			continue
		}
		b := line[i]
		s := fmt.Sprintf("%02x", b)
		switch {
		case opts.changed(start + i):
			s = opts.paint(coloransi.Yellow, s)
		case b == 0:
			s = opts.paint(coloransi.BrightBlack, s)
		default:
			s = opts.paint(coloransi.Green, s)
		}
		hex.WriteString(s)
	}
	fmt.Fprint(w, hex.String(), " | ")

	for i, b := range line {
		c := rune(b)
		switch {
		case opts.changed(start + i):
			fmt.Fprint(w, opts.paint(coloransi.Yellow, printable(c)))
		case b == 0:
			fmt.Fprint(w, opts.paint(coloransi.BrightBlack, "."))
		case !unicode.IsPrint(c) || c > unicode.MaxASCII:
			fmt.Fprint(w, opts.paint(coloransi.Red, "."))
		default:
			fmt.Fprint(w, opts.paint(coloransi.White, string(c)))
		}
	}

	if len(opts.Ranges) > 0 {
		var ptrs []string
		for i := 0; i+8 <= len(line); i += 8 {
			p := binary.LittleEndian.Uint64(line[i:])
			if p != 0 && memory_map.IsValidAddress(p, opts.Ranges) {
				ptrs = append(ptrs, opts.paint(coloransi.Yellow, fmt.Sprintf("0x%x", p)))
			}
		}
		if len(ptrs) > 0 {
			fmt.Fprint(w, " | ", strings.Join(ptrs, " "))
		}
	}
	fmt.Fprintln(w)
}

func printable(c rune) string {
	if c > unicode.MaxASCII || !unicode.IsPrint(c) {
		return "."
	}
	return string(c)
}

// Memory dumps data read at addr with the pointer column enabled
func Memory(data []byte, addr uint64, ranges []memory_map.MemoryRange) string {
	opts := DefaultOptions()
	opts.Address = addr
	opts.Ranges = ranges
	return Dump(data, opts)
}

// Diff dumps after with every byte that differs from before highlighted
func Diff(before, after []byte, addr uint64) string {
	opts := DefaultOptions()
	opts.Address = addr
	opts.Changed = make([]bool, len(after))
	for i := range after {
		opts.Changed[i] = i >= len(before) || before[i] != after[i]
	}
	return Dump(after, opts)
}
