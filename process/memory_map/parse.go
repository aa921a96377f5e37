package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/<pid>/maps text format.
// Lines look like: "00400000-0040b000 r-xp 00000000 08:01 1234  /bin/cat"
func ParseMaps(r io.Reader) ([]MemoryRange, error) {
	var ranges []MemoryRange

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		start, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		end, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || end < start {
			continue
		}

		var offset uint64
		if len(fields) > 2 {
			offset, _ = strconv.ParseUint(fields[2], 16, 64)
		}

		name := ""
		if len(fields) > 5 {
			name = strings.Join(fields[5:], " ")
		}

		ranges = append(ranges, MemoryRange{
			Start: start,
			End:   end,
			Perms: ParsePerms(fields[1]),
			Valid: true,
			Name:  name,
			Base:  offset,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ranges, nil
}
