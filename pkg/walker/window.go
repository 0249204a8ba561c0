package walker

import (
	"os"
	"strconv"

	"github.com/tklauser/go-sysconf"
)

// Window is the page aligned span that has to be mapped to cover a request
type Window struct {
	Start  uint64
	End    uint64
	Length uint64
}

// ComputeWindow returns the page aligned window covering [addr, addr+size).
// An end address that is already page aligned is not rounded up.
func ComputeWindow(addr, size, pageSize uint64) Window {
	mask := ^(pageSize - 1)

	start := addr & mask
	end := addr + size
	if end&^mask == 0 {
		end &= mask
	} else {
		end = (end + pageSize) & mask
	}

	return Window{
		Start:  start,
		End:    end,
		Length: clampLength(start, end-start, strconv.IntSize),
	}
}

// clampLength keeps a 32-bit mapping length from overflowing when the window
// starts near the top of a 32-bit address space. It only applies when
// lengthBits is 32.
func clampLength(start, length uint64, lengthBits int) uint64 {
	if lengthBits == 32 && start > 0xf0000000 {
		return uint64(uint32(0 - start - 4))
	}
	return length
}

// PageSize returns the platform page size
func PageSize() uint64 {
	if n, err := sysconf.Sysconf(sysconf.SC_PAGESIZE); err == nil && n > 0 {
		return uint64(n)
	}
	return uint64(os.Getpagesize())
}
