package types

import (
	"fmt"
	"strings"
)

// Width is the size in bytes of a single access
type Width uint64

const (
	Byte  Width = 1
	Word  Width = 2
	Dword Width = 4
	Qword Width = 8
)

// Valid reports whether w is one of the supported access widths
func (w Width) Valid() bool {
	switch w {
	case Byte, Word, Dword, Qword:
		return true
	}
	return false
}

// Bits returns the width in bits
func (w Width) Bits() int {
	return int(w) * 8
}

// HexDigits returns the number of hex digits needed to print a value of this width
func (w Width) HexDigits() int {
	return int(w) * 2
}

// Placeholder returns the dash run printed in place of an element that is not read
func (w Width) Placeholder() string {
	return strings.Repeat("-", w.HexDigits())
}

// Direction selects between dumping and editing a range
type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "edit"
	}
	return "dump"
}

// Request describes one logical access over a contiguous range
type Request struct {
	Address   uint64
	Unit      Width
	Size      uint64
	Direction Direction
}

// End returns the first address past the requested range
func (r Request) End() uint64 {
	return r.Address + r.Size
}

// Elements returns the number of Unit sized elements in the range
func (r Request) Elements() uint64 {
	if r.Unit == 0 {
		return 0
	}
	return r.Size / uint64(r.Unit)
}

// Validate checks alignment of the address and size against the access width.
func (r Request) Validate() error {
	if !r.Unit.Valid() {
		return Errorf(ArgumentError, nil, "unsupported access width %d", r.Unit)
	}
	if r.Address%uint64(r.Unit) != 0 {
		return Errorf(AlignmentError, nil, "address 0x%08x is not aligned of %d", r.Address, r.Unit)
	}
	if r.Size%uint64(r.Unit) != 0 || r.Size == 0 {
		return Errorf(SizeError, nil, "size %d is not multiples of %d", r.Size, r.Unit)
	}
	if r.End() < r.Address {
		return Errorf(SizeError, nil, "size %d at 0x%08x runs past the end of the address space", r.Size, r.Address)
	}
	return nil
}

// Hex formats an address the way diagnostics print it
func Hex(addr uint64) string {
	return fmt.Sprintf("0x%08x", addr)
}
