package walker

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fcurrie/memaccess/internal/types"
)

// Codec decides how a walk talks to the outside world: formatted hex and a
// literal value list, or unformatted bytes on a pair of streams.
// Begin, Put and End are only used by dumps; Take only by edits.
type Codec interface {
	// Prepare checks the request before anything is mapped
	Prepare(req types.Request) error
	// Begin is called once before the first element of a dump
	Begin(req types.Request) error
	// Put emits one element read at addr
	Put(addr uint64, unit types.Width, value uint64) error
	// End is called once after the last element of a dump
	End() error
	// Take returns the value for the j-th element of an edit
	Take(j, addr uint64, unit types.Width) (uint64, error)
}

// Formatted prints dumps as a 16 bytes per row hex listing and feeds edits
// from a value list that repeats when the range is longer than the list.
type Formatted struct {
	w      *bufio.Writer
	values []uint64
	end    uint64
	werr   error
}

// NewFormatted returns a Formatted codec writing to w. values is only used by edits.
func NewFormatted(w io.Writer, values []uint64) *Formatted {
	return &Formatted{
		w:      bufio.NewWriter(w),
		values: values,
	}
}

func (f *Formatted) Prepare(req types.Request) error {
	if req.Direction == types.Write && len(f.values) == 0 {
		return types.Errorf(types.ArgumentError, nil, "no value to write at 0x%08x", req.Address)
	}
	return nil
}

func (f *Formatted) Begin(req types.Request) error {
	f.end = req.End()

	i := req.Address &^ 0xf
	f.printf("%08x  ", i)
	for i < req.Address {
		f.printf("%s ", req.Unit.Placeholder())
		i += uint64(req.Unit)
		if i%16 == 8 {
			f.printf(" ")
		}
	}

	return f.err()
}

func (f *Formatted) Put(addr uint64, unit types.Width, value uint64) error {
	f.printf("%0*x ", unit.HexDigits(), value)

	next := addr + uint64(unit)
	if next%16 == 0 && next < f.end {
		f.printf("\n%08x  ", next)
	}
	if next%16 == 8 {
		f.printf(" ")
	}

	return f.err()
}

func (f *Formatted) End() error {
	f.printf("\n")
	if f.werr == nil {
		f.werr = f.w.Flush()
	}
	return f.err()
}

func (f *Formatted) Take(j, addr uint64, unit types.Width) (uint64, error) {
	if len(f.values) == 0 {
		return 0, types.Errorf(types.ArgumentError, nil, "no value to write at 0x%08x", addr)
	}
	return f.values[j%uint64(len(f.values))], nil
}

func (f *Formatted) printf(format string, args ...any) {
	if f.werr == nil {
		_, f.werr = fmt.Fprintf(f.w, format, args...)
	}
}

func (f *Formatted) err() error {
	if f.werr != nil {
		return types.Errorf(types.IOError, f.werr, "failed to write dump")
	}
	return nil
}

// RawStream dumps elements as native byte order bytes to w and reads edit
// values, unit bytes at a time, from r.
type RawStream struct {
	r   io.Reader
	w   io.Writer
	buf [8]byte
}

// NewRawStream returns a RawStream codec. Either side may be nil when unused.
func NewRawStream(r io.Reader, w io.Writer) *RawStream {
	return &RawStream{r: r, w: w}
}

func (s *RawStream) Prepare(req types.Request) error {
	if req.Direction == types.Write && s.r == nil {
		return types.Errorf(types.ArgumentError, nil, "no input stream for edit at 0x%08x", req.Address)
	}
	if req.Direction == types.Read && s.w == nil {
		return types.Errorf(types.ArgumentError, nil, "no output stream for dump at 0x%08x", req.Address)
	}
	return nil
}

func (s *RawStream) Begin(types.Request) error {
	return nil
}

func (s *RawStream) Put(addr uint64, unit types.Width, value uint64) error {
	b := s.buf[:unit]
	switch unit {
	case types.Byte:
		b[0] = byte(value)
	case types.Word:
		binary.NativeEndian.PutUint16(b, uint16(value))
	case types.Dword:
		binary.NativeEndian.PutUint32(b, uint32(value))
	case types.Qword:
		binary.NativeEndian.PutUint64(b, value)
	}

	n, err := s.w.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return types.Errorf(types.IOError, err, "short write at 0x%08x, unit %d", addr, unit)
	}
	return nil
}

func (s *RawStream) End() error {
	return nil
}

func (s *RawStream) Take(_, addr uint64, unit types.Width) (uint64, error) {
	b := s.buf[:unit]
	if _, err := io.ReadFull(s.r, b); err != nil {
		return 0, types.Errorf(types.IOError, err, "short read at 0x%08x, unit %d", addr, unit)
	}

	switch unit {
	case types.Word:
		return uint64(binary.NativeEndian.Uint16(b)), nil
	case types.Dword:
		return uint64(binary.NativeEndian.Uint32(b)), nil
	case types.Qword:
		return binary.NativeEndian.Uint64(b), nil
	}
	return uint64(b[0]), nil
}
