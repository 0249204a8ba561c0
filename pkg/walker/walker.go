package walker

import (
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/fcurrie/memaccess/internal/types"
	"github.com/fcurrie/memaccess/pkg/mmap"
)

// Memory is width typed access to absolute addresses
type Memory interface {
	Read8(addr uint64) uint8
	Read16(addr uint64) uint16
	Read32(addr uint64) uint32
	Read64(addr uint64) uint64
	Write8(addr uint64, value uint8)
	Write16(addr uint64, value uint16)
	Write32(addr uint64, value uint32)
	Write64(addr uint64, value uint64)
}

// Region is a Memory that holds a mapping until closed
type Region interface {
	Memory
	Close() error
}

// Opener maps length bytes of the backing object starting at offset
type Opener func(length, offset uint64) (Region, error)

// DeviceOpener returns an Opener mapping the named device or file
func DeviceOpener(name string, log *zap.Logger) Opener {
	return func(length, offset uint64) (Region, error) {
		m, err := mmap.Open(name, length, offset, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Walker maps the window covering a request and walks it one element at a time
type Walker struct {
	open     Opener
	pageSize uint64
	log      *zap.Logger
}

// New creates a Walker. pageSize must be a power of two.
func New(open Opener, pageSize uint64, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{
		open:     open,
		pageSize: pageSize,
		log:      log,
	}
}

// Run validates req, maps its window and performs the dump or edit through codec.
// The mapping is released on every path once it has been established.
func (w *Walker) Run(req types.Request, codec Codec) (err error) {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := codec.Prepare(req); err != nil {
		return err
	}

	win := ComputeWindow(req.Address, req.Size, w.pageSize)
	w.log.Debug("map",
		zap.String("start", types.Hex(win.Start)),
		zap.String("end", types.Hex(win.End)),
		zap.String("length", humanize.IBytes(win.Length)),
	)

	region, err := w.open(win.Length, win.Start)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := region.Close(); cerr != nil {
			w.log.Warn("failed to release mapping", zap.String("start", types.Hex(win.Start)), zap.Error(cerr))
			if err == nil {
				err = types.Errorf(types.MapError, cerr, "failed to unmap 0x%08x", win.Start)
			}
		}
	}()

	w.log.Debug("walk",
		zap.Stringer("mode", req.Direction),
		zap.String("addr", types.Hex(req.Address)),
		zap.String("end", types.Hex(req.End())),
		zap.Uint64("unit", uint64(req.Unit)),
	)

	if req.Direction == types.Write {
		return edit(region, req, codec)
	}
	return dump(region, req, codec)
}

func dump(mem Memory, req types.Request, codec Codec) error {
	if err := codec.Begin(req); err != nil {
		return err
	}

	for j := uint64(0); j < req.Elements(); j++ {
		addr := req.Address + j*uint64(req.Unit)
		if err := codec.Put(addr, req.Unit, read(mem, addr, req.Unit)); err != nil {
			return err
		}
	}

	return codec.End()
}

func edit(mem Memory, req types.Request, codec Codec) error {
	for j := uint64(0); j < req.Elements(); j++ {
		addr := req.Address + j*uint64(req.Unit)
		value, err := codec.Take(j, addr, req.Unit)
		if err != nil {
			return err
		}
		write(mem, addr, req.Unit, value)
	}

	return nil
}

func read(mem Memory, addr uint64, unit types.Width) uint64 {
	switch unit {
	case types.Qword:
		return mem.Read64(addr)
	case types.Dword:
		return uint64(mem.Read32(addr))
	case types.Word:
		return uint64(mem.Read16(addr))
	}
	return uint64(mem.Read8(addr))
}

// write stores value truncated to unit
func write(mem Memory, addr uint64, unit types.Width, value uint64) {
	switch unit {
	case types.Qword:
		mem.Write64(addr, value)
	case types.Dword:
		mem.Write32(addr, uint32(value))
	case types.Word:
		mem.Write16(addr, uint16(value))
	default:
		mem.Write8(addr, uint8(value))
	}
}
