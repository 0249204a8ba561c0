package mmap

import (
	"errors"
	"math"
	"os"
	"sync/atomic"
	"unsafe"

	mmapgo "github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/fcurrie/memaccess/internal/types"
)

// Region is a shared mapping of a window of a backing object (normally /dev/mem).
// Addresses passed to the accessors are absolute; the region translates them
// to offsets inside the window.
type Region struct {
	name   string
	file   *os.File
	offset uint64
	size   uint64
	region mmapgo.MMap
	log    *zap.Logger
}

// Open maps length bytes of name starting at offset.
// The offset must be a multiple of the page size.
func Open(name string, length, offset uint64, log *zap.Logger) (*Region, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// O_SYNC so stores reach device registers without being held in the page cache
	f, err := os.OpenFile(name, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, types.Errorf(types.OpenError, err, "failed to open %s", name)
	}

	if length == 0 || length > math.MaxInt || offset > math.MaxInt64 {
		f.Close()
		return nil, types.Errorf(types.MapError, nil, "invalid window 0x%08x+0x%x of %s", offset, length, name)
	}

	region, err := mmapgo.MapRegion(f, int(length), mmapgo.RDWR, 0, int64(offset))
	if err != nil {
		f.Close()
		return nil, types.Errorf(types.MapError, err, "failed to mmap %s at 0x%08x+0x%x", name, offset, length)
	}

	return &Region{
		name:   name,
		file:   f,
		offset: offset,
		size:   length,
		region: region,
		log:    log,
	}, nil
}

// Close unmaps the region and closes the backing object
func (m *Region) Close() error {
	unmapErr := m.region.Unmap()
	m.region = nil
	closeErr := m.file.Close()

	return errors.Join(unmapErr, closeErr)
}

// Name returns the path of the backing object
func (m *Region) Name() string {
	return m.name
}

// Offset returns the address of the first mapped byte
func (m *Region) Offset() uint64 {
	return m.offset
}

// Len returns the mapped length in bytes
func (m *Region) Len() uint64 {
	return m.size
}

// IsValid reports whether addr lies inside the mapped window.
// The end address itself counts as inside.
func (m *Region) IsValid(addr uint64) bool {
	return !(addr < m.offset || m.offset+m.size < addr)
}

// at returns the mapping offset for an access of width bytes at addr.
// ok is false when the access is outside the window; op tags the diagnostic.
func (m *Region) at(op string, addr uint64, width uint64) (uintptr, bool) {
	if !m.IsValid(addr) || addr-m.offset+width > uint64(len(m.region)) {
		m.log.Warn("out of bounds",
			zap.String("op", op),
			zap.String("address", types.Hex(addr)),
			zap.String("file", m.name),
		)
		return 0, false
	}
	return uintptr(addr - m.offset), true
}

func (m *Region) ptr(off uintptr) unsafe.Pointer {
	return unsafe.Pointer(&m.region[off])
}

// Read64 reads a 64-bit value at addr
func (m *Region) Read64(addr uint64) uint64 {
	off, ok := m.at("rq", addr, 8)
	if !ok {
		return 0
	}
	return atomic.LoadUint64((*uint64)(m.ptr(off)))
}

// Write64 writes a 64-bit value at addr
func (m *Region) Write64(addr uint64, value uint64) {
	off, ok := m.at("wq", addr, 8)
	if !ok {
		return
	}
	atomic.StoreUint64((*uint64)(m.ptr(off)), value)
}

// Read32 reads a 32-bit value at addr
func (m *Region) Read32(addr uint64) uint32 {
	off, ok := m.at("rl", addr, 4)
	if !ok {
		return 0
	}
	return atomic.LoadUint32((*uint32)(m.ptr(off)))
}

// Write32 writes a 32-bit value at addr
func (m *Region) Write32(addr uint64, value uint32) {
	off, ok := m.at("wl", addr, 4)
	if !ok {
		return
	}
	atomic.StoreUint32((*uint32)(m.ptr(off)), value)
}

// Read16 reads a 16-bit value at addr
func (m *Region) Read16(addr uint64) uint16 {
	off, ok := m.at("rw", addr, 2)
	if !ok {
		return 0
	}
	return *(*uint16)(m.ptr(off))
}

// Write16 writes a 16-bit value at addr
func (m *Region) Write16(addr uint64, value uint16) {
	off, ok := m.at("ww", addr, 2)
	if !ok {
		return
	}
	*(*uint16)(m.ptr(off)) = value
}

// Read8 reads an 8-bit value at addr
func (m *Region) Read8(addr uint64) uint8 {
	off, ok := m.at("rb", addr, 1)
	if !ok {
		return 0
	}
	return *(*uint8)(m.ptr(off))
}

// Write8 writes an 8-bit value at addr
func (m *Region) Write8(addr uint64, value uint8) {
	off, ok := m.at("wb", addr, 1)
	if !ok {
		return
	}
	*(*uint8)(m.ptr(off)) = value
}
