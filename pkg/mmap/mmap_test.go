package mmap

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fcurrie/memaccess/internal/types"
)

// backingFile creates a file of pages pages filled with the byte pattern i%256
func backingFile(t *testing.T, pages int) string {
	t.Helper()

	data := make([]byte, pages*os.Getpagesize())
	for i := range data {
		data[i] = byte(i)
	}

	path := filepath.Join(t.TempDir(), "mem")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func openRegion(t *testing.T, path string, length, offset uint64, log *zap.Logger) *Region {
	t.Helper()

	m, err := Open(path, length, offset, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if m.region != nil {
			assert.NoError(t, m.Close())
		}
	})

	return m
}

func TestOpen(t *testing.T) {
	path := backingFile(t, 1)
	page := uint64(os.Getpagesize())

	tests := []struct {
		name     string
		path     string
		length   uint64
		wantKind types.Kind
	}{
		{
			name:   "whole page",
			path:   path,
			length: page,
		},
		{
			name:     "missing file",
			path:     filepath.Join(t.TempDir(), "missing"),
			length:   page,
			wantKind: types.OpenError,
		},
		{
			name:     "directory",
			path:     t.TempDir(),
			length:   page,
			wantKind: types.OpenError,
		},
		{
			name:     "zero length",
			path:     path,
			length:   0,
			wantKind: types.MapError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Open(tt.path, tt.length, 0, zap.NewNop())
			if tt.wantKind != types.Unknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, types.KindOf(err))
				assert.Nil(t, m)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.path, m.Name())
			assert.Equal(t, tt.length, m.Len())
			assert.Equal(t, uint64(0), m.Offset())
			assert.NoError(t, m.Close())
		})
	}
}

func TestIsValid(t *testing.T) {
	page := uint64(os.Getpagesize())
	m := openRegion(t, backingFile(t, 2), page, page, zap.NewNop())

	assert.False(t, m.IsValid(0))
	assert.False(t, m.IsValid(page-1))
	assert.True(t, m.IsValid(page))
	assert.True(t, m.IsValid(page+page/2))
	assert.True(t, m.IsValid(2*page), "end address is inclusive")
	assert.False(t, m.IsValid(2*page+1))
}

func TestReadOffsetWindow(t *testing.T) {
	page := uint64(os.Getpagesize())
	m := openRegion(t, backingFile(t, 2), page, page, zap.NewNop())

	// the backing file holds i%256 at byte i, so the second page starts at 0x00 again
	assert.Equal(t, uint8(0x00), m.Read8(page))
	assert.Equal(t, uint8(0x10), m.Read8(page+0x10))

	want16 := binary.NativeEndian.Uint16([]byte{0x02, 0x03})
	assert.Equal(t, want16, m.Read16(page+2))

	want32 := binary.NativeEndian.Uint32([]byte{0x04, 0x05, 0x06, 0x07})
	assert.Equal(t, want32, m.Read32(page+4))

	want64 := binary.NativeEndian.Uint64([]byte{0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f})
	assert.Equal(t, want64, m.Read64(page+8))
}

func TestRoundTrip(t *testing.T) {
	page := uint64(os.Getpagesize())
	m := openRegion(t, backingFile(t, 1), page, 0, zap.NewNop())

	t.Run("8", func(t *testing.T) {
		for _, v := range []uint8{0, 1, 0x5a, math.MaxUint8} {
			m.Write8(0x11, v)
			assert.Equal(t, v, m.Read8(0x11))
		}
	})

	t.Run("16", func(t *testing.T) {
		for _, v := range []uint16{0, 1, 0xbeef, math.MaxUint16} {
			m.Write16(0x22, v)
			assert.Equal(t, v, m.Read16(0x22))
		}
	})

	t.Run("32", func(t *testing.T) {
		for _, v := range []uint32{0, 1, 0xaabbccdd, math.MaxUint32} {
			m.Write32(0x44, v)
			assert.Equal(t, v, m.Read32(0x44))
		}
	})

	t.Run("64", func(t *testing.T) {
		for _, v := range []uint64{0, 1, 0x0123456789abcdef, math.MaxUint64} {
			m.Write64(0x88, v)
			assert.Equal(t, v, m.Read64(0x88))
		}
	})
}

func TestWriteReachesBackingFile(t *testing.T) {
	path := backingFile(t, 1)
	page := uint64(os.Getpagesize())

	m, err := Open(path, page, 0, zap.NewNop())
	require.NoError(t, err)

	m.Write32(0x100, 0xaabbccdd)
	require.NoError(t, m.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xaabbccdd), binary.NativeEndian.Uint32(data[0x100:]))
	assert.Equal(t, byte(0x04), data[0x104], "neighbouring bytes are untouched")
}

func TestOutOfBounds(t *testing.T) {
	page := uint64(os.Getpagesize())
	core, logs := observer.New(zapcore.WarnLevel)
	m := openRegion(t, backingFile(t, 2), page, page, zap.New(core))

	assert.Equal(t, uint8(0), m.Read8(page-1))
	assert.Equal(t, uint16(0), m.Read16(3*page))
	assert.Equal(t, uint32(0), m.Read32(0))
	assert.Equal(t, uint64(0), m.Read64(2*page+8))

	// inclusive end address passes IsValid but has no room for the access
	assert.Equal(t, uint8(0), m.Read8(2*page))
	assert.Equal(t, uint32(0), m.Read32(2*page-2))

	before := m.Read32(page)
	m.Write32(page-4, 0xffffffff)
	m.Write8(2*page, 0xff)
	m.Write16(0, 0xffff)
	m.Write64(4*page, math.MaxUint64)
	assert.Equal(t, before, m.Read32(page))

	entries := logs.FilterMessage("out of bounds").All()
	require.Len(t, entries, 10)

	first := entries[0].ContextMap()
	assert.Equal(t, "rb", first["op"])
	assert.Equal(t, types.Hex(page-1), first["address"])

	var ops []string
	for _, e := range entries[6:] {
		ops = append(ops, e.ContextMap()["op"].(string))
	}
	assert.Equal(t, []string{"wl", "wb", "ww", "wq"}, ops)
}

func TestClose(t *testing.T) {
	page := uint64(os.Getpagesize())
	core, logs := observer.New(zapcore.WarnLevel)

	m, err := Open(backingFile(t, 1), page, 0, zap.New(core))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	// accessors on a closed region degrade to out of bounds instead of faulting
	assert.Equal(t, uint8(0), m.Read8(0))
	assert.Equal(t, 1, logs.Len())
}
