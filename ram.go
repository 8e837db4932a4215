// ram.go - flat RAM backing for the memory bus
//
// Grounded on machine_bus.go's "contiguous slice for cache locality"
// design: a single allocation, indexed 8/16/32-bit little-endian
// accessors, no per-byte bounds-check beyond a single slice length
// check. The concrete allocation strategy (mmap vs plain slice) is
// selected by ramBackend, implemented per-platform in
// ram_backend_unix.go / ram_backend_portable.go.

package main

import "encoding/binary"

// RAM is a flat byte array backing one contiguous MappedDevice
// registration, addressed by an offset relative to that registration's
// base (RAMDevice does the physical-address translation). The core uses
// one RAM instance for the conventional/UMB/HMA range below XMSBase and
// a second, larger one as the XMS pool's backing store (§6).
type RAM struct {
	mem     []byte
	release func()
}

// NewRAM allocates size bytes of backing store via the platform backend.
func NewRAM(size int) *RAM {
	mem, release := ramBackend(size)
	return &RAM{mem: mem, release: release}
}

// Close releases the backing store (unmaps mmap'd regions; a no-op for
// the portable slice backend).
func (r *RAM) Close() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

// Len reports the size of the backing store in bytes.
func (r *RAM) Len() int {
	return len(r.mem)
}

func (r *RAM) Read8(off uint32) byte {
	return r.mem[off]
}

func (r *RAM) Write8(off uint32, v byte) {
	r.mem[off] = v
}

func (r *RAM) Read16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(r.mem[off : off+2])
}

func (r *RAM) Write16(off uint32, v uint16) {
	binary.LittleEndian.PutUint16(r.mem[off:off+2], v)
}

func (r *RAM) Read32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(r.mem[off : off+4])
}

func (r *RAM) Write32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(r.mem[off:off+4], v)
}

// Slice borrows a contiguous byte range. Callers must not retain it past
// the RAM's lifetime and must not resize it.
func (r *RAM) Slice(off, length uint32) []byte {
	return r.mem[off : off+length]
}

// Reset zeroes the entire backing store, cache-friendly sequential pass
// (mirrors MachineBus.Reset in machine_bus.go).
func (r *RAM) Reset() {
	for i := range r.mem {
		r.mem[i] = 0
	}
}
