// memory_bus.go - Memory Bus (§4.2)
//
// Grounded on machine_bus.go: little-endian multi-byte accessors built
// from single-byte primitives, and a contiguous backing array for the
// common case (RAM). The spec describes device lookup as "a flat table
// of size equal to the top mapped address" (§4.2); materializing that
// literally would mean one pointer per byte across a 32 MiB+ XMS region,
// which this implementation avoids — the handful of devices this core
// ever registers (low RAM and the XMS pool; the EMS page frame is a
// PageFrameRedirector, not a registered device) are instead
// held in the same insertion-ordered registration list the spec already
// calls for, and point lookup scans it in *reverse* insertion order so
// later registrations still supersede earlier ones for overlapping
// bytes, matching §3's and §4.2's stated behavior without the memory
// cost of a byte-granular array. Span keeps the forward, first-match
// search the spec specifies.
//
// Unlike the teacher's MachineBus (which special-cases 32-bit words for
// CPU throughput), every multi-byte access here is explicitly decomposed
// into byte operations per §4.2: "the bus decomposes the access into
// single-byte operations" — this is observable by breakpoint handlers
// and overlay devices that only implement byte-level callbacks, which is
// the only capability MappedDevice exposes (§3).

package main

// MappedDevice is the capability surface a memory-mapped region
// implements: single-byte read/write and an optional contiguous-slice
// loan for Span.
type MappedDevice interface {
	ReadByte(pa uint32) byte
	WriteByte(pa uint32, v byte)

	// Borrow returns a slice covering [pa, pa+length) if the device can
	// satisfy the whole range from one contiguous backing store; ok is
	// false otherwise (Span then tries the next containing registration).
	Borrow(pa, length uint32) (data []byte, ok bool)
}

type registration struct {
	base, end uint32 // inclusive
	device    MappedDevice
}

// PageFrameRedirector lets the EMS manager splice its page-frame mapping
// into every bus access path (§4.5, §9: "must be consulted inside the
// bus's read/write paths — not in a wrapper"), so that instruction
// fetches and data references inside the page-frame window transparently
// see whichever logical page is currently mapped there.
type PageFrameRedirector interface {
	// Redirect returns the effective address to use instead of pa, and
	// true, when pa falls inside a currently-mapped page-frame slot.
	Redirect(pa uint32) (effective uint32, ok bool)
}

// MemoryBus decodes physical addresses to mapped devices, routes
// reads/writes, fires breakpoints, and exposes span views. Every address
// below XMSBase passes through the A20 gate before device lookup (§4.1);
// see maskA20 for why addresses at or above XMSBase are exempt.
type MemoryBus struct {
	a20 *A20Gate
	bp  BreakpointService

	regs     []registration // insertion order
	topAddr  uint32          // one past the highest end registered so far

	redirector PageFrameRedirector

	// currentlyWriting holds the byte about to be stored, set before the
	// write breakpoint fires and before the device's WriteByte is called
	// (§4.2, §8 invariant 4). Read by breakpoint handlers — notably the
	// execution flow recorder's self-modification detector.
	currentlyWriting byte
}

// NewMemoryBus creates an empty bus. Callers register devices (RAM
// first, to cover the address space, then overlays) before use.
func NewMemoryBus(a20 *A20Gate, bp BreakpointService) *MemoryBus {
	if bp == nil {
		bp = NewBreakpointRegistry()
	}
	return &MemoryBus{a20: a20, bp: bp}
}

// CurrentlyWritingByte returns the byte mid-flight during a write
// breakpoint callback.
func (b *MemoryBus) CurrentlyWritingByte() byte {
	return b.currentlyWriting
}

// SetPageFrameRedirector installs the EMS manager's page-frame
// redirection. Pass nil to remove it.
func (b *MemoryBus) SetPageFrameRedirector(r PageFrameRedirector) {
	b.redirector = r
}

// maskA20 applies the A20 mask only to addresses a real-mode
// segment:offset pair can actually generate: conventional memory through
// the top of the HMA, i.e. everything below XMSBase (§4.1, §6). XMS
// linear addresses and EMS backing-pool addresses are resolved sums of
// XMSBase/backingLinearBase plus an allocator offset that can run past
// the 21-bit range the gate masks (the XMS pool alone is 32 MiB); mask
// bit 20 of one of those and it silently aliases a high XMS offset back
// into low memory or a different block. A20 has no such effect on them —
// nothing generates them via segment:offset arithmetic — so they pass
// through unmasked.
func (b *MemoryBus) maskA20(pa uint32) uint32 {
	if pa < XMSBase {
		return b.a20.Transform(pa)
	}
	return pa
}

// redirect applies the page-frame redirector, if any, to an
// already-A20-transformed address.
func (b *MemoryBus) redirect(pa uint32) uint32 {
	if b.redirector == nil {
		return pa
	}
	if eff, ok := b.redirector.Redirect(pa); ok {
		return eff
	}
	return pa
}

// Register maps device over [base, base+size). Overlapping a prior
// registration does not replace it in the list — the point-lookup scan
// (deviceAt) always prefers the most recently registered device that
// contains an address, while Span prefers the earliest.
func (b *MemoryBus) Register(base, size uint32, device MappedDevice) {
	if size == 0 {
		return
	}
	end := base + size - 1
	b.regs = append(b.regs, registration{base: base, end: end, device: device})
	if end+1 > b.topAddr {
		b.topAddr = end + 1
	}
}

// deviceAt returns the device owning pa: the most recently registered
// mapping containing it, so later registrations supersede earlier ones
// for overlapping bytes (§4.2).
func (b *MemoryBus) deviceAt(pa uint32) MappedDevice {
	for i := len(b.regs) - 1; i >= 0; i-- {
		r := &b.regs[i]
		if pa >= r.base && pa <= r.end {
			return r.device
		}
	}
	return nil
}

// rawRead8 looks up and reads a byte without touching the breakpoint
// service — the ingest-only path Search uses (§4.2). pa must already be
// A20-transformed and redirected.
func (b *MemoryBus) rawRead8(pa uint32) byte {
	dev := b.deviceAt(pa)
	if dev == nil {
		return 0
	}
	return dev.ReadByte(pa)
}

// Read8 reads one byte. The read breakpoint fires at the A20-transformed
// address before EMS page-frame redirection and before the device's
// fetch, so observers see the address the caller actually asked for.
func (b *MemoryBus) Read8(pa uint32) byte {
	pa = b.maskA20(pa)
	if b.bp.HasAny() {
		b.bp.FireRead(pa)
	}
	return b.rawRead8(b.redirect(pa))
}

// Write8 writes one byte. currentlyWriting is set and the write
// breakpoint fires before redirection and before the device's store
// (§4.2, §5 ordering).
func (b *MemoryBus) Write8(pa uint32, v byte) {
	pa = b.maskA20(pa)
	b.currentlyWriting = v
	if b.bp.HasAny() {
		b.bp.FireWrite(pa)
	}
	redirected := b.redirect(pa)
	if dev := b.deviceAt(redirected); dev != nil {
		dev.WriteByte(redirected, v)
	}
}

// Read16 reads a little-endian 16-bit value as two Read8 calls.
func (b *MemoryBus) Read16(pa uint32) uint16 {
	lo := b.Read8(pa)
	hi := b.Read8(pa + 1)
	return uint16(lo) | uint16(hi)<<8
}

// Write16 writes a little-endian 16-bit value as two Write8 calls.
func (b *MemoryBus) Write16(pa uint32, v uint16) {
	b.Write8(pa, byte(v))
	b.Write8(pa+1, byte(v>>8))
}

// Read32 reads a little-endian 32-bit value as four Read8 calls.
func (b *MemoryBus) Read32(pa uint32) uint32 {
	b0 := b.Read8(pa)
	b1 := b.Read8(pa + 1)
	b2 := b.Read8(pa + 2)
	b3 := b.Read8(pa + 3)
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
}

// Write32 writes a little-endian 32-bit value as four Write8 calls.
func (b *MemoryBus) Write32(pa uint32, v uint32) {
	b.Write8(pa, byte(v))
	b.Write8(pa+1, byte(v>>8))
	b.Write8(pa+2, byte(v>>16))
	b.Write8(pa+3, byte(v>>24))
}

// Span borrows a contiguous byte slice covering [pa, pa+length). It
// fires exactly one range-read breakpoint for the whole interval, then
// searches registrations in insertion order for the first one that
// fully contains the requested range and can satisfy Borrow. A request
// that only partially overlaps known mappings fails outright rather
// than being silently truncated.
// Span applies redirection by translating both endpoints and requiring
// they land the same distance apart as the request: that holds whenever
// the whole range sits inside one EMS page-frame slot (the only case
// redirection is ever used for), and fails safely rather than guessing
// otherwise.
func (b *MemoryBus) Span(pa, length uint32) ([]byte, error) {
	pa = b.maskA20(pa)
	if length == 0 {
		return nil, nil
	}
	if b.bp.HasAny() {
		b.bp.FireRangeRead(pa, length)
	}
	end := pa + length - 1
	rpa := b.redirect(pa)
	rend := b.redirect(end)
	if rend-rpa != end-pa {
		return nil, ErrUnmappedRange
	}
	for _, r := range b.regs {
		if rpa >= r.base && rend <= r.end {
			if data, ok := r.device.Borrow(rpa, length); ok {
				return data, nil
			}
		}
	}
	return nil, ErrUnmappedRange
}

// ReadZeroTerminated reads ASCII bytes starting at pa until a zero byte
// or maxLen bytes have been consumed, whichever comes first.
func (b *MemoryBus) ReadZeroTerminated(pa uint32, maxLen int) string {
	buf := make([]byte, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		c := b.Read8(pa + uint32(i))
		if c == 0 {
			break
		}
		buf = append(buf, c)
	}
	return string(buf)
}

// WriteZeroTerminated writes s followed by a zero terminator, failing
// if the string plus terminator would not fit in maxLen bytes.
func (b *MemoryBus) WriteZeroTerminated(pa uint32, s string, maxLen int) error {
	if len(s)+1 > maxLen {
		return ErrStringTooLong
	}
	for i := 0; i < len(s); i++ {
		b.Write8(pa+uint32(i), s[i])
	}
	b.Write8(pa+uint32(len(s)), 0)
	return nil
}

// Search scans up to length bytes starting at pa for the first
// occurrence of needle, clamped to the top of the mapped address space.
// It reads via the ingest-only path and fires no breakpoints.
func (b *MemoryBus) Search(pa, length uint32, needle []byte) (uint32, bool) {
	pa = b.maskA20(pa)
	if len(needle) == 0 || length == 0 {
		return 0, false
	}
	limit := pa + length
	if b.topAddr > 0 && limit > b.topAddr {
		limit = b.topAddr
	}
	for i := pa; i+uint32(len(needle)) <= limit; i++ {
		match := true
		for j, nb := range needle {
			if b.rawRead8(b.redirect(i+uint32(j))) != nb {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return 0, false
}
