// breakpoints.go - breakpoint service seam (§6) and a default registry
//
// The spec treats the breakpoint service as an external collaborator the
// core consumes (§1) and fires into on every access (§4.2, §5). This
// file defines that seam as a small interface plus a concrete
// implementation the core can use standalone (tests, CoreMachine,
// or a host that has no richer debugger wired in yet).
//
// Grounded on debug_interface.go's BreakpointEvent/Watchpoint shape,
// trimmed to what the memory bus and the flow recorder actually need:
// point read/write notification, one range-read notification per Span
// call, and a "currently writing byte" slot write breakpoints can
// inspect before the device store happens (§4.2, invariant 4 in §8).

package main

// BreakpointKind distinguishes the three notification shapes the bus
// emits.
type BreakpointKind int

const (
	BreakpointRead BreakpointKind = iota
	BreakpointWrite
	BreakpointRangeRead
)

// BreakpointHandler is called synchronously on the CPU-emulation thread
// when a breakpoint fires. It must not call back into the bus for
// writes (§5) — doing so would recurse through write dispatch.
type BreakpointHandler func(pa uint32, length uint32)

// BreakpointService is what MemoryBus fires into on every access. The
// design notes (§9) call for a short-circuit on "no breakpoints
// registered" so the hot path stays cheap; HasAny exists for that.
type BreakpointService interface {
	FireRead(pa uint32)
	FireWrite(pa uint32)
	FireRangeRead(pa uint32, length uint32)
	HasAny() bool
}

// BreakpointRegistry is the default BreakpointService: per-address
// handler lists for reads and writes (the execution flow recorder's
// self-modification detector registers its write handlers here via
// SetWriteBreakpoint), plus a list of range-read handlers that
// FireRangeRead calls for every Span. The registry has no method that
// adds a range-read handler, and HasAny counts only read and write
// handlers.
type BreakpointRegistry struct {
	reads      map[uint32][]BreakpointHandler
	writes     map[uint32][]BreakpointHandler
	rangeReads []BreakpointHandler
	count      int
}

// NewBreakpointRegistry returns an empty registry.
func NewBreakpointRegistry() *BreakpointRegistry {
	return &BreakpointRegistry{
		reads:  make(map[uint32][]BreakpointHandler),
		writes: make(map[uint32][]BreakpointHandler),
	}
}

// HasAny reports whether any breakpoint of any kind is registered, so
// MemoryBus can skip the map lookup entirely on the common case.
func (r *BreakpointRegistry) HasAny() bool {
	return r.count > 0
}

// SetReadBreakpoint registers handler to fire whenever pa is read.
func (r *BreakpointRegistry) SetReadBreakpoint(pa uint32, handler BreakpointHandler) {
	r.reads[pa] = append(r.reads[pa], handler)
	r.count++
}

// SetWriteBreakpoint registers handler to fire whenever pa is written.
// Used by the execution flow recorder's RegisterExecutable (§4.6).
func (r *BreakpointRegistry) SetWriteBreakpoint(pa uint32, handler BreakpointHandler) {
	r.writes[pa] = append(r.writes[pa], handler)
	r.count++
}

// ClearWriteBreakpoints removes every write handler registered at pa.
func (r *BreakpointRegistry) ClearWriteBreakpoints(pa uint32) {
	if n := len(r.writes[pa]); n > 0 {
		r.count -= n
		delete(r.writes, pa)
	}
}

// HasWriteBreakpoint reports whether pa already carries a write handler.
func (r *BreakpointRegistry) HasWriteBreakpoint(pa uint32) bool {
	return len(r.writes[pa]) > 0
}

func (r *BreakpointRegistry) FireRead(pa uint32) {
	for _, h := range r.reads[pa] {
		h(pa, 1)
	}
}

func (r *BreakpointRegistry) FireWrite(pa uint32) {
	for _, h := range r.writes[pa] {
		h(pa, 1)
	}
}

// FireRangeRead fires once for the whole [pa, pa+length) interval, not
// once per byte (§4.2's Span contract).
func (r *BreakpointRegistry) FireRangeRead(pa uint32, length uint32) {
	for _, h := range r.rangeReads {
		h(pa, length)
	}
}
