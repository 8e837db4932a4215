// a20_gate.go - A20 address line gate

package main

// PhysicalAddressMask is the width of the physical address space this
// core models: 21 bits, 0 ... 0x1FFFFF.
const PhysicalAddressMask = 0x1FFFFF

// a20MaskDisabled folds bit 20 off, reproducing the 8086 wraparound
// behavior DOS-era software in real mode could rely on.
const a20MaskDisabled = 0x0FFFFF

// A20Gate masks bit 20 of every physical address the bus is asked to
// decode, depending on a single boolean state. It emits no bus traffic
// itself; MemoryBus calls Transform on every access.
type A20Gate struct {
	enabled bool

	// localCount tracks nested XMS local-enable (0x05) / local-disable
	// (0x06) requests. The first increment unconditionally enables A20;
	// decrementing to zero disables it. Global enable/disable (0x03/0x04)
	// bypass this counter entirely.
	localCount int
}

// NewA20Gate returns a gate with A20 disabled (the real-mode boot state).
func NewA20Gate() *A20Gate {
	return &A20Gate{}
}

// Enabled reports the physical A20 state.
func (g *A20Gate) Enabled() bool {
	return g.enabled
}

// mask returns the address mask for the gate's current state.
func (g *A20Gate) mask() uint32 {
	if g.enabled {
		return PhysicalAddressMask
	}
	return a20MaskDisabled
}

// Transform applies the A20 mask to a physical address. Idempotent and
// O(1); callers should not cache the result across a toggle.
func (g *A20Gate) Transform(address uint32) uint32 {
	return address & g.mask()
}

// SetGlobal forces the physical A20 state independently of the
// local-enable counter (XMS functions 0x03/0x04).
func (g *A20Gate) SetGlobal(enabled bool) {
	g.enabled = enabled
}

// LocalEnable implements XMS function 0x05: the first nested request
// unconditionally enables A20; later ones just bump the counter.
func (g *A20Gate) LocalEnable() {
	if g.localCount == 0 {
		g.enabled = true
	}
	g.localCount++
}

// LocalDisable implements XMS function 0x06: disables A20 only on the
// 1->0 transition of the counter. A no-op at count 0.
func (g *A20Gate) LocalDisable() {
	if g.localCount == 0 {
		return
	}
	g.localCount--
	if g.localCount == 0 {
		g.enabled = false
	}
}

// LocalCount reports the current nesting depth of local-enable requests.
func (g *A20Gate) LocalCount() int {
	return g.localCount
}

// Reset restores the gate to its post-boot state: A20 disabled, no
// pending local-enable nesting.
func (g *A20Gate) Reset() {
	g.enabled = false
	g.localCount = 0
}

// withForcedEnable temporarily forces A20 on for the duration of fn and
// restores the previous physical state (and leaves localCount untouched)
// afterward. Used by XMS move (0x0B), which must see the full 21-bit
// space regardless of what DOS currently has A20 set to.
func (g *A20Gate) withForcedEnable(fn func()) {
	prev := g.enabled
	g.enabled = true
	defer func() { g.enabled = prev }()
	fn()
}
