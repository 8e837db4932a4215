// ram_device.go - MappedDevice adapter over a flat RAM backing store
//
// The bus deals in physical addresses; RAM deals in offsets from zero.
// RAMDevice is the thin translation between the two, so the same *RAM
// type backs both the low conventional/UMB/HMA region and the XMS pool,
// each registered on the bus at a different base (§6).

package main

// RAMDevice registers a *RAM at base on the memory bus.
type RAMDevice struct {
	base uint32
	ram  *RAM
}

// NewRAMDevice wraps ram for registration at the given physical base.
func NewRAMDevice(base uint32, ram *RAM) *RAMDevice {
	return &RAMDevice{base: base, ram: ram}
}

func (d *RAMDevice) ReadByte(pa uint32) byte {
	return d.ram.Read8(pa - d.base)
}

func (d *RAMDevice) WriteByte(pa uint32, v byte) {
	d.ram.Write8(pa-d.base, v)
}

// Borrow satisfies Span directly from the backing slice: RAM always
// has a contiguous backing array, so this never fails for addresses
// actually inside the registered range.
func (d *RAMDevice) Borrow(pa, length uint32) ([]byte, bool) {
	off := pa - d.base
	if uint64(off)+uint64(length) > uint64(d.ram.Len()) {
		return nil, false
	}
	return d.ram.Slice(off, length), true
}
