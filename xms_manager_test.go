package main

import "testing"

func newTestXMS() (*MemoryBus, *XMSManager) {
	a20 := NewA20Gate()
	bus := NewMemoryBus(a20, nil)
	low := NewRAM(XMSBase)
	bus.Register(0, XMSBase, NewRAMDevice(0, low))
	xmsRAM := NewRAM(XMSRegionSize)
	bus.Register(XMSBase, XMSRegionSize, NewRAMDevice(XMSBase, xmsRAM))
	return bus, NewXMSManager(bus, a20, xmsRAM)
}

func TestXMSGetVersionReportsHMAPresent(t *testing.T) {
	_, xms := newTestXMS()
	r := &fakeRegs{}
	r.SetAL(0x00)
	xms.Dispatch(r)
	if r.AX() != 0x0200 || r.DX() != 1 {
		t.Fatalf("get version: AX=0x%X DX=%d, want AX=0x0200 DX=1", r.AX(), r.DX())
	}
}

func TestXMSAllocateLockMove(t *testing.T) {
	_, xms := newTestXMS()

	allocHandle := func(kb uint16) uint16 {
		r := &fakeRegs{}
		r.SetAL(0x09)
		r.SetDX(kb)
		xms.Dispatch(r)
		if r.AX() != 1 {
			t.Fatalf("allocate %d KB failed: BL=0x%X", kb, r.BL())
		}
		return r.DX()
	}
	lock := func(handle uint16) uint32 {
		r := &fakeRegs{}
		r.SetAL(0x0C)
		r.SetDX(handle)
		xms.Dispatch(r)
		if r.AX() != 1 {
			t.Fatalf("lock handle %d failed: BL=0x%X", handle, r.BL())
		}
		return uint32(r.DX())<<16 | uint32(r.BX())
	}

	h1 := allocHandle(64)
	linear1 := lock(h1)
	if linear1 != XMSBase {
		t.Fatalf("first allocation's linear address = 0x%X, want 0x%X", linear1, uint32(XMSBase))
	}

	xms.bus.Write8(linear1, 0xDE)
	xms.bus.Write8(linear1+1, 0xAD)
	xms.bus.Write8(linear1+2, 0xBE)
	xms.bus.Write8(linear1+3, 0xEF)

	h2 := allocHandle(64)

	move := func(srcHandle, dstHandle uint16, srcOff, dstOff, length uint32) {
		structAddr := uint32(0x2000)
		xms.bus.Write32(structAddr+0x00, length)
		xms.bus.Write16(structAddr+0x04, srcHandle)
		xms.bus.Write32(structAddr+0x06, srcOff)
		xms.bus.Write16(structAddr+0x0A, dstHandle)
		xms.bus.Write32(structAddr+0x0C, dstOff)
		r := &fakeRegs{}
		r.SetAL(0x0B)
		r.SetDS(0)
		r.SetSI(uint16(structAddr))
		xms.Dispatch(r)
		if r.AX() != 1 {
			t.Fatalf("move failed: BL=0x%X", r.BL())
		}
	}
	move(h1, h2, 0, 0, 4)

	linear2 := lock(h2)
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	for i, w := range want {
		if got := xms.bus.Read8(linear2 + uint32(i)); got != w {
			t.Fatalf("byte %d after move = 0x%X, want 0x%X", i, got, w)
		}
	}
}

func TestXMSFreeRejectsLockedHandle(t *testing.T) {
	_, xms := newTestXMS()

	r := &fakeRegs{}
	r.SetAL(0x09)
	r.SetDX(64)
	xms.Dispatch(r)
	handle := r.DX()

	r = &fakeRegs{}
	r.SetAL(0x0C)
	r.SetDX(handle)
	xms.Dispatch(r)

	r = &fakeRegs{}
	r.SetAL(0x0A)
	r.SetDX(handle)
	xms.Dispatch(r)
	if r.AX() != 0 || XMSStatus(r.BL()) != XMSStatusLocked {
		t.Fatalf("free of locked handle: AX=%d BL=0x%X, want AX=0 BL=0x%X", r.AX(), r.BL(), byte(XMSStatusLocked))
	}
}

func TestXMSAllocateFreeRoundTrip(t *testing.T) {
	_, xms := newTestXMS()

	r := &fakeRegs{}
	r.SetAL(0x08)
	xms.Dispatch(r)
	totalBefore := r.DX()

	r = &fakeRegs{}
	r.SetAL(0x09)
	r.SetDX(256)
	xms.Dispatch(r)
	handle := r.DX()

	r = &fakeRegs{}
	r.SetAL(0x0A)
	r.SetDX(handle)
	xms.Dispatch(r)
	if r.AX() != 1 {
		t.Fatalf("free failed: BL=0x%X", r.BL())
	}

	r = &fakeRegs{}
	r.SetAL(0x08)
	xms.Dispatch(r)
	if r.DX() != totalBefore {
		t.Fatalf("total free KB after allocate/free = %d, want %d", r.DX(), totalBefore)
	}
}

func TestXMSZeroByteAllocateYieldsUnbackedHandle(t *testing.T) {
	_, xms := newTestXMS()

	r := &fakeRegs{}
	r.SetAL(0x09)
	r.SetDX(0)
	xms.Dispatch(r)
	if r.AX() != 1 {
		t.Fatalf("zero-byte allocate failed: BL=0x%X", r.BL())
	}
	handle := r.DX()

	r = &fakeRegs{}
	r.SetAL(0x0C)
	r.SetDX(handle)
	xms.Dispatch(r)
	if r.AX() != 1 {
		t.Fatalf("lock of zero-byte handle failed: BL=0x%X", r.BL())
	}
	if got := uint32(r.DX())<<16 | uint32(r.BX()); got != XMSBase {
		t.Fatalf("zero-byte handle's linear address = 0x%X, want base 0x%X", got, uint32(XMSBase))
	}
}
