package main

import "testing"

func TestBusReadWriteRoundTrip(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram := NewRAM(0x10000)
	bus.Register(0, 0x10000, NewRAMDevice(0, ram))

	bus.Write8(0x1234, 0x42)
	if got := bus.Read8(0x1234); got != 0x42 {
		t.Fatalf("Read8(0x1234) = 0x%X, want 0x42", got)
	}

	bus.Write16(0x100, 0xBEEF)
	if got := bus.Read16(0x100); got != 0xBEEF {
		t.Fatalf("Read16(0x100) = 0x%X, want 0xBEEF", got)
	}

	bus.Write32(0x200, 0xDEADBEEF)
	if got := bus.Read32(0x200); got != 0xDEADBEEF {
		t.Fatalf("Read32(0x200) = 0x%X, want 0xDEADBEEF", got)
	}
}

// TestBusA20Aliasing exercises the §8 S1 wraparound scenario: with A20
// disabled, an address at or above 0x100000 aliases down through the
// mask, landing on the same byte as its low counterpart.
func TestBusA20Aliasing(t *testing.T) {
	a20 := NewA20Gate()
	bus := NewMemoryBus(a20, nil)
	ram := NewRAM(0x110000)
	bus.Register(0, 0x110000, NewRAMDevice(0, ram))

	a20.SetGlobal(true)
	bus.Write8(0x100000, 0x42)
	if got := bus.Read8(0x100000); got != 0x42 {
		t.Fatalf("read back with A20 enabled = 0x%X, want 0x42", got)
	}

	a20.SetGlobal(false)
	if got := bus.Read8(0x000000); got != 0x42 {
		t.Fatalf("aliased read at 0x000000 with A20 disabled = 0x%X, want 0x42", got)
	}

	a20.SetGlobal(true)
	if got := bus.Read8(0x100000); got != 0x42 {
		t.Fatalf("read at 0x100000 after re-enabling A20 = 0x%X, want 0x42", got)
	}
}

func TestBusLaterRegistrationWinsPointLookup(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram1 := NewRAM(0x1000)
	ram2 := NewRAM(0x1000)
	bus.Register(0, 0x1000, NewRAMDevice(0, ram1))
	bus.Register(0, 0x1000, NewRAMDevice(0, ram2))

	bus.Write8(0x10, 0x99)
	if got := ram1.Read8(0x10); got == 0x99 {
		t.Fatal("write landed on the earlier registration, not the later one")
	}
	if got := ram2.Read8(0x10); got != 0x99 {
		t.Fatalf("later registration's backing RAM = 0x%X, want 0x99", got)
	}
}

func TestBusSpanFailsOnPartialOverlap(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram := NewRAM(0x100)
	bus.Register(0, 0x100, NewRAMDevice(0, ram))

	if _, err := bus.Span(0x80, 0x100); err != ErrUnmappedRange {
		t.Fatalf("Span crossing the mapped region's end: err = %v, want ErrUnmappedRange", err)
	}
}

func TestBusSpanReturnsBackingSlice(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram := NewRAM(0x100)
	bus.Register(0, 0x100, NewRAMDevice(0, ram))
	bus.Write8(0x10, 0xAA)
	bus.Write8(0x11, 0xBB)

	data, err := bus.Span(0x10, 2)
	if err != nil {
		t.Fatalf("Span returned error: %v", err)
	}
	if len(data) != 2 || data[0] != 0xAA || data[1] != 0xBB {
		t.Fatalf("Span data = %v, want [0xAA 0xBB]", data)
	}
}

func TestBusCurrentlyWritingByte(t *testing.T) {
	bp := NewBreakpointRegistry()
	bus := NewMemoryBus(NewA20Gate(), bp)
	ram := NewRAM(0x100)
	bus.Register(0, 0x100, NewRAMDevice(0, ram))

	var seenDuringWrite byte
	bp.SetWriteBreakpoint(0x10, func(pa, length uint32) {
		seenDuringWrite = bus.CurrentlyWritingByte()
	})

	bus.Write8(0x10, 0x7E)
	if seenDuringWrite != 0x7E {
		t.Fatalf("breakpoint observed currentlyWriting = 0x%X, want 0x7E", seenDuringWrite)
	}
}

func TestBusZeroTerminatedStrings(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram := NewRAM(0x100)
	bus.Register(0, 0x100, NewRAMDevice(0, ram))

	if err := bus.WriteZeroTerminated(0x10, "DOS", 8); err != nil {
		t.Fatalf("WriteZeroTerminated returned error: %v", err)
	}
	if got := bus.ReadZeroTerminated(0x10, 8); got != "DOS" {
		t.Fatalf("ReadZeroTerminated = %q, want %q", got, "DOS")
	}

	if err := bus.WriteZeroTerminated(0x10, "TOOLONGSTRING", 4); err != ErrStringTooLong {
		t.Fatalf("WriteZeroTerminated overflow: err = %v, want ErrStringTooLong", err)
	}
}

func TestBusSearchFindsNeedle(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram := NewRAM(0x100)
	bus.Register(0, 0x100, NewRAMDevice(0, ram))

	bus.Write8(0x20, 0xDE)
	bus.Write8(0x21, 0xAD)
	bus.Write8(0x22, 0xBE)
	bus.Write8(0x23, 0xEF)

	pa, ok := bus.Search(0, 0x100, []byte{0xAD, 0xBE})
	if !ok || pa != 0x21 {
		t.Fatalf("Search = (0x%X, %v), want (0x21, true)", pa, ok)
	}
}
