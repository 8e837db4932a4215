package main

import "testing"

func newTestAllocator() (*MemoryBus, *MCBAllocator) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	ram := NewRAM(0x100000)
	bus.Register(0, 0x100000, NewRAMDevice(0, ram))
	a := NewMCBAllocator(bus, 0x1000, 0x1000)
	return bus, a
}

func TestMCBAllocateFirstFit(t *testing.T) {
	_, a := newTestAllocator()

	seg, err := a.Allocate(0x1000, 16) // one paragraph
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if seg != 0x1000 {
		t.Fatalf("Allocate returned segment 0x%X, want 0x1000", seg)
	}
}

func TestMCBAllocateRespectsMinSegment(t *testing.T) {
	_, a := newTestAllocator()

	seg, err := a.Allocate(0x1100, 16)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if seg != 0x1100 {
		t.Fatalf("Allocate with minSegment 0x1100 returned 0x%X, want 0x1100", seg)
	}
}

func TestMCBAllocateFreeCoalesce(t *testing.T) {
	_, a := newTestAllocator()

	before := a.LargestFree()

	segA, err := a.Allocate(0x1000, 160) // 10 paragraphs
	if err != nil {
		t.Fatalf("Allocate A returned error: %v", err)
	}
	segB, err := a.Allocate(0x1000, 320) // 20 paragraphs
	if err != nil {
		t.Fatalf("Allocate B returned error: %v", err)
	}

	a.Free(segA)
	a.Free(segB)

	if after := a.LargestFree(); after != before {
		t.Fatalf("LargestFree after allocate/free pair = %d, want %d (original)", after, before)
	}
}

func TestMCBOutOfMemory(t *testing.T) {
	_, a := newTestAllocator()

	if _, err := a.Allocate(0x1000, 0x1000*16); err != ErrOutOfConventionalMemory {
		t.Fatalf("Allocate beyond capacity: err = %v, want ErrOutOfConventionalMemory", err)
	}
}

func TestMCBWalkChainDetectsCorruption(t *testing.T) {
	bus, a := newTestAllocator()

	if _, err := a.WalkChain(); err != nil {
		t.Fatalf("WalkChain on a freshly cleared allocator: %v", err)
	}

	bus.Write8(Seg16(0x1000-mcbHeaderParagraphs, 0), 0xFF) // corrupt the type byte
	if _, err := a.WalkChain(); err != ErrCorruptMCBChain {
		t.Fatalf("WalkChain after corrupting type byte: err = %v, want ErrCorruptMCBChain", err)
	}
}
