// mcb_allocator.go - conventional-memory MCB allocator (§4.3)
//
// Grounded on coprocessor_manager.go's free-list/first-fit bookkeeping
// (CoprocessorManager tracks ring slots the same shape-first-fit way)
// and on MachineBus's habit of writing control structures straight into
// the emulated address space rather than a shadow Go struct: an MCB
// allocator for a real DOS guest has to keep its MCB chain live in RAM,
// because EXEC and other DOS programs walk it directly.

package main

// MCB type bytes (§3).
const (
	mcbTypeLink byte = 0x4D // more MCBs follow
	mcbTypeLast byte = 0x5A // last MCB in the chain
)

const mcbHeaderParagraphs = 1 // one paragraph (16 bytes) per MCB header

// mcbAllocNode is one allocation-address-ordered record the allocator
// keeps separately from the MCB chain written into RAM; the MCB chain
// is the DOS-visible ground truth (§4.3), this list is bookkeeping that
// makes first-fit and coalescing cheap to implement.
type mcbAllocNode struct {
	segment uint16 // segment of the MCB header for this block
	size    uint16 // paragraphs owned by the block, header excluded
	free    bool
}

// MCBAllocator tracks conventional (< 1 MB) ownership through an
// in-memory MCB chain written to the bus. firstSegment is the first
// *usable* (data) segment, matching §6's address map where
// ConventionalBase is meant to be the first segment a caller can
// actually use — the chain's first MCB header is reserved one paragraph
// below it, not at firstSegment itself.
type MCBAllocator struct {
	bus          *MemoryBus
	firstSegment uint16
	totalPara    uint16 // total paragraphs available to the chain, header included
	nodes        []mcbAllocNode
}

// NewMCBAllocator creates an allocator whose first usable data segment is
// firstSegment and which spans totalParagraphs paragraphs (header
// paragraphs included), initialized to a single free block.
func NewMCBAllocator(bus *MemoryBus, firstSegment, totalParagraphs uint16) *MCBAllocator {
	a := &MCBAllocator{bus: bus, firstSegment: firstSegment, totalPara: totalParagraphs}
	a.Clear()
	return a
}

// Clear resets the chain to a single free block spanning the entire
// managed range (§4.3 contract). The sole block's header sits at
// firstSegment-mcbHeaderParagraphs, so an allocation at minSegment ==
// firstSegment with nothing yet allocated returns firstSegment itself
// (§8 scenario "allocate at the natural minimum").
func (a *MCBAllocator) Clear() {
	a.nodes = []mcbAllocNode{{
		segment: a.firstSegment - mcbHeaderParagraphs,
		size:    a.totalPara - mcbHeaderParagraphs,
		free:    true,
	}}
	a.writeChain()
}

// Allocate reserves ceil(bytes/16) paragraphs at or above minSegment
// using first-fit, splitting the chosen block into up to three
// fragments: a free head below minSegment, the used chunk, and a free
// tail. Returns the data segment the caller may use directly — one
// paragraph above its owning MCB's header.
func (a *MCBAllocator) Allocate(minSegment uint16, bytes uint32) (uint16, error) {
	needed := paragraphsFor(bytes)

	for i, n := range a.nodes {
		if !n.free {
			continue
		}
		dataStart := n.segment + mcbHeaderParagraphs
		blockEnd := dataStart + n.size // one past the last data paragraph
		allocStart := dataStart
		if allocStart < minSegment {
			allocStart = minSegment
		}
		if allocStart+needed > blockEnd {
			continue
		}

		var frags []mcbAllocNode
		if allocStart > dataStart {
			frags = append(frags, mcbAllocNode{
				segment: n.segment,
				size:    allocStart - mcbHeaderParagraphs - dataStart,
				free:    true,
			})
		}
		used := mcbAllocNode{segment: allocStart - mcbHeaderParagraphs, size: needed, free: false}
		frags = append(frags, used)
		tailStart := allocStart + needed
		if tailStart < blockEnd {
			frags = append(frags, mcbAllocNode{
				segment: tailStart,
				size:    blockEnd - tailStart - mcbHeaderParagraphs,
				free:    true,
			})
		}

		a.nodes = append(a.nodes[:i], append(frags, a.nodes[i+1:]...)...)
		a.writeChain()
		return allocStart, nil
	}
	return 0, ErrOutOfConventionalMemory
}

// LargestFree reports the size in bytes of the largest contiguous free
// block.
func (a *MCBAllocator) LargestFree() uint32 {
	var best uint16
	for _, n := range a.nodes {
		if n.free && n.size > best {
			best = n.size
		}
	}
	return uint32(best) * 16
}

// Free releases the block whose data segment (as returned by Allocate)
// is dataSegment, coalescing with an immediately adjacent free block on
// either side per the standard DOS rule (§4.3, §4.4's free-block-merge
// behavior mirrored for conventional memory).
func (a *MCBAllocator) Free(dataSegment uint16) {
	headerSegment := dataSegment - mcbHeaderParagraphs
	for i, n := range a.nodes {
		if n.segment != headerSegment {
			continue
		}
		a.nodes[i].free = true
		if i+1 < len(a.nodes) && a.nodes[i+1].free {
			a.nodes[i].size += mcbHeaderParagraphs + a.nodes[i+1].size
			a.nodes = append(a.nodes[:i+1], a.nodes[i+2:]...)
		}
		if i > 0 && a.nodes[i-1].free {
			a.nodes[i-1].size += mcbHeaderParagraphs + a.nodes[i].size
			a.nodes = append(a.nodes[:i], a.nodes[i+1:]...)
		}
		a.writeChain()
		return
	}
}

// paragraphsFor rounds a byte count up to whole paragraphs.
func paragraphsFor(bytes uint32) uint16 {
	return uint16((bytes + 15) / 16)
}

// writeChain rewrites every MCB header into RAM via the bus so DOS
// guests walking the chain directly see the current layout.
func (a *MCBAllocator) writeChain() {
	for i, n := range a.nodes {
		base := Seg16(n.segment, 0)
		t := mcbTypeLink
		if i == len(a.nodes)-1 {
			t = mcbTypeLast
		}
		a.bus.Write8(base, t)
		owner := uint16(0)
		if !n.free {
			owner = 0x0008 // placeholder PSP; real value supplied by the DOS loader
		}
		a.bus.Write16(base+1, owner)
		a.bus.Write16(base+3, n.size)
		for j := uint32(0); j < 8; j++ {
			a.bus.Write8(base+5+j, 0)
		}
	}
}

// WalkChain traverses the MCB chain as written in RAM (not the internal
// node list) and reports each block's owner/size, for callers that want
// the DOS-visible ground truth rather than the allocator's bookkeeping.
// Returns ErrCorruptMCBChain if a type byte is neither mcbTypeLink nor
// mcbTypeLast (§4.3).
func (a *MCBAllocator) WalkChain() ([]MCBEntry, error) {
	var entries []MCBEntry
	seg := a.firstSegment - mcbHeaderParagraphs
	for {
		base := Seg16(seg, 0)
		t := a.bus.Read8(base)
		if t != mcbTypeLink && t != mcbTypeLast {
			return entries, ErrCorruptMCBChain
		}
		owner := a.bus.Read16(base + 1)
		size := a.bus.Read16(base + 3)
		entries = append(entries, MCBEntry{Segment: seg, OwnerPSP: owner, SizeParagraphs: size, Last: t == mcbTypeLast})
		if t == mcbTypeLast {
			return entries, nil
		}
		seg = seg + mcbHeaderParagraphs + size
	}
}

// MCBEntry is one node of the DOS-visible chain as read back from RAM.
type MCBEntry struct {
	Segment        uint16
	OwnerPSP       uint16
	SizeParagraphs uint16
	Last           bool
}
