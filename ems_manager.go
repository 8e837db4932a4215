// ems_manager.go - EMS 4.0 expanded-memory manager (§4.5)
//
// Grounded on CoprocessorManager's MMIO-register dispatch generalized to
// an AH-coded interrupt handler, and on MachineBus's device-registration
// idiom for the page-frame window; the manager implements
// PageFrameRedirector (memory_bus.go) itself and installs it on the bus
// so page-frame accesses redirect without a wrapper device, per §9's
// "EMS/XMS coupling" note.

package main

const emsUnownedPage = -1
const emsUnmappedSlot = -1

// EMSHandle is one allocation's bookkeeping (§3).
type EMSHandle struct {
	id       int
	name     [8]byte
	pages    []int    // ordered logical page indices owned by this handle
	savedMap [4]int   // snapshot of physicalMap from the last savePageMap
}

// EMSManager implements the EMS 4.0 function set over a fixed 256-page
// logical pool backed by one large XMS allocation, and redirects the
// bus's page-frame window to whichever logical pages are currently
// mapped.
type EMSManager struct {
	bus *MemoryBus
	xms *XMSManager

	backingLinearBase uint32 // XMS linear address of the 4 MiB pool

	pageOwners  [EMSLogicalPageCount]int // handle id, or emsUnownedPage
	physicalMap [EMSPhysicalSlots]int    // logical page, or emsUnmappedSlot

	handles    map[int]*EMSHandle
	nextHandle int
}

// NewEMSManager reserves the page frame window, obtains its 4 MiB
// backing store from xms, and installs the system handle 0 owning the
// first 24 logical pages (§4.5).
func NewEMSManager(bus *MemoryBus, xms *XMSManager) *EMSManager {
	m := &EMSManager{
		bus:        bus,
		xms:        xms,
		handles:    make(map[int]*EMSHandle),
		nextHandle: 1,
	}
	for i := range m.pageOwners {
		m.pageOwners[i] = emsUnownedPage
	}
	for i := range m.physicalMap {
		m.physicalMap[i] = emsUnmappedSlot
	}

	backingBytes := uint32(EMSLogicalPageCount) * EMSPageSize
	_, base, ok := xms.AllocateSystemBlock(backingBytes)
	if !ok {
		panic("ems: could not reserve backing store from xms")
	}
	m.backingLinearBase = base

	sys := &EMSHandle{id: EMSSystemHandleID}
	for i := 0; i < EMSSystemHandlePages; i++ {
		m.pageOwners[i] = EMSSystemHandleID
		sys.pages = append(sys.pages, i)
	}
	m.handles[EMSSystemHandleID] = sys

	bus.SetPageFrameRedirector(m)
	return m
}

// Redirect implements PageFrameRedirector (§4.5).
func (m *EMSManager) Redirect(pa uint32) (uint32, bool) {
	if pa < EMSPageFrameBase || pa >= EMSPageFrameBase+EMSPhysicalSlots*EMSPageSize {
		return 0, false
	}
	slot := (pa - EMSPageFrameBase) / EMSPageSize
	logical := m.physicalMap[slot]
	if logical == emsUnmappedSlot {
		return 0, false
	}
	within := (pa - EMSPageFrameBase) % EMSPageSize
	return m.backingLinearBase + uint32(logical)*EMSPageSize + within, true
}

// Dispatch decodes AH (and, for subfunctioned calls, AL) and executes
// one EMS function against regs, per the selected function set in §4.5.
func (m *EMSManager) Dispatch(regs CPURegisterView) {
	switch regs.AH() {
	case 0x40:
		regs.SetAH(byte(EMSStatusOK))
	case 0x41:
		regs.SetBX(EMSPageFrameSegment)
		regs.SetAH(byte(EMSStatusOK))
	case 0x42:
		regs.SetBX(uint16(m.freePageCount()))
		regs.SetDX(EMSLogicalPageCount)
		regs.SetAH(byte(EMSStatusOK))
	case 0x43:
		m.allocatePages(regs)
	case 0x44:
		m.mapUnmap(regs)
	case 0x45:
		m.deallocate(regs)
	case 0x46:
		regs.SetAL(0x40)
		regs.SetAH(byte(EMSStatusOK))
	case 0x47:
		m.savePageMap(regs)
	case 0x48:
		m.restorePageMap(regs)
	case 0x4B:
		regs.SetBX(uint16(len(m.handles) + 1))
		regs.SetAH(byte(EMSStatusOK))
	case 0x4C:
		m.handlePageCount(regs)
	case 0x4D:
		regs.SetAH(byte(EMSStatusOK))
	case 0x50:
		m.mapUnmapMultiple(regs)
	case 0x53:
		m.handleName(regs)
	case 0x57:
		m.moveRegion(regs)
	case 0x59:
		m.hardwareInfo(regs)
	case 0xDE:
		regs.SetAH(byte(EMSStatusOK)) // VCPI stub: reports success, never faults; nothing is logged
	default:
		regs.SetAH(byte(EMSStatusNotImplemented))
	}
}

func (m *EMSManager) freePageCount() int {
	free := 0
	for _, owner := range m.pageOwners {
		if owner == emsUnownedPage {
			free++
		}
	}
	return free
}

func (m *EMSManager) nextHandleID() int {
	for {
		id := m.nextHandle
		m.nextHandle++
		if _, used := m.handles[id]; !used {
			return id
		}
	}
}

// allocatePages implements function 0x43: BX pages requested, granting
// requested+1 per the preserved DOS-era quirk (§4.5, §9 Open Question (c)).
func (m *EMSManager) allocatePages(regs CPURegisterView) {
	requested := int(regs.BX())
	if requested == 0 {
		regs.SetAH(byte(EMSStatusZeroPages))
		return
	}
	grant := requested + 1
	if m.freePageCount() < grant {
		regs.SetAH(byte(EMSStatusInsufficient))
		return
	}

	id := m.nextHandleID()
	h := &EMSHandle{id: id}
	h.savedMap = [4]int{emsUnmappedSlot, emsUnmappedSlot, emsUnmappedSlot, emsUnmappedSlot}
	for i := range m.pageOwners {
		if len(h.pages) == grant {
			break
		}
		if m.pageOwners[i] == emsUnownedPage {
			m.pageOwners[i] = id
			h.pages = append(h.pages, i)
		}
	}
	m.handles[id] = h
	regs.SetDX(uint16(id))
	regs.SetAH(byte(EMSStatusOK))
}

func (m *EMSManager) mapUnmap(regs CPURegisterView) {
	slot := int(regs.AL())
	if slot < 0 || slot >= EMSPhysicalSlots {
		regs.SetAH(byte(EMSStatusInvalidPhysical))
		return
	}
	logicalArg := regs.BX()
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	if logicalArg == 0xFFFF {
		m.physicalMap[slot] = emsUnmappedSlot
		regs.SetAH(byte(EMSStatusOK))
		return
	}
	logical := int(logicalArg)
	if !ownsPage(h, logical) {
		regs.SetAH(byte(EMSStatusInvalidLogical))
		return
	}
	m.physicalMap[slot] = logical
	regs.SetAH(byte(EMSStatusOK))
}

func ownsPage(h *EMSHandle, logical int) bool {
	for _, p := range h.pages {
		if p == logical {
			return true
		}
	}
	return false
}

func (m *EMSManager) deallocate(regs CPURegisterView) {
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	for _, p := range h.pages {
		m.pageOwners[p] = emsUnownedPage
	}
	for slot, logical := range m.physicalMap {
		for _, p := range h.pages {
			if logical == p {
				m.physicalMap[slot] = emsUnmappedSlot
			}
		}
	}
	delete(m.handles, handle)
	regs.SetAH(byte(EMSStatusOK))
}

func (m *EMSManager) savePageMap(regs CPURegisterView) {
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	h.savedMap = m.physicalMap
	regs.SetAH(byte(EMSStatusOK))
}

func (m *EMSManager) restorePageMap(regs CPURegisterView) {
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	m.physicalMap = h.savedMap
	regs.SetAH(byte(EMSStatusOK))
}

func (m *EMSManager) handlePageCount(regs CPURegisterView) {
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	regs.SetBX(uint16(len(h.pages)))
	regs.SetAH(byte(EMSStatusOK))
}

// mapUnmapMultiple implements subfunction 0x50.00: DS:SI points to an
// array of (logical_page, physical_slot) u16 pairs, count in CX.
func (m *EMSManager) mapUnmapMultiple(regs CPURegisterView) {
	if regs.AL() != 0x00 {
		regs.SetAH(byte(EMSStatusNotImplemented))
		return
	}
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	base := Seg16(regs.DS(), regs.SI())
	count := regs.CX()
	for i := uint16(0); i < count; i++ {
		entry := base + uint32(i)*4
		logical := m.bus.Read16(entry)
		slot := int(m.bus.Read16(entry + 2))
		if slot < 0 || slot >= EMSPhysicalSlots {
			regs.SetAH(byte(EMSStatusInvalidPhysical))
			return
		}
		if logical == 0xFFFF {
			m.physicalMap[slot] = emsUnmappedSlot
			continue
		}
		if !ownsPage(h, int(logical)) {
			regs.SetAH(byte(EMSStatusInvalidLogical))
			return
		}
		m.physicalMap[slot] = int(logical)
	}
	regs.SetAH(byte(EMSStatusOK))
}

// handleName implements subfunctions 0x53.00/0x01: get/set an 8-byte
// ASCII name at DS:SI (get) or ES:DI (set).
func (m *EMSManager) handleName(regs CPURegisterView) {
	handle := int(regs.DX())
	h, ok := m.handles[handle]
	if !ok {
		regs.SetAH(byte(EMSStatusInvalidHandle))
		return
	}
	switch regs.AL() {
	case 0x00:
		addr := Seg16(regs.DS(), regs.SI())
		for i := 0; i < 8; i++ {
			m.bus.Write8(addr+uint32(i), h.name[i])
		}
	case 0x01:
		addr := Seg16(regs.ES(), regs.DI())
		for i := 0; i < 8; i++ {
			h.name[i] = m.bus.Read8(addr + uint32(i))
		}
	default:
		regs.SetAH(byte(EMSStatusNotImplemented))
		return
	}
	regs.SetAH(byte(EMSStatusOK))
}

const (
	emsMoveRegionTypeConventional = 0
	emsMoveRegionTypeEMS          = 1
)

// moveRegion implements subfunction 0x57.00 (§4.5). Frames currently
// mapped are synchronized to their logical pages before the copy (a
// no-op in this implementation since the page frame always redirects
// live into the backing pool) and the copy runs in logical-page/linear
// coordinates throughout.
func (m *EMSManager) moveRegion(regs CPURegisterView) {
	if regs.AL() != 0x00 {
		regs.SetAH(byte(EMSStatusNotImplemented))
		return
	}
	desc := Seg16(regs.DS(), regs.SI())
	length := m.bus.Read32(desc + 0x00)
	srcType := m.bus.Read8(desc + 0x04)
	srcHandle := int(m.bus.Read16(desc + 0x05))
	srcOffset := m.bus.Read16(desc + 0x07)
	srcPage := m.bus.Read16(desc + 0x09)
	dstType := m.bus.Read8(desc + 0x0B)
	dstHandle := int(m.bus.Read16(desc + 0x0C))
	dstOffset := m.bus.Read16(desc + 0x0E)
	dstPage := m.bus.Read16(desc + 0x10)

	srcPA, err := m.resolveMoveAddress(srcType, srcHandle, srcPage, srcOffset)
	if err != EMSStatusOK {
		regs.SetAH(byte(err))
		return
	}
	dstPA, err := m.resolveMoveAddress(dstType, dstHandle, dstPage, dstOffset)
	if err != EMSStatusOK {
		regs.SetAH(byte(err))
		return
	}

	overlap := srcType == dstType && rangesOverlap(srcPA, dstPA, uint32(length))
	if overlap && srcPA < dstPA {
		for i := int64(length) - 1; i >= 0; i-- {
			v := m.bus.Read8(srcPA + uint32(i))
			m.bus.Write8(dstPA+uint32(i), v)
		}
	} else {
		for i := uint32(0); i < length; i++ {
			v := m.bus.Read8(srcPA + i)
			m.bus.Write8(dstPA+i, v)
		}
	}
	if overlap {
		regs.SetAH(byte(EMSStatusOverlapOccurred))
		return
	}
	regs.SetAH(byte(EMSStatusOK))
}

func rangesOverlap(a, b, length uint32) bool {
	if a == b {
		return length > 0
	}
	if a < b {
		return a+length > b
	}
	return b+length > a
}

// resolveMoveAddress translates one side of a move descriptor to a
// physical/linear address. EMS sides are resolved directly through the
// logical-page pool rather than through the page-frame window, since
// the region being moved need not be currently mapped into a slot.
func (m *EMSManager) resolveMoveAddress(kind byte, handle int, page, offset uint16) (uint32, EMSStatus) {
	if kind == emsMoveRegionTypeConventional {
		return Seg16(handle16(handle), offset), EMSStatusOK
	}
	if offset >= EMSPageSize {
		return 0, EMSStatusInvalidOffset
	}
	h, ok := m.handles[handle]
	if !ok {
		return 0, EMSStatusInvalidHandle
	}
	if !ownsPage(h, int(page)) {
		return 0, EMSStatusInvalidLogical
	}
	return m.backingLinearBase + uint32(page)*EMSPageSize + uint32(offset), EMSStatusOK
}

func handle16(h int) uint16 { return uint16(h) }

func (m *EMSManager) hardwareInfo(regs CPURegisterView) {
	if regs.AL() != 0x01 {
		regs.SetAH(byte(EMSStatusNotImplemented))
		return
	}
	regs.SetBX(uint16(m.freePageCount()))
	regs.SetAH(byte(EMSStatusOK))
}
