// xms_manager.go - XMS 2.0 extended-memory manager (§4.4)
//
// Grounded on CoprocessorManager's register-shadow dispatch
// (coprocessor_manager.go: dispatchCmd switches on a command register
// and writes results into other shadow registers) generalized to XMS's
// AL-coded multiplex functions operating on a CPURegisterView instead
// of MMIO shadow registers, and on its free-list-of-records bookkeeping
// generalized from ring slots to extended-memory blocks.

package main

// xmsBlock is one node of the doubly-linked (by list order) partition
// of the XMS region (§3).
type xmsBlock struct {
	handle int    // 0 = free-block sentinel
	offset uint32 // relative to XMSBase
	length uint32 // bytes
	free   bool
}

const (
	xmsMaxHandles  = 128
	xmsBlockKiB    = 1024
	xmsRegionBytes = XMSRegionSize
)

// XMSManager implements the 18 XMS 2.0 multiplex functions (§4.4) over
// one XMS-backed RAMDevice.
type XMSManager struct {
	bus      *MemoryBus
	a20      *A20Gate
	ram      *RAM // the XMS pool's backing store, registered at XMSBase
	blocks   []xmsBlock
	locks    map[int]int // handle -> lock count
	hmaOwned bool
}

// NewXMSManager creates a manager over ram (expected to be XMSRegionSize
// bytes, registered on bus at XMSBase) and writes the device header/stub
// at XMSDeviceHeaderSegment (§6, §9 "self-referential device headers").
func NewXMSManager(bus *MemoryBus, a20 *A20Gate, ram *RAM) *XMSManager {
	m := &XMSManager{
		bus:   bus,
		a20:   a20,
		ram:   ram,
		locks: make(map[int]int),
	}
	m.blocks = []xmsBlock{{handle: 0, offset: 0, length: xmsRegionBytes, free: true}}
	m.writeDeviceHeader()
	return m
}

// writeDeviceHeader writes the 8-byte ASCII name and 5-byte jump stub
// DOS discovers via INT 2Fh AX=4310h (§6). The stub itself has no
// executable meaning to this manager — Dispatch is invoked directly by
// whatever installs the interrupt vector, per §9's note that the
// dispatcher is exposed as a method taking the register view, with the
// "device header" existing purely so guest code that peeks at the
// segment sees the expected byte pattern.
func (m *XMSManager) writeDeviceHeader() {
	base := Seg16(XMSDeviceHeaderSegment, 0)
	name := "XMSXXXX0"
	for i := 0; i < len(name); i++ {
		m.bus.Write8(base+uint32(i), name[i])
	}
	stub := []byte{0xEB, 0x03, 0x90, 0x90, 0x90, 0xCF, 0xCB}
	for i, b := range stub {
		m.bus.Write8(base+8+uint32(i), b)
	}
}

// Dispatch decodes AL and executes one multiplex function against regs,
// per the table in §4.4.
func (m *XMSManager) Dispatch(regs CPURegisterView) {
	switch regs.AL() {
	case 0x00:
		m.getVersion(regs)
	case 0x01:
		m.requestHMA(regs)
	case 0x02:
		m.releaseHMA(regs)
	case 0x03:
		m.a20.SetGlobal(true)
		regs.SetAX(1)
	case 0x04:
		m.a20.SetGlobal(false)
		regs.SetAX(1)
	case 0x05:
		m.a20.LocalEnable()
		regs.SetAX(1)
	case 0x06:
		m.a20.LocalDisable()
		regs.SetAX(1)
	case 0x07:
		if m.a20.LocalCount() > 0 {
			regs.SetAX(1)
		} else {
			regs.SetAX(0)
		}
	case 0x08:
		m.queryFreeMemory(regs)
	case 0x09:
		m.allocate(regs)
	case 0x0A:
		m.free(regs)
	case 0x0B:
		m.move(regs)
	case 0x0C:
		m.lock(regs)
	case 0x0D:
		m.unlock(regs)
	case 0x0E:
		m.handleInfo(regs)
	case 0x0F:
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusNotImplemented))
	case 0x10:
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusRequestUMBFailed))
	case 0x11:
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusNotImplemented))
	default:
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusNotImplemented))
	}
}

func (m *XMSManager) getVersion(regs CPURegisterView) {
	regs.SetAX(0x0200)
	regs.SetBX(0)
	regs.SetDX(1)
}

func (m *XMSManager) requestHMA(regs CPURegisterView) {
	if m.hmaOwned {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusHMAInUse))
		return
	}
	// Non-goal: HMA allocation is always reported unavailable (§1).
	regs.SetAX(0)
	regs.SetBL(byte(XMSStatusHMAInUse))
}

func (m *XMSManager) releaseHMA(regs CPURegisterView) {
	regs.SetAX(0)
	regs.SetBL(byte(XMSStatusHMANotAllocated))
}

func (m *XMSManager) totalFreeBytes() uint32 {
	var total uint32
	for _, b := range m.blocks {
		if b.free {
			total += b.length
		}
	}
	return total
}

func (m *XMSManager) largestFreeBytes() uint32 {
	var best uint32
	for _, b := range m.blocks {
		if b.free && b.length > best {
			best = b.length
		}
	}
	return best
}

func clampKB(bytes uint32) uint16 {
	kb := bytes / 1024
	if kb > 0xFFFF {
		return 0xFFFF
	}
	return uint16(kb)
}

func (m *XMSManager) queryFreeMemory(regs CPURegisterView) {
	largest := clampKB(m.largestFreeBytes())
	total := clampKB(m.totalFreeBytes())
	regs.SetAX(largest)
	regs.SetDX(total)
	if largest == 0 && total == 0 {
		regs.SetBL(byte(XMSStatusNoFreeMemory))
	}
}

// nextHandleID returns the smallest unused id in [1, 128], or 0 if the
// table is full (§4.4 "handle id selection").
func (m *XMSManager) nextHandleID() int {
	for id := 1; id <= xmsMaxHandles; id++ {
		if _, used := m.locks[id]; !used {
			return id
		}
	}
	return 0
}

func (m *XMSManager) allocate(regs CPURegisterView) {
	requestedKB := regs.DX()
	length := roundUpKiB(uint32(requestedKB) * 1024)

	id := m.nextHandleID()
	if id == 0 {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusNoFreeHandles))
		return
	}

	m.locks[id] = 0
	if _, ok := m.allocateBlock(id, length); !ok && length > 0 {
		delete(m.locks, id)
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusNoFreeMemory))
		return
	}
	regs.SetAX(1)
	regs.SetDX(uint16(id))
}

// allocateBlock carves length bytes out of the first sufficiently large
// free block and tags it with handle (§4.4's allocation algorithm). A
// zero-length request succeeds trivially without touching the block
// list — the caller is expected to have already registered handle in
// the lock table (§9 Open Question (b)).
func (m *XMSManager) allocateBlock(handle int, length uint32) (offset uint32, ok bool) {
	if length == 0 {
		return 0, true
	}
	for i, b := range m.blocks {
		if !b.free || b.length < length {
			continue
		}
		var frags []xmsBlock
		used := xmsBlock{handle: handle, offset: b.offset, length: length, free: false}
		frags = append(frags, used)
		if rem := b.length - length; rem > 0 {
			frags = append(frags, xmsBlock{handle: 0, offset: b.offset + length, length: rem, free: true})
		}
		m.blocks = append(m.blocks[:i], append(frags, m.blocks[i+1:]...)...)
		return used.offset, true
	}
	return 0, false
}

// AllocateSystemBlock allocates length bytes directly, bypassing
// register-coded dispatch, for internal callers such as the EMS manager
// that needs a fixed backing region at startup (§4.5's "EMS obtains its
// backing store by allocating one large XMS block").
func (m *XMSManager) AllocateSystemBlock(length uint32) (handle int, linearBase uint32, ok bool) {
	id := m.nextHandleID()
	if id == 0 {
		return 0, 0, false
	}
	offset, ok := m.allocateBlock(id, length)
	if !ok {
		return 0, 0, false
	}
	m.locks[id] = 0
	return id, XMSBase + offset, true
}

func roundUpKiB(bytes uint32) uint32 {
	return ((bytes + xmsBlockKiB - 1) / xmsBlockKiB) * xmsBlockKiB
}

func (m *XMSManager) blockIndexForHandle(handle int) int {
	for i, b := range m.blocks {
		if !b.free && b.handle == handle {
			return i
		}
	}
	return -1
}

func (m *XMSManager) free(regs CPURegisterView) {
	handle := int(regs.DX())
	if count, ok := m.locks[handle]; !ok {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusInvalidHandle))
		return
	} else if count > 0 {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusLocked))
		return
	}

	i := m.blockIndexForHandle(handle)
	if i >= 0 {
		m.blocks[i].free = true
		m.blocks[i].handle = 0
		if i+1 < len(m.blocks) && m.blocks[i+1].free {
			m.blocks[i].length += m.blocks[i+1].length
			m.blocks = append(m.blocks[:i+1], m.blocks[i+2:]...)
		}
		if i > 0 && m.blocks[i-1].free {
			m.blocks[i-1].length += m.blocks[i].length
			m.blocks = append(m.blocks[:i], m.blocks[i+1:]...)
		}
	}
	delete(m.locks, handle)
	regs.SetAX(1)
}

func (m *XMSManager) lock(regs CPURegisterView) {
	handle := int(regs.DX())
	count, ok := m.locks[handle]
	if !ok {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusInvalidHandle))
		return
	}
	if count >= 0xFFFF {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusLockCountOverflow))
		return
	}
	m.locks[handle] = count + 1

	var linear uint32
	if i := m.blockIndexForHandle(handle); i >= 0 {
		linear = XMSBase + m.blocks[i].offset
	} else {
		linear = XMSBase
	}
	regs.SetDX(uint16(linear >> 16))
	regs.SetBX(uint16(linear & 0xFFFF))
	regs.SetAX(1)
}

func (m *XMSManager) unlock(regs CPURegisterView) {
	handle := int(regs.DX())
	count, ok := m.locks[handle]
	if !ok {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusInvalidHandle))
		return
	}
	if count == 0 {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusNotLocked))
		return
	}
	m.locks[handle] = count - 1
	regs.SetAX(1)
}

func (m *XMSManager) handleInfo(regs CPURegisterView) {
	handle := int(regs.DX())
	count, ok := m.locks[handle]
	if !ok {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusInvalidHandle))
		return
	}
	free := 0
	for id := 1; id <= xmsMaxHandles; id++ {
		if _, used := m.locks[id]; !used {
			free++
		}
	}
	var lengthKB uint16
	if i := m.blockIndexForHandle(handle); i >= 0 {
		lengthKB = clampKB(m.blocks[i].length)
	}
	regs.SetBH(byte(count))
	regs.SetBL(byte(free))
	regs.SetDX(lengthKB)
	regs.SetAX(1)
}

// resolveMoveSide resolves one side of a move descriptor (§4.4, §6) to a
// physical address: handle != 0 means offset is relative to that
// handle's block; handle == 0 means offset packs a real-mode
// segment:offset pair.
func (m *XMSManager) resolveMoveSide(handle int, offset uint32) (uint32, bool) {
	if handle == 0 {
		seg := uint16(offset >> 16)
		off := uint16(offset & 0xFFFF)
		return Seg16(seg, off), true
	}
	i := m.blockIndexForHandle(handle)
	if i < 0 {
		return 0, false
	}
	return XMSBase + m.blocks[i].offset + offset, true
}

// move implements function 0x0B. A20 is forced on for the duration of
// the copy and restored afterward (§4.4): real-mode far pointers used
// as one side of the move must be able to reach the full 21-bit space
// regardless of the caller's current A20 setting.
func (m *XMSManager) move(regs CPURegisterView) {
	structAddr := Seg16(regs.DS(), regs.SI())
	length := m.bus.Read32(structAddr + 0x00)
	srcHandle := int(m.bus.Read16(structAddr + 0x04))
	srcOffset := m.bus.Read32(structAddr + 0x06)
	dstHandle := int(m.bus.Read16(structAddr + 0x0A))
	dstOffset := m.bus.Read32(structAddr + 0x0C)

	srcPA, ok := m.resolveMoveSide(srcHandle, srcOffset)
	if !ok {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusInvalidSource))
		return
	}
	dstPA, ok := m.resolveMoveSide(dstHandle, dstOffset)
	if !ok {
		regs.SetAX(0)
		regs.SetBL(byte(XMSStatusInvalidDest))
		return
	}

	m.a20.withForcedEnable(func() {
		for i := uint32(0); i < length; i++ {
			v := m.bus.Read8(srcPA + i)
			m.bus.Write8(dstPA+i, v)
		}
	})
	regs.SetAX(1)
}
