// errors.go - error kinds for the memory bus, allocators and multiplex managers

package main

import "errors"

// Hard errors: these indicate a programming error in a caller above the
// core, or a fatal condition the core cannot recover from on its own.
var (
	// ErrUnmappedRange is returned by Bus.Span when the requested interval
	// is not fully contained in any single registered mapping.
	ErrUnmappedRange = errors.New("memory bus: unmapped range")

	// ErrStringTooLong is returned by Bus.WriteZeroTerminated when the
	// string plus its terminator would not fit in maxLen bytes.
	ErrStringTooLong = errors.New("memory bus: string too long for buffer")

	// ErrCorruptMCBChain is returned by the MCB allocator when traversal
	// finds a block whose type byte is neither 0x4D nor 0x5A.
	ErrCorruptMCBChain = errors.New("mcb: corrupt chain (bad block type)")

	// ErrOutOfConventionalMemory is returned by Allocate when no free
	// block satisfies the request.
	ErrOutOfConventionalMemory = errors.New("mcb: out of conventional memory")
)

// XMSStatus is the BL error code (or 0 on success) an XMS function
// reports to its DOS caller. It doubles as a Go error via Error().
type XMSStatus byte

const (
	XMSStatusOK               XMSStatus = 0x00
	XMSStatusNotImplemented   XMSStatus = 0x80
	XMSStatusHMAInUse         XMSStatus = 0x91
	XMSStatusHMANotAllocated  XMSStatus = 0x93
	XMSStatusNoFreeMemory     XMSStatus = 0xA0
	XMSStatusNoFreeHandles    XMSStatus = 0xA1
	XMSStatusInvalidHandle    XMSStatus = 0xA2
	XMSStatusInvalidSource    XMSStatus = 0xA3
	XMSStatusInvalidDest      XMSStatus = 0xA5
	XMSStatusNotLocked        XMSStatus = 0xAA
	XMSStatusLocked           XMSStatus = 0xAB
	XMSStatusLockCountOverflow XMSStatus = 0xAC
	XMSStatusRequestUMBFailed XMSStatus = 0xB1
)

func (s XMSStatus) Error() string {
	switch s {
	case XMSStatusOK:
		return "xms: success"
	case XMSStatusNotImplemented:
		return "xms: function not implemented"
	case XMSStatusHMAInUse:
		return "xms: HMA already in use"
	case XMSStatusHMANotAllocated:
		return "xms: HMA not allocated"
	case XMSStatusNoFreeMemory:
		return "xms: no free extended memory"
	case XMSStatusNoFreeHandles:
		return "xms: no free handles"
	case XMSStatusInvalidHandle:
		return "xms: invalid handle"
	case XMSStatusInvalidSource:
		return "xms: invalid source handle"
	case XMSStatusInvalidDest:
		return "xms: invalid destination handle"
	case XMSStatusNotLocked:
		return "xms: block not locked"
	case XMSStatusLocked:
		return "xms: block is locked"
	case XMSStatusLockCountOverflow:
		return "xms: lock count overflow"
	case XMSStatusRequestUMBFailed:
		return "xms: no UMBs available"
	default:
		return "xms: unknown error"
	}
}

// EMSStatus is the AH error code (or 0 on success) an EMS function
// reports to its caller.
type EMSStatus byte

const (
	EMSStatusOK               EMSStatus = 0x00
	EMSStatusNotImplemented   EMSStatus = 0x84
	EMSStatusInvalidHandle    EMSStatus = 0x83
	EMSStatusNoFreeHandles    EMSStatus = 0x85
	EMSStatusInsufficient     EMSStatus = 0x87
	EMSStatusZeroPages        EMSStatus = 0x89
	EMSStatusInvalidLogical   EMSStatus = 0x8A
	EMSStatusInvalidPhysical  EMSStatus = 0x8B
	EMSStatusOutOfRange       EMSStatus = 0xA2
	EMSStatusInvalidOffset    EMSStatus = 0x95
	EMSStatusOverlapOccurred  EMSStatus = 0x92
)

func (s EMSStatus) Error() string {
	switch s {
	case EMSStatusOK:
		return "ems: success"
	case EMSStatusNotImplemented:
		return "ems: function not implemented"
	case EMSStatusInvalidHandle:
		return "ems: invalid handle"
	case EMSStatusNoFreeHandles:
		return "ems: no free handles"
	case EMSStatusInsufficient:
		return "ems: insufficient free pages"
	case EMSStatusZeroPages:
		return "ems: zero pages requested"
	case EMSStatusInvalidLogical:
		return "ems: invalid or unallocated logical page"
	case EMSStatusInvalidPhysical:
		return "ems: invalid physical page slot"
	case EMSStatusOutOfRange:
		return "ems: address out of range"
	case EMSStatusInvalidOffset:
		return "ems: offset beyond page boundary"
	case EMSStatusOverlapOccurred:
		return "ems: move regions overlapped (non-fatal)"
	default:
		return "ems: unknown error"
	}
}
