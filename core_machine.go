// core_machine.go - wires the execution core's components together
//
// Grounded on main.go's top-level wiring sequence (bus created first,
// then dependent components registered against it) generalized from a
// home-computer bus/CPU/video/audio assembly to this core's memory
// bus / A20 gate / MCB allocator / XMS / EMS / flow recorder assembly.

package main

// CoreMachine assembles every component this core is responsible for
// (§2) against one shared memory bus, performing the startup sequence
// described in §4.4/§4.5: low RAM and the XMS pool are registered as
// bus devices, the XMS device header is written, and EMS reserves its
// page frame plus a 4 MiB backing block and system handle.
type CoreMachine struct {
	A20      *A20Gate
	Bus      *MemoryBus
	Breaks   *BreakpointRegistry
	LowRAM   *RAM
	XMSRAM   *RAM
	MCB      *MCBAllocator
	XMS      *XMSManager
	EMS      *EMSManager
	Recorder *ExecFlowRecorder
}

// NewCoreMachine builds a fully wired core. regs is the external CPU
// register view the XMS/EMS dispatchers and the flow recorder consume
// (§1); it may be a stub until a real CPU core is attached.
func NewCoreMachine(regs CPURegisterView) *CoreMachine {
	a20 := NewA20Gate()
	bp := NewBreakpointRegistry()
	bus := NewMemoryBus(a20, bp)

	lowRAM := NewRAM(XMSBase)
	bus.Register(0, XMSBase, NewRAMDevice(0, lowRAM))

	xmsRAM := NewRAM(XMSRegionSize)
	bus.Register(XMSBase, XMSRegionSize, NewRAMDevice(XMSBase, xmsRAM))

	mcb := NewMCBAllocator(bus, ConventionalBase>>4, (ConventionalEnd-ConventionalBase+1)>>4)

	xms := NewXMSManager(bus, a20, xmsRAM)
	ems := NewEMSManager(bus, xms)

	recorder := NewExecFlowRecorder(bus, regs)

	return &CoreMachine{
		A20:      a20,
		Bus:      bus,
		Breaks:   bp,
		LowRAM:   lowRAM,
		XMSRAM:   xmsRAM,
		MCB:      mcb,
		XMS:      xms,
		EMS:      ems,
		Recorder: recorder,
	}
}

// Close releases the backing stores' platform resources (mmap unmaps).
func (c *CoreMachine) Close() {
	c.LowRAM.Close()
	c.XMSRAM.Close()
}

// HandleXMSCall dispatches one XMS multiplex request (INT 2Fh, the
// device header's callback per §6) using regs as both the request and
// the response.
func (c *CoreMachine) HandleXMSCall(regs CPURegisterView) {
	c.XMS.Dispatch(regs)
}

// HandleEMSCall dispatches one EMS function request (INT 67h per §4.5).
func (c *CoreMachine) HandleEMSCall(regs CPURegisterView) {
	c.EMS.Dispatch(regs)
}
