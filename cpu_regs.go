// cpu_regs.go - external collaborator seam: CPU register view (§1)
//
// The instruction decoder, the CPU state/register file, and the cycle
// counter all live outside this core (§1 "Out of scope"). The XMS/EMS
// multiplex dispatchers and the execution flow recorder only need to
// read/write a handful of named registers and read a cycle count; this
// interface is that seam, not a CPU implementation.

package main

// CPURegisterView is the minimal 16/8-bit real-mode register surface
// the core's multiplex dispatchers decode requests from and write
// results back to. Segment:offset pairs used by the recorder are CS:IP;
// XMS/EMS use DS:SI/ES:DI for structure pointers and AX/BX/CX/DX (plus
// their 8-bit halves, via AL/AH/BL/BH) for scalar arguments and results.
type CPURegisterView interface {
	AX() uint16
	SetAX(v uint16)
	BX() uint16
	SetBX(v uint16)
	CX() uint16
	SetCX(v uint16)
	DX() uint16
	SetDX(v uint16)

	AL() byte
	SetAL(v byte)
	AH() byte
	SetAH(v byte)
	BL() byte
	SetBL(v byte)
	BH() byte
	SetBH(v byte)

	DS() uint16
	SetDS(v uint16)
	SI() uint16
	SetSI(v uint16)
	ES() uint16
	SetES(v uint16)
	DI() uint16
	SetDI(v uint16)

	CS() uint16
	IP() uint16
}

// CycleCounter reports the number of CPU cycles executed so far.
// Nothing in the core or in cmd/coremon reads it.
type CycleCounter interface {
	Cycles() uint64
}

// Seg16 computes a physical address from a real-mode segment:offset
// pair, pre-A20-mask: (segment << 4) + offset.
func Seg16(segment, offset uint16) uint32 {
	return (uint32(segment) << 4) + uint32(offset)
}

// StandaloneRegisters is a free-standing CPURegisterView backed by plain
// fields, for driving the core from main.go's demo or another harness
// when no CPU core is attached.
type StandaloneRegisters struct {
	ax, bx, cx, dx uint16
	ds, si, es, di uint16
	cs, ip         uint16
	cycles         uint64
}

func NewStandaloneRegisters() *StandaloneRegisters { return &StandaloneRegisters{} }

func (r *StandaloneRegisters) AX() uint16     { return r.ax }
func (r *StandaloneRegisters) SetAX(v uint16) { r.ax = v }
func (r *StandaloneRegisters) BX() uint16     { return r.bx }
func (r *StandaloneRegisters) SetBX(v uint16) { r.bx = v }
func (r *StandaloneRegisters) CX() uint16     { return r.cx }
func (r *StandaloneRegisters) SetCX(v uint16) { r.cx = v }
func (r *StandaloneRegisters) DX() uint16     { return r.dx }
func (r *StandaloneRegisters) SetDX(v uint16) { r.dx = v }

func (r *StandaloneRegisters) AL() byte     { return byte(r.ax) }
func (r *StandaloneRegisters) SetAL(v byte) { r.ax = (r.ax &^ 0xFF) | uint16(v) }
func (r *StandaloneRegisters) AH() byte     { return byte(r.ax >> 8) }
func (r *StandaloneRegisters) SetAH(v byte) { r.ax = (r.ax & 0xFF) | uint16(v)<<8 }
func (r *StandaloneRegisters) BL() byte     { return byte(r.bx) }
func (r *StandaloneRegisters) SetBL(v byte) { r.bx = (r.bx &^ 0xFF) | uint16(v) }
func (r *StandaloneRegisters) BH() byte     { return byte(r.bx >> 8) }
func (r *StandaloneRegisters) SetBH(v byte) { r.bx = (r.bx & 0xFF) | uint16(v)<<8 }

func (r *StandaloneRegisters) DS() uint16     { return r.ds }
func (r *StandaloneRegisters) SetDS(v uint16) { r.ds = v }
func (r *StandaloneRegisters) SI() uint16     { return r.si }
func (r *StandaloneRegisters) SetSI(v uint16) { r.si = v }
func (r *StandaloneRegisters) ES() uint16     { return r.es }
func (r *StandaloneRegisters) SetES(v uint16) { r.es = v }
func (r *StandaloneRegisters) DI() uint16     { return r.di }
func (r *StandaloneRegisters) SetDI(v uint16) { r.di = v }

func (r *StandaloneRegisters) CS() uint16 { return r.cs }
func (r *StandaloneRegisters) IP() uint16 { return r.ip }
func (r *StandaloneRegisters) SetCSIP(cs, ip uint16) {
	r.cs, r.ip = cs, ip
}

func (r *StandaloneRegisters) Cycles() uint64      { return r.cycles }
func (r *StandaloneRegisters) AddCycles(n uint64) { r.cycles += n }
