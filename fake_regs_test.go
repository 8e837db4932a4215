package main

// fakeRegs is a minimal CPURegisterView backed by plain fields, used to
// drive XMS/EMS multiplex dispatch from tests without a real CPU.
type fakeRegs struct {
	ax, bx, cx, dx uint16
	ds, si, es, di uint16
	cs, ip         uint16
}

func (r *fakeRegs) AX() uint16     { return r.ax }
func (r *fakeRegs) SetAX(v uint16) { r.ax = v }
func (r *fakeRegs) BX() uint16     { return r.bx }
func (r *fakeRegs) SetBX(v uint16) { r.bx = v }
func (r *fakeRegs) CX() uint16     { return r.cx }
func (r *fakeRegs) SetCX(v uint16) { r.cx = v }
func (r *fakeRegs) DX() uint16     { return r.dx }
func (r *fakeRegs) SetDX(v uint16) { r.dx = v }

func (r *fakeRegs) AL() byte     { return byte(r.ax) }
func (r *fakeRegs) SetAL(v byte) { r.ax = (r.ax &^ 0xFF) | uint16(v) }
func (r *fakeRegs) AH() byte     { return byte(r.ax >> 8) }
func (r *fakeRegs) SetAH(v byte) { r.ax = (r.ax & 0xFF) | uint16(v)<<8 }
func (r *fakeRegs) BL() byte     { return byte(r.bx) }
func (r *fakeRegs) SetBL(v byte) { r.bx = (r.bx &^ 0xFF) | uint16(v) }
func (r *fakeRegs) BH() byte     { return byte(r.bx >> 8) }
func (r *fakeRegs) SetBH(v byte) { r.bx = (r.bx & 0xFF) | uint16(v)<<8 }

func (r *fakeRegs) DS() uint16     { return r.ds }
func (r *fakeRegs) SetDS(v uint16) { r.ds = v }
func (r *fakeRegs) SI() uint16     { return r.si }
func (r *fakeRegs) SetSI(v uint16) { r.si = v }
func (r *fakeRegs) ES() uint16     { return r.es }
func (r *fakeRegs) SetES(v uint16) { r.es = v }
func (r *fakeRegs) DI() uint16     { return r.di }
func (r *fakeRegs) SetDI(v uint16) { r.di = v }

func (r *fakeRegs) CS() uint16 { return r.cs }
func (r *fakeRegs) IP() uint16 { return r.ip }
