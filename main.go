// main.go - demo entry point: boots the execution core and dumps its
// startup state.

package main

import (
	"fmt"
	"os"
)

func boilerPlate() {
	fmt.Println("IBM-PC execution core — A20/Bus/MCB/XMS/EMS/flow recorder")
	fmt.Println("standalone demo: boots the core with no CPU attached")
}

func main() {
	boilerPlate()

	regs := NewStandaloneRegisters()
	machine := NewCoreMachine(regs)
	defer machine.Close()

	fmt.Printf("conventional memory: %d bytes free\n", machine.MCB.LargestFree())

	r := NewStandaloneRegisters()
	r.SetAL(0x08)
	machine.HandleXMSCall(r)
	fmt.Printf("XMS: largest free block %d KB, total free %d KB\n", r.AX(), r.DX())

	r = NewStandaloneRegisters()
	r.SetAH(0x42)
	machine.HandleEMSCall(r)
	fmt.Printf("EMS: %d of %d logical pages free\n", r.BX(), r.DX())

	if dumpPath := os.Getenv("COREMON_DUMP"); dumpPath != "" {
		machine.Recorder.SetEnabled(true)
		regs.SetCSIP(0x0100, 0x0000)
		machine.Recorder.RecordExecuted(regs.CS(), regs.IP())
		machine.Recorder.RecordEdge(EdgeCall, regs.CS(), regs.IP(), 0x2000, 0x0000)

		data, err := machine.Recorder.Dump().WriteJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(dumpPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing %s: %v\n", dumpPath, err)
			os.Exit(1)
		}
		fmt.Printf("wrote flow dump to %s (readable by cmd/coremon)\n", dumpPath)
	}
}
