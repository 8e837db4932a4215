package main

import "testing"

func TestRecorderDedupsEdges(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	regs := &fakeRegs{}
	r := NewExecFlowRecorder(bus, regs)
	r.SetEnabled(true)

	for i := 0; i < 1000; i++ {
		r.RecordEdge(EdgeCall, 0x1000, 0x0100, 0x2000, 0x0000)
	}

	from := Seg16(0x1000, 0x0100)
	if got := r.EdgeCount(EdgeCall, from); got != 1 {
		t.Fatalf("EdgeCount after 1000 identical records = %d, want 1", got)
	}
	dests := r.Destinations(EdgeCall, from)
	if len(dests) != 1 || dests[0].cs != 0x2000 || dests[0].ip != 0x0000 {
		t.Fatalf("Destinations = %v, want [{0x2000 0x0000}]", dests)
	}
}

func TestRecorderNoOpWhenDisabled(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	regs := &fakeRegs{}
	r := NewExecFlowRecorder(bus, regs)

	r.RecordEdge(EdgeJump, 0x1000, 0, 0x1000, 2)
	if r.EdgeCount(EdgeJump, Seg16(0x1000, 0)) != 0 {
		t.Fatal("RecordEdge took effect while recording was disabled")
	}
}

func TestRecorderSelfModificationDetection(t *testing.T) {
	bp := NewBreakpointRegistry()
	bus := NewMemoryBus(NewA20Gate(), bp)
	ram := NewRAM(0x1000)
	bus.Register(0, 0x1000, NewRAMDevice(0, ram))

	regs := &fakeRegs{cs: 0x0100, ip: 0x0010}
	r := NewExecFlowRecorder(bus, regs)

	bus.Write8(0x200, 0x90) // seed the original byte
	r.RegisterExecutable(0x200, bp)

	bus.Write8(0x200, 0xCC)

	instrPA := Seg16(regs.cs, regs.ip)
	rec, ok := r.modifications[0x200][instrPA]
	if !ok {
		t.Fatal("self-modification was not recorded")
	}
	if rec.old != 0x90 || rec.new != 0xCC {
		t.Fatalf("recorded old/new = 0x%X/0x%X, want 0x90/0xCC", rec.old, rec.new)
	}
}

func TestRecorderIgnoresWriteWithSameValue(t *testing.T) {
	bp := NewBreakpointRegistry()
	bus := NewMemoryBus(NewA20Gate(), bp)
	ram := NewRAM(0x1000)
	bus.Register(0, 0x1000, NewRAMDevice(0, ram))

	regs := &fakeRegs{cs: 0x0100, ip: 0x0010}
	r := NewExecFlowRecorder(bus, regs)

	bus.Write8(0x200, 0x90)
	r.RegisterExecutable(0x200, bp)
	bus.Write8(0x200, 0x90) // same value, not a modification

	if _, ok := r.modifications[0x200]; ok {
		t.Fatal("recorded a modification for a write that did not change the byte")
	}
}

func TestRecorderFlowGraphExcludesFallThroughJump(t *testing.T) {
	bus := NewMemoryBus(NewA20Gate(), nil)
	regs := &fakeRegs{}
	r := NewExecFlowRecorder(bus, regs)
	r.SetEnabled(true)

	from := uint32(0x500)
	r.RecordExecuted(0, uint16(from))
	r.RecordEdge(EdgeJump, 0, uint16(from), 0, uint16(from+1)) // fall-through
	r.RecordEdge(EdgeJump, 0, uint16(from), 0, 0x900)          // real branch

	graph := r.DumpFlowGraph()
	var jumpNode *FlowGraphNode
	for i := range graph {
		if graph[i].PA == from && graph[i].Kind == EdgeJump {
			jumpNode = &graph[i]
		}
	}
	if jumpNode == nil {
		t.Fatal("no jump node recorded for the executed address")
	}
	if len(jumpNode.Successors) != 1 || jumpNode.Successors[0].ip != 0x900 {
		t.Fatalf("jump successors = %v, want only the 0x900 branch", jumpNode.Successors)
	}
}
