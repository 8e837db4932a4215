// coremon_dump.go - serializes recorder/bus state for cmd/coremon
//
// cmd/coremon runs as a standalone process (it cannot import this
// package — both are package main, following the teacher's cmd/ie32to64
// layout, which is likewise a standalone tool rather than an importer of
// the emulator package). It consumes the JSON this file produces instead
// of linking against ExecFlowRecorder directly.

package main

import "encoding/json"

// DumpEdge is one serialized successor of a flow-graph node.
type DumpEdge struct {
	CS uint16 `json:"cs"`
	IP uint16 `json:"ip"`
}

// DumpNode mirrors FlowGraphNode for JSON export.
type DumpNode struct {
	PA         uint32     `json:"pa"`
	Kind       string     `json:"kind"`
	Successors []DumpEdge `json:"successors"`
}

// DumpModification mirrors one recorded self-modifying write.
type DumpModification struct {
	ModifiedPA    uint32 `json:"modified_pa"`
	InstructionPA uint32 `json:"instruction_pa"`
	Old           byte   `json:"old"`
	New           byte   `json:"new"`
}

// CoremonDump is the full snapshot cmd/coremon loads.
type CoremonDump struct {
	Nodes         []DumpNode         `json:"nodes"`
	Modifications []DumpModification `json:"modifications"`
}

func edgeKindName(k EdgeKind) string {
	switch k {
	case EdgeCall:
		return "call"
	case EdgeJump:
		return "jump"
	case EdgeReturn:
		return "return"
	case EdgeUnalignedReturn:
		return "unaligned_return"
	default:
		return "unknown"
	}
}

// Dump builds the serializable snapshot of everything recorded so far.
func (r *ExecFlowRecorder) Dump() CoremonDump {
	var d CoremonDump
	for _, n := range r.DumpFlowGraph() {
		dn := DumpNode{PA: n.PA, Kind: edgeKindName(n.Kind)}
		for _, s := range n.Successors {
			dn.Successors = append(dn.Successors, DumpEdge{CS: s.cs, IP: s.ip})
		}
		d.Nodes = append(d.Nodes, dn)
	}
	for modifiedPA, byInstr := range r.modifications {
		for _, rec := range byInstr {
			d.Modifications = append(d.Modifications, DumpModification{
				ModifiedPA:    modifiedPA,
				InstructionPA: rec.instructionPA,
				Old:           rec.old,
				New:           rec.new,
			})
		}
	}
	return d
}

// WriteJSON marshals the dump with indentation, for cmd/coremon to read
// and for ad-hoc inspection with a text editor.
func (d CoremonDump) WriteJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
