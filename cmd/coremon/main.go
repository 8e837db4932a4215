// coremon - interactive flow-graph/memory inspector for a core dump
//
// coremon is a standalone tool: it never links against the execution
// core package (both are package main, mirroring cmd/ie32to64's own
// standalone converter in the same corpus). It reads the JSON a running
// core writes via its Dump/WriteJSON pair and lets a user step through
// discovered edges interactively, or filter them with a Lua predicate.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"
)

func main() {
	dumpPath := flag.String("dump", "", "path to a coremon JSON dump (required)")
	luaScript := flag.String("lua", "", "Lua predicate script; sets global 'keep(node)' to filter edges")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: coremon -dump FILE [-lua SCRIPT]\n\n")
		fmt.Fprintf(os.Stderr, "Inspects a flow-graph/self-modification dump produced by the\nexecution core's ExecFlowRecorder.Dump/WriteJSON.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  coremon -dump flow.json\n")
		fmt.Fprintf(os.Stderr, "  coremon -dump flow.json -lua 'function keep(n) return n.kind == \"call\" end'\n")
	}
	flag.Parse()

	if *dumpPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	dump, err := loadDump(*dumpPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *luaScript != "" {
		matched, err := filterWithLua(dump, *luaScript)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		for _, n := range matched {
			printNode(n)
		}
		return
	}

	if err := stepInteractive(dump); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadDump(path string) (*dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var d dump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &d, nil
}

func printNode(n node) {
	fmt.Printf("0x%06X  %-16s", n.PA, n.Kind)
	for _, s := range n.Successors {
		fmt.Printf(" -> %04X:%04X", s.CS, s.IP)
	}
	fmt.Println()
}

// stepInteractive walks dump.Nodes one at a time, advancing on any key
// press (space/enter/n) and quitting on 'q', following terminal_host.go's
// raw-mode-then-restore discipline.
func stepInteractive(d *dump) error {
	if len(d.Nodes) == 0 {
		fmt.Println("no recorded edges in this dump")
		return nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Not a TTY (piped input, CI) — just print everything.
		for _, n := range d.Nodes {
			printNode(n)
		}
		return nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Fprintf(os.Stdout, "%d nodes, %d self-modifications recorded. space/n: next, q: quit\r\n", len(d.Nodes), len(d.Modifications))

	buf := make([]byte, 1)
	for i, n := range d.Nodes {
		fmt.Fprintf(os.Stdout, "[%d/%d] 0x%06X  %-16s", i+1, len(d.Nodes), n.PA, n.Kind)
		for _, s := range n.Successors {
			fmt.Fprintf(os.Stdout, " -> %04X:%04X", s.CS, s.IP)
		}
		fmt.Fprint(os.Stdout, "\r\n")

		if _, err := os.Stdin.Read(buf); err != nil {
			return nil
		}
		if buf[0] == 'q' {
			return nil
		}
	}
	return nil
}
