// lua_filter.go - Lua predicate query over a dump's edge nodes
//
// Gives the core's go.mod an actual consumer for gopher-lua: a user
// writes a one-line `function keep(n) ... end` predicate instead of
// grepping the JSON dump by hand.

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// filterWithLua evaluates script's global "keep" function against every
// node in d, in the order d lists them, and returns the ones it accepts.
func filterWithLua(d *dump, script string) ([]node, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(script); err != nil {
		return nil, fmt.Errorf("running lua script: %w", err)
	}

	keep := L.GetGlobal("keep")
	if keep == lua.LNil {
		return nil, fmt.Errorf("lua script must define a 'keep(n)' function")
	}

	var matched []node
	for _, n := range d.Nodes {
		L.Push(keep)
		L.Push(nodeToLua(L, n))
		if err := L.PCall(1, 1, nil); err != nil {
			return nil, fmt.Errorf("calling keep(): %w", err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		if lua.LVAsBool(ret) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

// nodeToLua builds the table a keep() predicate inspects: n.pa (number),
// n.kind (string), n.successors (array of {cs, ip}).
func nodeToLua(L *lua.LState, n node) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("pa", lua.LNumber(n.PA))
	t.RawSetString("kind", lua.LString(n.Kind))

	succ := L.NewTable()
	for _, s := range n.Successors {
		st := L.NewTable()
		st.RawSetString("cs", lua.LNumber(s.CS))
		st.RawSetString("ip", lua.LNumber(s.IP))
		succ.Append(st)
	}
	t.RawSetString("successors", succ)
	return t
}
