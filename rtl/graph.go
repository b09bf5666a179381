// Copyright 2026 streamgen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rtl is the signal-graph intermediate representation of the
// generated datapath. Nodes are hardware primitives (constants, bitwise and
// arithmetic operators, bit slices, registers, memories, multiplexers)
// allocated into an arena and addressed by index; edges are indices, so the
// graph is a DAG by construction and the only logical cycles run through
// register delay edges.
//
// Node constructors are smart: they constant-fold, absorb identities, rewrite
// redundant slice/concat layers, and return an existing node when a
// structurally identical one was already built (common-subexpression
// elimination through the node cache). A width mismatch between operands is a
// caller bug and panics with a *TypeError.
package rtl

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/go-streamgen/streamgen/num"
)

// NodeID indexes a node in its graph's arena.
type NodeID int32

// Nil marks an absent operand, e.g. a register input not yet bound.
const Nil NodeID = -1

// Kind discriminates the closed set of node variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInput
	KindOutput
	KindConst
	KindReg
	KindMux
	KindAnd
	KindOr
	KindXor
	KindNot
	KindAdd
	KindSub
	KindMul
	KindConcat
	KindSlice
	KindRAM
	KindExtIP
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInput:   "input",
	KindOutput:  "output",
	KindConst:   "const",
	KindReg:     "reg",
	KindMux:     "mux",
	KindAnd:     "and",
	KindOr:      "or",
	KindXor:     "xor",
	KindNot:     "not",
	KindAdd:     "add",
	KindSub:     "sub",
	KindMul:     "mul",
	KindConcat:  "concat",
	KindSlice:   "slice",
	KindRAM:     "ram",
	KindExtIP:   "extip",
}

func (k Kind) String() string { return kindNames[k] }

// TypeError reports a bit-width mismatch between an operator's operands.
// It is a programming error in the caller, never user-recoverable, and is
// raised as a panic by the node constructors.
type TypeError struct {
	Op  string
	Msg string
}

func (e *TypeError) Error() string { return fmt.Sprintf("rtl: %s: %s", e.Op, e.Msg) }

func typePanic(op, format string, args ...any) {
	panic(&TypeError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// node is one arena entry. Nodes are immutable after construction except for
// the late-bound register input, which exists so counters and feedback loops
// can close over nodes built afterwards.
type node struct {
	kind  Kind
	width int
	args  []NodeID
	val   uint64  // Const value; Slice low bit
	aux   int     // RAM address width; ExtIP latency
	rep   num.Rep // Add/Sub/Mul arithmetic representation
	name  string  // Input/Output/ExtIP label
}

// Graph is an append-only arena of nodes with a structural node cache.
// A Graph is not safe for concurrent mutation; independent compilations use
// independent graphs.
type Graph struct {
	nodes   []node
	cache   map[string]NodeID
	inputs  []NodeID
	outputs []NodeID
	frozen  bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{cache: make(map[string]NodeID)}
}

// NumNodes returns the number of allocated nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Kind returns the kind of node id.
func (g *Graph) Kind(id NodeID) Kind { return g.nodes[id].kind }

// Width returns the bit width of node id.
func (g *Graph) Width(id NodeID) int { return g.nodes[id].width }

// Args returns the operand list of node id. The caller must not modify it.
func (g *Graph) Args(id NodeID) []NodeID { return g.nodes[id].args }

// ConstVal returns the value of a Const node.
func (g *Graph) ConstVal(id NodeID) uint64 { return g.nodes[id].val }

// SliceLow returns the low bit index of a Slice node.
func (g *Graph) SliceLow(id NodeID) int { return int(g.nodes[id].val) }

// Rep returns the arithmetic representation of an Add/Sub/Mul node.
func (g *Graph) Rep(id NodeID) num.Rep { return g.nodes[id].rep }

// Name returns the label of an Input, Output or ExtIP node.
func (g *Graph) Name(id NodeID) string { return g.nodes[id].name }

// AddrBits returns the address width of a RAM node.
func (g *Graph) AddrBits(id NodeID) int { return g.nodes[id].aux }

// Inputs returns the input ports in creation order.
func (g *Graph) Inputs() []NodeID { return g.inputs }

// Outputs returns the output ports in creation order.
func (g *Graph) Outputs() []NodeID { return g.outputs }

// Freeze marks the graph immutable. Backends operate on frozen graphs; any
// further insertion panics.
func (g *Graph) Freeze() { g.frozen = true }

// Frozen reports whether the graph has been frozen.
func (g *Graph) Frozen() bool { return g.frozen }

func (g *Graph) alloc(n node) NodeID {
	if g.frozen {
		panic(&TypeError{Op: "alloc", Msg: "graph is frozen"})
	}
	if n.width < 1 || n.width > 64 {
		typePanic(n.kind.String(), "width %d outside [1, 64]", n.width)
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// intern allocates n unless a structurally identical node exists, in which
// case the existing node is returned. Only pure combinational kinds are
// interned; state and port nodes keep their identity.
func (g *Graph) intern(n node) NodeID {
	key := g.cacheKey(n)
	if id, ok := g.cache[key]; ok {
		return id
	}
	id := g.alloc(n)
	g.cache[key] = id
	return id
}

func (g *Graph) cacheKey(n node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d:%d:%d:", n.kind, n.width, n.val, n.aux)
	if n.rep != nil {
		sb.WriteString(n.rep.String())
	}
	for _, a := range n.args {
		fmt.Fprintf(&sb, ":%d", a)
	}
	return sb.String()
}

func (g *Graph) checkArg(op string, id NodeID) {
	if id < 0 || int(id) >= len(g.nodes) {
		typePanic(op, "operand %d does not exist", id)
	}
}

func widthMask(w int) uint64 {
	if w == 64 {
		return ^uint64(0)
	}
	return 1<<w - 1
}

// Input allocates a named input port.
func (g *Graph) Input(name string, width int) NodeID {
	id := g.alloc(node{kind: KindInput, width: width, name: name})
	g.inputs = append(g.inputs, id)
	return id
}

// Output allocates a named output port driven by src.
func (g *Graph) Output(name string, src NodeID) NodeID {
	g.checkArg("Output", src)
	id := g.alloc(node{kind: KindOutput, width: g.nodes[src].width, args: []NodeID{src}, name: name})
	g.outputs = append(g.outputs, id)
	return id
}

// Const returns the constant node for val truncated to width bits.
func (g *Graph) Const(width int, val uint64) NodeID {
	return g.intern(node{kind: KindConst, width: width, val: val & widthMask(width)})
}

// IsConst reports whether id is a constant and returns its value.
func (g *Graph) IsConst(id NodeID) (uint64, bool) {
	n := g.nodes[id]
	if n.kind != KindConst {
		return 0, false
	}
	return n.val, true
}

// Reg allocates a register (one-cycle delay) with an unbound input. Bind the
// input with SetRegIn once the feedback source exists. Registers reset to
// zero and are never interned: each carries its own state.
func (g *Graph) Reg(width int) NodeID {
	return g.alloc(node{kind: KindReg, width: width, args: []NodeID{Nil}})
}

// RegOf allocates a register driven by d.
func (g *Graph) RegOf(d NodeID) NodeID {
	g.checkArg("RegOf", d)
	return g.alloc(node{kind: KindReg, width: g.nodes[d].width, args: []NodeID{d}})
}

// SetRegIn binds the input of a register allocated with Reg.
func (g *Graph) SetRegIn(r, d NodeID) {
	g.checkArg("SetRegIn", d)
	n := &g.nodes[r]
	if n.kind != KindReg {
		typePanic("SetRegIn", "node %d is %v, not a register", r, n.kind)
	}
	if n.args[0] != Nil {
		typePanic("SetRegIn", "register %d input already bound", r)
	}
	if g.nodes[d].width != n.width {
		typePanic("SetRegIn", "width %d does not match register width %d", g.nodes[d].width, n.width)
	}
	n.args[0] = d
}

// Delay returns src delayed by cycles registers.
func (g *Graph) Delay(src NodeID, cycles int) NodeID {
	for range cycles {
		src = g.RegOf(src)
	}
	return src
}

// Mux returns the multiplexer selecting among ins with the given select
// signal. The input count must be exactly 2^(select width); callers pad with
// an explicit default when the choice set is smaller. A constant select or a
// unanimous input set collapses at construction.
func (g *Graph) Mux(sel NodeID, ins ...NodeID) NodeID {
	g.checkArg("Mux", sel)
	selW := g.nodes[sel].width
	if len(ins) != 1<<selW {
		typePanic("Mux", "have %d inputs for a %d-bit select, want %d", len(ins), selW, 1<<selW)
	}
	w := g.nodes[ins[0]].width
	same := true
	for _, in := range ins {
		g.checkArg("Mux", in)
		if g.nodes[in].width != w {
			typePanic("Mux", "input width %d does not match %d", g.nodes[in].width, w)
		}
		if in != ins[0] {
			same = false
		}
	}
	if same {
		return ins[0]
	}
	if v, ok := g.IsConst(sel); ok {
		return ins[v]
	}
	args := make([]NodeID, 0, len(ins)+1)
	args = append(args, sel)
	args = append(args, ins...)
	return g.intern(node{kind: KindMux, width: w, args: args})
}

func (g *Graph) binaryCheck(op string, a, b NodeID) int {
	g.checkArg(op, a)
	g.checkArg(op, b)
	wa, wb := g.nodes[a].width, g.nodes[b].width
	if wa != wb {
		typePanic(op, "operand widths %d and %d differ", wa, wb)
	}
	return wa
}

// And returns the bitwise conjunction of a and b. A constant operand gates
// individual bit runs instead of emitting a generic operator.
func (g *Graph) And(a, b NodeID) NodeID {
	w := g.binaryCheck("And", a, b)
	if a == b {
		return a
	}
	va, oka := g.IsConst(a)
	vb, okb := g.IsConst(b)
	if oka && okb {
		return g.Const(w, va&vb)
	}
	if oka {
		return g.maskAbsorb(b, va, maskAnd)
	}
	if okb {
		return g.maskAbsorb(a, vb, maskAnd)
	}
	if a > b {
		a, b = b, a
	}
	return g.intern(node{kind: KindAnd, width: w, args: []NodeID{a, b}})
}

// Or returns the bitwise disjunction of a and b.
func (g *Graph) Or(a, b NodeID) NodeID {
	w := g.binaryCheck("Or", a, b)
	if a == b {
		return a
	}
	va, oka := g.IsConst(a)
	vb, okb := g.IsConst(b)
	if oka && okb {
		return g.Const(w, va|vb)
	}
	if oka {
		return g.maskAbsorb(b, va, maskOr)
	}
	if okb {
		return g.maskAbsorb(a, vb, maskOr)
	}
	if a > b {
		a, b = b, a
	}
	return g.intern(node{kind: KindOr, width: w, args: []NodeID{a, b}})
}

// Xor returns the bitwise exclusive-or of a and b.
func (g *Graph) Xor(a, b NodeID) NodeID {
	w := g.binaryCheck("Xor", a, b)
	if a == b {
		return g.Const(w, 0)
	}
	va, oka := g.IsConst(a)
	vb, okb := g.IsConst(b)
	if oka && okb {
		return g.Const(w, va^vb)
	}
	if oka {
		return g.maskAbsorb(b, va, maskXor)
	}
	if okb {
		return g.maskAbsorb(a, vb, maskXor)
	}
	// Canonical operand order so the cache sees one node for a^b and b^a.
	if a > b {
		a, b = b, a
	}
	return g.intern(node{kind: KindXor, width: w, args: []NodeID{a, b}})
}

type maskMode uint8

const (
	maskAnd maskMode = iota
	maskOr
	maskXor
)

// maskAbsorb rewrites a bitwise operator with one constant operand into a
// concatenation that gates each run of constant bits directly: AND passes or
// zeroes runs, OR passes or sets runs, XOR passes or inverts runs. The
// rewrite reduces operator width and lets further folding happen downstream.
func (g *Graph) maskAbsorb(x NodeID, mask uint64, mode maskMode) NodeID {
	w := g.nodes[x].width
	parts := make([]NodeID, 0, 4)
	lo := 0
	for lo < w {
		bit := (mask >> lo) & 1
		hi := lo + 1
		for hi < w && (mask>>hi)&1 == bit {
			hi++
		}
		run := hi - lo
		seg := func() NodeID { return g.Slice(x, lo, run) }
		switch {
		case mode == maskAnd && bit == 0:
			parts = append(parts, g.Const(run, 0))
		case mode == maskAnd && bit == 1:
			parts = append(parts, seg())
		case mode == maskOr && bit == 1:
			parts = append(parts, g.Const(run, widthMask(run)))
		case mode == maskOr && bit == 0:
			parts = append(parts, seg())
		case mode == maskXor && bit == 1:
			parts = append(parts, g.Not(seg()))
		default: // XOR with zero run
			parts = append(parts, seg())
		}
		lo = hi
	}
	return g.Concat(parts...)
}

// Not returns the bitwise complement. Double negation collapses.
func (g *Graph) Not(a NodeID) NodeID {
	g.checkArg("Not", a)
	n := g.nodes[a]
	if v, ok := g.IsConst(a); ok {
		return g.Const(n.width, ^v)
	}
	if n.kind == KindNot {
		return n.args[0]
	}
	return g.intern(node{kind: KindNot, width: n.width, args: []NodeID{a}})
}

// isIntRep reports whether identity folding on rep is exact. Floating-point
// representations are excluded: x+0 and x·0 are not identities for negative
// zero, infinities and NaN.
func isIntRep(rep num.Rep) bool {
	switch rep.(type) {
	case num.Unsigned, num.Fixed:
		return true
	}
	return false
}

func (g *Graph) arith(kind Kind, op string, a, b NodeID, rep num.Rep) NodeID {
	w := g.binaryCheck(op, a, b)
	if w != rep.Bits() {
		typePanic(op, "operand width %d does not match %v", w, rep)
	}
	va, oka := g.IsConst(a)
	vb, okb := g.IsConst(b)
	if oka && okb {
		var v uint64
		switch kind {
		case KindAdd:
			v = rep.Add(va, vb)
		case KindSub:
			v = rep.Sub(va, vb)
		default:
			v = rep.Mul(va, vb)
		}
		return g.Const(w, v)
	}
	if isIntRep(rep) {
		// Additive and multiplicative identities fold exactly for
		// integer representations.
		switch kind {
		case KindAdd:
			if oka && va == 0 {
				return b
			}
			if okb && vb == 0 {
				return a
			}
		case KindSub:
			if okb && vb == 0 {
				return a
			}
		case KindMul:
			one := rep.BitsOf(1)
			if oka && va == one {
				return b
			}
			if okb && vb == one {
				return a
			}
			if (oka && va == 0) || (okb && vb == 0) {
				return g.Const(w, 0)
			}
		}
	}
	if (kind == KindAdd || kind == KindMul) && a > b {
		a, b = b, a
	}
	return g.intern(node{kind: kind, width: w, args: []NodeID{a, b}, rep: rep})
}

// Add returns the sum of a and b under rep.
func (g *Graph) Add(a, b NodeID, rep num.Rep) NodeID { return g.arith(KindAdd, "Add", a, b, rep) }

// Sub returns the difference of a and b under rep.
func (g *Graph) Sub(a, b NodeID, rep num.Rep) NodeID { return g.arith(KindSub, "Sub", a, b, rep) }

// Mul returns the product of a and b under rep.
func (g *Graph) Mul(a, b NodeID, rep num.Rep) NodeID { return g.arith(KindMul, "Mul", a, b, rep) }

// Slice returns bits [lo, lo+width) of src. Slices of slices, constants and
// concatenations rewrite to direct taps of the underlying signals.
func (g *Graph) Slice(src NodeID, lo, width int) NodeID {
	g.checkArg("Slice", src)
	n := g.nodes[src]
	if lo < 0 || width < 1 || lo+width > n.width {
		typePanic("Slice", "range [%d, %d) outside signal width %d", lo, lo+width, n.width)
	}
	if lo == 0 && width == n.width {
		return src
	}
	switch n.kind {
	case KindConst:
		return g.Const(width, n.val>>lo)
	case KindSlice:
		return g.Slice(n.args[0], int(n.val)+lo, width)
	case KindConcat:
		// Forward the tap into the parts it covers.
		parts := make([]NodeID, 0, 2)
		off := 0
		for _, p := range n.args {
			pw := g.nodes[p].width
			plo := max(lo, off)
			phi := min(lo+width, off+pw)
			if plo < phi {
				parts = append(parts, g.Slice(p, plo-off, phi-plo))
			}
			off += pw
		}
		return g.Concat(parts...)
	}
	return g.intern(node{kind: KindSlice, width: width, args: []NodeID{src}, val: uint64(lo)})
}

// Bit returns the single bit at position i of src.
func (g *Graph) Bit(src NodeID, i int) NodeID { return g.Slice(src, i, 1) }

// Concat concatenates parts, least significant first. Nested concatenations
// flatten, adjacent constants merge, and adjacent slices of one signal
// collapse back into a single tap.
func (g *Graph) Concat(parts ...NodeID) NodeID {
	if len(parts) == 0 {
		typePanic("Concat", "no parts")
	}
	flat := make([]NodeID, 0, len(parts))
	for _, p := range parts {
		g.checkArg("Concat", p)
		if g.nodes[p].kind == KindConcat {
			flat = append(flat, g.nodes[p].args...)
		} else {
			flat = append(flat, p)
		}
	}
	// Merge adjacent constants and adjacent contiguous slices.
	merged := flat[:1]
	for _, p := range flat[1:] {
		last := merged[len(merged)-1]
		ln, pn := g.nodes[last], g.nodes[p]
		switch {
		case ln.kind == KindConst && pn.kind == KindConst && ln.width+pn.width <= 64:
			merged[len(merged)-1] = g.Const(ln.width+pn.width, ln.val|pn.val<<ln.width)
		case ln.kind == KindSlice && pn.kind == KindSlice &&
			ln.args[0] == pn.args[0] && int(ln.val)+ln.width == int(pn.val):
			merged[len(merged)-1] = g.Slice(ln.args[0], int(ln.val), ln.width+pn.width)
		default:
			merged = append(merged, p)
		}
	}
	if len(merged) == 1 {
		return merged[0]
	}
	w := 0
	for _, p := range merged {
		w += g.nodes[p].width
	}
	if w > 64 {
		typePanic("Concat", "total width %d exceeds 64", w)
	}
	args := make([]NodeID, len(merged))
	copy(args, merged)
	return g.intern(node{kind: KindConcat, width: w, args: args})
}

// RAM allocates a memory with 2^addrBits words, a synchronous write port and
// an asynchronous (combinational) read port. The node's value is the word at
// rdAddr; the write of wrData to wrAddr commits on the clock edge when wrEn
// is high. Memories are never interned.
func (g *Graph) RAM(addrBits int, wrAddr, wrData, wrEn, rdAddr NodeID) NodeID {
	for _, a := range []NodeID{wrAddr, wrData, wrEn, rdAddr} {
		g.checkArg("RAM", a)
	}
	if g.nodes[wrAddr].width != addrBits || g.nodes[rdAddr].width != addrBits {
		typePanic("RAM", "address widths %d/%d do not match depth 2^%d",
			g.nodes[wrAddr].width, g.nodes[rdAddr].width, addrBits)
	}
	if g.nodes[wrEn].width != 1 {
		typePanic("RAM", "write enable must be 1 bit, have %d", g.nodes[wrEn].width)
	}
	return g.alloc(node{
		kind:  KindRAM,
		width: g.nodes[wrData].width,
		args:  []NodeID{wrAddr, wrData, wrEn, rdAddr},
		aux:   addrBits,
	})
}

// RAMLate allocates a memory like RAM but with an unbound write port, the
// memory counterpart of Reg/SetRegIn. It exists for feedback structures where
// the written data is computed downstream of the memory's own read port, so
// the read side must be constructed first.
func (g *Graph) RAMLate(addrBits, width int, rdAddr NodeID) NodeID {
	g.checkArg("RAMLate", rdAddr)
	if g.nodes[rdAddr].width != addrBits {
		typePanic("RAMLate", "address width %d does not match depth 2^%d",
			g.nodes[rdAddr].width, addrBits)
	}
	return g.alloc(node{
		kind:  KindRAM,
		width: width,
		args:  []NodeID{Nil, Nil, Nil, rdAddr},
		aux:   addrBits,
	})
}

// SetRAMWrite binds the write port of a memory allocated with RAMLate.
func (g *Graph) SetRAMWrite(ram, wrAddr, wrData, wrEn NodeID) {
	for _, a := range []NodeID{wrAddr, wrData, wrEn} {
		g.checkArg("SetRAMWrite", a)
	}
	n := &g.nodes[ram]
	if n.kind != KindRAM {
		typePanic("SetRAMWrite", "node %d is %v, not a memory", ram, n.kind)
	}
	if n.args[0] != Nil {
		typePanic("SetRAMWrite", "memory %d write port already bound", ram)
	}
	if g.nodes[wrAddr].width != n.aux {
		typePanic("SetRAMWrite", "address width %d does not match depth 2^%d",
			g.nodes[wrAddr].width, n.aux)
	}
	if g.nodes[wrData].width != n.width {
		typePanic("SetRAMWrite", "data width %d does not match memory width %d",
			g.nodes[wrData].width, n.width)
	}
	if g.nodes[wrEn].width != 1 {
		typePanic("SetRAMWrite", "write enable must be 1 bit, have %d", g.nodes[wrEn].width)
	}
	n.args[0], n.args[1], n.args[2] = wrAddr, wrData, wrEn
}

// ExtIP instantiates a named external operator (for example an
// arbitrary-precision floating-point core) with the given result width and
// pipeline latency. The core treats it as opaque.
func (g *Graph) ExtIP(name string, width, latency int, ins ...NodeID) NodeID {
	for _, a := range ins {
		g.checkArg("ExtIP", a)
	}
	args := make([]NodeID, len(ins))
	copy(args, ins)
	return g.alloc(node{kind: KindExtIP, width: width, args: args, aux: latency, name: name})
}

// CounterBits is a helper for control logic: it returns the number of bits
// needed to count n states.
func CounterBits(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}
