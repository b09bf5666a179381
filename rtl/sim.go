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

package rtl

import "fmt"

// Sim evaluates a graph cycle by cycle under the single-global-clock
// synchronous model: one combinational pass per cycle in arena order, then an
// atomic update of every register and memory on the clock edge. Arena order
// is a valid evaluation order because constructors require combinational
// operands to exist before their consumers; only register inputs may point
// forward, and those are sampled at the edge, after the pass.
//
// The simulator exists for the test suite: it is the cycle-accurate side of
// the functional-equivalence check against spl.Eval.
type Sim struct {
	g     *Graph
	val   []uint64
	state []uint64            // register state, indexed by NodeID
	mem   map[NodeID][]uint64 // RAM contents
	cycle int
}

// NewSim returns a simulator with all registers and memories cleared.
func NewSim(g *Graph) *Sim {
	s := &Sim{
		g:     g,
		val:   make([]uint64, len(g.nodes)),
		state: make([]uint64, len(g.nodes)),
		mem:   make(map[NodeID][]uint64),
	}
	for id, n := range g.nodes {
		if n.kind == KindRAM {
			s.mem[NodeID(id)] = make([]uint64, 1<<n.aux)
		}
	}
	return s
}

// Cycle returns the number of completed cycles.
func (s *Sim) Cycle() int { return s.cycle }

// Step runs one clock cycle with the given input port values and returns the
// combinational values observable during that cycle. Missing inputs read as
// zero. An ExtIP node in the graph cannot be simulated and causes an error.
func (s *Sim) Step(inputs map[NodeID]uint64) error {
	for id := range s.g.nodes {
		if err := s.eval(NodeID(id), inputs); err != nil {
			return err
		}
	}
	// Clock edge: registers first read their (possibly forward) inputs,
	// memories commit pending writes.
	for id, n := range s.g.nodes {
		switch n.kind {
		case KindReg:
			if n.args[0] == Nil {
				return fmt.Errorf("rtl: simulate cycle %d: register %d has unbound input", s.cycle, id)
			}
			s.state[id] = s.val[n.args[0]]
		case KindRAM:
			if n.args[0] == Nil {
				return fmt.Errorf("rtl: simulate cycle %d: memory %d has unbound write port", s.cycle, id)
			}
			if s.val[n.args[2]] != 0 {
				s.mem[NodeID(id)][s.val[n.args[0]]] = s.val[n.args[1]]
			}
		}
	}
	s.cycle++
	return nil
}

func (s *Sim) eval(id NodeID, inputs map[NodeID]uint64) error {
	n := s.g.nodes[id]
	a := n.args
	var v uint64
	switch n.kind {
	case KindInput:
		v = inputs[id]
	case KindOutput:
		v = s.val[a[0]]
	case KindConst:
		v = n.val
	case KindReg:
		v = s.state[id]
	case KindMux:
		v = s.val[a[1+s.val[a[0]]]]
	case KindAnd:
		v = s.val[a[0]] & s.val[a[1]]
	case KindOr:
		v = s.val[a[0]] | s.val[a[1]]
	case KindXor:
		v = s.val[a[0]] ^ s.val[a[1]]
	case KindNot:
		v = ^s.val[a[0]]
	case KindAdd:
		v = n.rep.Add(s.val[a[0]], s.val[a[1]])
	case KindSub:
		v = n.rep.Sub(s.val[a[0]], s.val[a[1]])
	case KindMul:
		v = n.rep.Mul(s.val[a[0]], s.val[a[1]])
	case KindConcat:
		shift := 0
		for _, p := range a {
			v |= s.val[p] << shift
			shift += s.g.nodes[p].width
		}
	case KindSlice:
		v = s.val[a[0]] >> n.val
	case KindRAM:
		v = s.mem[id][s.val[a[3]]]
	case KindExtIP:
		return fmt.Errorf("rtl: simulate cycle %d: external IP %q has no simulation model", s.cycle, n.name)
	default:
		return fmt.Errorf("rtl: simulate cycle %d: unexpected node kind %v", s.cycle, n.kind)
	}
	s.val[id] = v & widthMask(n.width)
	return nil
}

// Value returns the combinational value of id during the last stepped cycle.
func (s *Sim) Value(id NodeID) uint64 { return s.val[id] }
