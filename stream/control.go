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

package stream

import (
	"math/bits"

	"github.com/go-streamgen/streamgen/num"
	"github.com/go-streamgen/streamgen/rtl"
)

// controller owns the control signals of one clocking domain: a start pulse
// and everything derived from it. Stages deeper in a pipeline see the start
// pulse delayed by their cycle offset, and every derived signal must live in
// the delayed domain of the stage that consumes it, otherwise back-to-back
// datasets corrupt each other. The maps cache one instance per offset so
// parallel stages share counters.
//
// Folded tensor factors and feedback loops run on sub-controllers whose start
// pulse fires once per block or per iteration window.
type controller struct {
	g    *rtl.Graph
	t    int // log2 of the window length in cycles
	next rtl.NodeID

	delayed  map[int]rtl.NodeID
	counters map[int]rtl.NodeID
	spans    map[spanKey]rtl.NodeID
}

type spanKey struct{ off, length int }

func newController(g *rtl.Graph, next rtl.NodeID, t int) *controller {
	return &controller{
		g:        g,
		t:        t,
		next:     next,
		delayed:  map[int]rtl.NodeID{0: next},
		counters: map[int]rtl.NodeID{},
		spans:    map[spanKey]rtl.NodeID{},
	}
}

// nextAt returns the domain's start pulse delayed by off cycles, reusing the
// longest already-built delay chain as a prefix.
func (c *controller) nextAt(off int) rtl.NodeID {
	if sig, ok := c.delayed[off]; ok {
		return sig
	}
	base, sig := 0, c.next
	for o, s := range c.delayed {
		if o < off && o > base {
			base, sig = o, s
		}
	}
	sig = c.g.Delay(sig, off-base)
	c.delayed[off] = sig
	return sig
}

// counterAt returns the cycle counter of the stage at offset off: a t-bit
// value that reads zero on the start cycle and increments modulo the window
// length. The start pulse overrides the running count combinationally, so a
// new dataset restarts the stage in the same cycle it arrives.
func (c *controller) counterAt(off int) rtl.NodeID {
	if c.t == 0 {
		return rtl.Nil
	}
	if sig, ok := c.counters[off]; ok {
		return sig
	}
	g := c.g
	rep := num.Unsigned{W: c.t}
	reg := g.Reg(c.t)
	eff := g.Mux(c.nextAt(off), reg, g.Const(c.t, 0))
	g.SetRegIn(reg, g.Add(eff, g.Const(c.t, 1), rep))
	c.counters[off] = eff
	return eff
}

// spanAt returns a signal that is high for length consecutive cycles starting
// at the stage's start pulse. It re-arms immediately when a new pulse arrives
// mid-span.
func (c *controller) spanAt(off, length int) rtl.NodeID {
	if length <= 1 {
		return c.nextAt(off)
	}
	key := spanKey{off, length}
	if sig, ok := c.spans[key]; ok {
		return sig
	}
	g := c.g
	w := bits.Len(uint(length - 1))
	rep := num.Unsigned{W: w}
	reg := g.Reg(w)
	live := g.Not(eqConst(g, reg, 0))
	dec := g.Sub(reg, g.Const(w, 1), rep)
	hold := g.Mux(live, g.Const(w, 0), dec)
	g.SetRegIn(reg, g.Mux(c.nextAt(off), hold, g.Const(w, uint64(length-1))))
	span := g.Or(c.nextAt(off), live)
	c.spans[key] = span
	return span
}

// eqConst compares a signal against a constant, bit by bit.
func eqConst(g *rtl.Graph, sig rtl.NodeID, val uint64) rtl.NodeID {
	w := g.Width(sig)
	acc := rtl.Nil
	for i := range w {
		b := g.Bit(sig, i)
		if val>>i&1 == 0 {
			b = g.Not(b)
		}
		if acc == rtl.Nil {
			acc = b
		} else {
			acc = g.And(acc, b)
		}
	}
	return acc
}
