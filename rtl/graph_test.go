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

import (
	"testing"

	"github.com/go-streamgen/streamgen/num"
)

func u8() num.Rep {
	r, _ := num.NewUnsigned(8)
	return r
}

func TestCSEIdempotence(t *testing.T) {
	g := NewGraph()
	a := g.Input("a", 8)
	b := g.Input("b", 8)

	// Building the same operator twice over identical canonical operands
	// must yield the identical node, by identity.
	x1 := g.Xor(a, b)
	x2 := g.Xor(a, b)
	if x1 != x2 {
		t.Errorf("Xor(a, b) built twice: nodes %d and %d", x1, x2)
	}
	// Commutative operators canonicalize operand order.
	x3 := g.Xor(b, a)
	if x1 != x3 {
		t.Errorf("Xor(a, b) and Xor(b, a): nodes %d and %d", x1, x3)
	}
	s1 := g.Add(a, b, u8())
	s2 := g.Add(b, a, u8())
	if s1 != s2 {
		t.Errorf("Add(a, b) and Add(b, a): nodes %d and %d", s1, s2)
	}
}

func TestConstantFolding(t *testing.T) {
	g := NewGraph()
	c3 := g.Const(8, 3)
	c5 := g.Const(8, 5)

	tests := []struct {
		name string
		got  NodeID
		want uint64
	}{
		{"and", g.And(c3, c5), 1},
		{"or", g.Or(c3, c5), 7},
		{"xor", g.Xor(c3, c5), 6},
		{"not", g.Not(c3), 0xfc},
		{"add", g.Add(c3, c5, u8()), 8},
		{"sub", g.Sub(c3, c5, u8()), 0xfe},
		{"mul", g.Mul(c3, c5, u8()), 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := g.IsConst(tt.got)
			if !ok {
				t.Fatalf("node %d is %v, not a constant", tt.got, g.Kind(tt.got))
			}
			if v != tt.want {
				t.Errorf("folded to %#x, want %#x", v, tt.want)
			}
		})
	}
}

func TestAbsorption(t *testing.T) {
	g := NewGraph()
	a := g.Input("a", 8)

	if got := g.Xor(a, g.Const(8, 0)); got != a {
		t.Errorf("a ^ 0 = node %d, want a (%d)", got, a)
	}
	if got := g.And(a, g.Const(8, 0xff)); got != a {
		t.Errorf("a & ones = node %d, want a (%d)", got, a)
	}
	if v, ok := g.IsConst(g.And(a, g.Const(8, 0))); !ok || v != 0 {
		t.Error("a & 0 did not fold to zero")
	}
	if got := g.Or(a, g.Const(8, 0)); got != a {
		t.Errorf("a | 0 = node %d, want a (%d)", got, a)
	}
	if v, ok := g.IsConst(g.Xor(a, a)); !ok || v != 0 {
		t.Error("a ^ a did not fold to zero")
	}
	if got := g.Not(g.Not(a)); got != a {
		t.Error("double negation did not collapse")
	}
}

func TestMaskAbsorptionGatesBits(t *testing.T) {
	// AND with a partial constant mask must gate bit runs, not emit a
	// generic AND node.
	g := NewGraph()
	a := g.Input("a", 8)
	n := g.And(a, g.Const(8, 0x0f))
	if g.Kind(n) == KindAnd {
		t.Fatalf("AND with partial mask emitted a generic and node")
	}
	// Behavior check through the simulator.
	s := NewSim(g)
	if err := s.Step(map[NodeID]uint64{a: 0xa5}); err != nil {
		t.Fatal(err)
	}
	if got := s.Value(n); got != 0x05 {
		t.Errorf("masked value = %#x, want 0x05", got)
	}
}

func TestSliceRewrites(t *testing.T) {
	g := NewGraph()
	a := g.Input("a", 16)

	// Slice of slice taps the base signal directly.
	s1 := g.Slice(a, 4, 8)
	s2 := g.Slice(s1, 2, 4)
	if g.Kind(s2) != KindSlice || g.Args(s2)[0] != a || g.SliceLow(s2) != 6 {
		t.Errorf("slice of slice did not collapse: kind %v base %d low %d",
			g.Kind(s2), g.Args(s2)[0], g.SliceLow(s2))
	}
	// Full-width slice is the signal itself.
	if got := g.Slice(a, 0, 16); got != a {
		t.Error("identity slice allocated a node")
	}
	// Slice of constant folds.
	if v, ok := g.IsConst(g.Slice(g.Const(8, 0xa5), 4, 4)); !ok || v != 0xa {
		t.Error("slice of constant did not fold")
	}
}

func TestSliceOfConcat(t *testing.T) {
	g := NewGraph()
	a := g.Input("a", 4)
	b := g.Input("b", 4)
	cat := g.Concat(a, b)

	// A slice within one part taps that part.
	if got := g.Slice(cat, 4, 4); got != b {
		t.Errorf("slice of concat = node %d, want b (%d)", got, b)
	}
	if got := g.Slice(cat, 0, 4); got != a {
		t.Errorf("slice of concat = node %d, want a (%d)", got, a)
	}
	// A slice crossing parts re-concatenates the taps.
	mid := g.Slice(cat, 2, 4)
	s := NewSim(g)
	if err := s.Step(map[NodeID]uint64{a: 0b1010, b: 0b0110}); err != nil {
		t.Fatal(err)
	}
	// cat = 0110_1010; bits [2,6) = 1010.
	if got := s.Value(mid); got != 0b1010 {
		t.Errorf("crossing slice = %04b, want 1010", got)
	}
}

func TestConcatCollapsesAdjacentSlices(t *testing.T) {
	g := NewGraph()
	a := g.Input("a", 8)
	lo := g.Slice(a, 0, 4)
	hi := g.Slice(a, 4, 4)
	if got := g.Concat(lo, hi); got != a {
		t.Errorf("concat of complementary slices = node %d, want a (%d)", got, a)
	}
}

func TestMuxCollapse(t *testing.T) {
	g := NewGraph()
	sel := g.Input("sel", 1)
	a := g.Input("a", 8)

	if got := g.Mux(sel, a, a); got != a {
		t.Error("unanimous mux did not collapse")
	}
	b := g.Input("b", 8)
	if got := g.Mux(g.Const(1, 1), a, b); got != b {
		t.Error("constant-select mux did not collapse")
	}
}

func TestWidthMismatchPanics(t *testing.T) {
	g := NewGraph()
	a := g.Input("a", 8)
	b := g.Input("b", 4)

	tests := []struct {
		name string
		fn   func()
	}{
		{"xor", func() { g.Xor(a, b) }},
		{"add-rep", func() { g.Add(b, b, u8()) }},
		{"mux-count", func() { g.Mux(g.Input("s", 2), a, a) }},
		{"slice-range", func() { g.Slice(b, 2, 4) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("no panic")
				}
				if _, ok := r.(*TypeError); !ok {
					t.Fatalf("panicked with %T, want *TypeError", r)
				}
			}()
			tt.fn()
		})
	}
}
