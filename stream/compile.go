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
	"github.com/go-streamgen/streamgen/rtl"
	"github.com/go-streamgen/streamgen/spl"
)

type compiler struct {
	g      *rtl.Graph
	o      ops
	ctl    Control
	minGap int
}

// compileNode lowers one term position into hardware and returns the output
// lanes and the stage latency in cycles.
//
// variants is the per-iteration view of the position: outside feedback loops
// it has one entry; inside a loop body it holds the structurally identical
// terms of every iteration, and selAt(off) supplies the iteration selector as
// seen at cycle offset off. ctrl is the clocking domain; its window length
// always matches variants[0].N()-k wherever a stage consults a counter.
func (c *compiler) compileNode(variants []spl.Term, k int, ctrl *controller, off int, selAt func(int) rtl.NodeID, in []lane) ([]lane, int, error) {
	switch t := variants[0].(type) {
	case spl.Ident:
		return in, 0, nil

	case spl.Butterfly:
		out, err := c.buildButterfly(t.LogSize, k, in)
		return out, 0, err

	case spl.Diag:
		return c.buildDiag(variants, k, ctrl, off, selAt, in), 0, nil

	case spl.LinearPerm:
		perms := make([]spl.LinearPerm, len(variants))
		for i, v := range variants {
			perms[i] = v.(spl.LinearPerm)
		}
		return c.buildPerm(perms, k, ctrl, off, selAt, in)

	case spl.Product:
		// Rightmost factor first, matrix order. An explicit position loop
		// rather than recursion on a shrinking product keeps deep chains
		// like the unrolled Pease factorizations shallow.
		cur := in
		acc := 0
		for pos := len(t.Factors) - 1; pos >= 0; pos-- {
			fvs := make([]spl.Term, len(variants))
			for i, v := range variants {
				fvs[i] = v.(spl.Product).Factors[pos]
			}
			var (
				lat int
				err error
			)
			cur, lat, err = c.compileNode(fvs, k, ctrl, off+acc, selAt, cur)
			if err != nil {
				return nil, 0, err
			}
			acc += lat
		}
		return cur, acc, nil

	case spl.ITensor:
		return c.buildTensor(variants, k, ctrl, off, selAt, in)

	case spl.ItProduct:
		return c.buildLoop(t, k, ctrl, off, selAt, in)
	}
	return nil, 0, domainErrf("unhandled term %T", variants[0])
}

// buildTensor lowers I_2^r tensor f. A factor no wider than the datapath is
// replicated across lane blocks; a wider factor is folded onto one block of
// hardware that processes the 2^r tensor slots back-to-back under a
// sub-controller pulsing once per slot.
func (c *compiler) buildTensor(variants []spl.Term, k int, ctrl *controller, off int, selAt func(int) rtl.NodeID, in []lane) ([]lane, int, error) {
	t := variants[0].(spl.ITensor)
	fvs := make([]spl.Term, len(variants))
	for i, v := range variants {
		fvs[i] = v.(spl.ITensor).Factor
	}
	fn := t.Factor.N()

	if fn <= k {
		bl := 1 << fn
		out := make([]lane, 0, len(in))
		lat := 0
		for b := range 1 << (k - fn) {
			sub, l, err := c.compileNode(fvs, fn, ctrl, off, selAt, in[b*bl:(b+1)*bl])
			if err != nil {
				return nil, 0, err
			}
			out = append(out, sub...)
			lat = l
		}
		return out, lat, nil
	}

	if c.ctl == ControlSinglePorted {
		return nil, 0, confErrf("single-ported control cannot fold a 2^%d-point factor onto 2^%d lanes: back-to-back blocks need one access per cycle", fn, k)
	}
	tf := fn - k
	window := 1 << (t.N() - k)
	span := ctrl.spanAt(off, window)
	blockStart := c.g.And(span, eqConst(c.g, c.g.Slice(ctrl.counterAt(off), 0, tf), 0))
	sub := newController(c.g, blockStart, tf)

	subSel := selAt
	if selAt != nil {
		subSel = func(so int) rtl.NodeID { return selAt(off + so) }
	}
	out, lat, err := c.compileNode(fvs, k, sub, 0, subSel, in)
	if err != nil {
		return nil, 0, err
	}
	return out, lat, nil
}

// buildButterfly instantiates 2^(k-s) parallel DFT_2^s networks across the
// lanes. The dense base transform does not fold: a radix wider than the
// datapath has no streaming layout here.
func (c *compiler) buildButterfly(s, k int, in []lane) ([]lane, error) {
	if s > k {
		return nil, confErrf("radix-2^%d butterfly needs at least 2^%d lanes, have 2^%d", s, s, k)
	}
	out := make([]lane, 0, len(in))
	size := 1 << s
	for b := 0; b < len(in); b += size {
		out = append(out, c.fftNet(in[b:b+size], s)...)
	}
	return out, nil
}

// fftNet is the radix-2 decimation-in-time network: transform the even and
// odd sublanes, then combine with twiddled add/sub pairs. All twiddles are
// compile-time constants, so DFT_2 and DFT_4 reduce to adders and wire swaps.
func (c *compiler) fftNet(in []lane, bits int) []lane {
	if bits == 0 {
		return in
	}
	half := len(in) / 2
	ev := make([]lane, half)
	od := make([]lane, half)
	for i := range half {
		ev[i] = in[2*i]
		od[i] = in[2*i+1]
	}
	e := c.fftNet(ev, bits-1)
	o := c.fftNet(od, bits-1)
	out := make([]lane, len(in))
	for j := range half {
		tw := c.o.mulConst(o[j], spl.Omega(bits, j))
		out[j] = c.o.add(e[j], tw)
		out[j+half] = c.o.sub(e[j], tw)
	}
	return out
}

// buildDiag multiplies each lane by its slice of the diagonal. Entries that
// vary over the window or the loop iteration come out of a per-lane
// coefficient ROM addressed by {iteration, cycle}; a lane whose entries are
// all equal collapses to a constant multiply, which itself collapses to
// wiring for roots of unity on the axes.
func (c *compiler) buildDiag(variants []spl.Term, k int, ctrl *controller, off int, selAt func(int) rtl.NodeID, in []lane) []lane {
	g := c.g
	tb := variants[0].N() - k

	var parts []rtl.NodeID
	if tb > 0 {
		parts = append(parts, ctrl.counterAt(off))
	}
	if selAt != nil {
		parts = append(parts, selAt(off))
	}

	valueAt := func(entry, l int) complex128 {
		cyc := entry & (1<<tb - 1)
		it := entry >> tb
		d := variants[it%len(variants)].(spl.Diag)
		return d.Values[cyc<<k|l]
	}

	if parts == nil {
		out := make([]lane, len(in))
		for l := range in {
			out[l] = c.o.mulConst(in[l], valueAt(0, l))
		}
		return out
	}

	addr := g.Concat(parts...)
	entries := 1 << g.Width(addr)
	w := c.o.typ.Rep.Bits()
	out := make([]lane, len(in))
	for l := range in {
		vals := make([]complex128, entries)
		same, allReal := true, true
		for e := range entries {
			vals[e] = valueAt(e, l)
			same = same && vals[e] == vals[0]
			allReal = allReal && imag(vals[e]) == 0
		}
		if same {
			out[l] = c.o.mulConst(in[l], vals[0])
			continue
		}
		romRe := make([]rtl.NodeID, entries)
		for e, v := range vals {
			romRe[e] = g.Const(w, c.o.typ.Rep.BitsOf(real(v)))
		}
		if allReal {
			out[l] = c.o.mulRomReal(in[l], g.Mux(addr, romRe...))
			continue
		}
		romIm := make([]rtl.NodeID, entries)
		for e, v := range vals {
			romIm[e] = g.Const(w, c.o.typ.Rep.BitsOf(imag(v)))
		}
		out[l] = c.o.cmul(in[l], g.Mux(addr, romRe...), g.Mux(addr, romIm...))
	}
	return out
}
