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

	"github.com/go-streamgen/streamgen/field"
	"github.com/go-streamgen/streamgen/num"
	"github.com/go-streamgen/streamgen/perm"
	"github.com/go-streamgen/streamgen/rtl"
	"github.com/go-streamgen/streamgen/spl"
)

// A streamed bit-linear permutation lowers to the three stages of its GF(2)
// decomposition: a crossbar permuting lanes on the way into per-lane
// memories, address logic reordering samples in time, and a crossbar on the
// way out. Under banked control each memory holds two windows so a dataset
// can be read out while the next one is written.
//
// permStage is the read half plus a deferred write half. The split exists
// for feedback loops, where the written data is itself computed from the
// memory outputs: the loop builds the read side, closes the feedback mux,
// and only then commits the write side.
type permStage struct {
	out     []lane
	latency int
	commit  func(in []lane)
}

// permCtx carries the per-variant decompositions and selector wiring shared
// by the spatial and memory paths.
type permCtx struct {
	c    *compiler
	ctrl *controller
	off  int

	k, t, T int
	decs    []perm.Decomposition
	a1inv   []field.Mat
	a1invA2 []field.Mat
	b4inv   []field.Mat
	b4invB3 []field.Mat

	wSel    rtl.NodeID // variant selector in the write-side cycle
	rSel    func() rtl.NodeID
	vmap    func(int) int
	trivial bool // every variant's memory stage is the identity
}

// buildPerm lowers a streamed permutation position. Outside loops the write
// side is committed immediately.
func (c *compiler) buildPerm(perms []spl.LinearPerm, k int, ctrl *controller, off int, selAt func(int) rtl.NodeID, in []lane) ([]lane, int, error) {
	pc, err := c.newPermCtx(perms, k, ctrl, off, selAt)
	if err != nil {
		return nil, 0, err
	}
	if pc.trivial {
		return pc.applySpatial(in), 0, nil
	}
	st := pc.reader()
	st.commit(in)
	return st.out, st.latency, nil
}

func (c *compiler) newPermCtx(perms []spl.LinearPerm, k int, ctrl *controller, off int, selAt func(int) rtl.NodeID) (*permCtx, error) {
	var mats []field.Mat
	roundRobin := false
	if len(perms) > 1 {
		for _, p := range perms {
			if len(p.Mats) > 1 {
				return nil, confErrf("per-dataset permutation variants cannot stream inside a feedback loop")
			}
			mats = append(mats, p.Mats[0])
		}
	} else {
		mats = perms[0].Mats
		roundRobin = len(mats) > 1
	}

	n := mats[0].Rows()
	pc := &permCtx{
		c:    c,
		ctrl: ctrl,
		off:  off,
		k:    k,
		t:    n - k,
		T:    1 << (n - k),
	}
	pc.trivial = true
	for _, m := range mats {
		d, err := perm.Decompose(m, k)
		if err != nil {
			return nil, confErrf("decompose streamed permutation: %v", err)
		}
		a1inv, err := d.A1.Inverse()
		if err != nil {
			return nil, confErrf("invert crossbar block: %v", err)
		}
		b4inv := field.Identity(pc.t)
		if pc.t > 0 {
			if b4inv, err = d.B4.Inverse(); err != nil {
				return nil, confErrf("invert address block: %v", err)
			}
		}
		pc.decs = append(pc.decs, d)
		pc.a1inv = append(pc.a1inv, a1inv)
		pc.a1invA2 = append(pc.a1invA2, a1inv.Mul(d.A2))
		pc.b4inv = append(pc.b4inv, b4inv)
		pc.b4invB3 = append(pc.b4invB3, b4inv.Mul(d.B3))
		pc.trivial = pc.trivial && d.TemporalTrivial()
	}

	nv := len(mats)
	rot := 0
	switch {
	case selAt != nil:
		pc.wSel = selAt(off)
		pc.rSel = func() rtl.NodeID { return selAt(off + pc.T) }
	case roundRobin:
		// A counter tracks which matrix the arriving dataset uses. Its
		// effective value advances on the start pulse itself, so dataset
		// d reads selector value (d+1) mod nv; the variant table is
		// rotated one step to compensate.
		g := c.g
		ws := rtl.CounterBits(nv)
		rep := num.Unsigned{W: ws}
		reg := g.Reg(ws)
		inc := g.Mux(eqConst(g, reg, uint64(nv-1)),
			g.Add(reg, g.Const(ws, 1), rep), g.Const(ws, 0))
		eff := g.Mux(ctrl.nextAt(off), reg, inc)
		g.SetRegIn(reg, eff)
		pc.wSel = eff
		pc.rSel = func() rtl.NodeID { return g.Delay(eff, pc.T) }
		rot = nv - 1
	default:
		pc.wSel = rtl.Nil
		pc.rSel = func() rtl.NodeID { return rtl.Nil }
	}
	pc.vmap = func(e int) int { return (e + rot) % nv }
	return pc, nil
}

// applySpatial realizes a permutation whose memory stage is trivial: both
// crossbars act in the same cycle and the stage has no latency.
func (pc *permCtx) applySpatial(in []lane) []lane {
	if pc.k == 0 {
		return in
	}
	c := pc.c
	cnt := pc.ctrl.counterAt(pc.off)
	s1 := make([]rtl.NodeID, len(in))
	s2 := make([]rtl.NodeID, len(in))
	for j := range in {
		sv1 := make([]rtl.NodeID, len(pc.decs))
		sv2 := make([]rtl.NodeID, len(pc.decs))
		for v := range pc.decs {
			sv1[v] = c.affine(pc.k, pc.a1inv[v].MulVec(uint64(j)), pc.a1invA2[v], cnt)
			sv2[v] = c.affine(pc.k, uint64(j), pc.decs[v].C2, cnt)
		}
		s1[j] = c.selectVariant(pc.wSel, pc.vmap, sv1)
		s2[j] = c.selectVariant(pc.wSel, pc.vmap, sv2)
	}
	return c.route(c.route(in, s1), s2)
}

// reader builds the memories and the read-side crossbar. Write bank, write
// counter and read counter run in start-pulse domains offset by the stage
// position, and the read side a further window later, so back-to-back
// datasets each see their own control state.
func (pc *permCtx) reader() *permStage {
	c := pc.c
	g := c.g
	ctrl := pc.ctrl
	banked := c.ctl != ControlSinglePorted
	lanes := 1 << pc.k
	w := c.o.typ.Rep.Bits()

	var weff, rb rtl.NodeID
	if banked {
		wreg := g.Reg(1)
		weff = g.Xor(wreg, ctrl.nextAt(pc.off))
		g.SetRegIn(wreg, weff)
		rb = g.Delay(weff, pc.T)
	} else {
		c.minGap = max(c.minGap, 2*pc.T)
	}

	c2 := ctrl.counterAt(pc.off + pc.T)
	rSel := pc.rSel()

	depth := pc.t
	if banked {
		depth++
	}
	mems := make([]lane, lanes)
	for l := range lanes {
		sv := make([]rtl.NodeID, len(pc.decs))
		for v := range pc.decs {
			sv[v] = c.affine(pc.t, pc.b4invB3[v].MulVec(uint64(l)), pc.b4inv[v], c2)
		}
		rdAddr := c.selectVariant(rSel, pc.vmap, sv)
		if banked {
			rdAddr = g.Concat(rdAddr, rb)
		}
		mems[l] = lane{re: g.RAMLate(depth, w, rdAddr)}
		if c.o.typ.Complex {
			mems[l].im = g.RAMLate(depth, w, rdAddr)
		}
	}

	out := mems
	if pc.k > 0 {
		sels := make([]rtl.NodeID, lanes)
		for j := range lanes {
			sv := make([]rtl.NodeID, len(pc.decs))
			for v := range pc.decs {
				sv[v] = c.affine(pc.k, uint64(j), pc.decs[v].C2, c2)
			}
			sels[j] = c.selectVariant(rSel, pc.vmap, sv)
		}
		out = c.route(mems, sels)
	}

	commit := func(in []lane) {
		cnt := ctrl.counterAt(pc.off)
		s1 := in
		if pc.k > 0 {
			sels := make([]rtl.NodeID, lanes)
			for j := range lanes {
				sv := make([]rtl.NodeID, len(pc.decs))
				for v := range pc.decs {
					sv[v] = c.affine(pc.k, pc.a1inv[v].MulVec(uint64(j)), pc.a1invA2[v], cnt)
				}
				sels[j] = c.selectVariant(pc.wSel, pc.vmap, sv)
			}
			s1 = c.route(in, sels)
		}
		we := ctrl.spanAt(pc.off, pc.T)
		wrAddr := cnt
		if banked {
			wrAddr = g.Concat(cnt, weff)
		}
		for l := range lanes {
			g.SetRAMWrite(mems[l].re, wrAddr, s1[l].re, we)
			if c.o.typ.Complex {
				g.SetRAMWrite(mems[l].im, wrAddr, s1[l].im, we)
			}
		}
	}
	return &permStage{out: out, latency: pc.T, commit: commit}
}

// affine computes c0 XOR m·x as a width-bit signal, one parity tree per bit.
func (c *compiler) affine(width int, c0 uint64, m field.Mat, x rtl.NodeID) rtl.NodeID {
	g := c.g
	parts := make([]rtl.NodeID, width)
	for i := range width {
		cb := c0 >> i & 1
		var mask uint64
		if m.Rows() > i {
			mask = m.Row(i)
		}
		if x == rtl.Nil || mask == 0 {
			parts[i] = g.Const(1, cb)
			continue
		}
		b := c.parity(x, mask)
		if cb == 1 {
			b = g.Not(b)
		}
		parts[i] = b
	}
	return g.Concat(parts...)
}

func (c *compiler) parity(x rtl.NodeID, mask uint64) rtl.NodeID {
	acc := rtl.Nil
	for mask != 0 {
		j := bits.TrailingZeros64(mask)
		mask &^= 1 << j
		b := c.g.Bit(x, j)
		if acc == rtl.Nil {
			acc = b
		} else {
			acc = c.g.Xor(acc, b)
		}
	}
	return acc
}

// selectVariant muxes per-variant signals by the iteration or dataset
// selector; vmap pads the mux table and applies the round-robin rotation.
func (c *compiler) selectVariant(vsel rtl.NodeID, vmap func(int) int, sv []rtl.NodeID) rtl.NodeID {
	if vsel == rtl.Nil {
		return sv[0]
	}
	ins := make([]rtl.NodeID, 1<<c.g.Width(vsel))
	for e := range ins {
		ins[e] = sv[vmap(e)]
	}
	return c.g.Mux(vsel, ins...)
}

// route moves lanes through a full crossbar: output j takes the input lane
// named by sels[j]. Constant selects collapse to plain wiring.
func (c *compiler) route(ins []lane, sels []rtl.NodeID) []lane {
	out := make([]lane, len(ins))
	for j := range ins {
		out[j] = c.o.mux(sels[j], ins...)
	}
	return out
}
