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
	"github.com/go-streamgen/streamgen/num"
	"github.com/go-streamgen/streamgen/rtl"
	"github.com/go-streamgen/streamgen/spl"
)

// buildLoop closes a feedback loop over one physical copy of the iteration
// body. The dataset circulates q times through the body; an iteration window
// register selects the per-iteration coefficients and permutation variants.
//
// The schedule pins the body latency to exactly one window: iteration i is
// written into the body's memory stage during window i-1 and read back during
// window i, so the memories must be dual-ported. The iteration windows run on
// a sub-controller whose start pulse fires at every window boundary while the
// dataset is in flight; every stage inside the body derives its control from
// that pulse delayed by the stage's own offset.
func (c *compiler) buildLoop(lp spl.ItProduct, k int, ctrl *controller, off int, selAt func(int) rtl.NodeID, in []lane) ([]lane, int, error) {
	if c.ctl != ControlDual {
		return nil, 0, confErrf("iterative reuse requires dual-ported control, have %v", c.ctl)
	}
	if selAt != nil {
		return nil, 0, confErrf("nested iterative products are not streamable")
	}
	g := c.g
	q := len(lp.Bodies)
	t := lp.N() - k
	T := 1 << t

	nl := ctrl.nextAt(off)
	span := ctrl.spanAt(off, q*T)

	// Iteration window register. Its effective value resets on the dataset
	// start and advances at each window boundary.
	wq := rtl.CounterBits(q)
	wrep := num.Unsigned{W: wq}
	wreg := g.Reg(wq)
	wineff := g.Mux(nl, wreg, g.Const(wq, 0))
	var wrapInc rtl.NodeID
	if q > 1 {
		wrapInc = g.Mux(eqConst(g, wineff, uint64(q-1)),
			g.Add(wineff, g.Const(wq, 1), wrep), g.Const(wq, 0))
	} else {
		wrapInc = g.Const(wq, 0)
	}

	selCache := map[int]rtl.NodeID{0: wineff}
	subSel := func(o int) rtl.NodeID {
		if s, ok := selCache[o]; ok {
			return s
		}
		base, sig := 0, wineff
		for bo, s := range selCache {
			if bo < o && bo > base {
				base, sig = bo, s
			}
		}
		sig = g.Delay(sig, o-base)
		selCache[o] = sig
		return sig
	}

	fresh := g.And(eqConst(g, wineff, 0), span)

	var (
		out []lane
		err error
	)
	if t == 0 {
		g.SetRegIn(wreg, wrapInc)
		out, err = c.loopParallel(lp, k, span, wineff, subSel, fresh, in)
	} else {
		out, err = c.loopStreamed(lp, k, ctrl, off, span, wreg, wineff, wrapInc, subSel, fresh, in)
	}
	if err != nil {
		return nil, 0, err
	}

	lat := q * T
	c.minGap = max(c.minGap, q*T)
	if lp.End != nil {
		var el int
		out, el, err = c.compileNode([]spl.Term{lp.End}, k, ctrl, off+lat, nil, out)
		if err != nil {
			return nil, 0, err
		}
		lat += el
	}
	return out, lat, nil
}

// loopParallel handles the fully parallel case: the whole dataset fits the
// lanes, each iteration is combinational, and a register in the feedback path
// gives every iteration its one-cycle window.
func (c *compiler) loopParallel(lp spl.ItProduct, k int, busy, wineff rtl.NodeID, subSel func(int) rtl.NodeID, fresh rtl.NodeID, in []lane) ([]lane, error) {
	g := c.g
	w := c.o.typ.Rep.Bits()

	fb := make([]lane, len(in))
	bodyIn := make([]lane, len(in))
	for j := range in {
		fb[j] = lane{re: g.Reg(w)}
		if c.o.typ.Complex {
			fb[j].im = g.Reg(w)
		}
		bodyIn[j] = c.o.mux(fresh, fb[j], in[j])
	}

	sub := newController(g, busy, 0)
	bodyOut, lat, err := c.compileNode(lp.Bodies, k, sub, 0, subSel, bodyIn)
	if err != nil {
		return nil, err
	}
	if lat != 0 {
		return nil, confErrf("fully parallel loop body has latency %d, want 0", lat)
	}
	for j := range fb {
		g.SetRegIn(fb[j].re, bodyOut[j].re)
		if c.o.typ.Complex {
			g.SetRegIn(fb[j].im, bodyOut[j].im)
		}
	}
	return fb, nil
}

// loopStreamed handles the streamed case. The body must enter through a
// bit-linear permutation with a real memory stage: its window of latency is
// what separates consecutive iterations, and its read and write sides are the
// two ends of the feedback loop. Everything after the permutation must be
// combinational.
func (c *compiler) loopStreamed(lp spl.ItProduct, k int, ctrl *controller, off int, span, wreg, wineff, wrapInc rtl.NodeID, subSel func(int) rtl.NodeID, fresh rtl.NodeID, in []lane) ([]lane, error) {
	g := c.g
	t := lp.N() - k
	T := 1 << t

	winStart := g.And(span, eqConst(g, ctrl.counterAt(off), 0))
	sub := newController(g, winStart, t)
	g.SetRegIn(wreg, g.Mux(eqConst(g, sub.counterAt(0), uint64(T-1)), wineff, wrapInc))

	perms, rest, err := splitLoopBodies(lp.Bodies)
	if err != nil {
		return nil, err
	}
	pcx, err := c.newPermCtx(perms, k, sub, 0, subSel)
	if err != nil {
		return nil, err
	}
	if pcx.trivial {
		return nil, confErrf("loop body permutation has no memory stage to pace the iterations")
	}
	st := pcx.reader()

	cur := st.out
	acc := 0
	for pos := len(rest[0]) - 1; pos >= 0; pos-- {
		fvs := make([]spl.Term, len(rest))
		for i := range rest {
			fvs[i] = rest[i][pos]
		}
		var lat int
		cur, lat, err = c.compileNode(fvs, k, sub, T+acc, subSel, cur)
		if err != nil {
			return nil, err
		}
		acc += lat
	}
	if acc != 0 {
		return nil, confErrf("loop body latency exceeds the iteration window by %d cycles", acc)
	}

	bodyIn := make([]lane, len(in))
	for j := range in {
		bodyIn[j] = c.o.mux(fresh, cur[j], in[j])
	}
	st.commit(bodyIn)
	return cur, nil
}

// splitLoopBodies peels the rightmost factor of every iteration body, which
// must be the bit-linear permutation pacing the loop, and returns the
// remaining factors in product order.
func splitLoopBodies(bodies []spl.Term) ([]spl.LinearPerm, [][]spl.Term, error) {
	perms := make([]spl.LinearPerm, len(bodies))
	rest := make([][]spl.Term, len(bodies))
	for i, b := range bodies {
		switch b := b.(type) {
		case spl.LinearPerm:
			perms[i] = b
		case spl.Product:
			last := b.Factors[len(b.Factors)-1]
			p, ok := last.(spl.LinearPerm)
			if !ok {
				return nil, nil, confErrf("loop body must enter through a bit-linear permutation, have %T", last)
			}
			perms[i] = p
			rest[i] = b.Factors[:len(b.Factors)-1]
		default:
			return nil, nil, confErrf("loop body must enter through a bit-linear permutation, have %T", b)
		}
	}
	return perms, rest, nil
}
