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
)

// lane is one sample path through the datapath: a single wire for real data,
// a wire pair for complex data.
type lane struct {
	re, im rtl.NodeID
}

// ops builds lane arithmetic for one data type. Methods that rotate into the
// imaginary axis panic on real types; Compile rejects terms needing them up
// front, so reaching such a panic is a compiler bug, not a user error.
type ops struct {
	g   *rtl.Graph
	typ num.Type
}

func (o ops) constLane(v complex128) lane {
	w := o.typ.Rep.Bits()
	l := lane{re: o.g.Const(w, o.typ.Rep.BitsOf(real(v)))}
	if o.typ.Complex {
		l.im = o.g.Const(w, o.typ.Rep.BitsOf(imag(v)))
	}
	return l
}

func (o ops) add(a, b lane) lane {
	l := lane{re: o.g.Add(a.re, b.re, o.typ.Rep)}
	if o.typ.Complex {
		l.im = o.g.Add(a.im, b.im, o.typ.Rep)
	}
	return l
}

func (o ops) sub(a, b lane) lane {
	l := lane{re: o.g.Sub(a.re, b.re, o.typ.Rep)}
	if o.typ.Complex {
		l.im = o.g.Sub(a.im, b.im, o.typ.Rep)
	}
	return l
}

func (o ops) neg(a lane) lane { return o.sub(o.constLane(0), a) }

func (o ops) negWire(x rtl.NodeID) rtl.NodeID {
	w := o.typ.Rep.Bits()
	return o.g.Sub(o.g.Const(w, o.typ.Rep.BitsOf(0)), x, o.typ.Rep)
}

func (o ops) delay(a lane, cycles int) lane {
	l := lane{re: o.g.Delay(a.re, cycles)}
	if o.typ.Complex {
		l.im = o.g.Delay(a.im, cycles)
	}
	return l
}

// mux selects among lanes; the input count must be 2^(select width).
func (o ops) mux(sel rtl.NodeID, ins ...lane) lane {
	res := make([]rtl.NodeID, len(ins))
	for i, in := range ins {
		res[i] = in.re
	}
	l := lane{re: o.g.Mux(sel, res...)}
	if o.typ.Complex {
		for i, in := range ins {
			res[i] = in.im
		}
		l.im = o.g.Mux(sel, res...)
	}
	return l
}

// mulConst multiplies a lane by a compile-time coefficient. Roots of unity on
// the axes reduce to wire swaps and negations; real and purely imaginary
// coefficients need two multipliers instead of four. The axis cases rely on
// spl.Omega producing exact values there.
func (o ops) mulConst(a lane, v complex128) lane {
	switch {
	case v == 1:
		return a
	case v == -1:
		return o.neg(a)
	case v == -1i:
		o.requireComplex()
		return lane{re: a.im, im: o.negWire(a.re)}
	case v == 1i:
		o.requireComplex()
		return lane{re: o.negWire(a.im), im: a.re}
	case imag(v) == 0:
		c := o.constLane(complex(real(v), 0))
		l := lane{re: o.g.Mul(a.re, c.re, o.typ.Rep)}
		if o.typ.Complex {
			l.im = o.g.Mul(a.im, c.re, o.typ.Rep)
		}
		return l
	case real(v) == 0:
		o.requireComplex()
		w := o.typ.Rep.Bits()
		b := o.g.Const(w, o.typ.Rep.BitsOf(imag(v)))
		nb := o.g.Const(w, o.typ.Rep.BitsOf(-imag(v)))
		return lane{
			re: o.g.Mul(a.im, nb, o.typ.Rep),
			im: o.g.Mul(a.re, b, o.typ.Rep),
		}
	default:
		o.requireComplex()
		w := o.typ.Rep.Bits()
		cr := o.g.Const(w, o.typ.Rep.BitsOf(real(v)))
		ci := o.g.Const(w, o.typ.Rep.BitsOf(imag(v)))
		return o.cmul(a, cr, ci)
	}
}

// mulRomReal multiplies a lane by a real coefficient read from a ROM.
func (o ops) mulRomReal(a lane, rom rtl.NodeID) lane {
	l := lane{re: o.g.Mul(a.re, rom, o.typ.Rep)}
	if o.typ.Complex {
		l.im = o.g.Mul(a.im, rom, o.typ.Rep)
	}
	return l
}

// cmul is the full complex multiply of a lane by the coefficient (cr, ci).
func (o ops) cmul(a lane, cr, ci rtl.NodeID) lane {
	o.requireComplex()
	rep := o.typ.Rep
	return lane{
		re: o.g.Sub(o.g.Mul(a.re, cr, rep), o.g.Mul(a.im, ci, rep), rep),
		im: o.g.Add(o.g.Mul(a.re, ci, rep), o.g.Mul(a.im, cr, rep), rep),
	}
}

func (o ops) requireComplex() {
	if !o.typ.Complex {
		panic("stream: complex arithmetic reached on a real data type")
	}
}
