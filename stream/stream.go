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

// Package stream compiles an spl term into a streaming datapath. A dataset of
// 2^n samples enters over 2^k parallel lanes during 2^(n-k) consecutive
// cycles, lane bits low and cycle bits high in the sample index, and the
// transformed dataset leaves the same way after a fixed latency.
//
// Each structural construct maps onto one hardware idiom: identity tensor
// factors replicate or fold the datapath, bit-linear permutations become
// crossbars around per-lane memories, diagonals become coefficient ROMs, and
// iterative products close a feedback loop over one physical stage.
package stream

import (
	"fmt"

	"github.com/go-streamgen/streamgen/num"
	"github.com/go-streamgen/streamgen/rtl"
	"github.com/go-streamgen/streamgen/spl"
)

// Control selects the memory discipline of the datapath.
type Control int

const (
	// ControlSingle double-buffers every memory stage so datasets can
	// follow each other at the streaming period.
	ControlSingle Control = iota
	// ControlDual uses the same double-buffered memories but additionally
	// permits feedback loops, which interleave writes of one iteration
	// with reads of the previous one.
	ControlDual
	// ControlSinglePorted halves the memory but allows only one access per
	// cycle, so consecutive datasets must be spaced two periods apart.
	ControlSinglePorted
)

func (c Control) String() string {
	switch c {
	case ControlSingle:
		return "single"
	case ControlDual:
		return "dual"
	case ControlSinglePorted:
		return "single-ported"
	}
	return fmt.Sprintf("Control(%d)", int(c))
}

// ParseControl reads the CLI spelling of a control discipline.
func ParseControl(s string) (Control, error) {
	switch s {
	case "single":
		return ControlSingle, nil
	case "dual":
		return ControlDual, nil
	case "single-ported":
		return ControlSinglePorted, nil
	}
	return 0, domainErrf("unknown control discipline %q", s)
}

// ConfigurationError reports a term and streaming configuration that cannot
// be realized together, such as a feedback loop without dual-ported control.
// The term itself is well-formed; a different width or control discipline may
// succeed.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "stream: " + e.Msg }

func confErrf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// DomainError reports arguments outside the compiler's domain, such as a
// streaming width wider than the dataset.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return "stream: " + e.Msg }

func domainErrf(format string, args ...any) *DomainError {
	return &DomainError{Msg: fmt.Sprintf(format, args...)}
}

// Port is the pair of wires carrying one lane. Im is rtl.Nil for real data
// types.
type Port struct {
	Re, Im rtl.NodeID
}

// Module is a compiled streaming datapath.
//
// The dataset protocol: pulse Next high for one cycle and present the first
// 2^K samples on the input ports that same cycle, then the remaining samples
// over the following Period-1 cycles. NextOut pulses when the first output
// cycle of the corresponding dataset is on the output ports. Dataset starts
// must be at least MinGap cycles apart.
type Module struct {
	Graph   *rtl.Graph
	Term    spl.Term
	Type    num.Type
	Control Control

	N, K    int // 2^N samples per dataset, 2^K lanes
	Latency int // cycles from Next to NextOut
	Period  int // cycles per dataset on the ports, 2^(N-K)
	MinGap  int // minimum cycles between dataset starts

	In, Out []Port
	Next    rtl.NodeID
	NextOut rtl.NodeID
}

// Compile builds the streaming datapath for term with 2^k lanes of the given
// data type. The term is compiled structurally: no reassociation or
// refactoring happens here, so the streaming cost is exactly what the term's
// shape dictates.
func Compile(term spl.Term, k int, typ num.Type, ctl Control) (*Module, error) {
	n := term.N()
	if k < 0 || k > n {
		return nil, domainErrf("streaming width 2^%d out of range for 2^%d samples", k, n)
	}
	if hasLoop(term) && ctl != ControlDual {
		return nil, confErrf("iterative reuse requires dual-ported control, have %v", ctl)
	}
	if needsComplex(term) && !typ.Complex {
		return nil, confErrf("term produces complex values on real data type %v", typ)
	}

	g := rtl.NewGraph()
	o := ops{g: g, typ: typ}
	lanes := 1 << k
	next := g.Input("next", 1)

	in := make([]Port, lanes)
	data := make([]lane, lanes)
	w := typ.Rep.Bits()
	for j := range lanes {
		in[j].Re = g.Input(fmt.Sprintf("x%d_re", j), w)
		data[j].re = in[j].Re
		if typ.Complex {
			in[j].Im = g.Input(fmt.Sprintf("x%d_im", j), w)
			data[j].im = in[j].Im
		}
	}

	c := &compiler{g: g, o: o, ctl: ctl}
	ctrl := newController(g, next, n-k)
	out, lat, err := c.compileNode([]spl.Term{term}, k, ctrl, 0, nil, data)
	if err != nil {
		return nil, err
	}

	outPorts := make([]Port, lanes)
	for j := range lanes {
		outPorts[j].Re = g.Output(fmt.Sprintf("y%d_re", j), out[j].re)
		if typ.Complex {
			outPorts[j].Im = g.Output(fmt.Sprintf("y%d_im", j), out[j].im)
		}
	}
	nextOut := g.Output("next_out", g.Delay(next, lat))
	g.Freeze()

	period := 1 << (n - k)
	return &Module{
		Graph:   g,
		Term:    term,
		Type:    typ,
		Control: ctl,
		N:       n,
		K:       k,
		Latency: lat,
		Period:  period,
		MinGap:  max(period, c.minGap),
		In:      in,
		Out:     outPorts,
		Next:    next,
		NextOut: nextOut,
	}, nil
}

// hasLoop reports whether the term contains an iterative product anywhere.
func hasLoop(t spl.Term) bool {
	switch t := t.(type) {
	case spl.ItProduct:
		return true
	case spl.Product:
		for _, f := range t.Factors {
			if hasLoop(f) {
				return true
			}
		}
	case spl.ITensor:
		return hasLoop(t.Factor)
	}
	return false
}

// needsComplex reports whether evaluating the term can leave the real line:
// butterflies of size four and up use imaginary roots of unity, and so do
// non-real diagonal entries.
func needsComplex(t spl.Term) bool {
	switch t := t.(type) {
	case spl.Butterfly:
		return t.LogSize >= 2
	case spl.Diag:
		for _, v := range t.Values {
			if imag(v) != 0 {
				return true
			}
		}
	case spl.Product:
		for _, f := range t.Factors {
			if needsComplex(f) {
				return true
			}
		}
	case spl.ITensor:
		return needsComplex(t.Factor)
	case spl.ItProduct:
		for _, b := range t.Bodies {
			if needsComplex(b) {
				return true
			}
		}
		if t.End != nil {
			return needsComplex(t.End)
		}
	}
	return false
}
