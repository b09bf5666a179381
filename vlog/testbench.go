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

package vlog

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-streamgen/streamgen/stream"
)

// WriteTestbench writes a self-checking testbench for a compiled module. The
// datasets are streamed gap cycles apart (clamped at the module's minimum
// gap), the expected outputs come from the cycle-accurate simulation, and the
// bench compares next_out and every data output on each cycle, printing PASS
// when everything matched.
//
// The comparison is bit-exact, so for floating-point types it only holds
// when the blackbox operator cores round exactly like the host.
func WriteTestbench(w io.Writer, m *stream.Module, dutName string, datasets [][]complex128, gap int) error {
	gap = max(gap, m.MinGap)
	want, err := stream.Run(m, datasets, gap)
	if err != nil {
		return err
	}

	rep := m.Type.Rep
	wd := rep.Bits()
	nd := len(datasets)
	total := (nd-1)*gap + m.Latency + m.Period

	// Per-port stimulus and expectation vectors, one entry per cycle.
	var dataIn, dataOut []string
	stim := map[string][]uint64{}
	wantV := map[string][]uint64{}
	for j := range m.In {
		dataIn = append(dataIn, fmt.Sprintf("x%d_re", j))
		if m.Type.Complex {
			dataIn = append(dataIn, fmt.Sprintf("x%d_im", j))
		}
	}
	for j := range m.Out {
		dataOut = append(dataOut, fmt.Sprintf("y%d_re", j))
		if m.Type.Complex {
			dataOut = append(dataOut, fmt.Sprintf("y%d_im", j))
		}
	}
	for _, p := range dataIn {
		stim[p] = make([]uint64, total)
	}
	for _, p := range dataOut {
		wantV[p] = make([]uint64, total)
	}
	stimNext := make([]uint64, total)
	wantNext := make([]uint64, total)
	wantValid := make([]uint64, total)

	for cyc := 0; cyc < total; cyc++ {
		if d := cyc / gap; d < nd && cyc-d*gap < m.Period {
			phase := cyc - d*gap
			if phase == 0 {
				stimNext[cyc] = 1
			}
			for j := range m.In {
				v := datasets[d][phase<<m.K|j]
				stim[fmt.Sprintf("x%d_re", j)][cyc] = rep.BitsOf(real(v))
				if m.Type.Complex {
					stim[fmt.Sprintf("x%d_im", j)][cyc] = rep.BitsOf(imag(v))
				}
			}
		}
	}
	for d := 0; d < nd; d++ {
		for phase := 0; phase < m.Period; phase++ {
			cyc := d*gap + m.Latency + phase
			wantValid[cyc] = 1
			if phase == 0 {
				wantNext[cyc] = 1
			}
			for j := range m.Out {
				v := want[d][phase<<m.K|j]
				wantV[fmt.Sprintf("y%d_re", j)][cyc] = rep.BitsOf(real(v))
				if m.Type.Complex {
					wantV[fmt.Sprintf("y%d_im", j)][cyc] = rep.BitsOf(imag(v))
				}
			}
		}
	}

	var b strings.Builder
	b.WriteString("// Code generated by streamgen. DO NOT EDIT.\n")
	b.WriteString("`timescale 1ns / 1ps\n")
	fmt.Fprintf(&b, "module %s_tb;\n", dutName)
	b.WriteString("  reg clk;\n  reg next;\n")
	for _, p := range dataIn {
		fmt.Fprintf(&b, "  reg %s%s;\n", rangeDecl(wd), p)
	}
	for _, p := range dataOut {
		fmt.Fprintf(&b, "  wire %s%s;\n", rangeDecl(wd), p)
	}
	b.WriteString("  wire next_out;\n\n")

	conns := []string{".clk(clk)", ".next(next)"}
	for _, p := range append(append([]string{}, dataIn...), dataOut...) {
		conns = append(conns, fmt.Sprintf(".%s(%s)", p, p))
	}
	conns = append(conns, ".next_out(next_out)")
	fmt.Fprintf(&b, "  %s dut (%s);\n\n", dutName, strings.Join(conns, ", "))

	fmt.Fprintf(&b, "  reg stim_next [0:%d];\n", total-1)
	for _, p := range dataIn {
		fmt.Fprintf(&b, "  reg %sstim_%s [0:%d];\n", rangeDecl(wd), p, total-1)
	}
	fmt.Fprintf(&b, "  reg want_valid [0:%d];\n", total-1)
	fmt.Fprintf(&b, "  reg want_next [0:%d];\n", total-1)
	for _, p := range dataOut {
		fmt.Fprintf(&b, "  reg %swant_%s [0:%d];\n", rangeDecl(wd), p, total-1)
	}
	b.WriteString("\n  integer i;\n  integer errors;\n\n  initial begin\n")

	fmt.Fprintf(&b, "    for (i = 0; i < %d; i = i + 1) begin\n", total)
	b.WriteString("      stim_next[i] = 1'b0;\n")
	for _, p := range dataIn {
		fmt.Fprintf(&b, "      stim_%s[i] = 0;\n", p)
	}
	b.WriteString("      want_valid[i] = 1'b0;\n      want_next[i] = 1'b0;\n")
	for _, p := range dataOut {
		fmt.Fprintf(&b, "      want_%s[i] = 0;\n", p)
	}
	b.WriteString("    end\n")

	writeVec := func(name string, w int, v []uint64) {
		for cyc, x := range v {
			if x != 0 {
				fmt.Fprintf(&b, "    %s[%d] = %d'h%x;\n", name, cyc, w, x)
			}
		}
	}
	writeVec("stim_next", 1, stimNext)
	for _, p := range dataIn {
		writeVec("stim_"+p, wd, stim[p])
	}
	writeVec("want_valid", 1, wantValid)
	writeVec("want_next", 1, wantNext)
	for _, p := range dataOut {
		writeVec("want_"+p, wd, wantV[p])
	}

	b.WriteString("\n    clk = 1'b0;\n    errors = 0;\n")
	fmt.Fprintf(&b, "    for (i = 0; i < %d; i = i + 1) begin\n", total)
	b.WriteString("      next = stim_next[i];\n")
	for _, p := range dataIn {
		fmt.Fprintf(&b, "      %s = stim_%s[i];\n", p, p)
	}
	b.WriteString("      #1;\n")
	b.WriteString("      if (next_out !== want_next[i]) begin\n")
	b.WriteString("        $display(\"FAIL cycle %0d next_out: got %b, want %b\", i, next_out, want_next[i]);\n")
	b.WriteString("        errors = errors + 1;\n      end\n")
	b.WriteString("      if (want_valid[i]) begin\n")
	for _, p := range dataOut {
		fmt.Fprintf(&b, "        if (%s !== want_%s[i]) begin\n", p, p)
		fmt.Fprintf(&b, "          $display(\"FAIL cycle %%0d %s: got %%h, want %%h\", i, %s, want_%s[i]);\n", p, p, p)
		b.WriteString("          errors = errors + 1;\n        end\n")
	}
	b.WriteString("      end\n")
	b.WriteString("      #4;\n      clk = 1'b1;\n      #5;\n      clk = 1'b0;\n    end\n")
	b.WriteString("    if (errors == 0) $display(\"PASS\");\n    $finish;\n  end\nendmodule\n")

	_, err = io.WriteString(w, b.String())
	return err
}
