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

// Package vlog renders compiled datapath graphs as synthesizable
// Verilog-2001 and generates self-checking testbenches for them.
//
// The emission is structural: every graph node becomes one net named after
// its node id, registers become clocked always blocks with a zero initial
// value, and memories become inferred block RAMs with an asynchronous read
// port. Floating-point add, subtract and multiply have no synthesizable
// inline form and are instantiated as blackbox operator cores (fadd32,
// fmul64, ...) that the surrounding project must provide with combinational
// timing; fixed-point and unsigned arithmetic lowers to plain operators.
package vlog

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/go-streamgen/streamgen/num"
	"github.com/go-streamgen/streamgen/rtl"
)

// WriteModule writes the graph as one Verilog module. Ports are the graph's
// named inputs and outputs plus a leading clk; clk is emitted even for purely
// combinational graphs so every generated module has the same interface.
func WriteModule(w io.Writer, g *rtl.Graph, name string) error {
	var b strings.Builder
	b.WriteString("// Code generated by streamgen. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "module %s (\n", name)

	ports := []string{"  input wire clk"}
	ports = append(ports, lo.Map(g.Inputs(), func(id rtl.NodeID, _ int) string {
		return fmt.Sprintf("  input wire %s%s", rangeDecl(g.Width(id)), g.Name(id))
	})...)
	ports = append(ports, lo.Map(g.Outputs(), func(id rtl.NodeID, _ int) string {
		return fmt.Sprintf("  output wire %s%s", rangeDecl(g.Width(id)), g.Name(id))
	})...)
	b.WriteString(strings.Join(ports, ",\n"))
	b.WriteString("\n);\n\n")

	for id := 0; id < g.NumNodes(); id++ {
		if err := writeDecl(&b, g, rtl.NodeID(id)); err != nil {
			return err
		}
	}
	b.WriteString("\n")
	for id := 0; id < g.NumNodes(); id++ {
		if err := writeLogic(&b, g, rtl.NodeID(id)); err != nil {
			return err
		}
	}

	b.WriteString("endmodule\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func rangeDecl(w int) string {
	if w == 1 {
		return ""
	}
	return fmt.Sprintf("[%d:0] ", w-1)
}

func net(id rtl.NodeID) string { return fmt.Sprintf("n%d", id) }

func isFloat(rep num.Rep) bool {
	switch rep.(type) {
	case num.Float32, num.Float64:
		return true
	}
	return false
}

func floatOp(k rtl.Kind, w int) string {
	op := map[rtl.Kind]string{rtl.KindAdd: "fadd", rtl.KindSub: "fsub", rtl.KindMul: "fmul"}[k]
	return fmt.Sprintf("%s%d", op, w)
}

// writeDecl declares the net driven by one node. Output nodes drive a module
// port directly and declare nothing.
func writeDecl(b *strings.Builder, g *rtl.Graph, id rtl.NodeID) error {
	w := g.Width(id)
	switch k := g.Kind(id); k {
	case rtl.KindOutput:
	case rtl.KindReg:
		fmt.Fprintf(b, "  reg %s%s = 0;\n", rangeDecl(w), net(id))
	case rtl.KindRAM:
		fmt.Fprintf(b, "  reg %smem%d [0:%d];\n", rangeDecl(w), id, (1<<g.AddrBits(id))-1)
		fmt.Fprintf(b, "  wire %s%s;\n", rangeDecl(w), net(id))
	case rtl.KindMux:
		if len(g.Args(id)) > 3 {
			fmt.Fprintf(b, "  reg %s%s;\n", rangeDecl(w), net(id))
		} else {
			fmt.Fprintf(b, "  wire %s%s;\n", rangeDecl(w), net(id))
		}
	case rtl.KindMul:
		if f, ok := g.Rep(id).(num.Fixed); ok {
			fmt.Fprintf(b, "  wire signed [%d:0] p%d;\n", 2*f.W-1, id)
		}
		fmt.Fprintf(b, "  wire %s%s;\n", rangeDecl(w), net(id))
	default:
		fmt.Fprintf(b, "  wire %s%s;\n", rangeDecl(w), net(id))
	}
	return nil
}

func writeLogic(b *strings.Builder, g *rtl.Graph, id rtl.NodeID) error {
	args := g.Args(id)
	w := g.Width(id)
	switch k := g.Kind(id); k {
	case rtl.KindInput:
		fmt.Fprintf(b, "  assign %s = %s;\n", net(id), g.Name(id))

	case rtl.KindOutput:
		fmt.Fprintf(b, "  assign %s = %s;\n", g.Name(id), net(args[0]))

	case rtl.KindConst:
		fmt.Fprintf(b, "  assign %s = %d'h%x;\n", net(id), w, g.ConstVal(id))

	case rtl.KindAnd, rtl.KindOr, rtl.KindXor:
		op := map[rtl.Kind]string{rtl.KindAnd: "&", rtl.KindOr: "|", rtl.KindXor: "^"}[k]
		fmt.Fprintf(b, "  assign %s = %s %s %s;\n", net(id), net(args[0]), op, net(args[1]))

	case rtl.KindNot:
		fmt.Fprintf(b, "  assign %s = ~%s;\n", net(id), net(args[0]))

	case rtl.KindAdd, rtl.KindSub:
		if isFloat(g.Rep(id)) {
			fmt.Fprintf(b, "  %s u%d (.a(%s), .b(%s), .y(%s));\n",
				floatOp(k, w), id, net(args[0]), net(args[1]), net(id))
			break
		}
		op := "+"
		if k == rtl.KindSub {
			op = "-"
		}
		fmt.Fprintf(b, "  assign %s = %s %s %s;\n", net(id), net(args[0]), op, net(args[1]))

	case rtl.KindMul:
		switch rep := g.Rep(id).(type) {
		case num.Fixed:
			fmt.Fprintf(b, "  assign p%d = $signed(%s) * $signed(%s);\n", id, net(args[0]), net(args[1]))
			fmt.Fprintf(b, "  assign %s = p%d[%d:%d];\n", net(id), id, rep.W+rep.Frac-1, rep.Frac)
		case num.Unsigned:
			fmt.Fprintf(b, "  assign %s = %s * %s;\n", net(id), net(args[0]), net(args[1]))
		default:
			fmt.Fprintf(b, "  %s u%d (.a(%s), .b(%s), .y(%s));\n",
				floatOp(k, w), id, net(args[0]), net(args[1]), net(id))
		}

	case rtl.KindMux:
		sel, ins := args[0], args[1:]
		if len(ins) == 2 {
			fmt.Fprintf(b, "  assign %s = %s ? %s : %s;\n", net(id), net(sel), net(ins[1]), net(ins[0]))
			break
		}
		selW := g.Width(sel)
		fmt.Fprintf(b, "  always @* begin\n    case (%s)\n", net(sel))
		for i, in := range ins[:len(ins)-1] {
			fmt.Fprintf(b, "      %d'd%d: %s = %s;\n", selW, i, net(id), net(in))
		}
		fmt.Fprintf(b, "      default: %s = %s;\n", net(id), net(ins[len(ins)-1]))
		b.WriteString("    endcase\n  end\n")

	case rtl.KindConcat:
		// Verilog concatenation is most-significant first.
		parts := lo.Map(args, func(a rtl.NodeID, _ int) string { return net(a) })
		fmt.Fprintf(b, "  assign %s = {%s};\n", net(id), strings.Join(lo.Reverse(parts), ", "))

	case rtl.KindSlice:
		low := g.SliceLow(id)
		if w == 1 {
			fmt.Fprintf(b, "  assign %s = %s[%d];\n", net(id), net(args[0]), low)
		} else {
			fmt.Fprintf(b, "  assign %s = %s[%d:%d];\n", net(id), net(args[0]), low+w-1, low)
		}

	case rtl.KindReg:
		if args[0] == rtl.Nil {
			return fmt.Errorf("vlog: register %d has an unbound input", id)
		}
		fmt.Fprintf(b, "  always @(posedge clk) %s <= %s;\n", net(id), net(args[0]))

	case rtl.KindRAM:
		if args[0] == rtl.Nil {
			return fmt.Errorf("vlog: memory %d has an unbound write port", id)
		}
		fmt.Fprintf(b, "  assign %s = mem%d[%s];\n", net(id), id, net(args[3]))
		fmt.Fprintf(b, "  always @(posedge clk) if (%s) mem%d[%s] <= %s;\n",
			net(args[2]), id, net(args[0]), net(args[1]))

	case rtl.KindExtIP:
		conns := lo.Map(args, func(a rtl.NodeID, i int) string {
			return fmt.Sprintf(".x%d(%s)", i, net(a))
		})
		fmt.Fprintf(b, "  %s u%d (.clk(clk), %s, .y(%s));\n",
			g.Name(id), id, strings.Join(conns, ", "), net(id))

	default:
		return fmt.Errorf("vlog: unhandled node kind %v", k)
	}
	return nil
}
