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

// streamgen compiles linear signal transforms into streaming Verilog
// datapaths.
//
//	streamgen generate --transform dft --n 4 --k 2 --type complex:fixed:16.8 --out dft16.v
//	streamgen batch --transform wht --n 6 --widths 1,2,3 --out wht64.zip
//	streamgen info --transform itpease --n 4 --k 2 --control dual
package main

import (
	"fmt"
	"io"
	"math/cmplx"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-streamgen/streamgen/rtl"
	"github.com/go-streamgen/streamgen/stream"
	"github.com/go-streamgen/streamgen/vlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "streamgen:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}
	root := &cobra.Command{
		Use:           "streamgen",
		Short:         "compile linear signal transforms into streaming Verilog datapaths",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfg.transform, "transform", "wht", "transform: wht, dft, pease or itpease")
	pf.IntVar(&cfg.n, "n", 3, "log2 of the transform size")
	pf.IntVar(&cfg.radix, "radix", 2, "transform radix: 2, 4, 8 or 16")
	pf.IntVar(&cfg.k, "k", 1, "log2 of the streaming width in lanes")
	pf.StringVar(&cfg.typeSpec, "type", "complex:fixed:16.8", "data type, like fixed:16.8, complex:float64 or unsigned:8")
	pf.StringVar(&cfg.control, "control", "single", "memory discipline: single, dual or single-ported")
	pf.StringVar(&cfg.name, "name", "", "Verilog module name (default derived from the transform)")

	root.AddCommand(newGenerateCmd(cfg), newBatchCmd(cfg), newInfoCmd(cfg))
	return root
}

func newGenerateCmd(cfg *config) *cobra.Command {
	var (
		out       string
		bench     string
		dot       string
		verify    bool
		datasets  int
		seed      int64
		gap       int
		tolerance float64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "compile one configuration and write its Verilog module",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cfg.compile()
			if err != nil {
				return err
			}
			name := cfg.moduleName()
			if verify {
				if err := verifyModule(m, datasets, seed, gap, tolerance); err != nil {
					return err
				}
			}
			if err := writeTo(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return vlog.WriteModule(w, m.Graph, name)
			}); err != nil {
				return err
			}
			if bench != "" {
				ds := benchDatasets(m, datasets, seed)
				if err := writeFile(bench, func(w io.Writer) error {
					return vlog.WriteTestbench(w, m, name, ds, gap)
				}); err != nil {
					return err
				}
			}
			if dot != "" {
				if err := writeFile(dot, func(w io.Writer) error {
					return rtl.WriteDOT(w, m.Graph, name)
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "-", "output path for the Verilog module, - for stdout")
	f.StringVar(&bench, "testbench", "", "also write a self-checking testbench to this path")
	f.StringVar(&dot, "dot", "", "also write the datapath graph in DOT form to this path")
	f.BoolVar(&verify, "verify", false, "simulate the datapath against the transform definition first")
	f.IntVar(&datasets, "datasets", 3, "number of stimulus datasets for --verify and --testbench")
	f.Int64Var(&seed, "seed", 1, "stimulus seed")
	f.IntVar(&gap, "gap", 0, "cycles between dataset starts, clamped at the module minimum")
	f.Float64Var(&tolerance, "tolerance", 1e-3, "maximum per-sample error allowed by --verify")
	return cmd
}

func newInfoCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "print the streaming schedule of one configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cfg.compile()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s  2^%d points over 2^%d lanes, %s, %s control\n",
				cfg.title(), m.N, m.K, m.Type, m.Control)
			fmt.Fprintf(w, "  latency: %d cycles\n", m.Latency)
			fmt.Fprintf(w, "  period:  %d cycles\n", m.Period)
			fmt.Fprintf(w, "  min gap: %d cycles\n", m.MinGap)
			fmt.Fprintf(w, "  nodes:   %d\n", m.Graph.NumNodes())
			return nil
		},
	}
}

// verifyModule streams random datasets through the simulator and compares
// them against the transform's definition.
func verifyModule(m *stream.Module, datasets int, seed int64, gap int, tol float64) error {
	ds := benchDatasets(m, datasets, seed)
	got, err := stream.Run(m, ds, gap)
	if err != nil {
		return err
	}
	for d, in := range ds {
		want, err := m.Term.Eval(in, d)
		if err != nil {
			return err
		}
		for i := range want {
			if cmplx.Abs(got[d][i]-want[i]) > tol {
				return fmt.Errorf("verify: dataset %d sample %d: datapath %v, definition %v",
					d, i, got[d][i], want[i])
			}
		}
	}
	return nil
}

func writeTo(stdout io.Writer, path string, emit func(io.Writer) error) error {
	if path == "-" {
		return emit(stdout)
	}
	return writeFile(path, emit)
}

func writeFile(path string, emit func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := emit(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
