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

package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-streamgen/streamgen/vlog"
)

// newBatchCmd generates one module per streaming width and packs them into a
// zip archive. The widths compile independently, so they run in parallel.
func newBatchCmd(cfg *config) *cobra.Command {
	var (
		out    string
		widths []int
		bench  bool
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "compile a transform at several streaming widths into a zip archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := lo.Uniq(widths)
			slices.Sort(ws)
			if len(ws) == 0 {
				return fmt.Errorf("batch: no streaming widths given")
			}

			type rendered struct {
				name string
				data []byte
			}
			results := make([][]rendered, len(ws))
			var g errgroup.Group
			for i, k := range ws {
				g.Go(func() error {
					kcfg := *cfg
					kcfg.k = k
					kcfg.name = ""
					m, err := kcfg.compile()
					if err != nil {
						return fmt.Errorf("width 2^%d: %w", k, err)
					}
					name := kcfg.moduleName()

					var vb bytes.Buffer
					if err := vlog.WriteModule(&vb, m.Graph, name); err != nil {
						return err
					}
					rs := []rendered{{name + ".v", vb.Bytes()}}
					if bench {
						var tb bytes.Buffer
						ds := benchDatasets(m, 3, seed)
						if err := vlog.WriteTestbench(&tb, m, name, ds, 0); err != nil {
							return err
						}
						rs = append(rs, rendered{name + "_tb.v", tb.Bytes()})
					}
					results[i] = rs
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			zw := zip.NewWriter(f)
			count := 0
			for _, rs := range results {
				for _, r := range rs {
					w, err := zw.Create(r.name)
					if err != nil {
						f.Close()
						return err
					}
					if _, err := w.Write(r.data); err != nil {
						f.Close()
						return err
					}
					count++
				}
			}
			if err := zw.Close(); err != nil {
				f.Close()
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", count, out)
			return f.Close()
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "streamgen.zip", "output zip archive")
	f.IntSliceVar(&widths, "widths", []int{1, 2}, "log2 streaming widths to generate")
	f.BoolVar(&bench, "testbench", false, "include a self-checking testbench per width")
	f.Int64Var(&seed, "seed", 1, "stimulus seed for the testbenches")
	return cmd
}
