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

import "github.com/go-streamgen/streamgen/rtl"

// Run streams datasets through a compiled module in simulation and returns
// the transformed datasets in order. Dataset starts are spaced gap cycles
// apart, clamped below at the module's MinGap. Imaginary parts of the input
// are dropped on real data types.
//
// Run is the cycle-accurate half of the functional equivalence check against
// spl.Term.Eval; it is also what the command-line verifier calls.
func Run(m *Module, datasets [][]complex128, gap int) ([][]complex128, error) {
	gap = max(gap, m.MinGap)
	size := 1 << m.N
	for i, d := range datasets {
		if len(d) != size {
			return nil, domainErrf("dataset %d has %d samples, want %d", i, len(d), size)
		}
	}

	sim := rtl.NewSim(m.Graph)
	rep := m.Type.Rep
	nd := len(datasets)
	total := (nd-1)*gap + m.Latency + m.Period

	out := make([][]complex128, nd)
	for i := range out {
		out[i] = make([]complex128, size)
	}
	collected, outPhase, outRem := 0, 0, 0

	for cyc := 0; cyc < total; cyc++ {
		inputs := map[rtl.NodeID]uint64{}
		if d := cyc / gap; d < nd && cyc-d*gap < m.Period {
			phase := cyc - d*gap
			if phase == 0 {
				inputs[m.Next] = 1
			}
			for j, p := range m.In {
				v := datasets[d][phase<<m.K|j]
				inputs[p.Re] = rep.BitsOf(real(v))
				if m.Type.Complex {
					inputs[p.Im] = rep.BitsOf(imag(v))
				}
			}
		}
		if err := sim.Step(inputs); err != nil {
			return nil, err
		}

		if sim.Value(m.NextOut) == 1 {
			if collected == nd {
				return nil, domainErrf("unexpected extra output window at cycle %d", cyc)
			}
			collected++
			outPhase, outRem = 0, m.Period
		}
		if outRem > 0 {
			for j, p := range m.Out {
				re := rep.ValueOf(sim.Value(p.Re))
				im := 0.0
				if m.Type.Complex {
					im = rep.ValueOf(sim.Value(p.Im))
				}
				out[collected-1][outPhase<<m.K|j] = complex(re, im)
			}
			outPhase++
			outRem--
		}
	}
	if collected != nd {
		return nil, domainErrf("collected %d output windows, want %d", collected, nd)
	}
	return out, nil
}
