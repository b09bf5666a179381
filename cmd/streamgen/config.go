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
	"fmt"
	"math/rand"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/go-streamgen/streamgen/num"
	"github.com/go-streamgen/streamgen/spl"
	"github.com/go-streamgen/streamgen/stream"
)

// config is the flag set shared by the generate, batch and info commands.
type config struct {
	transform string
	n         int
	radix     int
	k         int
	typeSpec  string
	control   string
	name      string
}

func (c *config) term() (spl.Term, error) {
	switch c.transform {
	case "wht":
		return spl.WHT(c.n)
	case "dft":
		return spl.DFT(c.n, c.radix)
	case "pease":
		return spl.Pease(c.n, c.radix)
	case "itpease":
		return spl.ItPease(c.n, c.radix)
	}
	return nil, fmt.Errorf("unknown transform %q (want wht, dft, pease or itpease)", c.transform)
}

func (c *config) compile() (*stream.Module, error) {
	term, err := c.term()
	if err != nil {
		return nil, err
	}
	typ, err := num.Parse(c.typeSpec)
	if err != nil {
		return nil, err
	}
	ctl, err := stream.ParseControl(c.control)
	if err != nil {
		return nil, err
	}
	return stream.Compile(term, c.k, typ, ctl)
}

// moduleName is the Verilog module name: the explicit --name if given,
// otherwise transform, size and lane count, like dft16_w4.
func (c *config) moduleName() string {
	if c.name != "" {
		return c.name
	}
	return fmt.Sprintf("%s%d_w%d", c.transform, 1<<c.n, 1<<c.k)
}

// title is the human-readable transform name used in report output.
func (c *config) title() string {
	return cases.Title(language.English).String(c.transform)
}

// benchDatasets builds deterministic stimulus for the testbench. Values are
// quantized onto the data type's grid so the bit-exact comparison in the
// bench is meaningful for fixed-point types.
func benchDatasets(m *stream.Module, count int, seed int64) [][]complex128 {
	r := rand.New(rand.NewSource(seed))
	rep := m.Type.Rep
	quant := func(v float64) float64 { return rep.ValueOf(rep.BitsOf(v)) }
	ds := make([][]complex128, count)
	for d := range ds {
		v := make([]complex128, 1<<m.N)
		for i := range v {
			re := quant(r.Float64()*2 - 1)
			im := 0.0
			if m.Type.Complex {
				im = quant(r.Float64()*2 - 1)
			}
			v[i] = complex(re, im)
		}
		ds[d] = v
	}
	return ds
}
