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

package spl

import (
	"fmt"
	"math/bits"
	"math/rand"
	"testing"
)

// naiveDFT is the quadratic-time reference the factorizations are checked
// against.
func naiveDFT(in []complex128) []complex128 {
	n := bits.Len(uint(len(in))) - 1
	out := make([]complex128, len(in))
	for k := range out {
		var acc complex128
		for j, x := range in {
			acc += Omega(n, k*j) * x
		}
		out[k] = acc
	}
	return out
}

func naiveWHT(in []complex128) []complex128 {
	out := make([]complex128, len(in))
	for k := range out {
		var acc complex128
		for j, x := range in {
			if bits.OnesCount(uint(k&j))%2 == 0 {
				acc += x
			} else {
				acc -= x
			}
		}
		out[k] = acc
	}
	return out
}

func TestWHTMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			term, err := WHT(n)
			if err != nil {
				t.Fatal(err)
			}
			if term.N() != n {
				t.Fatalf("N = %d, want %d", term.N(), n)
			}
			in := randomInput(r, n)
			approxEqual(t, mustEval(t, term, in, 0), naiveWHT(in))
		})
	}
}

func TestDFTMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	tests := []struct{ n, radix int }{
		{1, 2}, {2, 2}, {3, 2}, {4, 2}, {5, 2}, {6, 2},
		{3, 4}, {4, 4}, {5, 4}, {6, 4},
		{5, 8}, {7, 8},
		{6, 16},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/r=%d", tt.n, tt.radix), func(t *testing.T) {
			term, err := DFT(tt.n, tt.radix)
			if err != nil {
				t.Fatal(err)
			}
			in := randomInput(r, tt.n)
			approxEqual(t, mustEval(t, term, in, 0), naiveDFT(in))
		})
	}
}

func TestDFTImpulse(t *testing.T) {
	// An impulse at index zero transforms to the all-ones spectrum.
	term, err := DFT(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	in := make([]complex128, 16)
	in[0] = 1
	want := make([]complex128, 16)
	for i := range want {
		want[i] = 1
	}
	approxEqual(t, mustEval(t, term, in, 0), want)
}

func TestPeaseMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	tests := []struct{ n, radix int }{
		{2, 2}, {3, 2}, {4, 2}, {5, 2},
		{4, 4}, {6, 4},
		{6, 8},
		{4, 16},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/r=%d", tt.n, tt.radix), func(t *testing.T) {
			term, err := Pease(tt.n, tt.radix)
			if err != nil {
				t.Fatal(err)
			}
			in := randomInput(r, tt.n)
			approxEqual(t, mustEval(t, term, in, 0), naiveDFT(in))
		})
	}
}

func TestItPeaseMatchesPease(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	for _, tt := range []struct{ n, radix int }{{3, 2}, {4, 2}, {4, 4}} {
		t.Run(fmt.Sprintf("n=%d/r=%d", tt.n, tt.radix), func(t *testing.T) {
			folded, err := ItPease(tt.n, tt.radix)
			if err != nil {
				t.Fatal(err)
			}
			in := randomInput(r, tt.n)
			approxEqual(t, mustEval(t, folded, in, 0), naiveDFT(in))

			// The folded form carries an iterative product whose bodies
			// share one shape.
			prod, ok := folded.(Product)
			if !ok {
				t.Fatalf("ItPease returned %T, want Product", folded)
			}
			var loop *ItProduct
			for _, f := range prod.Factors {
				if l, ok := f.(ItProduct); ok {
					loop = &l
				}
			}
			if loop == nil {
				t.Fatal("no iterative product in folded form")
			}
			if want := tt.n / logRadixOrDie(t, tt.radix); len(loop.Bodies) != want {
				t.Errorf("loop has %d bodies, want %d", len(loop.Bodies), want)
			}
		})
	}
}

func TestItPeaseNotRepeatable(t *testing.T) {
	term, err := ItPease(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if Repeatable(term) {
		t.Error("folded Pease term reported repeatable")
	}
}

func TestTransformArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (Term, error)
	}{
		{"wht-zero", func() (Term, error) { return WHT(0) }},
		{"dft-radix", func() (Term, error) { return DFT(4, 3) }},
		{"dft-zero", func() (Term, error) { return DFT(0, 2) }},
		{"pease-radix", func() (Term, error) { return Pease(4, 5) }},
		{"pease-divides", func() (Term, error) { return Pease(5, 4) }},
		{"itpease-divides", func() (Term, error) { return ItPease(3, 4) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Error("invalid arguments accepted")
			}
		})
	}
}

func logRadixOrDie(t *testing.T, radix int) int {
	t.Helper()
	s, ok := logRadix(radix)
	if !ok {
		t.Fatalf("bad radix %d", radix)
	}
	return s
}
