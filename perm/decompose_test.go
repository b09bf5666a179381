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

package perm

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/go-streamgen/streamgen/field"
)

func randomInvertible(r *rand.Rand, n int) field.Mat {
	for {
		rows := make([]uint64, n)
		for i := range rows {
			rows[i] = r.Uint64() & (1<<n - 1)
		}
		m := field.FromRows(rows, n)
		if m.IsInvertible() {
			return m
		}
	}
}

func TestDecomposeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	for n := 1; n <= 8; n++ {
		for k := 0; k <= n; k++ {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				for range 20 {
					p := randomInvertible(r, n)
					d, err := Decompose(p, k)
					if err != nil {
						t.Fatalf("decompose:\n%v\n%v", p, err)
					}
					if got := d.Recompose(); !got.Equal(p) {
						t.Fatalf("recompose mismatch for\n%v\ngot\n%v", p, got)
					}
					if !d.A1.IsInvertible() || !d.B4.IsInvertible() || !d.C1.IsInvertible() {
						t.Fatal("non-invertible stage block")
					}
				}
			})
		}
	}
}

func TestDecomposeStride(t *testing.T) {
	// The perfect shuffle on 6 bits over 4 lanes: a classic streamed
	// permutation that needs all three stages.
	p := field.Cmat(6)
	d, err := Decompose(p, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Recompose().Equal(p) {
		t.Error("recompose mismatch")
	}
	if d.TemporalTrivial() {
		t.Error("stride permutation reported as purely spatial")
	}
}

func TestDecomposeBitReversal(t *testing.T) {
	rev, err := field.Rmat(1, 6)
	if err != nil {
		t.Fatal(err)
	}
	d, err := Decompose(rev, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Recompose().Equal(rev) {
		t.Error("recompose mismatch")
	}
}

func TestDecomposeDegenerateWidths(t *testing.T) {
	r := rand.New(rand.NewSource(29))
	p := randomInvertible(r, 5)

	// Fully parallel: no cycle bits, the whole matrix becomes the crossbar.
	d, err := Decompose(p, 5)
	if err != nil {
		t.Fatal(err)
	}
	if d.T != 0 || !d.Recompose().Equal(p) {
		t.Error("fully parallel decomposition broken")
	}
	if !d.TemporalTrivial() {
		t.Error("fully parallel decomposition claims a memory stage")
	}

	// Fully serial: one lane, the whole matrix becomes address logic.
	d, err = Decompose(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.K != 0 || !d.Recompose().Equal(p) {
		t.Error("fully serial decomposition broken")
	}
	if !d.PreTrivial() || !d.PostTrivial() {
		t.Error("fully serial decomposition claims a crossbar")
	}
}

func TestDecomposeSpatialOnly(t *testing.T) {
	// A permutation touching only the lane bits needs no corrections: C2
	// stays zero and the memory stage is trivial.
	p := field.DirectSum(field.Cmat(3), field.Identity(3))
	d, err := Decompose(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !d.C2.IsZero() {
		t.Error("spatial-only permutation grew corrections")
	}
	if !d.TemporalTrivial() {
		t.Error("spatial-only permutation claims a memory stage")
	}
}

func TestDecomposeRejects(t *testing.T) {
	singular := field.FromRows([]uint64{1, 1}, 2)
	if _, err := Decompose(singular, 1); err == nil {
		t.Error("singular matrix accepted")
	}
	p := field.Identity(3)
	if _, err := Decompose(p, 4); err == nil {
		t.Error("width wider than dataset accepted")
	}
	if _, err := Decompose(field.NewMat(2, 3), 1); err == nil {
		t.Error("non-square matrix accepted")
	}
}
