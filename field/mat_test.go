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

package field

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIdentityMulVec(t *testing.T) {
	id := Identity(5)
	for x := uint64(0); x < 32; x++ {
		if got := id.MulVec(x); got != x {
			t.Errorf("Identity(5)·%d = %d, want %d", x, got, x)
		}
	}
}

func TestMulAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 20 {
		a := randomMat(rng, 6)
		b := randomMat(rng, 6)
		c := randomMat(rng, 6)
		left := a.Mul(b).Mul(c)
		right := a.Mul(b.Mul(c))
		if !left.Equal(right) {
			t.Fatalf("(AB)C != A(BC):\n%v\nvs\n%v", left, right)
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	id := Identity(6)
	for range 50 {
		m := randomInvertible(rng, 6)
		inv, err := m.Inverse()
		if err != nil {
			t.Fatalf("Inverse of invertible matrix failed: %v", err)
		}
		if got := m.Mul(inv); !got.Equal(id) {
			t.Fatalf("M·M^-1 != I:\n%v", got)
		}
		if got := inv.Mul(m); !got.Equal(id) {
			t.Fatalf("M^-1·M != I:\n%v", got)
		}
	}
}

func TestInverseSingular(t *testing.T) {
	m := NewMat(3, 3) // all-zero
	if _, err := m.Inverse(); err == nil {
		t.Fatal("Inverse of zero matrix succeeded")
	} else {
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatalf("expected DomainError, got %T", err)
		}
	}
	// Rank-2 example: rows 011, 110, 101 (row3 = row1 xor row2).
	m = FromRows([]uint64{0b011, 0b110, 0b101}, 3)
	if _, err := m.Inverse(); err == nil {
		t.Fatal("Inverse of singular matrix succeeded")
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		m    Mat
		want int
	}{
		{"zero", NewMat(4, 4), 0},
		{"identity", Identity(4), 4},
		{"dependent-rows", FromRows([]uint64{0b011, 0b110, 0b101}, 3), 2},
		{"rect", FromRows([]uint64{0b01, 0b10, 0b11}, 2), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Rank(); got != tt.want {
				t.Errorf("Rank = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKernelVec(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for range 50 {
		m := randomMat(rng, 5)
		v := m.KernelVec()
		if m.Rank() == 5 {
			if v != 0 {
				t.Fatalf("full-rank matrix returned kernel vector %b", v)
			}
			continue
		}
		if v == 0 {
			t.Fatalf("rank-deficient matrix returned no kernel vector:\n%v", m)
		}
		if got := m.MulVec(v); got != 0 {
			t.Fatalf("M·v = %b != 0 for kernel vector %b of\n%v", got, v, m)
		}
	}
}

func TestBlockCompose(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const k, tt = 2, 3
	m := randomMat(rng, k+tt)
	p1 := m.Block(0, 0, k, k)
	p2 := m.Block(0, k, k, tt)
	p3 := m.Block(k, 0, tt, k)
	p4 := m.Block(k, k, tt, tt)
	if got := Compose2x2(p1, p2, p3, p4); !got.Equal(m) {
		t.Fatalf("Compose2x2 of blocks != original:\n%v\nvs\n%v", got, m)
	}
}

func TestDirectSum(t *testing.T) {
	a := Identity(2)
	b := FromRows([]uint64{0b10, 0b01}, 2) // swap of 2 bits
	s := DirectSum(a, b)
	// Low 2 bits fixed, high 2 bits swapped.
	for x := uint64(0); x < 16; x++ {
		lo := x & 3
		hi := x >> 2
		want := lo | ((hi>>1)|(hi&1)<<1)<<2
		if got := s.MulVec(x); got != want {
			t.Errorf("DirectSum·%04b = %04b, want %04b", x, got, want)
		}
	}
}

func TestPermuteCyclic(t *testing.T) {
	// Cmat moves index i to ror(i): even entries first.
	in := []int{0, 1, 2, 3, 4, 5, 6, 7}
	out, err := Permute(Cmat(3), in)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 4, 6, 1, 3, 5, 7}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Permute(Cmat(3)) mismatch (-want +got):\n%s", diff)
	}
}

func TestPermuteErrors(t *testing.T) {
	if _, err := Permute(Cmat(3), []int{1, 2, 3}); err == nil {
		t.Error("length mismatch accepted")
	}
	if _, err := Permute(NewMat(2, 3), []int{0, 1, 2, 3}); err == nil {
		t.Error("non-square matrix accepted")
	}
}

func TestColumnBoundPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"new-mat-wide", func() { NewMat(2, MaxCols+1) }},
		{"new-mat-negative", func() { NewMat(2, -1) }},
		{"from-rows-wide", func() { FromRows([]uint64{1, 2}, 64) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("no panic")
				}
				if _, ok := r.(*DomainError); !ok {
					t.Fatalf("panicked with %T, want *DomainError", r)
				}
			}()
			tt.fn()
		})
	}
	if got := NewMat(1, MaxCols).Cols(); got != MaxCols {
		t.Errorf("NewMat(1, MaxCols).Cols() = %d, want %d", got, MaxCols)
	}
}

func TestTranspose(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	m := randomMat(rng, 6)
	if got := m.Transpose().Transpose(); !got.Equal(m) {
		t.Fatal("double transpose is not the identity")
	}
}

// randomMat returns a uniformly random n×n matrix.
func randomMat(rng *rand.Rand, n int) Mat {
	rows := make([]uint64, n)
	for i := range rows {
		rows[i] = rng.Uint64() & (1<<n - 1)
	}
	return FromRows(rows, n)
}

// randomInvertible samples random matrices until one has full rank.
func randomInvertible(rng *rand.Rand, n int) Mat {
	for {
		if m := randomMat(rng, n); m.IsInvertible() {
			return m
		}
	}
}
