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
	"testing"
)

func TestGFUnsupportedOrder(t *testing.T) {
	for _, order := range []int{0, 2, 3, 5, 32, 256} {
		if _, err := GF(order); err == nil {
			t.Errorf("GF(%d) succeeded, want DomainError", order)
		}
	}
}

// The field axioms are verified exhaustively: the fields are small enough
// that enumeration beats sampling.
func TestFieldAxioms(t *testing.T) {
	for _, order := range []int{4, 8, 16} {
		f, err := GF(order)
		if err != nil {
			t.Fatal(err)
		}
		t.Run(f.name(), func(t *testing.T) {
			n := uint8(order)

			// Characteristic 2: addition is its own inverse.
			for a := uint8(0); a < n; a++ {
				if f.Add(a, a) != 0 {
					t.Fatalf("a + a != 0 for a=%d", a)
				}
			}

			// Every nonzero element has a multiplicative inverse.
			for a := uint8(1); a < n; a++ {
				inv, err := f.Inv(a)
				if err != nil {
					t.Fatalf("Inv(%d): %v", a, err)
				}
				if f.Mul(a, inv) != 1 {
					t.Fatalf("a · Inv(a) != 1 for a=%d (inv=%d)", a, inv)
				}
			}

			// Multiplication is associative and commutative, and
			// distributes over addition.
			for a := uint8(0); a < n; a++ {
				for b := uint8(0); b < n; b++ {
					if f.Mul(a, b) != f.Mul(b, a) {
						t.Fatalf("ab != ba for a=%d b=%d", a, b)
					}
					for c := uint8(0); c < n; c++ {
						if f.Mul(f.Mul(a, b), c) != f.Mul(a, f.Mul(b, c)) {
							t.Fatalf("(ab)c != a(bc) for a=%d b=%d c=%d", a, b, c)
						}
						if f.Mul(a, f.Add(b, c)) != f.Add(f.Mul(a, b), f.Mul(a, c)) {
							t.Fatalf("a(b+c) != ab+ac for a=%d b=%d c=%d", a, b, c)
						}
					}
				}
			}
		})
	}
}

func TestInvZero(t *testing.T) {
	f, err := GF(8)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Inv(0)
	if err == nil {
		t.Fatal("Inv(0) succeeded")
	}
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T", err)
	}
}

func TestLiftMulBlock(t *testing.T) {
	// A 1×1 ExtMat with entry e lifts to the multiply-by-e bit matrix:
	// lifted·bits(a) must equal bits(e·a) for all a.
	for _, order := range []int{4, 8, 16} {
		f, _ := GF(order)
		for e := uint8(1); int(e) < order; e++ {
			m := NewExtMat(f, 1, 1)
			m.Set(0, 0, e)
			lifted := m.Lift()
			for a := uint8(0); int(a) < order; a++ {
				want := uint64(f.Mul(e, a))
				if got := lifted.MulVec(uint64(a)); got != want {
					t.Fatalf("GF(%d): lift(%d)·%d = %d, want %d", order, e, a, got, want)
				}
			}
		}
	}
}

// name labels a field for subtests.
func (f *Ext) name() string {
	switch f.order {
	case 4:
		return "GF4"
	case 8:
		return "GF8"
	default:
		return "GF16"
	}
}
