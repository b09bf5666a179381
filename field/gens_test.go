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

import "testing"

func TestCmatIsRotation(t *testing.T) {
	const n = 4
	c := Cmat(n)
	for x := uint64(0); x < 1<<n; x++ {
		want := (x >> 1) | ((x & 1) << (n - 1))
		if got := c.MulVec(x); got != want {
			t.Errorf("Cmat(%d)·%04b = %04b, want %04b", n, x, got, want)
		}
	}
}

func TestLmatInverse(t *testing.T) {
	const n = 6
	for s := 0; s <= n; s++ {
		l := Lmat(s, n)
		if !l.IsInvertible() {
			t.Fatalf("Lmat(%d, %d) not invertible", s, n)
		}
		inv := Lmat((n-s)%n, n)
		if got := l.Mul(inv); !got.Equal(Identity(n)) {
			t.Errorf("Lmat(%d)·Lmat(%d) != I", s, (n-s)%n)
		}
	}
}

func TestLmatPower(t *testing.T) {
	// Rotation by s equals s applications of the single-bit rotation.
	const n = 5
	acc := Identity(n)
	for s := 1; s < n; s++ {
		acc = Cmat(n).Mul(acc)
		if !acc.Equal(Lmat(s, n)) {
			t.Fatalf("Cmat^%d != Lmat(%d, %d)", s, s, n)
		}
	}
}

func TestRmatBitReversal(t *testing.T) {
	r, err := Rmat(1, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := map[uint64]uint64{
		0b000: 0b000, 0b001: 0b100, 0b010: 0b010, 0b011: 0b110,
		0b100: 0b001, 0b101: 0b101, 0b110: 0b011, 0b111: 0b111,
	}
	for x, w := range want {
		if got := r.MulVec(x); got != w {
			t.Errorf("Rmat(1,3)·%03b = %03b, want %03b", x, got, w)
		}
	}
	if !r.Mul(r).Equal(Identity(3)) {
		t.Error("bit reversal is not self-inverse")
	}
}

func TestRmatDigitReversal(t *testing.T) {
	// Radix-4 digit reversal on 4 bits: swap the two 2-bit digits.
	r, err := Rmat(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	for x := uint64(0); x < 16; x++ {
		want := (x >> 2) | ((x & 3) << 2)
		if got := r.MulVec(x); got != want {
			t.Errorf("Rmat(2,4)·%04b = %04b, want %04b", x, got, want)
		}
	}
}

func TestRmatErrors(t *testing.T) {
	if _, err := Rmat(3, 4); err == nil {
		t.Error("Rmat(3, 4) accepted: 3 does not divide 4")
	}
	if _, err := Rmat(0, 4); err == nil {
		t.Error("Rmat(0, 4) accepted")
	}
	if _, err := Rmat(5, 10); err == nil {
		t.Error("Rmat(5, 10) accepted: no GF(32)")
	}
}
