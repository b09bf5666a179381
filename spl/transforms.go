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

import "github.com/go-streamgen/streamgen/field"

// WHT returns the Pease factorization of the Walsh-Hadamard transform on 2^n
// points:
//
//	WHT = [ (I ⊗ F2) · C ]^n
//
// where C is the stride permutation that rotates the index bits down by one.
// Every stage is identical, which is what makes the iterative-product
// realization of the transform need no iteration-indexed constants.
func WHT(n int) (Term, error) {
	if n < 1 {
		return nil, domainErrf("WHT", "size exponent %d < 1", n)
	}
	f2 := Butterfly{LogSize: 1}
	if n == 1 {
		return f2, nil
	}
	shuffle, err := PermOf(field.Cmat(n))
	if err != nil {
		return nil, err
	}
	butterflies, err := NewITensor(n-1, f2)
	if err != nil {
		return nil, err
	}
	stage, err := NewProduct(butterflies, shuffle)
	if err != nil {
		return nil, err
	}
	factors := make([]Term, n)
	for i := range factors {
		factors[i] = stage
	}
	p, err := NewProduct(factors...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DFT returns the recursive Cooley-Tukey decimation-in-time factorization of
// the unnormalized DFT on 2^n points with the given radix (2, 4, 8 or 16):
//
//	DFT_{r·m} = Σ · (I_m ⊗ F_r) · Σ⁻¹ · T · (I_r ⊗ DFT_m) · Σ
//
// with Σ the rotate-by-s stride permutation and T the diagonal of twiddle
// factors. The recursion bottoms out in a single butterfly once the
// remaining size fits the radix.
func DFT(n, radix int) (Term, error) {
	s, ok := logRadix(radix)
	if !ok {
		return nil, domainErrf("DFT", "unsupported radix %d", radix)
	}
	if n < 1 {
		return nil, domainErrf("DFT", "size exponent %d < 1", n)
	}
	return dftRec(n, s)
}

func dftRec(n, s int) (Term, error) {
	if n <= s {
		return NewButterfly(n)
	}
	m := n - s
	sigma, err := PermOf(field.Lmat(s, n))
	if err != nil {
		return nil, err
	}
	sigmaInv, err := PermOf(field.Lmat(n-s, n))
	if err != nil {
		return nil, err
	}
	radixStage, err := NewITensor(m, Butterfly{LogSize: s})
	if err != nil {
		return nil, err
	}
	twiddles, err := NewDiag(dftTwiddles(n, s))
	if err != nil {
		return nil, err
	}
	sub, err := dftRec(m, s)
	if err != nil {
		return nil, err
	}
	rest, err := NewITensor(s, sub)
	if err != nil {
		return nil, err
	}
	return NewProduct(sigma, radixStage, sigmaInv, twiddles, rest, sigma)
}

// dftTwiddles builds the diagonal T of the size-2^n decimation-in-time step:
// index q·2^(n-s) + j carries ω^(q·j) with ω the primitive 2^n-th root.
func dftTwiddles(n, s int) []complex128 {
	m := n - s
	d := make([]complex128, 1<<n)
	for x := range d {
		q := x >> m
		j := x & (1<<m - 1)
		d[x] = Omega(n, q*j)
	}
	return d
}

// Pease returns the fully unrolled constant-geometry Pease factorization of
// the DFT on 2^n points with radix 2^s, s dividing n:
//
//	DFT = Σ · B_q · … · B_1 · (Σ⁻¹ · R)
//	B_i = (I ⊗ F_r) · D_i · Σ
//
// Every body B_i has the same butterfly column and the same stride
// permutation Σ; only the twiddle diagonal D_i changes. R is the radix-r
// digit reversal applied to the input.
func Pease(n, radix int) (Term, error) {
	s, ok := logRadix(radix)
	if !ok {
		return nil, domainErrf("Pease", "unsupported radix %d", radix)
	}
	head, bodies, tail, err := peaseParts(n, s)
	if err != nil {
		return nil, err
	}
	factors := make([]Term, 0, len(bodies)+2)
	factors = append(factors, head)
	for i := len(bodies) - 1; i >= 0; i-- {
		factors = append(factors, bodies[i])
	}
	factors = append(factors, tail)
	return NewProduct(factors...)
}

// ItPease is the Pease factorization with the body column folded into a
// single iterative product: one physical stage iterated n/s times with
// iteration-indexed twiddles.
func ItPease(n, radix int) (Term, error) {
	s, ok := logRadix(radix)
	if !ok {
		return nil, domainErrf("ItPease", "unsupported radix %d", radix)
	}
	head, bodies, tail, err := peaseParts(n, s)
	if err != nil {
		return nil, err
	}
	loop, err := NewItProduct(bodies, nil)
	if err != nil {
		return nil, err
	}
	return NewProduct(head, loop, tail)
}

// peaseParts builds the shared pieces of the Pease forms: the outer head
// permutation Σ, the loop bodies in application order (B_1 first), and the
// tail permutation Σ⁻¹·R folded into one matrix.
func peaseParts(n, s int) (head Term, bodies []Term, tail Term, err error) {
	if s < 1 || s > 4 {
		return nil, nil, nil, domainErrf("Pease", "unsupported radix 2^%d", s)
	}
	if n < 1 || n%s != 0 {
		return nil, nil, nil, domainErrf("Pease", "radix 2^%d does not divide size 2^%d", s, n)
	}
	sigma := field.Lmat(s, n)
	headPerm, err := PermOf(sigma)
	if err != nil {
		return nil, nil, nil, err
	}
	rev, err := field.Rmat(s, n)
	if err != nil {
		return nil, nil, nil, err
	}
	tailPerm, err := PermOf(field.Lmat(n-s, n).Mul(rev))
	if err != nil {
		return nil, nil, nil, err
	}
	butterflies, err := NewITensor(n-s, Butterfly{LogSize: s})
	if err != nil {
		return nil, nil, nil, err
	}
	q := n / s
	bodies = make([]Term, q)
	for i := 1; i <= q; i++ {
		twiddles, err := NewDiag(peaseTwiddles(n, s, i))
		if err != nil {
			return nil, nil, nil, err
		}
		body, err := NewProduct(butterflies, twiddles, headPerm)
		if err != nil {
			return nil, nil, nil, err
		}
		bodies[i-1] = body
	}
	return headPerm, bodies, tailPerm, nil
}

// peaseTwiddles builds the twiddle diagonal of Pease stage i (1-based). The
// stage conjugates the level-i iterative Cooley-Tukey diagonal by the stride
// rotations accumulated in front of it, so entry x reads the plain diagonal
// at the index rotated left by s·(i-1) bits.
func peaseTwiddles(n, s, i int) []complex128 {
	blockBits := s * i
	subBits := s * (i - 1)
	d := make([]complex128, 1<<n)
	for x := range d {
		y := rolBits(uint64(x), subBits, n)
		block := int(y) & (1<<blockBits - 1)
		q := block >> subBits
		j := block & (1<<subBits - 1)
		d[x] = Omega(blockBits, q*j)
	}
	return d
}

// rolBits rotates the low n bits of x left by s.
func rolBits(x uint64, s, n int) uint64 {
	s %= n
	if s == 0 {
		return x
	}
	mask := uint64(1)<<n - 1
	return ((x << s) | (x >> (n - s))) & mask
}

func logRadix(radix int) (int, bool) {
	switch radix {
	case 2:
		return 1, true
	case 4:
		return 2, true
	case 8:
		return 3, true
	case 16:
		return 4, true
	}
	return 0, false
}
