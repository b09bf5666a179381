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

// Canonical permutation generators. On an n-bit index space the stride
// permutation L^{2^n}_{2^s} of FFT/WHT factorizations is a cyclic rotation of
// the index bits, and the radix-2^s reordering of Pease-style factorizations
// is a digit reversal. All are returned as invertible GF(2) matrices.

// Cmat returns the n×n cyclic shift matrix: output bit j is input bit
// (j+1) mod n. On data vectors this is the perfect shuffle that places
// even-indexed entries before odd-indexed ones (index i moves to
// i>>1 | (i&1)<<(n-1)).
func Cmat(n int) Mat {
	return Lmat(1, n)
}

// Lmat returns the n×n rotation by s bit positions: output bit j is input
// bit (j+s) mod n. This is the stride permutation L^{2^n}_{2^s} on bit
// indices; Lmat(0, n) is the identity and Lmat(n-s, n) inverts Lmat(s, n).
func Lmat(s, n int) Mat {
	m := NewMat(n, n)
	for j := range n {
		m.rows[j] = 1 << ((j + s) % n)
	}
	return m
}

// Rmat returns the n×n radix-2^s digit reversal: the index is split into
// n/s digits of s bits and the digit order is reversed. Rmat(1, n) is plain
// bit reversal. It fails with a DomainError if s does not divide n or the
// digit size has no matching extension field.
func Rmat(s, n int) (Mat, error) {
	if s <= 0 || n%s != 0 {
		return Mat{}, domainErrf("Rmat", "digit size %d does not divide %d", s, n)
	}
	if s == 1 {
		m := NewMat(n, n)
		for j := range n {
			m.rows[j] = 1 << (n - 1 - j)
		}
		return m, nil
	}
	f, err := GF(1 << s)
	if err != nil {
		return Mat{}, err
	}
	d := n / s
	perm := NewExtMat(f, d, d)
	for i := range d {
		perm.Set(i, d-1-i, 1)
	}
	return perm.Lift(), nil
}
