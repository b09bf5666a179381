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

// Package perm factors a bit-linear permutation on a streamed dataset into
// the three stages a fixed-width datapath can realize: a combinational lane
// crossbar, a per-lane memory stage that only moves data in time, and a
// second crossbar. The factorization is exact for every invertible GF(2)
// matrix and every streaming width.
package perm

import (
	"fmt"
	"math/bits"

	"github.com/go-streamgen/streamgen/field"
)

// Decomposition is the three-stage factorization of an n-bit index
// permutation P streamed over 2^K lanes for 2^T cycles, n = K + T:
//
//	P = S2 · T · S1
//	S1: lane' = A1·lane ⊕ A2·cycle            (crossbar before the memories)
//	T:  cycle' = B3·lane ⊕ B4·cycle           (per-lane memory reordering)
//	S2: lane' = C1·lane ⊕ C2·cycle            (crossbar after the memories)
//
// S1 and S2 touch only the lane bits, T only the cycle bits, so each maps
// onto one physical structure. A1, B4 and C1 are invertible; C1 is always
// the identity here.
type Decomposition struct {
	K, T int

	A1 field.Mat // K×K
	A2 field.Mat // K×T
	B3 field.Mat // T×K
	B4 field.Mat // T×T
	C1 field.Mat // K×K
	C2 field.Mat // K×T
}

// Error reports a matrix that cannot be streamed as requested.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "perm: " + e.Msg }

func errf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Decompose factors p for a stream of 2^k lanes. The blocks of p are read
// with lane bits low and cycle bits high:
//
//	p = [ P4 P3 ]  (cycle rows)
//	    [ P2 P1 ]  (lane rows)
//
// A crossbar-compatible C2 is grown one entry at a time until the combined
// lane block A1 = P1 ⊕ C2·P3 has full rank; each added entry strictly
// increases the rank, so at most k corrections are needed. The remaining
// blocks then follow by substitution, and B4 inherits invertibility from p.
func Decompose(p field.Mat, k int) (Decomposition, error) {
	n := p.Rows()
	if p.Cols() != n {
		return Decomposition{}, errf("matrix is %dx%d, not square", n, p.Cols())
	}
	if k < 0 || k > n {
		return Decomposition{}, errf("width 2^%d out of range for 2^%d points", k, n)
	}
	if !p.IsInvertible() {
		return Decomposition{}, errf("singular %dx%d matrix", n, n)
	}
	t := n - k

	p1 := p.Block(0, 0, k, k)
	p2 := p.Block(0, k, k, t)
	p3 := p.Block(k, 0, t, k)
	p4 := p.Block(k, k, t, t)

	c2 := field.NewMat(k, t)
	a1 := p1.Xor(c2.Mul(p3))
	for !a1.IsInvertible() {
		v := a1.KernelVec()
		pv := p3.MulVec(v)
		if pv == 0 {
			// Unreachable for invertible p: the kernel vector would also
			// kill a full column of p.
			return Decomposition{}, errf("rank completion stalled")
		}
		j := bits.TrailingZeros64(pv)
		u := unitOutsideRange(a1)
		if u < 0 {
			return Decomposition{}, errf("rank completion stalled")
		}
		c2 = c2.WithBit(u, j, 1)
		a1 = p1.Xor(c2.Mul(p3))
	}

	a1inv, err := a1.Inverse()
	if err != nil {
		return Decomposition{}, errf("invert lane block: %v", err)
	}
	a2 := p2.Xor(c2.Mul(p4))
	b3 := p3.Mul(a1inv)
	b4 := p4.Xor(b3.Mul(a2))
	if !b4.IsInvertible() {
		// p = S2·T·S1 with S1, S2 invertible forces T invertible.
		return Decomposition{}, errf("cycle block not invertible")
	}
	return Decomposition{
		K: k, T: t,
		A1: a1, A2: a2,
		B3: b3, B4: b4,
		C1: field.Identity(k), C2: c2,
	}, nil
}

// Recompose multiplies the three stages back into one matrix. It is the
// correctness check of the factorization: Recompose equals the decomposed
// input.
func (d Decomposition) Recompose() field.Mat {
	k, t := d.K, d.T
	s1 := field.Compose2x2(d.A1, d.A2, field.NewMat(t, k), field.Identity(t))
	tm := field.Compose2x2(field.Identity(k), field.NewMat(k, t), d.B3, d.B4)
	s2 := field.Compose2x2(d.C1, d.C2, field.NewMat(t, k), field.Identity(t))
	return s2.Mul(tm).Mul(s1)
}

// PreTrivial reports that the first crossbar passes lanes through unchanged.
func (d Decomposition) PreTrivial() bool {
	return d.A1.Equal(field.Identity(d.K)) && d.A2.IsZero()
}

// PostTrivial reports that the second crossbar passes lanes through
// unchanged.
func (d Decomposition) PostTrivial() bool {
	return d.C1.Equal(field.Identity(d.K)) && d.C2.IsZero()
}

// TemporalTrivial reports that the memory stage does not reorder in time.
func (d Decomposition) TemporalTrivial() bool {
	return d.B3.IsZero() && d.B4.Equal(field.Identity(d.T))
}

// unitOutsideRange returns a row index u with the unit vector e_u outside the
// column space of m, or -1 if m has full row rank.
func unitOutsideRange(m field.Mat) int {
	// Reduce the columns of m to a basis keyed by leading bit.
	basis := map[int]uint64{}
	for j := 0; j < m.Cols(); j++ {
		cur := m.MulVec(1 << j)
		for cur != 0 {
			h := bits.Len64(cur) - 1
			if b, ok := basis[h]; ok {
				cur ^= b
			} else {
				basis[h] = cur
				break
			}
		}
	}
	for u := 0; u < m.Rows(); u++ {
		cur := uint64(1) << u
		for cur != 0 {
			h := bits.Len64(cur) - 1
			b, ok := basis[h]
			if !ok {
				return u
			}
			cur ^= b
		}
	}
	return -1
}
