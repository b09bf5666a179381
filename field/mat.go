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

// Package field implements the matrix algebra over GF(2) that models
// bit-linear permutations, plus the small extension fields GF(4), GF(8) and
// GF(16) used for radix-4/8/16 digit bookkeeping.
//
// A GF(2) matrix acts on index vectors: an n-bit index i is the vector whose
// component j is bit j of i (LSB first). Row j of a matrix produces output
// bit j as the parity of the masked input. With this convention the "time"
// bits of a streamed index are the high rows/columns and the "lane" bits the
// low ones.
package field

import (
	"math/bits"
	"strings"
)

// Mat is a rectangular matrix over GF(2). Row i is stored as a bit mask with
// bit j holding entry (i, j). Matrices are value types: operations return new
// matrices and never mutate their receivers. Column count is capped at
// MaxCols so an index vector always fits a uint64.
type Mat struct {
	rows []uint64
	cols int
}

// MaxCols is the widest supported matrix.
const MaxCols = 63

func checkCols(op string, c int) {
	if c < 0 || c > MaxCols {
		panic(domainErrf(op, "column count %d outside [0, %d]", c, MaxCols))
	}
}

// NewMat returns the all-zero r×c matrix. A column count outside [0,
// MaxCols] is a caller bug and panics with a *DomainError.
func NewMat(r, c int) Mat {
	checkCols("NewMat", c)
	return Mat{rows: make([]uint64, r), cols: c}
}

// FromRows builds a matrix from row bit masks. The slice is copied. The
// column bound panics as in NewMat.
func FromRows(rows []uint64, cols int) Mat {
	checkCols("FromRows", cols)
	m := Mat{rows: make([]uint64, len(rows)), cols: cols}
	copy(m.rows, rows)
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) Mat {
	m := NewMat(n, n)
	for i := range n {
		m.rows[i] = 1 << i
	}
	return m
}

// Rows returns the number of rows.
func (m Mat) Rows() int { return len(m.rows) }

// Cols returns the number of columns.
func (m Mat) Cols() int { return m.cols }

// At returns entry (i, j) as 0 or 1.
func (m Mat) At(i, j int) uint64 { return (m.rows[i] >> j) & 1 }

// Row returns row i as a bit mask.
func (m Mat) Row(i int) uint64 { return m.rows[i] }

// WithBit returns a copy of m with entry (i, j) set to b.
func (m Mat) WithBit(i, j int, b uint64) Mat {
	out := FromRows(m.rows, m.cols)
	out.rows[i] &^= 1 << j
	out.rows[i] |= (b & 1) << j
	return out
}

// Equal reports whether m and o have identical shape and entries.
func (m Mat) Equal(o Mat) bool {
	if len(m.rows) != len(o.rows) || m.cols != o.cols {
		return false
	}
	for i := range m.rows {
		if m.rows[i] != o.rows[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every entry of m is zero.
func (m Mat) IsZero() bool {
	for _, r := range m.rows {
		if r != 0 {
			return false
		}
	}
	return true
}

// MulVec applies m to the index vector x and returns the resulting vector.
// Output bit i is the parity of row i masked with x.
func (m Mat) MulVec(x uint64) uint64 {
	var y uint64
	for i, r := range m.rows {
		y |= uint64(bits.OnesCount64(r&x)&1) << i
	}
	return y
}

// Mul returns the matrix product m·o. The column count of m must equal the
// row count of o.
func (m Mat) Mul(o Mat) Mat {
	if m.cols != len(o.rows) {
		panic(domainErrf("Mul", "shape mismatch: %dx%d times %dx%d",
			len(m.rows), m.cols, len(o.rows), o.cols))
	}
	out := NewMat(len(m.rows), o.cols)
	for i, r := range m.rows {
		var acc uint64
		for r != 0 {
			j := bits.TrailingZeros64(r)
			acc ^= o.rows[j]
			r &^= 1 << j
		}
		out.rows[i] = acc
	}
	return out
}

// Xor returns the entrywise sum m ⊕ o, which is both addition and
// subtraction over GF(2).
func (m Mat) Xor(o Mat) Mat {
	if len(m.rows) != len(o.rows) || m.cols != o.cols {
		panic(domainErrf("Xor", "shape mismatch: %dx%d plus %dx%d",
			len(m.rows), m.cols, len(o.rows), o.cols))
	}
	out := FromRows(m.rows, m.cols)
	for i := range out.rows {
		out.rows[i] ^= o.rows[i]
	}
	return out
}

// Transpose returns the transpose of m.
func (m Mat) Transpose() Mat {
	out := NewMat(m.cols, len(m.rows))
	for i, r := range m.rows {
		for r != 0 {
			j := bits.TrailingZeros64(r)
			out.rows[j] |= 1 << i
			r &^= 1 << j
		}
	}
	return out
}

// Rank returns the rank of m over GF(2).
func (m Mat) Rank() int {
	work := make([]uint64, len(m.rows))
	copy(work, m.rows)
	rank := 0
	for col := 0; col < m.cols; col++ {
		pivot := -1
		for i := rank; i < len(work); i++ {
			if work[i]&(1<<col) != 0 {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			continue
		}
		work[rank], work[pivot] = work[pivot], work[rank]
		for i := range work {
			if i != rank && work[i]&(1<<col) != 0 {
				work[i] ^= work[rank]
			}
		}
		rank++
	}
	return rank
}

// IsInvertible reports whether m is square with full rank.
func (m Mat) IsInvertible() bool {
	return len(m.rows) == m.cols && m.Rank() == m.cols
}

// Inverse returns the inverse of m. It fails with a DomainError if m is not
// square or is singular; callers must only invert matrices already proven
// invertible by construction.
func (m Mat) Inverse() (Mat, error) {
	n := len(m.rows)
	if n != m.cols {
		return Mat{}, domainErrf("Inverse", "non-square %dx%d matrix", n, m.cols)
	}
	work := make([]uint64, n)
	copy(work, m.rows)
	inv := Identity(n)
	for col := range n {
		pivot := -1
		for i := col; i < n; i++ {
			if work[i]&(1<<col) != 0 {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			return Mat{}, domainErrf("Inverse", "singular matrix (rank < %d)", n)
		}
		work[col], work[pivot] = work[pivot], work[col]
		inv.rows[col], inv.rows[pivot] = inv.rows[pivot], inv.rows[col]
		for i := range n {
			if i != col && work[i]&(1<<col) != 0 {
				work[i] ^= work[col]
				inv.rows[i] ^= inv.rows[col]
			}
		}
	}
	return inv, nil
}

// Block returns the nr×nc submatrix of m whose top-left entry is (r0, c0).
func (m Mat) Block(r0, c0, nr, nc int) Mat {
	out := NewMat(nr, nc)
	mask := uint64(1)<<nc - 1
	if nc == 64 {
		mask = ^uint64(0)
	}
	for i := range nr {
		out.rows[i] = (m.rows[r0+i] >> c0) & mask
	}
	return out
}

// Compose2x2 assembles the n×n matrix
//
//	[ p4 p3 ]   (high rows: time bits)
//	[ p2 p1 ]   (low rows:  lane bits)
//
// from its blocks, where p1 is k×k over the low (lane) bits and p4 is t×t
// over the high (time) bits. p2 is k×t and p3 is t×k.
func Compose2x2(p1, p2, p3, p4 Mat) Mat {
	k := len(p1.rows)
	t := len(p4.rows)
	out := NewMat(k+t, k+t)
	for i := range k {
		out.rows[i] = p1.rows[i] | p2.rows[i]<<k
	}
	for i := range t {
		out.rows[k+i] = p3.rows[i] | p4.rows[i]<<k
	}
	return out
}

// DirectSum returns the block-diagonal matrix with a acting on the low bits
// and b on the high bits. It lifts a permutation on a.Cols() bits to act as
// the given b (typically an identity) on the remaining bits.
func DirectSum(a, b Mat) Mat {
	ra, rb := len(a.rows), len(b.rows)
	out := NewMat(ra+rb, a.cols+b.cols)
	copy(out.rows[:ra], a.rows)
	for i := range rb {
		out.rows[ra+i] = b.rows[i] << a.cols
	}
	return out
}

// KernelVec returns a nonzero vector x with m·x = 0, or 0 if m has a trivial
// kernel. Used by the streaming permutation decomposition to complete ranks.
func (m Mat) KernelVec() uint64 {
	// Row-reduce a copy, remembering pivot columns.
	work := make([]uint64, len(m.rows))
	copy(work, m.rows)
	pivotCol := make([]int, 0, len(work))
	rank := 0
	for col := 0; col < m.cols; col++ {
		pivot := -1
		for i := rank; i < len(work); i++ {
			if work[i]&(1<<col) != 0 {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			continue
		}
		work[rank], work[pivot] = work[pivot], work[rank]
		for i := range work {
			if i != rank && work[i]&(1<<col) != 0 {
				work[i] ^= work[rank]
			}
		}
		pivotCol = append(pivotCol, col)
		rank++
	}
	if rank == m.cols {
		return 0
	}
	// Pick the first free column and back-substitute.
	isPivot := make(map[int]bool, rank)
	for _, c := range pivotCol {
		isPivot[c] = true
	}
	free := -1
	for col := 0; col < m.cols; col++ {
		if !isPivot[col] {
			free = col
			break
		}
	}
	x := uint64(1) << free
	for i, c := range pivotCol {
		if work[i]&(1<<free) != 0 {
			x |= 1 << c
		}
	}
	return x
}

// String renders m as rows of 0/1 digits, high column first, for debugging.
func (m Mat) String() string {
	var sb strings.Builder
	for i, r := range m.rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j := m.cols - 1; j >= 0; j-- {
			if r&(1<<j) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// Permute applies the permutation matrix p to v: the element at index i moves
// to index p·bits(i). It fails with a DomainError if p does not match the
// vector length or if a computed index falls outside the vector, which
// signals a malformed (non-bijective) matrix rather than a user error.
func Permute[T any](p Mat, v []T) ([]T, error) {
	n := len(p.rows)
	if p.cols != n {
		return nil, domainErrf("Permute", "non-square %dx%d matrix", n, p.cols)
	}
	if len(v) != 1<<n {
		return nil, domainErrf("Permute", "vector length %d does not match 2^%d", len(v), n)
	}
	out := make([]T, len(v))
	for i := range v {
		j := p.MulVec(uint64(i))
		if j >= uint64(len(v)) {
			return nil, domainErrf("Permute", "index %d out of range for length %d", j, len(v))
		}
		out[j] = v[i]
	}
	return out, nil
}
