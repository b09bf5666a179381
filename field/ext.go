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

import "sync"

// Ext is a small binary extension field GF(2^m) with m in {2, 3, 4}.
// Elements are polynomial bit patterns in [0, order). Multiplication and
// inversion go through log/antilog tables built once per order; addition in
// characteristic 2 is XOR.
type Ext struct {
	order int // 4, 8 or 16
	m     int // extension degree
	log   []uint8
	exp   []uint8
}

// Irreducible reduction polynomials, all with x as a primitive element.
const (
	polyGF4  = 0b111   // x^2 + x + 1
	polyGF8  = 0b1011  // x^3 + x + 1
	polyGF16 = 0b10011 // x^4 + x + 1
)

var (
	extCache = map[int]*Ext{}
	extOnce  sync.Once
)

// GF returns the extension field of the given order (4, 8 or 16). Any other
// order is a DomainError. The returned field is shared and immutable.
func GF(order int) (*Ext, error) {
	extOnce.Do(func() {
		extCache[4] = newExt(4, 2, polyGF4)
		extCache[8] = newExt(8, 3, polyGF8)
		extCache[16] = newExt(16, 4, polyGF16)
	})
	f, ok := extCache[order]
	if !ok {
		return nil, domainErrf("GF", "unsupported field order %d", order)
	}
	return f, nil
}

// newExt precomputes log/antilog tables by walking powers of the primitive
// element x, reducing by the irreducible polynomial on overflow.
func newExt(order, m, poly int) *Ext {
	f := &Ext{
		order: order,
		m:     m,
		log:   make([]uint8, order),
		exp:   make([]uint8, 2*(order-1)),
	}
	x := 1
	for i := 0; i < order-1; i++ {
		f.exp[i] = uint8(x)
		f.log[x] = uint8(i)
		x <<= 1
		if x&order != 0 {
			x ^= poly
		}
	}
	// Doubled antilog table avoids an explicit modular reduction in Mul.
	copy(f.exp[order-1:], f.exp[:order-1])
	return f
}

// Order returns the number of elements in the field.
func (f *Ext) Order() int { return f.order }

// Degree returns the extension degree m, so that the field is GF(2^m).
func (f *Ext) Degree() int { return f.m }

// Add returns a + b. In characteristic 2 addition is its own inverse.
func (f *Ext) Add(a, b uint8) uint8 { return a ^ b }

// Mul returns a · b via the log/antilog tables.
func (f *Ext) Mul(a, b uint8) uint8 {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[int(f.log[a])+int(f.log[b])]
}

// Inv returns the multiplicative inverse of a. Inv(0) is a DomainError.
func (f *Ext) Inv(a uint8) (uint8, error) {
	if a == 0 {
		return 0, domainErrf("Inv", "zero has no inverse in GF(%d)", f.order)
	}
	if a == 1 {
		return 1, nil
	}
	return f.exp[(f.order-1)-int(f.log[a])], nil
}

// ExtMat is a small rectangular matrix over an extension field, used to
// express digit-level permutations of a radix-2^m index space before they
// are lifted to plain GF(2) bit matrices.
type ExtMat struct {
	f    *Ext
	data [][]uint8
}

// NewExtMat returns the all-zero r×c matrix over f.
func NewExtMat(f *Ext, r, c int) ExtMat {
	data := make([][]uint8, r)
	for i := range data {
		data[i] = make([]uint8, c)
	}
	return ExtMat{f: f, data: data}
}

// Set assigns entry (i, j).
func (m ExtMat) Set(i, j int, v uint8) { m.data[i][j] = v }

// At returns entry (i, j).
func (m ExtMat) At(i, j int) uint8 { return m.data[i][j] }

// Lift expands m into a GF(2) bit matrix. Each entry e becomes the
// Degree()×Degree() block representing multiplication by e, so a digit
// permutation matrix (entries 0 and 1) lifts to the corresponding
// block permutation of digit groups.
func (m ExtMat) Lift() Mat {
	d := m.f.m
	out := NewMat(len(m.data)*d, len(m.data[0])*d)
	for i, row := range m.data {
		for j, e := range row {
			if e == 0 {
				continue
			}
			// Column b of the block is e·x^b as a bit column.
			for b := range d {
				col := m.f.Mul(e, 1<<b)
				for r := range d {
					if col&(1<<r) != 0 {
						out.rows[i*d+r] |= 1 << (j*d + b)
					}
				}
			}
		}
	}
	return out
}
