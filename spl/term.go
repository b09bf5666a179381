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

// Package spl is the symbolic combinator algebra describing a linear
// transform independently of any streaming width: atomic radix-2/4/8/16
// butterflies, sequential products, tensor repetition, diagonal scaling,
// bit-linear permutations and iterative (looped) products.
//
// Terms are immutable value trees. Every term evaluates in software
// (Eval), which is the ground truth the compiled hardware is tested
// against. The set of term kinds is closed: the compiler matches on it
// exhaustively.
package spl

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/go-streamgen/streamgen/field"
)

// Term is one node of an SPL expression. The kind set is sealed: only the
// types in this package implement it.
type Term interface {
	// N returns log2 of the transform size.
	N() int
	// Eval applies the transform to one dataset. The dataset index selects
	// among per-dataset variants (only LinearPerm varies); the input is not
	// modified. Input length must be 2^N.
	Eval(in []complex128, set int) ([]complex128, error)

	isTerm()
}

// DomainError reports invalid mathematical input to a term constructor or
// evaluation: an unsupported radix, a non-invertible permutation matrix, a
// size mismatch.
type DomainError struct {
	Op  string
	Msg string
}

func (e *DomainError) Error() string { return fmt.Sprintf("spl: %s: %s", e.Op, e.Msg) }

func domainErrf(op, format string, args ...any) *DomainError {
	return &DomainError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a structurally valid term that requests a
// capability the configuration cannot provide, such as tensoring a factor
// that has no streaming-foldable realization.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "spl: " + e.Msg }

// Butterfly is the atomic base transform: an unnormalized DFT on 2^LogSize
// points, LogSize in [1, 4]. LogSize 1 is the twiddle-free F2 stage shared
// by the Walsh-Hadamard factorizations.
type Butterfly struct {
	LogSize int
}

// NewButterfly validates the radix and returns the base transform.
func NewButterfly(logSize int) (Butterfly, error) {
	if logSize < 1 || logSize > 4 {
		return Butterfly{}, domainErrf("Butterfly", "unsupported radix 2^%d", logSize)
	}
	return Butterfly{LogSize: logSize}, nil
}

func (b Butterfly) N() int  { return b.LogSize }
func (b Butterfly) isTerm() {}

// Eval computes the dense transform directly from the root-of-unity closed
// form. The sizes are small enough that the quadratic form is fine.
func (b Butterfly) Eval(in []complex128, _ int) ([]complex128, error) {
	n := 1 << b.LogSize
	if len(in) != n {
		return nil, domainErrf("Eval", "input length %d, want %d", len(in), n)
	}
	out := make([]complex128, n)
	for k := range n {
		var acc complex128
		for j := range n {
			acc += Omega(b.LogSize, k*j) * in[j]
		}
		out[k] = acc
	}
	return out, nil
}

// Omega returns the root of unity e^(-2*pi*i*e/2^bits) used as the twiddle
// base of all Fourier factorizations here.
func Omega(bits, e int) complex128 {
	order := 1 << bits
	e &= order - 1
	// Exact values on the axes keep integer test cases bit-exact.
	switch 4 * e {
	case 0:
		return 1
	case order:
		return -1i
	case 2 * order:
		return -1
	case 3 * order:
		return 1i
	}
	return cmplx.Exp(complex(0, -2*math.Pi*float64(e)/float64(order)))
}

// Ident is the neutral transform on 2^Bits points.
type Ident struct {
	Bits int
}

func (t Ident) N() int  { return t.Bits }
func (t Ident) isTerm() {}

func (t Ident) Eval(in []complex128, _ int) ([]complex128, error) {
	if len(in) != 1<<t.Bits {
		return nil, domainErrf("Eval", "input length %d, want %d", len(in), 1<<t.Bits)
	}
	out := make([]complex128, len(in))
	copy(out, in)
	return out, nil
}

// Product is a sequential composition in matrix order: the last factor is
// applied to the data first. All factors share one transform size.
type Product struct {
	Factors []Term
}

// NewProduct builds a product, flattening nested products. The factor list
// must be non-empty and share a single transform size.
func NewProduct(factors ...Term) (Product, error) {
	if len(factors) == 0 {
		return Product{}, domainErrf("Product", "empty factor list")
	}
	flat := make([]Term, 0, len(factors))
	for _, f := range factors {
		if p, ok := f.(Product); ok {
			flat = append(flat, p.Factors...)
		} else {
			flat = append(flat, f)
		}
	}
	n := flat[0].N()
	for _, f := range flat[1:] {
		if f.N() != n {
			return Product{}, domainErrf("Product", "factor sizes differ: 2^%d vs 2^%d", n, f.N())
		}
	}
	return Product{Factors: flat}, nil
}

func (p Product) N() int  { return p.Factors[0].N() }
func (p Product) isTerm() {}

func (p Product) Eval(in []complex128, set int) ([]complex128, error) {
	v := in
	var err error
	for i := len(p.Factors) - 1; i >= 0; i-- {
		v, err = p.Factors[i].Eval(v, set)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ITensor repeats Factor across 2^R independent consecutive blocks:
// I ⊗ Factor. The factor must be repeatable, i.e. it must have a
// streaming-foldable realization; iterative products do not.
type ITensor struct {
	R      int
	Factor Term
}

// NewITensor validates the repeat count and the factor's Repeatable
// capability.
func NewITensor(r int, factor Term) (ITensor, error) {
	if r < 0 {
		return ITensor{}, domainErrf("ITensor", "negative repeat exponent %d", r)
	}
	if !Repeatable(factor) {
		return ITensor{}, &ConfigurationError{Msg: "ITensor: non-repeatable factor"}
	}
	return ITensor{R: r, Factor: factor}, nil
}

func (t ITensor) N() int  { return t.R + t.Factor.N() }
func (t ITensor) isTerm() {}

func (t ITensor) Eval(in []complex128, set int) ([]complex128, error) {
	if len(in) != 1<<t.N() {
		return nil, domainErrf("Eval", "input length %d, want %d", len(in), 1<<t.N())
	}
	block := 1 << t.Factor.N()
	out := make([]complex128, 0, len(in))
	for off := 0; off < len(in); off += block {
		o, err := t.Factor.Eval(in[off:off+block], set)
		if err != nil {
			return nil, err
		}
		out = append(out, o...)
	}
	return out, nil
}

// Diag scales position j by Values[j].
type Diag struct {
	Values []complex128
}

// NewDiag validates that the value count is a power of two.
func NewDiag(values []complex128) (Diag, error) {
	n := len(values)
	if n == 0 || n&(n-1) != 0 {
		return Diag{}, domainErrf("Diag", "length %d is not a power of two", n)
	}
	v := make([]complex128, n)
	copy(v, values)
	return Diag{Values: v}, nil
}

func (d Diag) N() int {
	n := 0
	for 1<<n < len(d.Values) {
		n++
	}
	return n
}

func (d Diag) isTerm() {}

func (d Diag) Eval(in []complex128, _ int) ([]complex128, error) {
	if len(in) != len(d.Values) {
		return nil, domainErrf("Eval", "input length %d, want %d", len(in), len(d.Values))
	}
	out := make([]complex128, len(in))
	for i, v := range in {
		out[i] = v * d.Values[i]
	}
	return out, nil
}

// LinearPerm reorders data by an invertible GF(2) matrix on the index bits:
// the element at index i moves to index M·bits(i). With several matrices the
// permutation cycles per dataset (round robin).
type LinearPerm struct {
	Mats []field.Mat
}

// NewLinearPerm asserts every matrix is square, of one shared size, and
// invertible. A singular matrix is rejected here, before any hardware
// synthesis can see it.
func NewLinearPerm(mats ...field.Mat) (LinearPerm, error) {
	if len(mats) == 0 {
		return LinearPerm{}, domainErrf("LinearPerm", "empty matrix list")
	}
	n := mats[0].Rows()
	for i, m := range mats {
		if m.Rows() != m.Cols() {
			return LinearPerm{}, domainErrf("LinearPerm", "matrix %d is %dx%d, not square", i, m.Rows(), m.Cols())
		}
		if m.Rows() != n {
			return LinearPerm{}, domainErrf("LinearPerm", "matrix %d size %d differs from %d", i, m.Rows(), n)
		}
		if !m.IsInvertible() {
			return LinearPerm{}, domainErrf("LinearPerm", "matrix %d is singular", i)
		}
	}
	return LinearPerm{Mats: mats}, nil
}

// PermOf is shorthand for a single-matrix LinearPerm.
func PermOf(m field.Mat) (LinearPerm, error) { return NewLinearPerm(m) }

func (p LinearPerm) N() int  { return p.Mats[0].Rows() }
func (p LinearPerm) isTerm() {}

// Mat returns the matrix for the given dataset index.
func (p LinearPerm) Mat(set int) field.Mat { return p.Mats[set%len(p.Mats)] }

func (p LinearPerm) Eval(in []complex128, set int) ([]complex128, error) {
	out, err := field.Permute(p.Mat(set), in)
	if err != nil {
		return nil, domainErrf("Eval", "permute: %v", err)
	}
	return out, nil
}

// ItProduct applies a sequence of loop bodies to the data on the same
// physical hardware, one body per iteration in application order, followed by
// an optional distinct closing term. All bodies must share one shape: they
// may differ only in diagonal values and permutation matrices, since the loop
// reuses one datapath with iteration-indexed constants.
type ItProduct struct {
	Bodies []Term
	End    Term // may be nil
}

// NewItProduct validates the body list and the shape constraint.
func NewItProduct(bodies []Term, end Term) (ItProduct, error) {
	if len(bodies) == 0 {
		return ItProduct{}, domainErrf("ItProduct", "empty body list")
	}
	n := bodies[0].N()
	for i, b := range bodies[1:] {
		if b.N() != n {
			return ItProduct{}, domainErrf("ItProduct", "body %d size 2^%d differs from 2^%d", i+1, b.N(), n)
		}
		if !sameShape(bodies[0], b) {
			return ItProduct{}, domainErrf("ItProduct", "body %d shape differs from body 0", i+1)
		}
	}
	if end != nil && end.N() != n {
		return ItProduct{}, domainErrf("ItProduct", "closing term size 2^%d differs from 2^%d", end.N(), n)
	}
	return ItProduct{Bodies: bodies, End: end}, nil
}

func (p ItProduct) N() int  { return p.Bodies[0].N() }
func (p ItProduct) isTerm() {}

func (p ItProduct) Eval(in []complex128, set int) ([]complex128, error) {
	v := in
	var err error
	for _, b := range p.Bodies {
		v, err = b.Eval(v, set)
		if err != nil {
			return nil, err
		}
	}
	if p.End != nil {
		v, err = p.End.Eval(v, set)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Repeatable reports whether a term can be replicated by ITensor: it must
// have a streaming-foldable hardware form. Iterative products fold through a
// feedback loop whose schedule cannot nest inside another fold.
func Repeatable(t Term) bool {
	switch t := t.(type) {
	case ItProduct:
		return false
	case Product:
		for _, f := range t.Factors {
			if !Repeatable(f) {
				return false
			}
		}
		return true
	case ITensor:
		return Repeatable(t.Factor)
	default:
		return true
	}
}

// sameShape reports whether two terms are structurally identical up to
// diagonal values and permutation matrix contents.
func sameShape(a, b Term) bool {
	switch a := a.(type) {
	case Butterfly:
		bb, ok := b.(Butterfly)
		return ok && a.LogSize == bb.LogSize
	case Ident:
		bb, ok := b.(Ident)
		return ok && a.Bits == bb.Bits
	case Product:
		bb, ok := b.(Product)
		if !ok || len(a.Factors) != len(bb.Factors) {
			return false
		}
		for i := range a.Factors {
			if !sameShape(a.Factors[i], bb.Factors[i]) {
				return false
			}
		}
		return true
	case ITensor:
		bb, ok := b.(ITensor)
		return ok && a.R == bb.R && sameShape(a.Factor, bb.Factor)
	case Diag:
		bb, ok := b.(Diag)
		return ok && len(a.Values) == len(bb.Values)
	case LinearPerm:
		bb, ok := b.(LinearPerm)
		return ok && a.N() == bb.N()
	case ItProduct:
		bb, ok := b.(ItProduct)
		if !ok || len(a.Bodies) != len(bb.Bodies) {
			return false
		}
		for i := range a.Bodies {
			if !sameShape(a.Bodies[i], bb.Bodies[i]) {
				return false
			}
		}
		return true
	}
	return false
}
