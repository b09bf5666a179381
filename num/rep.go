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

// Package num defines the hardware numeric representations carried by
// datapath signals: unsigned integers, signed fixed-point, and IEEE-754
// single/double precision. A representation fixes the bit width of every
// signal at compile time and supplies the encode/decode contract
// (BitsOf/ValueOf) that backends use to generate literal constants and that
// testbenches use to decode outputs.
//
// Complex samples are carried as two parallel wires of the same scalar
// representation, never as one double-width bus; see Type.
package num

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rep describes the wire encoding of one real-valued signal and the
// arithmetic the datapath performs on it. All bit patterns are right-aligned
// in a uint64.
type Rep interface {
	// Bits returns the signal width. Always in [1, 64].
	Bits() int
	// BitsOf encodes a value as a raw bit pattern.
	BitsOf(v float64) uint64
	// ValueOf decodes a raw bit pattern.
	ValueOf(bits uint64) float64
	// Add, Sub and Mul implement the datapath arithmetic on raw patterns.
	Add(a, b uint64) uint64
	Sub(a, b uint64) uint64
	Mul(a, b uint64) uint64

	fmt.Stringer
}

// DomainError reports an unrepresentable numeric configuration, such as a
// width outside [1, 64] or an arbitrary-precision float format (those belong
// to the external IP backend, not this package).
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return "num: " + e.Msg }

// Unsigned is a plain unsigned integer representation.
type Unsigned struct {
	W int
}

// NewUnsigned returns an unsigned representation of the given width.
func NewUnsigned(bits int) (Unsigned, error) {
	if bits < 1 || bits > 64 {
		return Unsigned{}, &DomainError{Msg: fmt.Sprintf("unsigned width %d outside [1, 64]", bits)}
	}
	return Unsigned{W: bits}, nil
}

func (u Unsigned) Bits() int { return u.W }

func (u Unsigned) mask() uint64 {
	if u.W == 64 {
		return ^uint64(0)
	}
	return 1<<u.W - 1
}

func (u Unsigned) BitsOf(v float64) uint64 {
	return uint64(int64(math.Round(v))) & u.mask()
}

func (u Unsigned) ValueOf(bits uint64) float64 {
	return float64(bits & u.mask())
}

func (u Unsigned) Add(a, b uint64) uint64 { return (a + b) & u.mask() }
func (u Unsigned) Sub(a, b uint64) uint64 { return (a - b) & u.mask() }
func (u Unsigned) Mul(a, b uint64) uint64 { return (a * b) & u.mask() }

func (u Unsigned) String() string { return fmt.Sprintf("ufix%d", u.W) }

// Fixed is a signed two's-complement fixed-point representation with Frac
// fractional bits.
type Fixed struct {
	W    int
	Frac int
}

// NewFixed returns a signed fixed-point representation. The fractional part
// must leave at least one integer bit.
func NewFixed(bits, frac int) (Fixed, error) {
	if bits < 1 || bits > 64 {
		return Fixed{}, &DomainError{Msg: fmt.Sprintf("fixed width %d outside [1, 64]", bits)}
	}
	if frac < 0 || frac >= bits {
		return Fixed{}, &DomainError{Msg: fmt.Sprintf("fractional width %d outside [0, %d)", frac, bits)}
	}
	return Fixed{W: bits, Frac: frac}, nil
}

func (f Fixed) Bits() int { return f.W }

func (f Fixed) mask() uint64 {
	if f.W == 64 {
		return ^uint64(0)
	}
	return 1<<f.W - 1
}

// signed sign-extends a W-bit pattern to int64.
func (f Fixed) signed(bits uint64) int64 {
	shift := 64 - f.W
	return int64(bits<<shift) >> shift
}

func (f Fixed) BitsOf(v float64) uint64 {
	scaled := math.Round(v * float64(uint64(1)<<f.Frac))
	return uint64(int64(scaled)) & f.mask()
}

func (f Fixed) ValueOf(bits uint64) float64 {
	return float64(f.signed(bits)) / float64(uint64(1)<<f.Frac)
}

func (f Fixed) Add(a, b uint64) uint64 { return (a + b) & f.mask() }
func (f Fixed) Sub(a, b uint64) uint64 { return (a - b) & f.mask() }

// Mul multiplies with truncation of the extra fractional bits. The product
// is computed in 64-bit and wraps like the hardware multiplier it models.
func (f Fixed) Mul(a, b uint64) uint64 {
	p := f.signed(a) * f.signed(b)
	return uint64(p>>f.Frac) & f.mask()
}

func (f Fixed) String() string { return fmt.Sprintf("fix%d.%d", f.W, f.Frac) }

// Float32 is IEEE-754 single precision, encoded natively.
type Float32 struct{}

func (Float32) Bits() int { return 32 }

func (Float32) BitsOf(v float64) uint64 {
	return uint64(math.Float32bits(float32(v)))
}

func (Float32) ValueOf(bits uint64) float64 {
	return float64(math.Float32frombits(uint32(bits)))
}

func (Float32) Add(a, b uint64) uint64 {
	return uint64(math.Float32bits(math.Float32frombits(uint32(a)) + math.Float32frombits(uint32(b))))
}

func (Float32) Sub(a, b uint64) uint64 {
	return uint64(math.Float32bits(math.Float32frombits(uint32(a)) - math.Float32frombits(uint32(b))))
}

func (Float32) Mul(a, b uint64) uint64 {
	return uint64(math.Float32bits(math.Float32frombits(uint32(a)) * math.Float32frombits(uint32(b))))
}

func (Float32) String() string { return "float32" }

// Float64 is IEEE-754 double precision, encoded natively.
type Float64 struct{}

func (Float64) Bits() int { return 64 }

func (Float64) BitsOf(v float64) uint64 { return math.Float64bits(v) }

func (Float64) ValueOf(bits uint64) float64 { return math.Float64frombits(bits) }

func (Float64) Add(a, b uint64) uint64 {
	return math.Float64bits(math.Float64frombits(a) + math.Float64frombits(b))
}

func (Float64) Sub(a, b uint64) uint64 {
	return math.Float64bits(math.Float64frombits(a) - math.Float64frombits(b))
}

func (Float64) Mul(a, b uint64) uint64 {
	return math.Float64bits(math.Float64frombits(a) * math.Float64frombits(b))
}

func (Float64) String() string { return "float64" }

// Type is the data type of one logical sample: a real or complex value
// carried on one or two wires of the same scalar representation.
type Type struct {
	Rep     Rep
	Complex bool
}

// Wires returns the number of parallel signals per sample.
func (t Type) Wires() int {
	if t.Complex {
		return 2
	}
	return 1
}

func (t Type) String() string {
	if t.Complex {
		return "complex:" + t.Rep.String()
	}
	return t.Rep.String()
}

// Parse reads a type descriptor of the form accepted by the CLI:
// "float32", "float64", "fixed:W.F", "unsigned:W", each optionally prefixed
// with "complex:".
func Parse(s string) (Type, error) {
	var t Type
	rest := s
	if after, ok := strings.CutPrefix(rest, "complex:"); ok {
		t.Complex = true
		rest = after
	}
	switch {
	case rest == "float32":
		t.Rep = Float32{}
	case rest == "float64":
		t.Rep = Float64{}
	case strings.HasPrefix(rest, "fixed:"):
		spec := strings.TrimPrefix(rest, "fixed:")
		w, frac, ok := strings.Cut(spec, ".")
		if !ok {
			return Type{}, &DomainError{Msg: fmt.Sprintf("malformed fixed-point descriptor %q", s)}
		}
		wi, err1 := strconv.Atoi(w)
		fi, err2 := strconv.Atoi(frac)
		if err1 != nil || err2 != nil {
			return Type{}, &DomainError{Msg: fmt.Sprintf("malformed fixed-point descriptor %q", s)}
		}
		rep, err := NewFixed(wi, fi)
		if err != nil {
			return Type{}, err
		}
		t.Rep = rep
	case strings.HasPrefix(rest, "unsigned:"):
		wi, err := strconv.Atoi(strings.TrimPrefix(rest, "unsigned:"))
		if err != nil {
			return Type{}, &DomainError{Msg: fmt.Sprintf("malformed unsigned descriptor %q", s)}
		}
		rep, err2 := NewUnsigned(wi)
		if err2 != nil {
			return Type{}, err2
		}
		t.Rep = rep
	default:
		return Type{}, &DomainError{Msg: fmt.Sprintf("unknown representation %q", s)}
	}
	return t, nil
}
