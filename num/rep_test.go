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

package num

import (
	"math"
	"testing"
)

func TestFixedRoundTrip(t *testing.T) {
	rep, err := NewFixed(16, 8)
	if err != nil {
		t.Fatal(err)
	}
	tests := []float64{0, 1, -1, 0.5, -0.5, 3.25, -3.25, 127.99609375, -128}
	for _, v := range tests {
		bits := rep.BitsOf(v)
		if got := rep.ValueOf(bits); got != v {
			t.Errorf("fix16.8 round trip of %v = %v (bits %#x)", v, got, bits)
		}
	}
}

func TestFixedArith(t *testing.T) {
	rep, _ := NewFixed(16, 8)
	enc := rep.BitsOf
	tests := []struct {
		name string
		got  uint64
		want float64
	}{
		{"add", rep.Add(enc(1.5), enc(2.25)), 3.75},
		{"sub", rep.Sub(enc(1.5), enc(2.25)), -0.75},
		{"sub-negative", rep.Sub(enc(-3), enc(4)), -7},
		{"mul", rep.Mul(enc(1.5), enc(-2)), -3},
		{"mul-frac", rep.Mul(enc(0.5), enc(0.5)), 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := rep.ValueOf(tt.got); v != tt.want {
				t.Errorf("got %v, want %v", v, tt.want)
			}
		})
	}
}

func TestFixedWrap(t *testing.T) {
	rep, _ := NewFixed(8, 0)
	// 127 + 1 wraps to -128 in two's complement.
	if got := rep.ValueOf(rep.Add(rep.BitsOf(127), rep.BitsOf(1))); got != -128 {
		t.Errorf("127+1 = %v, want -128", got)
	}
}

func TestFloat64Exact(t *testing.T) {
	rep := Float64{}
	for _, v := range []float64{0, 1, -1, math.Pi, 1e-300, -2.5} {
		if got := rep.ValueOf(rep.BitsOf(v)); got != v {
			t.Errorf("float64 round trip of %v = %v", v, got)
		}
	}
	// The expectation must round twice like the adder does; the constant
	// expression 0.1+0.2 rounds only once.
	a, b := 0.1, 0.2
	if got := rep.ValueOf(rep.Add(rep.BitsOf(a), rep.BitsOf(b))); got != a+b {
		t.Errorf("float64 add = %v, want %v", got, a+b)
	}
}

func TestUnsignedWrap(t *testing.T) {
	rep, _ := NewUnsigned(4)
	if got := rep.Add(15, 1); got != 0 {
		t.Errorf("15+1 mod 16 = %d, want 0", got)
	}
	if got := rep.Sub(0, 1); got != 15 {
		t.Errorf("0-1 mod 16 = %d, want 15", got)
	}
}

func TestConstructorErrors(t *testing.T) {
	if _, err := NewUnsigned(0); err == nil {
		t.Error("NewUnsigned(0) accepted")
	}
	if _, err := NewUnsigned(65); err == nil {
		t.Error("NewUnsigned(65) accepted")
	}
	if _, err := NewFixed(8, 8); err == nil {
		t.Error("NewFixed(8, 8) accepted")
	}
	if _, err := NewFixed(8, -1); err == nil {
		t.Error("NewFixed(8, -1) accepted")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wires   int
		wantErr bool
	}{
		{"float64", "float64", 1, false},
		{"complex:float64", "complex:float64", 2, false},
		{"fixed:16.8", "fix16.8", 1, false},
		{"complex:fixed:18.12", "complex:fix18.12", 2, false},
		{"unsigned:8", "ufix8", 1, false},
		{"fixed:16", "", 0, true},
		{"float16", "", 0, true},
		{"fixed:4.9", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.String() != tt.want || got.Wires() != tt.wires {
				t.Errorf("Parse(%q) = %v (%d wires), want %v (%d wires)",
					tt.in, got, got.Wires(), tt.want, tt.wires)
			}
		})
	}
}
