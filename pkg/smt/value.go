// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package smt

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Value is a concrete value of some sort, as found in a satisfying model.
// Arrays are represented by their explicitly known entries, with every other
// address holding zero.
type Value struct {
	sort    Sort
	bits    uint64
	entries map[uint64]uint64
}

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value {
	if b {
		return Value{sort: BoolSort(), bits: 1}
	}

	return Value{sort: BoolSort()}
}

// BitVecValue constructs a bit-vector value, truncated to the given width.
func BitVecValue(v uint64, width uint) Value {
	return Value{sort: BitVecSort(width), bits: v & Mask(width)}
}

// ArrayValue constructs an array value from its known entries.  Zero entries
// are dropped since they coincide with the default.
func ArrayValue(sort Sort, entries map[uint64]uint64) Value {
	m := make(map[uint64]uint64, len(entries))

	for k, v := range entries {
		if v&Mask(sort.Elem) != 0 {
			m[k&Mask(sort.Index)] = v & Mask(sort.Elem)
		}
	}

	return Value{sort: sort, entries: m}
}

// Sort returns the sort of this value.
func (v Value) Sort() Sort { return v.sort }

// Bool returns the truth value of a boolean value.
func (v Value) Bool() bool { return v.bits != 0 }

// Uint64 returns the contents of a bit-vector value.
func (v Value) Uint64() uint64 { return v.bits }

// Select reads an array value at the given address.
func (v Value) Select(addr uint64) uint64 { return v.entries[addr&Mask(v.sort.Index)] }

// Store returns a copy of an array value updated at the given address.
func (v Value) Store(addr, data uint64) Value {
	m := maps.Clone(v.entries)
	if m == nil {
		m = make(map[uint64]uint64)
	}

	m[addr&Mask(v.sort.Index)] = data & Mask(v.sort.Elem)

	return ArrayValue(v.sort, m)
}

// Addresses returns the addresses of all non-zero entries of an array value in
// ascending order.
func (v Value) Addresses() []uint64 {
	return slices.Sorted(maps.Keys(v.entries))
}

// Equal checks whether two values are identical.
func (v Value) Equal(o Value) bool {
	return v.sort == o.sort && v.bits == o.bits && maps.Equal(v.entries, o.entries)
}

func (v Value) String() string {
	if !v.sort.IsArray() {
		return FormatConst(v.sort, v.bits)
	}
	//
	var b strings.Builder

	b.WriteString("[")

	for i, addr := range v.Addresses() {
		if i != 0 {
			b.WriteString(", ")
		}

		fmt.Fprintf(&b, "%s -> %s", FormatConst(v.sort.IndexSort(), addr), FormatConst(v.sort.ElemSort(), v.entries[addr]))
	}

	b.WriteString("]")

	return b.String()
}
