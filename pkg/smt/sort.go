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

import "fmt"

// SortKind identifies the family a sort belongs to.
type SortKind uint8

const (
	// BoolKind is the sort of propositions.
	BoolKind SortKind = iota
	// BitVecKind is the sort of fixed-width unsigned machine words.
	BitVecKind
	// ArrayKind is the sort of total maps from bit-vectors to bit-vectors,
	// used to model memories.
	ArrayKind
)

// MaxWidth is the widest bit-vector supported by the term language.  Values
// are carried around as uint64 throughout.
const MaxWidth = 64

// Sort describes the type of a term.  For bit-vectors, Width gives the number
// of bits.  For arrays, Index and Elem give the widths of the address and data
// words respectively.
type Sort struct {
	Kind  SortKind
	Width uint
	Index uint
	Elem  uint
}

// BoolSort returns the boolean sort.
func BoolSort() Sort {
	return Sort{Kind: BoolKind}
}

// BitVecSort returns the sort of bit-vectors of the given width.
func BitVecSort(width uint) Sort {
	if width == 0 || width > MaxWidth {
		panic(fmt.Sprintf("invalid bit-vector width %d", width))
	}

	return Sort{Kind: BitVecKind, Width: width}
}

// ArraySort returns the sort of arrays from index-bit addresses to elem-bit
// words.
func ArraySort(index, elem uint) Sort {
	if index == 0 || index > MaxWidth || elem == 0 || elem > MaxWidth {
		panic(fmt.Sprintf("invalid array sort [%d -> %d]", index, elem))
	}

	return Sort{Kind: ArrayKind, Index: index, Elem: elem}
}

// IsBool checks whether this is the boolean sort.
func (s Sort) IsBool() bool { return s.Kind == BoolKind }

// IsBitVec checks whether this is a bit-vector sort.
func (s Sort) IsBitVec() bool { return s.Kind == BitVecKind }

// IsArray checks whether this is an array sort.
func (s Sort) IsArray() bool { return s.Kind == ArrayKind }

// IndexSort returns the sort of addresses for an array sort.
func (s Sort) IndexSort() Sort { return BitVecSort(s.Index) }

// ElemSort returns the sort of the data words for an array sort.
func (s Sort) ElemSort() Sort { return BitVecSort(s.Elem) }

// String returns the SMT-LIB2 spelling of this sort.
func (s Sort) String() string {
	switch s.Kind {
	case BoolKind:
		return "Bool"
	case BitVecKind:
		return fmt.Sprintf("(_ BitVec %d)", s.Width)
	default:
		return fmt.Sprintf("(Array (_ BitVec %d) (_ BitVec %d))", s.Index, s.Elem)
	}
}

// Mask returns the bit mask selecting the low w bits of a word.
func Mask(w uint) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << w) - 1
}
