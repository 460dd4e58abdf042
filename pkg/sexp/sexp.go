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
package sexp

import "strings"

// SExp is a solver response, or a fragment of one.  It is either a List of
// zero or more S-Expressions, or a Symbol.
type SExp interface {
	// IsList checks whether this S-Expression is a list.
	IsList() bool
	// IsSymbol checks whether this S-Expression is a symbol.
	IsSymbol() bool
	// String renders the S-Expression in SMT-LIB concrete syntax.
	String() string
}

// ===================================================================
// List
// ===================================================================

// List represents a list of zero or more S-Expressions.
type List struct {
	Elements []SExp
}

var _ SExp = (*List)(nil)

// IsList returns true.
func (l *List) IsList() bool { return true }

// IsSymbol returns false.
func (l *List) IsSymbol() bool { return false }

// Len gets the number of elements in this list.
func (l *List) Len() int { return len(l.Elements) }

// Pair returns both elements of a two element list, such as an entry of a
// get-value response.
func (l *List) Pair() (SExp, SExp, bool) {
	if len(l.Elements) != 2 {
		return nil, nil, false
	}

	return l.Elements[0], l.Elements[1], true
}

// Head returns the symbol at the head of this list.  Where the head is itself
// a list, as in "((as const T) v)", its own head is returned.
func (l *List) Head() (string, bool) {
	if len(l.Elements) == 0 {
		return "", false
	} else if inner, ok := l.Elements[0].(*List); ok {
		return inner.Head()
	}

	return AsSymbol(l.Elements[0])
}

func (l *List) String() string {
	var b strings.Builder

	b.WriteByte('(')

	for i, e := range l.Elements {
		if i != 0 {
			b.WriteByte(' ')
		}

		b.WriteString(e.String())
	}

	b.WriteByte(')')

	return b.String()
}

// ===================================================================
// Symbol
// ===================================================================

// Symbol represents a terminating symbol.  Quoted symbols hold their value
// without the enclosing bars.
type Symbol struct {
	Value string
}

var _ SExp = (*Symbol)(nil)

// IsList returns false.
func (s *Symbol) IsList() bool { return false }

// IsSymbol returns true.
func (s *Symbol) IsSymbol() bool { return true }

// String re-quotes symbols which would not otherwise read back as one token.
func (s *Symbol) String() string {
	if s.Value == "" || strings.ContainsAny(s.Value, "() \t\r\n;") {
		return "|" + s.Value + "|"
	}

	return s.Value
}

// AsSymbol returns the value of s if it is a symbol.
func AsSymbol(s SExp) (string, bool) {
	if sym, ok := s.(*Symbol); ok {
		return sym.Value, true
	}

	return "", false
}
