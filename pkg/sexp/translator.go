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

import (
	"errors"
	"fmt"
)

// SymbolRule is responsible for converting a terminating expression (i.e. a
// symbol) into an expression of type T, for example a constant.
type SymbolRule[T any] func(string) (T, error)

// ListRule is responsible for converting a list with a given sequence of zero
// or more arguments into an expression of type T.  The arguments are given
// untranslated, including the head of the list.
type ListRule[T any] func([]SExp) (T, error)

// BinaryRule is a wrapper for translating lists which must have exactly two
// symbol arguments.  The wrapper takes care of ensuring sufficient arguments
// are given, etc.
type BinaryRule[T any] func(string, string) (T, error)

// RecursiveRule is a wrapper for translating lists whose elements can be built
// by recursively reusing the enclosing translator.
type RecursiveRule[T any] func([]T) (T, error)

// ===================================================================
// Translator
// ===================================================================

// Translator is a generic mechanism for translating S-Expressions into a
// structured form.  Lists are dispatched on their head symbol; a list whose
// head is itself a list, such as "((as const T) v)", is dispatched on the
// head symbol of that inner list.
type Translator[T any] struct {
	lists   map[string]ListRule[T]
	symbols []SymbolRule[T]
}

// NewTranslator constructs a new Translator instance.
func NewTranslator[T any]() *Translator[T] {
	return &Translator[T]{
		lists:   make(map[string]ListRule[T]),
		symbols: make([]SymbolRule[T], 0),
	}
}

// Translate a given S-Expression into a given structured representation T.
func (p *Translator[T]) Translate(s SExp) (T, error) {
	var empty T
	//
	switch e := s.(type) {
	case *List:
		return p.translateList(e.Elements)
	case *Symbol:
		var err error

		for _, rule := range p.symbols {
			var ir T
			if ir, err = rule(e.Value); err == nil {
				return ir, nil
			}
		}

		if err != nil {
			return empty, err
		}

		return empty, fmt.Errorf("unknown symbol %s", e.Value)
	}

	return empty, errors.New("invalid S-Expression")
}

// AddListRule adds a new list translator to this expression translator.
func (p *Translator[T]) AddListRule(name string, t ListRule[T]) {
	p.lists[name] = t
}

// AddRecursiveRule adds a new list translator whose arguments are translated
// first.
func (p *Translator[T]) AddRecursiveRule(name string, t RecursiveRule[T]) {
	// Construct a recursive list translator as a wrapper around a generic list translator.
	p.lists[name] = func(elements []SExp) (T, error) {
		var (
			empty T
			err   error
		)
		// Translate arguments
		args := make([]T, len(elements)-1)
		for i, s := range elements[1:] {
			args[i], err = p.Translate(s)
			if err != nil {
				return empty, err
			}
		}

		return t(args)
	}
}

// AddBinaryRule adds a new list translator for lists of two symbols.
func (p *Translator[T]) AddBinaryRule(name string, t BinaryRule[T]) {
	p.lists[name] = func(elements []SExp) (T, error) {
		var empty T

		if len(elements) != 3 {
			return empty, fmt.Errorf("incorrect number of arguments: {%d}", len(elements)-1)
		}

		lhs, ok1 := elements[1].(*Symbol)
		rhs, ok2 := elements[2].(*Symbol)

		if ok1 && ok2 {
			return t(lhs.Value, rhs.Value)
		}

		return empty, fmt.Errorf("binary list malformed (%t,%t)", ok1, ok2)
	}
}

// AddSymbolRule adds a new symbol translator to this expression translator.
func (p *Translator[T]) AddSymbolRule(t SymbolRule[T]) {
	p.symbols = append(p.symbols, t)
}

// Translate a list of S-Expressions into a unary, binary or n-ary expression
// of some kind, as determined by the head of the list.
func (p *Translator[T]) translateList(elements []SExp) (T, error) {
	var empty T
	//
	name, ok := (&List{elements}).Head()
	if !ok {
		return empty, errors.New("invalid List")
	}
	// Lookup appropriate translator
	if t := p.lists[name]; t != nil {
		return t(elements)
	}

	return empty, fmt.Errorf("unknown list %s", name)
}
