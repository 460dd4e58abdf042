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
package smtlib

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/consensys/go-ischeck/pkg/sexp"
)

// parseValue extracts the value from a get-value response "((term value))".
func parseValue(sort smt.Sort, reply string) (smt.Value, error) {
	s, err := sexp.Parse(reply)
	if err != nil {
		return smt.Value{}, err
	}
	//
	outer, ok := s.(*sexp.List)
	if !ok || outer.Len() != 1 {
		return smt.Value{}, fmt.Errorf("malformed get-value response %s", reply)
	}

	entry, ok := outer.Elements[0].(*sexp.List)
	if !ok {
		return smt.Value{}, fmt.Errorf("malformed get-value response %s", reply)
	}

	_, value, ok := entry.Pair()
	if !ok {
		return smt.Value{}, fmt.Errorf("malformed get-value response %s", reply)
	}

	v, err := newValueTranslator(sort).Translate(value)
	if err != nil {
		return smt.Value{}, fmt.Errorf("%w: value %s", err, value)
	}

	return v, nil
}

// newValueTranslator constructs a translator for the values a solver may
// report for a term of the given sort.  Arrays are accepted in the
// "(store ((as const T) #x00) i v)" form only.
func newValueTranslator(sort smt.Sort) *sexp.Translator[smt.Value] {
	p := sexp.NewTranslator[smt.Value]()
	//
	p.AddSymbolRule(parseConst)
	p.AddBinaryRule("_", func(bv string, width string) (smt.Value, error) {
		if !strings.HasPrefix(bv, "bv") {
			return smt.Value{}, fmt.Errorf("%w: indexed symbol %s", smt.ErrUnsupported, bv)
		}

		v, err1 := strconv.ParseUint(bv[2:], 10, 64)
		w, err2 := strconv.ParseUint(width, 10, 32)

		if err := errors.Join(err1, err2); err != nil {
			return smt.Value{}, err
		}

		return smt.BitVecValue(v, uint(w)), nil
	})
	p.AddListRule("as", func(elements []sexp.SExp) (smt.Value, error) {
		if len(elements) != 2 || !sort.IsArray() {
			return smt.Value{}, errors.New("malformed constant array")
		}

		def, err := p.Translate(elements[1])
		if err != nil {
			return smt.Value{}, err
		} else if def.Uint64() != 0 {
			return smt.Value{}, fmt.Errorf("%w: non-zero array default", smt.ErrUnsupported)
		}

		return smt.ArrayValue(sort, nil), nil
	})
	p.AddRecursiveRule("store", func(args []smt.Value) (smt.Value, error) {
		if len(args) != 3 || !args[0].Sort().IsArray() {
			return smt.Value{}, errors.New("malformed store")
		}

		return args[0].Store(args[1].Uint64(), args[2].Uint64()), nil
	})

	return p
}

// parseConst parses a boolean or bit-vector literal.
func parseConst(s string) (smt.Value, error) {
	switch {
	case s == "true":
		return smt.BoolValue(true), nil
	case s == "false":
		return smt.BoolValue(false), nil
	case strings.HasPrefix(s, "#x") && len(s) > 2 && len(s) <= 18:
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return smt.BitVecValue(v, uint(4*(len(s)-2))), err
	case strings.HasPrefix(s, "#b") && len(s) > 2 && len(s) <= 66:
		v, err := strconv.ParseUint(s[2:], 2, 64)
		return smt.BitVecValue(v, uint(len(s)-2)), err
	}

	return smt.Value{}, fmt.Errorf("%w: literal %s", smt.ErrUnsupported, s)
}
