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
	"strings"
)

// Op identifies the operator at the root of a term.
type Op uint8

// Operators of the term language.  Those prefixed Bv operate over bit-vectors
// of equal width, with wrap-around semantics for arithmetic.
const (
	OpVar Op = iota
	OpBound
	OpConst
	OpNot
	OpAnd
	OpOr
	OpIte
	OpEq
	OpBvNot
	OpBvAnd
	OpBvOr
	OpBvXor
	OpBvAdd
	OpBvSub
	OpBvUlt
	OpBvUle
	OpExtract
	OpZeroExt
	OpConcat
	OpSelect
	OpStore
	OpApply
	OpForall
)

var opNames = [...]string{
	OpVar: "var", OpBound: "bound", OpConst: "const", OpNot: "not", OpAnd: "and", OpOr: "or",
	OpIte: "ite", OpEq: "=", OpBvNot: "bvnot", OpBvAnd: "bvand", OpBvOr: "bvor", OpBvXor: "bvxor",
	OpBvAdd: "bvadd", OpBvSub: "bvsub", OpBvUlt: "bvult", OpBvUle: "bvule", OpExtract: "extract",
	OpZeroExt: "zero_extend", OpConcat: "concat", OpSelect: "select", OpStore: "store",
	OpApply: "apply", OpForall: "forall",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}

	return fmt.Sprintf("op%d", op)
}

// Term is a node in a hash-consed expression DAG.  Terms are created only
// through a Context, hence two structurally identical terms from the same
// context are pointer-equal.
type Term struct {
	id     uint
	op     Op
	sort   Sort
	args   []*Term
	name   string
	value  uint64
	params [2]uint
	fn     *Func
	// Set when no bound variable occurs free in this term.
	closed bool
}

// ID returns the unique identifier of this term within its context.
func (t *Term) ID() uint { return t.id }

// Op returns the root operator.
func (t *Term) Op() Op { return t.op }

// Sort returns the sort of this term.
func (t *Term) Sort() Sort { return t.sort }

// Args returns the operands of this term.  For quantifiers, the bound
// variables come first and the body last.
func (t *Term) Args() []*Term { return t.args }

// Arg returns the ith operand.
func (t *Term) Arg(i int) *Term { return t.args[i] }

// Name returns the name of a variable (free or bound).
func (t *Term) Name() string { return t.name }

// Value returns the value of a constant.  Booleans are encoded as 0 / 1.
func (t *Term) Value() uint64 { return t.value }

// Params returns the indices of an indexed operator: (hi,lo) for extraction
// and (k,0) for zero extension.
func (t *Term) Params() (uint, uint) { return t.params[0], t.params[1] }

// Func returns the function applied by an application term.
func (t *Term) Func() *Func { return t.fn }

// IsClosed checks that no bound variable occurs free in this term.
func (t *Term) IsClosed() bool { return t.closed }

// IsConst checks whether this term is a constant.
func (t *Term) IsConst() bool { return t.op == OpConst }

// IsTrue checks whether this term is the constant true.
func (t *Term) IsTrue() bool { return t.op == OpConst && t.sort.IsBool() && t.value == 1 }

// IsFalse checks whether this term is the constant false.
func (t *Term) IsFalse() bool { return t.op == OpConst && t.sort.IsBool() && t.value == 0 }

// Bound returns the variables bound by a quantifier.
func (t *Term) Bound() []*Term { return t.args[:len(t.args)-1] }

// Body returns the body of a quantifier.
func (t *Term) Body() *Term { return t.args[len(t.args)-1] }

// String renders this term in SMT-LIB2 syntax.  Shared subterms are printed
// repeatedly, so this is intended for diagnostics on small terms.
func (t *Term) String() string {
	var b strings.Builder

	t.write(&b, nil)

	return b.String()
}

// WriteTo renders this term in SMT-LIB2 syntax, replacing any subterm which
// has an entry in names by that name.
func (t *Term) WriteTo(b *strings.Builder, names map[uint]string) {
	t.write(b, names)
}

func (t *Term) write(b *strings.Builder, names map[uint]string) {
	if n, ok := names[t.id]; ok {
		b.WriteString(n)
		return
	}
	//
	switch t.op {
	case OpVar, OpBound:
		b.WriteString(QuoteSymbol(t.name))
	case OpConst:
		b.WriteString(FormatConst(t.sort, t.value))
	case OpExtract:
		fmt.Fprintf(b, "((_ extract %d %d) ", t.params[0], t.params[1])
		t.args[0].write(b, names)
		b.WriteString(")")
	case OpZeroExt:
		fmt.Fprintf(b, "((_ zero_extend %d) ", t.params[0])
		t.args[0].write(b, names)
		b.WriteString(")")
	case OpApply:
		if len(t.args) == 0 {
			b.WriteString(QuoteSymbol(t.fn.name))
			return
		}

		b.WriteString("(")
		b.WriteString(QuoteSymbol(t.fn.name))

		for _, arg := range t.args {
			b.WriteString(" ")
			arg.write(b, names)
		}

		b.WriteString(")")
	case OpForall:
		b.WriteString("(forall (")

		for i, v := range t.Bound() {
			if i != 0 {
				b.WriteString(" ")
			}

			fmt.Fprintf(b, "(%s %s)", QuoteSymbol(v.name), v.sort)
		}

		b.WriteString(") ")
		t.Body().write(b, names)
		b.WriteString(")")
	default:
		b.WriteString("(")
		b.WriteString(t.op.String())

		for _, arg := range t.args {
			b.WriteString(" ")
			arg.write(b, names)
		}

		b.WriteString(")")
	}
}

// FormatConst renders a constant of the given sort in SMT-LIB2 syntax.
func FormatConst(sort Sort, value uint64) string {
	switch {
	case sort.IsBool() && value == 0:
		return "false"
	case sort.IsBool():
		return "true"
	case sort.Width%4 == 0:
		return fmt.Sprintf("#x%0*x", sort.Width/4, value)
	default:
		return fmt.Sprintf("#b%0*b", sort.Width, value)
	}
}

// QuoteSymbol returns name as an SMT-LIB2 symbol, quoting it with vertical
// bars unless it is a plain simple symbol.
func QuoteSymbol(name string) string {
	if name == "" {
		return "||"
	}
	//
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return "|" + name + "|"
		}
	}

	return name
}

// Func is an uninterpreted function symbol.
type Func struct {
	id     uint
	name   string
	domain []Sort
	rng    Sort
}

// ID returns the unique identifier of this function within its context.
func (f *Func) ID() uint { return f.id }

// Name returns the name of this function.
func (f *Func) Name() string { return f.name }

// Domain returns the argument sorts of this function.
func (f *Func) Domain() []Sort { return f.domain }

// Range returns the result sort of this function.
func (f *Func) Range() Sort { return f.rng }

// Arity returns the number of arguments this function accepts.
func (f *Func) Arity() int { return len(f.domain) }

func (f *Func) String() string {
	var b strings.Builder
	//
	b.WriteString(f.name)
	b.WriteString("(")

	for i, s := range f.domain {
		if i != 0 {
			b.WriteString(",")
		}

		b.WriteString(s.String())
	}

	b.WriteString(") ")
	b.WriteString(f.rng.String())

	return b.String()
}
