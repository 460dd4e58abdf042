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
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Context is a factory for terms and function symbols.  All terms are
// hash-consed within their context, so structural equality coincides with
// pointer equality.  A Context is not safe for concurrent use.
type Context struct {
	terms []*Term
	table map[uint64][]*Term
	vars  map[string]*Term
	funcs map[string]*Func
	nfunc uint
}

// NewContext constructs an empty term context.
func NewContext() *Context {
	return &Context{
		table: make(map[uint64][]*Term),
		vars:  make(map[string]*Term),
		funcs: make(map[string]*Func),
	}
}

// NumTerms returns the number of distinct terms created so far.
func (p *Context) NumTerms() uint {
	return uint(len(p.terms))
}

// Funcs returns all function symbols declared in this context, in declaration
// order.
func (p *Context) Funcs() []*Func {
	fns := make([]*Func, 0, len(p.funcs))
	for _, f := range p.funcs {
		fns = append(fns, f)
	}

	slices.SortFunc(fns, func(a, b *Func) int { return int(a.id) - int(b.id) })

	return fns
}

// hashOf computes the hash-consing key for a term template.
func hashOf(op Op, sort Sort, args []*Term, name string, value uint64, params [2]uint, fn *Func) uint64 {
	var (
		d   = xxhash.New()
		buf [8]byte
	)
	//
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	put(uint64(op))
	put(uint64(sort.Kind))
	put(uint64(sort.Width))
	put(uint64(sort.Index))
	put(uint64(sort.Elem))
	put(value)
	put(uint64(params[0]))
	put(uint64(params[1]))
	_, _ = d.WriteString(name)

	if fn != nil {
		put(uint64(fn.id))
	}

	for _, arg := range args {
		put(uint64(arg.id))
	}

	return d.Sum64()
}

// intern returns the unique term matching the given template, creating it if
// necessary.
func (p *Context) intern(op Op, sort Sort, args []*Term, name string, value uint64, params [2]uint, fn *Func) *Term {
	key := hashOf(op, sort, args, name, value, params, fn)
	for _, t := range p.table[key] {
		if t.op == op && t.sort == sort && t.name == name && t.value == value && t.params == params &&
			t.fn == fn && slices.Equal(t.args, args) {
			return t
		}
	}
	//
	closed := op != OpBound

	for _, arg := range args {
		closed = closed && arg.closed
	}
	// Quantifiers close over their bound variables
	if op == OpForall {
		closed = args[len(args)-1].closed || closedUnder(args[len(args)-1], args[:len(args)-1])
	}
	//
	t := &Term{uint(len(p.terms)), op, sort, slices.Clone(args), name, value, params, fn, closed}
	p.terms = append(p.terms, t)
	p.table[key] = append(p.table[key], t)

	return t
}

// closedUnder checks that the only bound variables occurring free in body are
// those given.
func closedUnder(body *Term, bound []*Term) bool {
	closed := true

	Visit(body, func(t *Term) bool {
		if t.op == OpBound && !slices.Contains(bound, t) {
			closed = false
		}

		return closed && !t.closed
	})

	return closed
}

// ============================================================================
// Leaves
// ============================================================================

// Var returns the free constant of the given name and sort.  Requesting an
// existing name with a different sort is a programming error.
func (p *Context) Var(name string, sort Sort) *Term {
	if v, ok := p.vars[name]; ok {
		if v.sort != sort {
			panic(fmt.Sprintf("variable %s redeclared with sort %s (was %s)", name, sort, v.sort))
		}

		return v
	}

	v := p.intern(OpVar, sort, nil, name, 0, [2]uint{}, nil)
	p.vars[name] = v

	return v
}

// BitVecVar is shorthand for a bit-vector variable.
func (p *Context) BitVecVar(name string, width uint) *Term {
	return p.Var(name, BitVecSort(width))
}

// BoolVar is shorthand for a boolean variable.
func (p *Context) BoolVar(name string) *Term {
	return p.Var(name, BoolSort())
}

// ArrayVar is shorthand for an array variable.
func (p *Context) ArrayVar(name string, index, elem uint) *Term {
	return p.Var(name, ArraySort(index, elem))
}

// Bound returns a variable for use under a quantifier.
func (p *Context) Bound(name string, sort Sort) *Term {
	return p.intern(OpBound, sort, nil, name, 0, [2]uint{}, nil)
}

// Bool returns the boolean constant b.
func (p *Context) Bool(b bool) *Term {
	if b {
		return p.intern(OpConst, BoolSort(), nil, "", 1, [2]uint{}, nil)
	}

	return p.intern(OpConst, BoolSort(), nil, "", 0, [2]uint{}, nil)
}

// True returns the constant true.
func (p *Context) True() *Term { return p.Bool(true) }

// False returns the constant false.
func (p *Context) False() *Term { return p.Bool(false) }

// BitVec returns the bit-vector constant v truncated to the given width.
func (p *Context) BitVec(v uint64, width uint) *Term {
	return p.intern(OpConst, BitVecSort(width), nil, "", v&Mask(width), [2]uint{}, nil)
}

// ============================================================================
// Boolean connectives
// ============================================================================

// Not returns the negation of a.
func (p *Context) Not(a *Term) *Term {
	requireBool("not", a)
	//
	switch {
	case a.op == OpConst:
		return p.Bool(a.value == 0)
	case a.op == OpNot:
		return a.args[0]
	}

	return p.intern(OpNot, BoolSort(), []*Term{a}, "", 0, [2]uint{}, nil)
}

// And returns the conjunction of its arguments (true when empty).  Nested
// conjunctions are flattened and duplicates removed.
func (p *Context) And(args ...*Term) *Term {
	return p.nary(OpAnd, args)
}

// Or returns the disjunction of its arguments (false when empty).
func (p *Context) Or(args ...*Term) *Term {
	return p.nary(OpOr, args)
}

func (p *Context) nary(op Op, args []*Term) *Term {
	var (
		// unit is neutral, zero is absorbing
		unit = uint64(1)
		ops  []*Term
		seen = make(map[uint]bool)
	)

	if op == OpOr {
		unit = 0
	}
	//
	var add func(*Term) bool

	add = func(a *Term) bool {
		requireBool(op.String(), a)
		//
		switch {
		case a.op == OpConst && a.value == unit:
			return true
		case a.op == OpConst:
			return false
		case a.op == op:
			for _, b := range a.args {
				if !add(b) {
					return false
				}
			}

			return true
		case seen[a.id]:
			return true
		}
		// complementary literals
		if a.op == OpNot && seen[a.args[0].id] {
			return false
		} else if n, ok := p.negation(a); ok && seen[n.id] {
			return false
		}

		seen[a.id] = true
		ops = append(ops, a)

		return true
	}
	//
	for _, a := range args {
		if !add(a) {
			return p.Bool(unit == 0)
		}
	}
	//
	switch len(ops) {
	case 0:
		return p.Bool(unit == 1)
	case 1:
		return ops[0]
	}

	return p.intern(op, BoolSort(), ops, "", 0, [2]uint{}, nil)
}

// negation returns the negation of a if it already exists.
func (p *Context) negation(a *Term) (*Term, bool) {
	key := hashOf(OpNot, BoolSort(), []*Term{a}, "", 0, [2]uint{}, nil)
	for _, t := range p.table[key] {
		if t.op == OpNot && t.args[0] == a {
			return t, true
		}
	}

	return nil, false
}

// Implies returns a => b.
func (p *Context) Implies(a, b *Term) *Term {
	return p.Or(p.Not(a), b)
}

// Ite returns "if c then a else b" for operands of any (matching) sort.
func (p *Context) Ite(c, a, b *Term) *Term {
	requireBool("ite", c)
	requireSameSort("ite", a, b)
	//
	switch {
	case c.IsTrue() || a == b:
		return a
	case c.IsFalse():
		return b
	}

	return p.intern(OpIte, a.sort, []*Term{c, a, b}, "", 0, [2]uint{}, nil)
}

// Eq returns a = b for operands of any (matching) sort.
func (p *Context) Eq(a, b *Term) *Term {
	requireSameSort("=", a, b)
	//
	switch {
	case a == b:
		return p.True()
	case a.op == OpConst && b.op == OpConst:
		return p.Bool(a.value == b.value)
	case a.id > b.id:
		a, b = b, a
	}

	return p.intern(OpEq, BoolSort(), []*Term{a, b}, "", 0, [2]uint{}, nil)
}

// EqConst is shorthand for a = v where v is a constant of a's width.
func (p *Context) EqConst(a *Term, v uint64) *Term {
	return p.Eq(a, p.BitVec(v, a.sort.Width))
}

// ============================================================================
// Bit-vectors
// ============================================================================

// BvNot returns the bitwise complement of a.
func (p *Context) BvNot(a *Term) *Term {
	requireBitVec("bvnot", a)

	if a.op == OpConst {
		return p.BitVec(^a.value, a.sort.Width)
	}

	return p.intern(OpBvNot, a.sort, []*Term{a}, "", 0, [2]uint{}, nil)
}

// BvAnd returns the bitwise conjunction of a and b.
func (p *Context) BvAnd(a, b *Term) *Term {
	return p.arith(OpBvAnd, a, b, func(x, y uint64) uint64 { return x & y })
}

// BvOr returns the bitwise disjunction of a and b.
func (p *Context) BvOr(a, b *Term) *Term {
	return p.arith(OpBvOr, a, b, func(x, y uint64) uint64 { return x | y })
}

// BvXor returns the bitwise exclusive-or of a and b.
func (p *Context) BvXor(a, b *Term) *Term {
	return p.arith(OpBvXor, a, b, func(x, y uint64) uint64 { return x ^ y })
}

// BvAdd returns a + b (modulo 2^width).
func (p *Context) BvAdd(a, b *Term) *Term {
	if b.op == OpConst && b.value == 0 {
		return a
	}

	return p.arith(OpBvAdd, a, b, func(x, y uint64) uint64 { return x + y })
}

// BvAddConst is shorthand for a + v.
func (p *Context) BvAddConst(a *Term, v uint64) *Term {
	return p.BvAdd(a, p.BitVec(v, a.sort.Width))
}

// BvSub returns a - b (modulo 2^width).
func (p *Context) BvSub(a, b *Term) *Term {
	if b.op == OpConst && b.value == 0 {
		return a
	}

	return p.arith(OpBvSub, a, b, func(x, y uint64) uint64 { return x - y })
}

func (p *Context) arith(op Op, a, b *Term, fold func(uint64, uint64) uint64) *Term {
	requireBitVec(op.String(), a)
	requireSameSort(op.String(), a, b)

	if a.op == OpConst && b.op == OpConst {
		return p.BitVec(fold(a.value, b.value), a.sort.Width)
	}

	return p.intern(op, a.sort, []*Term{a, b}, "", 0, [2]uint{}, nil)
}

// Ult returns the unsigned comparison a < b.
func (p *Context) Ult(a, b *Term) *Term {
	requireBitVec("bvult", a)
	requireSameSort("bvult", a, b)
	//
	switch {
	case a == b:
		return p.False()
	case a.op == OpConst && b.op == OpConst:
		return p.Bool(a.value < b.value)
	}

	return p.intern(OpBvUlt, BoolSort(), []*Term{a, b}, "", 0, [2]uint{}, nil)
}

// Ule returns the unsigned comparison a <= b.
func (p *Context) Ule(a, b *Term) *Term {
	requireBitVec("bvule", a)
	requireSameSort("bvule", a, b)
	//
	switch {
	case a == b:
		return p.True()
	case a.op == OpConst && b.op == OpConst:
		return p.Bool(a.value <= b.value)
	}

	return p.intern(OpBvUle, BoolSort(), []*Term{a, b}, "", 0, [2]uint{}, nil)
}

// Extract returns bits hi down to lo (inclusive) of a.
func (p *Context) Extract(hi, lo uint, a *Term) *Term {
	requireBitVec("extract", a)

	if hi < lo || hi >= a.sort.Width {
		panic(fmt.Sprintf("invalid extraction [%d:%d] from %d bits", hi, lo, a.sort.Width))
	} else if lo == 0 && hi == a.sort.Width-1 {
		return a
	} else if a.op == OpConst {
		return p.BitVec(a.value>>lo, hi-lo+1)
	}

	return p.intern(OpExtract, BitVecSort(hi-lo+1), []*Term{a}, "", 0, [2]uint{hi, lo}, nil)
}

// ZeroExt widens a by k leading zero bits.
func (p *Context) ZeroExt(k uint, a *Term) *Term {
	requireBitVec("zero_extend", a)

	if k == 0 {
		return a
	} else if a.op == OpConst {
		return p.BitVec(a.value, a.sort.Width+k)
	}

	return p.intern(OpZeroExt, BitVecSort(a.sort.Width+k), []*Term{a}, "", 0, [2]uint{k, 0}, nil)
}

// Concat returns the bit-vector whose high bits are hi and low bits are lo.
func (p *Context) Concat(hi, lo *Term) *Term {
	requireBitVec("concat", hi)
	requireBitVec("concat", lo)

	width := hi.sort.Width + lo.sort.Width
	if hi.op == OpConst && lo.op == OpConst {
		return p.BitVec(hi.value<<lo.sort.Width|lo.value, width)
	}

	return p.intern(OpConcat, BitVecSort(width), []*Term{hi, lo}, "", 0, [2]uint{}, nil)
}

// ============================================================================
// Arrays
// ============================================================================

// Select reads array a at index i.  Reads through stores at constant indices
// are resolved eagerly.
func (p *Context) Select(a, i *Term) *Term {
	requireArray("select", a)

	if i.sort != a.sort.IndexSort() {
		panic(fmt.Sprintf("select index has sort %s, expected %s", i.sort, a.sort.IndexSort()))
	}
	//
	for a.op == OpStore && i.op == OpConst && a.args[1].op == OpConst {
		if a.args[1].value == i.value {
			return a.args[2]
		}

		a = a.args[0]
	}
	//
	if a.op == OpStore && a.args[1] == i {
		return a.args[2]
	}

	return p.intern(OpSelect, a.sort.ElemSort(), []*Term{a, i}, "", 0, [2]uint{}, nil)
}

// Store returns array a updated with v at index i.
func (p *Context) Store(a, i, v *Term) *Term {
	requireArray("store", a)

	if i.sort != a.sort.IndexSort() || v.sort != a.sort.ElemSort() {
		panic(fmt.Sprintf("store operands (%s,%s) do not match %s", i.sort, v.sort, a.sort))
	}

	return p.intern(OpStore, a.sort, []*Term{a, i, v}, "", 0, [2]uint{}, nil)
}

// ============================================================================
// Functions and quantifiers
// ============================================================================

// DeclareFun declares an uninterpreted function.  Redeclaring an existing name
// returns the existing symbol, provided the signature matches.
func (p *Context) DeclareFun(name string, rng Sort, domain ...Sort) *Func {
	if f, ok := p.funcs[name]; ok {
		if f.rng != rng || !slices.Equal(f.domain, domain) {
			panic(fmt.Sprintf("function %s redeclared with a different signature", name))
		}

		return f
	}

	f := &Func{p.nfunc, name, slices.Clone(domain), rng}
	p.nfunc++
	p.funcs[name] = f

	return f
}

// Apply returns the application of f to the given arguments.
func (p *Context) Apply(f *Func, args ...*Term) *Term {
	if len(args) != len(f.domain) {
		panic(fmt.Sprintf("%s expects %d arguments, got %d", f.name, len(f.domain), len(args)))
	}

	for i, arg := range args {
		if arg.sort != f.domain[i] {
			panic(fmt.Sprintf("argument %d of %s has sort %s, expected %s", i, f.name, arg.sort, f.domain[i]))
		}
	}

	return p.intern(OpApply, f.rng, args, "", 0, [2]uint{}, f)
}

// ForAll returns the universal quantification of body over the given bound
// variables.
func (p *Context) ForAll(vars []*Term, body *Term) *Term {
	requireBool("forall", body)

	if len(vars) == 0 {
		return body
	}

	for _, v := range vars {
		if v.op != OpBound {
			panic(fmt.Sprintf("cannot quantify over non-bound term %s", v))
		}
	}

	args := append(slices.Clone(vars), body)

	return p.intern(OpForall, BoolSort(), args, "", 0, [2]uint{}, nil)
}

// ============================================================================
// Helpers
// ============================================================================

func requireBool(op string, a *Term) {
	if !a.sort.IsBool() {
		panic(fmt.Sprintf("%s expects Bool operand, got %s", op, a.sort))
	}
}

func requireBitVec(op string, a *Term) {
	if !a.sort.IsBitVec() {
		panic(fmt.Sprintf("%s expects bit-vector operand, got %s", op, a.sort))
	}
}

func requireArray(op string, a *Term) {
	if !a.sort.IsArray() {
		panic(fmt.Sprintf("%s expects array operand, got %s", op, a.sort))
	}
}

func requireSameSort(op string, a, b *Term) {
	if a.sort != b.sort {
		panic(fmt.Sprintf("%s operands have mismatched sorts %s and %s", op, a.sort, b.sort))
	}
}
