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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Context_Intern_01(t *testing.T) {
	ctx := NewContext()
	x := ctx.BitVecVar("x", 8)
	y := ctx.BitVecVar("y", 8)
	// Structurally equal terms are identical
	assert.Same(t, ctx.BvAdd(x, y), ctx.BvAdd(x, y))
	assert.Same(t, x, ctx.BitVecVar("x", 8))
	assert.NotSame(t, ctx.BvAdd(x, y), ctx.BvAdd(y, x))
	// Equality is symmetric
	assert.Same(t, ctx.Eq(x, y), ctx.Eq(y, x))
}

func Test_Context_Intern_02(t *testing.T) {
	ctx := NewContext()
	ctx.BitVecVar("x", 8)
	//
	assert.Panics(t, func() { ctx.BitVecVar("x", 16) })
	assert.Panics(t, func() { ctx.BvAdd(ctx.BitVecVar("a", 8), ctx.BitVecVar("b", 4)) })
	assert.Panics(t, func() { ctx.Not(ctx.BitVecVar("c", 1)) })
}

func Test_Context_Bool_01(t *testing.T) {
	ctx := NewContext()
	a, b := ctx.BoolVar("a"), ctx.BoolVar("b")
	//
	assert.True(t, ctx.And().IsTrue())
	assert.True(t, ctx.Or().IsFalse())
	assert.Same(t, a, ctx.And(a, ctx.True()))
	assert.True(t, ctx.And(a, ctx.False()).IsFalse())
	assert.True(t, ctx.Or(a, ctx.True()).IsTrue())
	assert.Same(t, a, ctx.Not(ctx.Not(a)))
	assert.Same(t, a, ctx.And(a, a))
	// Complementary literals
	assert.True(t, ctx.And(a, ctx.Not(a)).IsFalse())
	assert.True(t, ctx.Or(ctx.Not(b), b).IsTrue())
}

func Test_Context_Bool_02(t *testing.T) {
	ctx := NewContext()
	a, b, c := ctx.BoolVar("a"), ctx.BoolVar("b"), ctx.BoolVar("c")
	// Nested conjunctions flatten
	conj := ctx.And(a, ctx.And(b, c))
	require.Equal(t, OpAnd, conj.Op())
	assert.Len(t, conj.Args(), 3)
	assert.Len(t, Conjuncts(conj), 3)
	assert.Len(t, Conjuncts(a), 1)
	assert.Empty(t, Conjuncts(ctx.True()))
}

func Test_Context_Fold_01(t *testing.T) {
	ctx := NewContext()
	//
	assert.Same(t, ctx.BitVec(1, 8), ctx.BvAdd(ctx.BitVec(0xff, 8), ctx.BitVec(2, 8)))
	assert.Same(t, ctx.BitVec(0xff, 8), ctx.BvSub(ctx.BitVec(0, 8), ctx.BitVec(1, 8)))
	assert.Same(t, ctx.BitVec(0xf0, 8), ctx.BvNot(ctx.BitVec(0x0f, 8)))
	assert.Same(t, ctx.BitVec(0xab, 8), ctx.Extract(15, 8, ctx.BitVec(0xabcd, 16)))
	assert.Same(t, ctx.BitVec(0xabcd, 16), ctx.Concat(ctx.BitVec(0xab, 8), ctx.BitVec(0xcd, 8)))
	assert.Same(t, ctx.BitVec(0x80, 16), ctx.ZeroExt(8, ctx.BitVec(0x80, 8)))
	assert.True(t, ctx.Ult(ctx.BitVec(1, 8), ctx.BitVec(2, 8)).IsTrue())
	assert.True(t, ctx.Eq(ctx.BitVec(1, 8), ctx.BitVec(2, 8)).IsFalse())
}

func Test_Context_Select_01(t *testing.T) {
	ctx := NewContext()
	mem := ctx.ArrayVar("mem", 8, 8)
	d := ctx.BitVecVar("d", 8)
	i := ctx.BitVecVar("i", 8)
	// Read-over-write at constant addresses resolves eagerly
	upd := ctx.Store(ctx.Store(mem, ctx.BitVec(1, 8), d), ctx.BitVec(2, 8), ctx.BitVec(7, 8))
	assert.Same(t, d, ctx.Select(upd, ctx.BitVec(1, 8)))
	assert.Same(t, ctx.Select(mem, ctx.BitVec(3, 8)), ctx.Select(upd, ctx.BitVec(3, 8)))
	// As does a read at the address just written
	assert.Same(t, d, ctx.Select(ctx.Store(mem, i, d), i))
	// But not through a symbolic store
	assert.Equal(t, OpSelect, ctx.Select(ctx.Store(mem, i, d), ctx.BitVec(1, 8)).Op())
}

func Test_Context_Substitute_01(t *testing.T) {
	ctx := NewContext()
	x, y := ctx.BitVecVar("x", 8), ctx.BitVecVar("y", 8)
	//
	t1 := ctx.BvAdd(x, ctx.BvAnd(x, y))
	t2 := ctx.Substitute(t1, map[*Term]*Term{x: ctx.BitVec(3, 8), y: ctx.BitVec(1, 8)})
	assert.Same(t, ctx.BitVec(4, 8), t2)
	// Untouched terms are returned as is
	assert.Same(t, t1, ctx.Substitute(t1, map[*Term]*Term{ctx.BitVecVar("z", 8): x}))
	assert.Panics(t, func() { ctx.Substitute(t1, map[*Term]*Term{x: ctx.BoolVar("b")}) })
}

func Test_Context_Forall_01(t *testing.T) {
	ctx := NewContext()
	f := ctx.DeclareFun("f", BitVecSort(8), BitVecSort(8))
	v := ctx.Bound("v", BitVecSort(8))
	//
	body := ctx.Eq(ctx.Apply(f, v), v)
	assert.False(t, body.IsClosed())
	//
	q := ctx.ForAll([]*Term{v}, body)
	assert.True(t, q.IsClosed())
	assert.Equal(t, []*Term{v}, q.Bound())
	assert.Same(t, body, q.Body())
	assert.Equal(t, "(forall ((v (_ BitVec 8))) (= v (f v)))", q.String())
	// Redeclaration must agree with the original signature
	assert.Same(t, f, ctx.DeclareFun("f", BitVecSort(8), BitVecSort(8)))
	assert.Panics(t, func() { ctx.DeclareFun("f", BoolSort(), BitVecSort(8)) })
}

func Test_Term_String_01(t *testing.T) {
	ctx := NewContext()
	x := ctx.BitVecVar("flex.addr@0", 32)
	//
	assert.Equal(t, "|flex.addr@0|", x.String())
	assert.Equal(t, "(bvadd |flex.addr@0| #x00000001)", ctx.BvAddConst(x, 1).String())
	assert.Equal(t, "((_ extract 7 0) |flex.addr@0|)", ctx.Extract(7, 0, x).String())
	assert.Equal(t, "#b101", ctx.BitVec(5, 3).String())
	assert.Equal(t, "(Array (_ BitVec 32) (_ BitVec 8))", ArraySort(32, 8).String())
}
