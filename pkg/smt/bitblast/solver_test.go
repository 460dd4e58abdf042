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
package bitblast

import (
	"context"
	"testing"

	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(t *testing.T, s *Solver, terms ...*smt.Term) smt.Result {
	t.Helper()

	for _, term := range terms {
		require.NoError(t, s.Assert(term))
	}

	res, err := s.Check(context.Background())
	require.NoError(t, err)

	return res
}

func Test_Bitblast_Arith_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		x   = ctx.BitVecVar("x", 8)
		y   = ctx.BitVecVar("y", 8)
		s   = New(ctx)
	)
	// x + y == 3 && x == 250
	res := check(t, s, ctx.EqConst(ctx.BvAdd(x, y), 3), ctx.EqConst(x, 250))
	require.Equal(t, smt.Sat, res)
	//
	v, err := s.Eval(y)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v.Uint64())
}

func Test_Bitblast_Arith_02(t *testing.T) {
	var (
		ctx = smt.NewContext()
		x   = ctx.BitVecVar("x", 8)
		s   = New(ctx)
	)
	// x < 4 && 10 <= x
	res := check(t, s, ctx.Ult(x, ctx.BitVec(4, 8)), ctx.Ule(ctx.BitVec(10, 8), x))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_Arith_03(t *testing.T) {
	var (
		ctx = smt.NewContext()
		x   = ctx.BitVecVar("x", 8)
		y   = ctx.BitVecVar("y", 8)
		s   = New(ctx)
	)
	// x - y == 1 && x == 0 forces y to wrap around
	res := check(t, s, ctx.EqConst(ctx.BvSub(x, y), 1), ctx.EqConst(x, 0))
	require.Equal(t, smt.Sat, res)
	//
	v, err := s.Eval(y)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xff), v.Uint64())
}

func Test_Bitblast_Slice_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		x   = ctx.BitVecVar("x", 16)
		s   = New(ctx)
	)
	//
	hi := ctx.Extract(15, 8, x)
	lo := ctx.Extract(7, 0, x)
	res := check(t, s, ctx.EqConst(hi, 0xab), ctx.EqConst(ctx.Concat(lo, hi), 0xcdab))
	require.Equal(t, smt.Sat, res)
	//
	v, err := s.Eval(x)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xabcd), v.Uint64())
}

func Test_Bitblast_Array_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		mem = ctx.ArrayVar("mem", 8, 8)
		a   = ctx.BitVecVar("a", 8)
		b   = ctx.BitVecVar("b", 8)
		d   = ctx.BitVecVar("d", 8)
		s   = New(ctx)
	)
	// A read at the written address returns the written value
	upd := ctx.Store(mem, a, d)
	res := check(t, s, ctx.Eq(a, b), ctx.Not(ctx.Eq(ctx.Select(upd, b), d)))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_Array_02(t *testing.T) {
	var (
		ctx = smt.NewContext()
		mem = ctx.ArrayVar("mem", 8, 8)
		a   = ctx.BitVecVar("a", 8)
		b   = ctx.BitVecVar("b", 8)
		s   = New(ctx)
	)
	// Reads at equal addresses agree
	res := check(t, s, ctx.Eq(a, b), ctx.Not(ctx.Eq(ctx.Select(mem, a), ctx.Select(mem, b))))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_Array_03(t *testing.T) {
	var (
		ctx = smt.NewContext()
		mem = ctx.ArrayVar("mem", 8, 8)
		a   = ctx.BitVecVar("a", 8)
		s   = New(ctx)
	)
	//
	res := check(t, s, ctx.EqConst(a, 0x10), ctx.EqConst(ctx.Select(mem, a), 0x2a))
	require.Equal(t, smt.Sat, res)
	//
	v, err := s.Eval(mem)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2a), v.Select(0x10))
	//
	r, err := s.Eval(ctx.Select(mem, ctx.BitVec(0x10, 8)))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2a), r.Uint64())
}

func Test_Bitblast_ArrayEq_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		m1  = ctx.ArrayVar("m1", 8, 8)
		m2  = ctx.ArrayVar("m2", 8, 8)
		a   = ctx.BitVecVar("a", 8)
		s   = New(ctx)
	)
	// Equal arrays cannot differ at any address that is read
	res := check(t, s, ctx.Eq(m1, m2), ctx.Not(ctx.Eq(ctx.Select(m1, a), ctx.Select(m2, a))))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_ArrayEq_02(t *testing.T) {
	var (
		ctx = smt.NewContext()
		m1  = ctx.ArrayVar("m1", 8, 8)
		m2  = ctx.ArrayVar("m2", 8, 8)
		a   = ctx.BitVecVar("a", 8)
		s   = New(ctx)
	)
	// Storing different values at the same address into equal arrays
	res := check(t, s, ctx.Eq(m1, m2),
		ctx.Eq(ctx.Store(m1, a, ctx.BitVec(1, 8)), ctx.Store(m2, a, ctx.BitVec(2, 8))))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_Func_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		f   = ctx.DeclareFun("f", smt.BitVecSort(8), smt.BitVecSort(8))
		x   = ctx.BitVecVar("x", 8)
		y   = ctx.BitVecVar("y", 8)
		s   = New(ctx)
	)
	//
	res := check(t, s, ctx.Eq(x, y), ctx.Not(ctx.Eq(ctx.Apply(f, x), ctx.Apply(f, y))))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_Func_02(t *testing.T) {
	var (
		ctx = smt.NewContext()
		f   = ctx.DeclareFun("f", smt.BitVecSort(8), smt.BitVecSort(8))
		g   = ctx.DeclareFun("g", smt.BitVecSort(8), smt.BitVecSort(8))
		x   = ctx.BitVecVar("x", 8)
		s   = New(ctx)
	)
	// Without unification, distinct functions are independent
	diff := ctx.Not(ctx.Eq(ctx.Apply(f, x), ctx.Apply(g, x)))
	assert.Equal(t, smt.Sat, check(t, s, diff))
	//
	s = New(ctx)
	require.NoError(t, s.Unify(f, g))
	assert.Equal(t, smt.Unsat, check(t, s, diff))
}

func Test_Bitblast_Func_03(t *testing.T) {
	var (
		ctx = smt.NewContext()
		f   = ctx.DeclareFun("f", smt.BitVecSort(8), smt.BitVecSort(8))
		g   = ctx.DeclareFun("g", smt.BoolSort(), smt.BitVecSort(8))
		s   = New(ctx)
	)
	//
	assert.Error(t, s.Unify(f, g))
}

func Test_Bitblast_Forall_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		f   = ctx.DeclareFun("f", smt.BitVecSort(8), smt.BitVecSort(8))
		g   = ctx.DeclareFun("g", smt.BitVecSort(8), smt.BitVecSort(8))
		x   = ctx.BitVecVar("x", 8)
		v   = ctx.Bound("v", smt.BitVecSort(8))
		s   = New(ctx)
	)
	// forall v. f(v) == g(v)
	axiom := ctx.ForAll([]*smt.Term{v}, ctx.Eq(ctx.Apply(f, v), ctx.Apply(g, v)))
	res := check(t, s, axiom, ctx.Not(ctx.Eq(ctx.Apply(f, x), ctx.Apply(g, x))))
	assert.Equal(t, smt.Unsat, res)
}

func Test_Bitblast_Forall_02(t *testing.T) {
	var (
		ctx = smt.NewContext()
		f   = ctx.DeclareFun("f", smt.BitVecSort(8), smt.BitVecSort(8), smt.BitVecSort(8))
		g   = ctx.DeclareFun("g", smt.BitVecSort(8), smt.BitVecSort(8), smt.BitVecSort(8))
		u   = ctx.Bound("u", smt.BitVecSort(8))
		v   = ctx.Bound("v", smt.BitVecSort(8))
		s   = New(ctx)
	)
	//
	for i := range uint64(4) {
		a, b := ctx.BitVec(i, 8), ctx.BitVec(i+1, 8)
		require.NoError(t, s.Assert(ctx.Not(ctx.Eq(ctx.Apply(f, a, b), ctx.BitVec(0, 8)))))
	}
	// Instantiation stops at the limit
	s.InstanceLimit = 3
	axiom := ctx.ForAll([]*smt.Term{u, v}, ctx.Eq(ctx.Apply(f, u, v), ctx.Apply(g, u, v)))
	require.NoError(t, s.Assert(axiom))
	//
	hook := test.NewGlobal()
	defer hook.Reset()
	//
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, smt.Sat, res)
	//
	warned := false
	for _, e := range hook.AllEntries() {
		warned = warned || e.Level == log.WarnLevel
	}

	assert.True(t, warned)
}

func Test_Bitblast_Eval_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		x   = ctx.BitVecVar("x", 8)
		s   = New(ctx)
	)
	//
	_, err := s.Eval(x)
	require.ErrorIs(t, err, smt.ErrNoModel)
	//
	require.Equal(t, smt.Unsat, check(t, s, ctx.EqConst(x, 1), ctx.EqConst(x, 2)))
	_, err = s.Eval(x)
	require.ErrorIs(t, err, smt.ErrNoModel)
}

func Test_Bitblast_Cancel_01(t *testing.T) {
	var (
		ctx = smt.NewContext()
		x   = ctx.BitVecVar("x", 8)
		s   = New(ctx)
	)
	//
	require.NoError(t, s.Assert(ctx.EqConst(x, 1)))
	//
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Either the trivial problem finishes first or cancellation is seen
	res, err := s.Check(cctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, smt.Unknown, res)
	} else {
		assert.Equal(t, smt.Sat, res)
	}
}
