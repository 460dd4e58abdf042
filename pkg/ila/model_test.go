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
package ila

import (
	"testing"

	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter builds a model with a top-level START instruction launching a child
// which counts down.
func counter(ctx *smt.Context) *Model {
	m := NewModel(ctx, "ctr")
	run := m.NewBoolInput("run")
	n := m.NewBvInput("n", 4)
	cnt := m.NewBvState("cnt", 4)
	mem := m.NewMemState("mem", 4, 8)
	//
	start := m.NewInstr("START")
	start.SetDecode(run)
	start.SetUpdate(cnt, n)
	//
	child := m.NewChild("loop")
	child.SetValid(ctx.Not(ctx.EqConst(cnt, 0)))
	busy := child.NewBvState("busy", 1)
	step := child.NewInstr("STEP")
	step.SetUpdate(cnt, ctx.BvSub(cnt, ctx.BitVec(1, 4)))
	step.SetUpdate(mem, ctx.Store(mem, cnt, ctx.BitVec(1, 8)))
	step.SetUpdate(busy, ctx.BitVec(1, 1))

	return m
}

func Test_Model_Lookup_01(t *testing.T) {
	ctx := smt.NewContext()
	m := counter(ctx)
	//
	n, ok := m.Input("n")
	require.True(t, ok)
	assert.Equal(t, "ctr.n", n.Name())
	// States are not inputs
	_, ok = m.Input("cnt")
	assert.False(t, ok)
	// Child states are visible through the root
	busy, ok := m.State("busy")
	require.True(t, ok)
	assert.Equal(t, "ctr.busy", busy.Name())
	assert.Len(t, m.States(), 2)
	assert.Len(t, m.AllStates(), 3)
	//
	_, ok = m.State("missing")
	assert.False(t, ok)
}

func Test_Model_Lookup_02(t *testing.T) {
	ctx := smt.NewContext()
	m := counter(ctx)
	//
	assert.Equal(t, uint(1), m.NumInstrs())
	assert.Equal(t, "START", m.InstrAt(0).Name())
	// STEP lives in the child only
	_, ok := m.Instr("STEP")
	assert.False(t, ok)
	step, ok := m.FindInstr("STEP")
	require.True(t, ok)
	assert.Equal(t, "ctr.STEP", step.String())
	assert.Same(t, m, step.Host().Root())
}

func Test_Model_Declare_01(t *testing.T) {
	ctx := smt.NewContext()
	m := counter(ctx)
	// Names are unique across the hierarchy
	assert.Panics(t, func() { m.NewBvState("busy", 1) })
	assert.Panics(t, func() { m.NewInstr("STEP") })
	assert.Panics(t, func() { m.SetValid(ctx.True()) })
	//
	step, _ := m.FindInstr("STEP")
	cnt, _ := m.State("cnt")
	assert.Panics(t, func() { step.SetUpdate(cnt, ctx.BitVec(0, 8)) })
	assert.Panics(t, func() { step.SetDecode(cnt) })
}

func Test_Model_Func_01(t *testing.T) {
	ctx := smt.NewContext()
	a := NewModel(ctx, "a")
	b := NewModel(ctx, "b")
	// Same name in distinct models gives distinct symbols
	fa := a.NewFunc("max", smt.BitVecSort(8), smt.BitVecSort(8), smt.BitVecSort(8))
	fb := b.NewFunc("max", smt.BitVecSort(8), smt.BitVecSort(8), smt.BitVecSort(8))
	assert.NotSame(t, fa, fb)
	assert.Equal(t, "a.max", fa.Name())
	//
	f, ok := a.Func("max")
	require.True(t, ok)
	assert.Same(t, fa, f)
	assert.Panics(t, func() { a.NewFunc("max", smt.BoolSort()) })
}

func Test_Model_Flatten_01(t *testing.T) {
	ctx := smt.NewContext()
	m := counter(ctx)
	flat := m.Flatten()
	// Original untouched
	assert.Equal(t, uint(1), m.NumInstrs())
	assert.Len(t, m.Children(), 1)
	//
	require.Equal(t, uint(2), flat.NumInstrs())
	assert.Empty(t, flat.Children())
	assert.Len(t, flat.States(), 3)
	//
	step, ok := flat.Instr("STEP")
	require.True(t, ok)
	// Decode carries the valid condition of the child
	cnt, _ := flat.State("cnt")
	assert.Same(t, ctx.Not(ctx.EqConst(cnt, 0)), step.Decode())
	assert.Len(t, step.Updated(), 3)
	//
	next, ok := step.Update(cnt)
	require.True(t, ok)
	assert.Same(t, ctx.BvSub(cnt, ctx.BitVec(1, 4)), next)
}
