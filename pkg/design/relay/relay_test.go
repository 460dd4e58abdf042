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
package relay

import (
	"context"
	"testing"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/consensys/go-ischeck/pkg/smt/bitblast"
	"github.com/consensys/go-ischeck/pkg/unroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Relay_Model_01(t *testing.T) {
	m := New(smt.NewContext())
	//
	require.Equal(t, uint(2), m.NumInstrs())
	_, ok := m.Instr(TensorStore)
	assert.True(t, ok)
	_, ok = m.Instr(Maxpooling2D)
	assert.True(t, ok)
	//
	for _, name := range []string{FuncRunIn, FuncIDIn, DataIn, DataInY, DataInX, PoolSizeY, PoolSizeX, StridesY, StridesX} {
		_, ok := m.Input(name)
		assert.True(t, ok, name)
	}

	mem, ok := m.State(TensorMem)
	require.True(t, ok)
	assert.Equal(t, smt.ArraySort(32, 8), mem.Sort())
	//
	assert.Equal(t, "tensor_store", TensorStoreID.String())
	assert.Equal(t, "func(9)", FuncID(9).String())
}

func Test_Relay_Decode_01(t *testing.T) {
	var (
		ctx   = smt.NewContext()
		m     = New(ctx)
		id, _ = m.Input(FuncIDIn)
	)
	//
	instr, _ := m.Instr(TensorStore)
	u := unroll.New(m, []*ila.Instr{instr}, "")
	// A store cannot decode as maxpooling
	require.NoError(t, u.AssertStep(ctx.EqConst(id, uint64(MaxpoolingID)), 0))
	//
	s := bitblast.New(ctx)
	require.NoError(t, s.Assert(u.Formula()))
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, smt.Unsat, res)
}

func Test_Relay_Maxpool_01(t *testing.T) {
	var (
		ctx    = smt.NewContext()
		m      = New(ctx)
		seq    []*ila.Instr
		inputs = func(name string) *smt.Term {
			in, ok := m.Input(name)
			require.True(t, ok)

			return in
		}
	)
	//
	for _, name := range []string{TensorStore, TensorStore, Maxpooling2D} {
		instr, _ := m.Instr(name)
		seq = append(seq, instr)
	}

	u := unroll.New(m, seq, "")
	steps := []map[string]uint64{
		{DataInY: 0x20, DataIn: 0x07},
		{DataInY: 0x21, DataIn: 0x03},
		{DataInY: 0x20, DataInX: 0x08},
	}

	for i, values := range steps {
		for name, v := range values {
			require.NoError(t, u.AssertStep(ctx.EqConst(inputs(name), v), uint(i)))
		}
	}
	//
	s := bitblast.New(ctx)
	require.NoError(t, s.Assert(u.Formula()))
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, smt.Sat, res)
	//
	mem, _ := m.State(TensorMem)
	end, err := u.ValueAt(ctx.Select(mem, ctx.BitVec(0x08, 32)), 3)
	require.NoError(t, err)
	pooled, err := s.Eval(end)
	require.NoError(t, err)
	//
	maxf, _ := m.Func(MaxFunc)
	expected, err := s.Eval(ctx.Apply(maxf, ctx.BitVec(0x07, 8), ctx.BitVec(0x03, 8)))
	require.NoError(t, err)
	assert.Equal(t, expected, pooled)
}
