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
// Package relay provides a simplified model of the Relay operator interface,
// where each call is selected by a function id.
package relay

import (
	"fmt"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
)

// Inputs
const (
	FuncRunIn  = "relay_func_run_in"
	FuncIDIn   = "relay_func_id_in"
	DataIn     = "relay_data_in"
	DataInY    = "data_in_y"
	DataInX    = "data_in_x"
	PoolSizeY  = "pool_size_y_in"
	PoolSizeX  = "pool_size_x_in"
	StridesY   = "strides_y_in"
	StridesX   = "strides_x_in"
	funcIDBits = 4
)

// TensorMem is the tensor memory state.
const TensorMem = "relay_tensor_mem"

// MaxFunc is the (uninterpreted) maximum of two adaptive floats.
const MaxFunc = "adpfloat_max"

// Instructions
const (
	TensorStore  = "relay_tensor_store"
	Maxpooling2D = "relay_maxpooling2d"
)

// FuncID identifies the function invoked by a relay call.
type FuncID uint8

const (
	// MaxpoolingID pools two adjacent tensor elements.
	MaxpoolingID FuncID = 1
	// TensorStoreID writes a single tensor element.
	TensorStoreID FuncID = 2
	// LstmID is reserved for an LSTM layer, which is not modelled.
	LstmID FuncID = 3
)

func (f FuncID) String() string {
	switch f {
	case MaxpoolingID:
		return "maxpooling2d"
	case TensorStoreID:
		return "tensor_store"
	case LstmID:
		return "lstm"
	}

	return fmt.Sprintf("func(%d)", uint8(f))
}

// New constructs the relay model within a given term context.  A tensor store
// writes the data input at address data_in_y; a maxpooling call writes the
// maximum of the elements at data_in_y and data_in_y+1 to data_in_x.
func New(ctx *smt.Context) *ila.Model {
	var (
		m     = ila.NewModel(ctx, "relay")
		run   = m.NewBvInput(FuncRunIn, 1)
		id    = m.NewBvInput(FuncIDIn, funcIDBits)
		data  = m.NewBvInput(DataIn, 8)
		y     = m.NewBvInput(DataInY, 32)
		x     = m.NewBvInput(DataInX, 32)
		bv8   = smt.BitVecSort(8)
		calls = func(f FuncID) *smt.Term {
			return ctx.And(ctx.EqConst(run, 1), ctx.EqConst(id, uint64(f)))
		}
	)
	//
	m.NewBvInput(PoolSizeY, 8)
	m.NewBvInput(PoolSizeX, 8)
	m.NewBvInput(StridesY, 8)
	m.NewBvInput(StridesX, 8)
	//
	var (
		mem  = m.NewMemState(TensorMem, 32, 8)
		maxf = m.NewFunc(MaxFunc, bv8, bv8, bv8)
	)
	//
	store := m.NewInstr(TensorStore)
	store.SetDecode(calls(TensorStoreID))
	store.SetUpdate(mem, ctx.Store(mem, y, data))
	//
	pool := m.NewInstr(Maxpooling2D)
	pool.SetDecode(calls(MaxpoolingID))
	pool.SetUpdate(mem, ctx.Store(mem, x,
		ctx.Apply(maxf, ctx.Select(mem, y), ctx.Select(mem, ctx.BvAddConst(y, 1)))))

	return m
}
