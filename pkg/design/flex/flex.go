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
// Package flex provides a simplified model of the FlexASR accelerator's global
// buffer, as seen through its AXI write port.
package flex

import (
	"fmt"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
)

// Lanes is the number of byte lanes written by a single AXI transaction.
const Lanes = 16

// Inputs
const (
	TopIfRd   = "TOP_IF_RD"
	TopIfWr   = "TOP_IF_WR"
	TopAddrIn = "TOP_ADDR_IN"
)

// States
const (
	LargeBuffer = "GB_CORE_LARGE_BUFFER"
	MaxpSrc     = "GB_MAXPOOL_SRC"
	MaxpDst     = "GB_MAXPOOL_DST"
	MaxpCount   = "GB_MAXPOOL_COUNT"
	MaxpStart   = "GB_MAXPOOL_START"
)

// Instructions
const (
	StoreLarge    = "GB_CORE_STORE_LARGE"
	ConfigMaxpool = "GB_CONFIG_MAXPOOL"
	MaxpoolStep   = "GB_MAXPOOL_STEP"
)

// MaxFunc is the (uninterpreted) maximum of two adaptive floats.
const MaxFunc = "adpfloat_max"

// Address map
const (
	// LargeBufferRegion identifies large buffer addresses by their top twelve
	// bits.
	LargeBufferRegion = 0x005
	// ConfigMaxpoolAddr is the address of the maxpool configuration register.
	ConfigMaxpoolAddr = 0x00400010
)

// DataIn holds the names of the data lane inputs, least significant first.
var DataIn = func() [Lanes]string {
	var names [Lanes]string
	for i := range names {
		names[i] = fmt.Sprintf("TOP_DATA_IN_%d", i)
	}

	return names
}()

// New constructs the flex model within a given term context.  A large store
// writes lane i at address addr+i of the large buffer.  Configuring the
// maxpool unit starts a child which, on each step, writes the maximum of two
// adjacent source bytes to the next destination byte.
func New(ctx *smt.Context) *ila.Model {
	var (
		m     = ila.NewModel(ctx, "flex")
		rd    = m.NewBvInput(TopIfRd, 1)
		wr    = m.NewBvInput(TopIfWr, 1)
		addr  = m.NewBvInput(TopAddrIn, 32)
		lanes [Lanes]*smt.Term
	)
	//
	for i, name := range DataIn {
		lanes[i] = m.NewBvInput(name, 8)
	}

	var (
		buf   = m.NewMemState(LargeBuffer, 32, 8)
		src   = m.NewBvState(MaxpSrc, 32)
		dst   = m.NewBvState(MaxpDst, 32)
		count = m.NewBvState(MaxpCount, 8)
		start = m.NewBvState(MaxpStart, 1)
		bv8   = smt.BitVecSort(8)
		maxf  = m.NewFunc(MaxFunc, bv8, bv8, bv8)
		write = ctx.And(ctx.EqConst(wr, 1), ctx.EqConst(rd, 0))
	)
	// Large buffer store
	store := m.NewInstr(StoreLarge)
	store.SetDecode(ctx.And(write, ctx.EqConst(ctx.Extract(31, 20, addr), LargeBufferRegion)))

	next := buf
	for i, lane := range lanes {
		next = ctx.Store(next, ctx.BvAddConst(addr, uint64(i)), lane)
	}

	store.SetUpdate(buf, next)
	// Maxpool configuration: lanes 0..3 source, 4..7 destination, 8 count.
	config := m.NewInstr(ConfigMaxpool)
	config.SetDecode(ctx.And(write, ctx.EqConst(addr, ConfigMaxpoolAddr)))
	config.SetUpdate(src, word(ctx, lanes[0:4]))
	config.SetUpdate(dst, word(ctx, lanes[4:8]))
	config.SetUpdate(count, lanes[8])
	config.SetUpdate(start, ctx.Ite(ctx.EqConst(lanes[8], 0), ctx.BitVec(0, 1), ctx.BitVec(1, 1)))
	// Maxpool unit
	maxp := m.NewChild("flex_maxp")
	maxp.SetValid(ctx.EqConst(start, 1))
	//
	step := maxp.NewInstr(MaxpoolStep)
	step.SetUpdate(buf, ctx.Store(buf, dst,
		ctx.Apply(maxf, ctx.Select(buf, src), ctx.Select(buf, ctx.BvAddConst(src, 1)))))
	step.SetUpdate(src, ctx.BvAddConst(src, 2))
	step.SetUpdate(dst, ctx.BvAddConst(dst, 1))
	step.SetUpdate(count, ctx.BvSub(count, ctx.BitVec(1, 8)))
	step.SetUpdate(start, ctx.Ite(ctx.EqConst(count, 1), ctx.BitVec(0, 1), ctx.BitVec(1, 1)))

	return m
}

// word concatenates byte lanes into a little-endian word.
func word(ctx *smt.Context, lanes []*smt.Term) *smt.Term {
	w := lanes[0]
	for _, lane := range lanes[1:] {
		w = ctx.Concat(lane, w)
	}

	return w
}
