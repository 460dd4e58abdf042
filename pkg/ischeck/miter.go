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
package ischeck

import (
	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
)

// memories returns the compared memory state of each (flattened) model.
func (p *Checker) memories() ([2]*smt.Term, error) {
	var mems [2]*smt.Term
	//
	for i, s := range p.sides {
		name := p.design.Correlation.Memory[i]

		mem, ok := s.model.State(name)
		if !ok {
			return mems, configErrorf("unknown memory %s in %s", name, s.model.Name())
		} else if !mem.Sort().IsArray() {
			return mems, configErrorf("state %s of %s is not a memory", name, s.model.Name())
		}

		mems[i] = mem
	}

	if mems[0].Sort() != mems[1].Sort() {
		return mems, configErrorf("memories %s and %s have different sorts", mems[0], mems[1])
	}

	return mems, nil
}

// lanes returns the data lane inputs of model A, followed by the data input of
// model B.
func (p *Checker) lanes() ([]*smt.Term, *smt.Term, error) {
	var (
		corr  = p.design.Correlation
		a, b  = p.sides[0].model, p.sides[1].model
		lanes = make([]*smt.Term, len(corr.LanesA))
	)
	//
	data, ok := b.Input(corr.DataB)
	if !ok {
		return nil, nil, configErrorf("unknown input %s in %s", corr.DataB, b.Name())
	}

	for i, name := range corr.LanesA {
		lane, ok := a.Input(name)
		if !ok {
			return nil, nil, configErrorf("unknown input %s in %s", name, a.Name())
		} else if lane.Sort() != data.Sort() {
			return nil, nil, configErrorf("inputs %s and %s have different sorts", lane, data)
		}

		lanes[i] = lane
	}

	return lanes, data, nil
}

// miter builds the proof obligation: both memories start equal, and every
// correlated pair of stores presents the same data, yet some stored location
// ends up different.
func (p *Checker) miter() (*smt.Term, error) {
	log.Info("Setting memory relation (miter)")
	//
	var (
		ctx    = p.ctx
		sa, sb = p.sides[0], p.sides[1]
		k      = p.design.Correlation.Fanout()
	)
	//
	if len(sa.stores) == 0 {
		return nil, violationf("no stores recorded for %s", sa.model.Name())
	} else if len(sa.stores)*k != len(sb.stores) {
		return nil, violationf("%d stores of %s (fanout %d) do not match %d stores of %s",
			len(sa.stores), sa.model.Name(), k, len(sb.stores), sb.model.Name())
	}
	//
	mems, err := p.memories()
	if err != nil {
		return nil, err
	}

	lanes, data, err := p.lanes()
	if err != nil {
		return nil, err
	}
	// same start
	startA, err := sa.unroller.ValueAt(mems[0], 0)
	if err != nil {
		return nil, err
	}

	startB, err := sb.unroller.ValueAt(mems[1], 0)
	if err != nil {
		return nil, err
	}

	sameStart := ctx.Eq(startA, startB)
	// final memories
	endA, err := sa.unroller.ValueAt(mems[0], sa.unroller.Steps())
	if err != nil {
		return nil, err
	}

	endB, err := sb.unroller.ValueAt(mems[1], sb.unroller.Steps())
	if err != nil {
		return nil, err
	}
	//
	var (
		width     = mems[0].Sort().Index
		sameStore []*smt.Term
		sameEnd   []*smt.Term
	)
	//
	for _, addrA := range sa.addresses() {
		stepA := sa.stores[addrA]
		//
		for i, lane := range lanes {
			addr := addrA + uint64(i)
			//
			addrB, ok := p.addrs[addr]
			if !ok {
				return nil, violationf("no mapping for address %#x of %s", addr, sa.model.Name())
			}

			stepB, ok := sb.stores[addrB]
			if !ok {
				return nil, violationf("no store of %s at address %#x (mapped from %#x)", sb.model.Name(), addrB, addr)
			}
			//
			x, err := sa.unroller.ValueAt(lane, stepA)
			if err != nil {
				return nil, err
			}

			y, err := sb.unroller.ValueAt(data, stepB)
			if err != nil {
				return nil, err
			}

			log.Debugf("%s @ %d == %s @ %d", lane.Name(), stepA, data.Name(), stepB)

			sameStore = append(sameStore, ctx.Eq(x, y))
			sameEnd = append(sameEnd, ctx.Eq(
				ctx.Select(endA, ctx.BitVec(addr, width)),
				ctx.Select(endB, ctx.BitVec(addrB, width))))
		}
	}

	return ctx.And(sameStart, ctx.And(sameStore...), ctx.Not(ctx.And(sameEnd...))), nil
}
