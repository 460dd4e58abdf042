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
	"fmt"

	"github.com/consensys/go-ischeck/pkg/smt"
)

// Instr is a guarded atomic state transition.  The decode condition, a
// predicate over inputs and states, determines when the instruction fires;
// updates give the next value of states as terms over the current inputs and
// states.  States without an update are unchanged.
type Instr struct {
	name    string
	host    *Model
	decode  *smt.Term
	updates map[uint]*smt.Term
	// Updated states in order of first update.
	order []*smt.Term
}

// Name returns the name of this instruction.
func (p *Instr) Name() string {
	return p.name
}

// Host returns the model in which this instruction is declared.
func (p *Instr) Host() *Model {
	return p.host
}

// Decode returns the decode condition of this instruction.
func (p *Instr) Decode() *smt.Term {
	return p.decode
}

// SetDecode sets the decode condition of this instruction.
func (p *Instr) SetDecode(decode *smt.Term) {
	if !decode.Sort().IsBool() {
		panic(fmt.Sprintf("decode of %s has sort %s", p.name, decode.Sort()))
	}

	p.decode = decode
}

// SetUpdate sets the next value of a given state.
func (p *Instr) SetUpdate(state *smt.Term, next *smt.Term) {
	if state.Op() != smt.OpVar {
		panic(fmt.Sprintf("cannot update non-state %s", state))
	} else if state.Sort() != next.Sort() {
		panic(fmt.Sprintf("update of %s has sort %s", state, next.Sort()))
	}

	if _, ok := p.updates[state.ID()]; !ok {
		p.order = append(p.order, state)
	}

	p.updates[state.ID()] = next
}

// Update returns the next value of a given state, if this instruction updates
// it.
func (p *Instr) Update(state *smt.Term) (*smt.Term, bool) {
	next, ok := p.updates[state.ID()]
	return next, ok
}

// Updated returns the states updated by this instruction.
func (p *Instr) Updated() []*smt.Term {
	return p.order
}

func (p *Instr) String() string {
	return p.host.Root().name + "." + p.name
}
