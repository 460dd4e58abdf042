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
package unroll

import (
	"fmt"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
)

// Unroller expands a fixed sequence of instructions of one model into a
// step-indexed transition relation.  Step i denotes the point before the ith
// instruction of the sequence fires, so a sequence of N instructions has steps
// 0..N.  Every state is given a fresh variable at step 0, and every input a
// fresh variable at every step; states at later steps are terms over these.
type Unroller struct {
	ctx    *smt.Context
	model  *ila.Model
	seq    []*ila.Instr
	prefix string
	// Substitution from model variables to their values at each step.
	steps []map[*smt.Term]*smt.Term
	// Predicates asserted at each step (already indexed).
	preds []*smt.Term
}

// New unrolls a given (flattened) model along a given instruction sequence.
// Step variables are named "<prefix><variable>@<step>".
func New(model *ila.Model, seq []*ila.Instr, prefix string) *Unroller {
	var (
		ctx    = model.Context()
		n      = len(seq)
		steps  = make([]map[*smt.Term]*smt.Term, n+1)
		states = model.AllStates()
		inputs = model.AllInputs()
	)
	//
	fresh := func(v *smt.Term, step int) *smt.Term {
		return ctx.Var(fmt.Sprintf("%s%s@%d", prefix, v.Name(), step), v.Sort())
	}
	// Initial state
	steps[0] = make(map[*smt.Term]*smt.Term)
	for _, s := range states {
		steps[0][s] = fresh(s, 0)
	}
	//
	for i := 0; i <= n; i++ {
		for _, in := range inputs {
			steps[i][in] = fresh(in, i)
		}
		//
		if i == n {
			break
		}

		steps[i+1] = make(map[*smt.Term]*smt.Term)

		for _, s := range states {
			if next, ok := seq[i].Update(s); ok {
				steps[i+1][s] = ctx.Substitute(next, steps[i])
			} else {
				steps[i+1][s] = steps[i][s]
			}
		}
	}

	log.Debugf("unrolled %d steps of %s (%d terms)", n, model.Name(), ctx.NumTerms())

	return &Unroller{ctx, model, seq, prefix, steps, nil}
}

// Model returns the model being unrolled.
func (p *Unroller) Model() *ila.Model {
	return p.model
}

// Steps returns the length of the unrolled sequence.
func (p *Unroller) Steps() uint {
	return uint(len(p.seq))
}

// InstrAt returns the instruction fired at a given step.
func (p *Unroller) InstrAt(step uint) *ila.Instr {
	return p.seq[step]
}

// ValueAt returns the value of a term over model variables at a given step.
func (p *Unroller) ValueAt(t *smt.Term, step uint) (*smt.Term, error) {
	if step >= uint(len(p.steps)) {
		return nil, fmt.Errorf("step %d out of range 0..%d for %s", step, len(p.seq), p.model.Name())
	}

	return p.ctx.Substitute(t, p.steps[step]), nil
}

// AssertStep constrains the behaviour at a given step by a predicate over
// model variables.
func (p *Unroller) AssertStep(pred *smt.Term, step uint) error {
	if !pred.Sort().IsBool() {
		return fmt.Errorf("step predicate %s is not boolean", pred)
	}

	t, err := p.ValueAt(pred, step)
	if err != nil {
		return err
	}

	p.preds = append(p.preds, t)

	return nil
}

// Formula returns the transition relation of the unrolled sequence: each
// instruction decodes at its step, and every step predicate holds.
func (p *Unroller) Formula() *smt.Term {
	conjuncts := make([]*smt.Term, 0, len(p.seq)+len(p.preds))
	//
	for i, instr := range p.seq {
		conjuncts = append(conjuncts, p.ctx.Substitute(instr.Decode(), p.steps[i]))
	}

	conjuncts = append(conjuncts, p.preds...)

	return p.ctx.And(conjuncts...)
}
