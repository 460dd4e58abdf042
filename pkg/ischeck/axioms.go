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
	"errors"
	"fmt"
	"slices"

	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
)

// funcPairs resolves the shared functions of the design against both models.
func (p *Checker) funcPairs() ([][2]*smt.Func, error) {
	var (
		a, b  = p.sides[0].model, p.sides[1].model
		pairs = make([][2]*smt.Func, len(p.design.Funcs))
	)
	//
	for i, pair := range p.design.Funcs {
		f, ok := a.Func(pair.A)
		if !ok {
			return nil, configErrorf("unknown function %s in %s", pair.A, a.Name())
		}

		g, ok := b.Func(pair.B)
		if !ok {
			return nil, configErrorf("unknown function %s in %s", pair.B, b.Name())
		}

		if f.Range() != g.Range() || !slices.Equal(f.Domain(), g.Domain()) {
			return nil, configErrorf("functions %s and %s have different signatures", f, g)
		}

		pairs[i] = [2]*smt.Func{f, g}
	}

	return pairs, nil
}

// axiomatize relates the shared functions of both models within a solver,
// according to the configured policy.
func (p *Checker) axiomatize(solver smt.Solver) error {
	pairs, err := p.funcPairs()
	if err != nil {
		return err
	}
	//
	policy := p.config.Policy
	if policy == AutoPolicy {
		if solver.Supports(smt.FuncUnification) {
			policy = SamePolicy
		} else {
			policy = AxiomsPolicy
		}
	}

	if len(pairs) != 0 {
		log.Debugf("relating %d shared functions (%s)", len(pairs), policy)
	}
	//
	for _, pair := range pairs {
		switch policy {
		case SamePolicy:
			if err := solver.Unify(pair[0], pair[1]); errors.Is(err, smt.ErrUnsupported) {
				return &ConfigurationError{fmt.Sprintf("cannot identify %s and %s", pair[0].Name(), pair[1].Name()), err}
			} else if err != nil {
				return err
			}
		case AxiomsPolicy:
			for _, axiom := range p.axioms(pair[0], pair[1]) {
				if err := solver.Assert(axiom); err != nil {
					return fmt.Errorf("asserting axiom: %w", err)
				}
			}
		case NoPolicy:
			log.Warnf("functions %s and %s left unrelated", pair[0].Name(), pair[1].Name())
		}
	}

	return nil
}

// axioms returns quantified formulae forcing two functions to agree.  Binary
// functions over their own range are furthermore taken to be commutative and
// to always select one of their arguments.
func (p *Checker) axioms(f, g *smt.Func) []*smt.Term {
	var (
		ctx  = p.ctx
		vars = make([]*smt.Term, f.Arity())
	)
	//
	for i, sort := range f.Domain() {
		vars[i] = ctx.Bound(fmt.Sprintf("uninterp_var_%d", i), sort)
	}
	//
	fx := ctx.Apply(f, vars...)
	axioms := []*smt.Term{ctx.ForAll(vars, ctx.Eq(fx, ctx.Apply(g, vars...)))}
	//
	if f.Arity() == 2 && f.Domain()[0] == f.Range() && f.Domain()[1] == f.Range() {
		x, y := vars[0], vars[1]
		axioms = append(axioms,
			ctx.ForAll(vars, ctx.Eq(fx, ctx.Apply(f, y, x))),
			ctx.ForAll(vars, ctx.Or(ctx.Eq(fx, x), ctx.Eq(fx, y))))
	}

	return axioms
}
