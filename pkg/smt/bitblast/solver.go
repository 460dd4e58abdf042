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
	"fmt"
	"time"

	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	log "github.com/sirupsen/logrus"
)

// DefaultInstanceLimit bounds the number of ground instances generated for a
// single quantified assertion.
const DefaultInstanceLimit = 4096

// pollInterval determines how often a running solve is checked for
// completion or cancellation.
const pollInterval = 2 * time.Millisecond

// Solver decides formulas by bit-blasting them into propositional logic and
// handing the result to gini.  Arrays are handled by read-over-write with
// read congruence, uninterpreted functions by Ackermann congruence and
// universal quantifiers by instantiation over the ground arguments of function
// applications.  Instantiation is incomplete: a satisfiable verdict in the
// presence of quantifiers may be spurious, an unsatisfiable one is not.
type Solver struct {
	ctx        *smt.Context
	assertions []*smt.Term
	parent     map[uint]*smt.Func
	// InstanceLimit caps quantifier instantiation per assertion.
	InstanceLimit int
	model         *model
}

// New constructs a bit-blasting solver over terms of the given context.
func New(ctx *smt.Context) *Solver {
	return &Solver{
		ctx:           ctx,
		parent:        make(map[uint]*smt.Func),
		InstanceLimit: DefaultInstanceLimit,
	}
}

// Assert implementation for smt.Solver interface.
func (p *Solver) Assert(t *smt.Term) error {
	if !t.Sort().IsBool() {
		return fmt.Errorf("cannot assert non-boolean term %s", t)
	} else if !t.IsClosed() {
		return fmt.Errorf("cannot assert term with free bound variables %s", t)
	}

	p.assertions = append(p.assertions, t)
	p.model = nil

	return nil
}

// Unify implementation for smt.Solver interface.
func (p *Solver) Unify(f, g *smt.Func) error {
	if f.Range() != g.Range() || f.Arity() != g.Arity() {
		return fmt.Errorf("cannot unify %s with %s", f, g)
	}

	for i, s := range f.Domain() {
		if g.Domain()[i] != s {
			return fmt.Errorf("cannot unify %s with %s", f, g)
		}
	}

	rf, rg := p.find(f), p.find(g)
	if rf != rg {
		p.parent[rg.ID()] = rf
	}

	return nil
}

func (p *Solver) find(f *smt.Func) *smt.Func {
	for {
		r, ok := p.parent[f.ID()]
		if !ok || r == f {
			return f
		}

		f = r
	}
}

// Supports implementation for smt.Solver interface.
func (p *Solver) Supports(f smt.Feature) bool {
	return f == smt.Quantifiers || f == smt.FuncUnification
}

// Close implementation for smt.Solver interface.
func (p *Solver) Close() error {
	p.assertions = nil
	p.model = nil

	return nil
}

// Check implementation for smt.Solver interface.
func (p *Solver) Check(ctx context.Context) (smt.Result, error) {
	var (
		formulas   []*smt.Term
		quantified []*smt.Term
		arrayEqs   []*smt.Term
	)
	//
	p.model = nil
	// Classify top-level conjuncts
	for _, a := range p.assertions {
		for _, c := range smt.Conjuncts(a) {
			switch {
			case c.Op() == smt.OpForall:
				quantified = append(quantified, c)
			case c.Op() == smt.OpEq && c.Arg(0).Sort().IsArray():
				arrayEqs = append(arrayEqs, c)
			default:
				formulas = append(formulas, c)
			}
		}
	}
	//
	instances, err := p.instantiate(quantified, append(formulas, arrayEqs...))
	if err != nil {
		return smt.Unknown, err
	}

	formulas = append(formulas, instances...)
	//
	enc := newEncoder(p.find)
	roots := make([]z.Lit, 0, len(formulas)+len(arrayEqs))

	for _, f := range formulas {
		lit, err := enc.formula(f)
		if err != nil {
			return smt.Unknown, err
		}

		roots = append(roots, lit)
	}

	for _, eq := range arrayEqs {
		lit, err := enc.arrayEqual(eq.Arg(0), eq.Arg(1))
		if err != nil {
			return smt.Unknown, err
		}

		roots = append(roots, lit)
	}

	roots = append(roots, enc.congruence()...)
	//
	g := gini.New()
	enc.c.ToCnf(g)
	g.Add(enc.c.T)
	g.Add(0)

	for _, root := range roots {
		g.Add(root)
		g.Add(0)
	}

	log.Debugf("bit-blasted %d formulas into %d gates", len(roots), enc.c.Len())
	//
	res, err := solve(ctx, g)
	if err != nil {
		return smt.Unknown, err
	}

	switch res {
	case 1:
		p.model = extract(enc, g)
		return smt.Sat, nil
	case -1:
		return smt.Unsat, nil
	}

	return smt.Unknown, nil
}

// solve runs gini in the background until it finishes or ctx is cancelled.
func solve(ctx context.Context, g *gini.Gini) (int, error) {
	s := g.GoSolve()
	ticker := time.NewTicker(pollInterval)

	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return 0, ctx.Err()
		case <-ticker.C:
			if res, done := s.Test(); done {
				return res, nil
			}
		}
	}
}

// instantiate generates ground instances of quantified assertions, using as
// candidates every argument of a function application occurring in the ground
// formulas.
func (p *Solver) instantiate(quantified []*smt.Term, ground []*smt.Term) ([]*smt.Term, error) {
	if len(quantified) == 0 {
		return nil, nil
	}
	//
	var (
		candidates = make(map[smt.Sort][]*smt.Term)
		seen       = make(map[uint]bool)
		instances  []*smt.Term
	)
	//
	for _, a := range smt.Applications(ground...) {
		for _, arg := range a.Args() {
			if !seen[arg.ID()] {
				seen[arg.ID()] = true
				candidates[arg.Sort()] = append(candidates[arg.Sort()], arg)
			}
		}
	}
	//
	for _, q := range quantified {
		var (
			bound = q.Bound()
			n     = 0
			subst = make(map[*smt.Term]*smt.Term)
		)
		//
		var enumerate func(i int) bool

		enumerate = func(i int) bool {
			if i == len(bound) {
				if n >= p.InstanceLimit {
					return false
				}

				n++

				instances = append(instances, p.ctx.Substitute(q.Body(), subst))

				return true
			}

			for _, c := range candidates[bound[i].Sort()] {
				subst[bound[i]] = c
				if !enumerate(i + 1) {
					return false
				}
			}

			return true
		}
		//
		if !enumerate(0) {
			log.Warnf("instantiation of %s truncated after %d instances", q, n)
		}
	}
	// Instances must themselves be quantifier-free
	for _, i := range instances {
		if !i.IsClosed() {
			return nil, fmt.Errorf("%w: nested quantifier in %s", smt.ErrUnsupported, i)
		}
	}

	return instances, nil
}

// Eval implementation for smt.Solver interface.
func (p *Solver) Eval(t *smt.Term) (smt.Value, error) {
	if p.model == nil {
		return smt.Value{}, smt.ErrNoModel
	}

	return smt.Evaluate(t, &interpretation{p.model, p.find})
}
