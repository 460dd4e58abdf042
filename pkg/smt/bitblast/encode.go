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
	"fmt"

	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// read records a read of a base array at some index.  Reads of the same base
// at equal indices must agree.
type read struct {
	index []z.Lit
	data  []z.Lit
}

// app records an application of an uninterpreted function.  Applications of
// the same (unified) function to equal arguments must agree.
type app struct {
	args   [][]z.Lit
	result []z.Lit
}

// indexTerm is an address occurring in some select or store, keyed by term.
type indexTerm struct {
	id   uint
	bits []z.Lit
}

// encoder translates terms into an and-inverter graph.  Booleans map onto a
// single literal and bit-vectors onto their bits, least significant first.
// Arrays have no direct encoding: reads of base arrays are given fresh bits
// and related afterwards by congruence.
type encoder struct {
	c     *logic.C
	rep   func(*smt.Func) *smt.Func
	bits  map[uint][]z.Lit
	vars  map[uint]*smt.Term
	reads map[uint][]read
	// base array id and index term id to read position
	readAt map[[2]uint]int
	apps   map[uint][]app
	// function by representative identifier
	funcs   map[uint]*smt.Func
	indices map[smt.Sort][]indexTerm
	seenIdx map[uint]bool
}

func newEncoder(rep func(*smt.Func) *smt.Func) *encoder {
	return &encoder{
		c:       logic.NewC(),
		rep:     rep,
		bits:    make(map[uint][]z.Lit),
		vars:    make(map[uint]*smt.Term),
		reads:   make(map[uint][]read),
		readAt:  make(map[[2]uint]int),
		apps:    make(map[uint][]app),
		funcs:   make(map[uint]*smt.Func),
		indices: make(map[smt.Sort][]indexTerm),
		seenIdx: make(map[uint]bool),
	}
}

// formula encodes a boolean term as a single literal.
func (p *encoder) formula(t *smt.Term) (z.Lit, error) {
	bits, err := p.encode(t)
	if err != nil {
		return z.LitNull, err
	}

	return bits[0], nil
}

// encode translates a non-array term, memoising the result.
func (p *encoder) encode(t *smt.Term) ([]z.Lit, error) {
	if t.Sort().IsArray() {
		return nil, fmt.Errorf("%w: array-valued term %s outside select", smt.ErrUnsupported, t)
	}

	for _, n := range smt.PostOrder(t) {
		if _, ok := p.bits[n.ID()]; ok || n.Sort().IsArray() {
			continue
		} else if n.Op() == smt.OpForall || n.Op() == smt.OpBound {
			return nil, fmt.Errorf("%w: nested quantifier in %s", smt.ErrUnsupported, t)
		}

		bits, err := p.node(n)
		if err != nil {
			return nil, err
		}

		p.bits[n.ID()] = bits
	}

	return p.bits[t.ID()], nil
}

func (p *encoder) node(n *smt.Term) ([]z.Lit, error) {
	var (
		c   = p.c
		arg = func(i int) []z.Lit { return p.bits[n.Arg(i).ID()] }
	)
	//
	switch n.Op() {
	case smt.OpVar:
		p.vars[n.ID()] = n
		return p.fresh(n.Sort()), nil
	case smt.OpConst:
		return p.constant(n.Sort(), n.Value()), nil
	case smt.OpNot:
		return []z.Lit{arg(0)[0].Not()}, nil
	case smt.OpAnd, smt.OpOr:
		lits := make([]z.Lit, len(n.Args()))
		for i := range n.Args() {
			lits[i] = arg(i)[0]
		}

		if n.Op() == smt.OpAnd {
			return []z.Lit{c.Ands(lits...)}, nil
		}

		return []z.Lit{c.Ors(lits...)}, nil
	case smt.OpIte:
		return p.choice(arg(0)[0], arg(1), arg(2)), nil
	case smt.OpEq:
		if n.Arg(0).Sort().IsArray() {
			return nil, fmt.Errorf("%w: array equality %s below top-level", smt.ErrUnsupported, n)
		}

		return []z.Lit{p.equal(arg(0), arg(1))}, nil
	case smt.OpBvNot:
		return p.bitwise(arg(0), arg(0), func(a, _ z.Lit) z.Lit { return a.Not() }), nil
	case smt.OpBvAnd:
		return p.bitwise(arg(0), arg(1), c.And), nil
	case smt.OpBvOr:
		return p.bitwise(arg(0), arg(1), c.Or), nil
	case smt.OpBvXor:
		return p.bitwise(arg(0), arg(1), c.Xor), nil
	case smt.OpBvAdd:
		sum, _ := p.adder(arg(0), arg(1), c.F)
		return sum, nil
	case smt.OpBvSub:
		diff, _ := p.adder(arg(0), p.bitwise(arg(1), arg(1), func(a, _ z.Lit) z.Lit { return a.Not() }), c.T)
		return diff, nil
	case smt.OpBvUlt:
		return []z.Lit{p.less(arg(0), arg(1))}, nil
	case smt.OpBvUle:
		return []z.Lit{p.less(arg(1), arg(0)).Not()}, nil
	case smt.OpExtract:
		hi, lo := n.Params()
		return append([]z.Lit(nil), arg(0)[lo:hi+1]...), nil
	case smt.OpZeroExt:
		k, _ := n.Params()
		bits := append([]z.Lit(nil), arg(0)...)

		for range k {
			bits = append(bits, c.F)
		}

		return bits, nil
	case smt.OpConcat:
		return append(append([]z.Lit(nil), arg(1)...), arg(0)...), nil
	case smt.OpSelect:
		p.index(n.Arg(0).Sort(), n.Arg(1))
		return p.selectAt(n.Arg(0), n.Arg(1).ID(), arg(1))
	case smt.OpApply:
		return p.apply(n), nil
	}

	return nil, fmt.Errorf("%w: operator %s", smt.ErrUnsupported, n.Op())
}

func (p *encoder) fresh(sort smt.Sort) []z.Lit {
	width := sort.Width
	if sort.IsBool() {
		width = 1
	}

	bits := make([]z.Lit, width)
	for i := range bits {
		bits[i] = p.c.Lit()
	}

	return bits
}

func (p *encoder) constant(sort smt.Sort, value uint64) []z.Lit {
	width := sort.Width
	if sort.IsBool() {
		width = 1
	}

	bits := make([]z.Lit, width)
	for i := range bits {
		if value&(1<<i) != 0 {
			bits[i] = p.c.T
		} else {
			bits[i] = p.c.F
		}
	}

	return bits
}

func (p *encoder) bitwise(a, b []z.Lit, fn func(z.Lit, z.Lit) z.Lit) []z.Lit {
	bits := make([]z.Lit, len(a))
	for i := range a {
		bits[i] = fn(a[i], b[i])
	}

	return bits
}

func (p *encoder) choice(cond z.Lit, a, b []z.Lit) []z.Lit {
	bits := make([]z.Lit, len(a))
	for i := range a {
		bits[i] = p.c.Choice(cond, a[i], b[i])
	}

	return bits
}

func (p *encoder) equal(a, b []z.Lit) z.Lit {
	eqs := make([]z.Lit, len(a))
	for i := range a {
		eqs[i] = p.c.Xor(a[i], b[i]).Not()
	}

	return p.c.Ands(eqs...)
}

// adder is a ripple-carry adder returning the sum and the carry out.
func (p *encoder) adder(a, b []z.Lit, carry z.Lit) ([]z.Lit, z.Lit) {
	c := p.c
	sum := make([]z.Lit, len(a))
	//
	for i := range a {
		x := c.Xor(a[i], b[i])
		sum[i] = c.Xor(x, carry)
		carry = c.Or(c.And(a[i], b[i]), c.And(carry, x))
	}

	return sum, carry
}

// less encodes the unsigned comparison a < b, which holds exactly when
// computing a - b borrows.
func (p *encoder) less(a, b []z.Lit) z.Lit {
	nb := p.bitwise(b, b, func(x, _ z.Lit) z.Lit { return x.Not() })
	_, carry := p.adder(a, nb, p.c.T)

	return carry.Not()
}

// index registers an address term against the array sort it addresses.
func (p *encoder) index(sort smt.Sort, idx *smt.Term) {
	if p.seenIdx[idx.ID()] {
		return
	}

	p.seenIdx[idx.ID()] = true
	p.indices[sort] = append(p.indices[sort], indexTerm{idx.ID(), p.bits[idx.ID()]})
}

// selectAt encodes a read of array a at an (already encoded) index, applying
// read-over-write down to the base array.
func (p *encoder) selectAt(a *smt.Term, key uint, idx []z.Lit) ([]z.Lit, error) {
	switch a.Op() {
	case smt.OpStore:
		if _, err := p.encode(a.Arg(1)); err != nil {
			return nil, err
		}

		if _, err := p.encode(a.Arg(2)); err != nil {
			return nil, err
		}

		p.index(a.Sort(), a.Arg(1))
		hit := p.equal(idx, p.bits[a.Arg(1).ID()])

		rest, err := p.selectAt(a.Arg(0), key, idx)
		if err != nil {
			return nil, err
		}

		return p.choice(hit, p.bits[a.Arg(2).ID()], rest), nil
	case smt.OpIte:
		cond, err := p.formula(a.Arg(0))
		if err != nil {
			return nil, err
		}

		then, err := p.selectAt(a.Arg(1), key, idx)
		if err != nil {
			return nil, err
		}

		other, err := p.selectAt(a.Arg(2), key, idx)
		if err != nil {
			return nil, err
		}

		return p.choice(cond, then, other), nil
	case smt.OpVar:
		p.vars[a.ID()] = a

		k := [2]uint{a.ID(), key}
		if i, ok := p.readAt[k]; ok {
			return p.reads[a.ID()][i].data, nil
		}

		data := p.fresh(a.Sort().ElemSort())
		p.readAt[k] = len(p.reads[a.ID()])
		p.reads[a.ID()] = append(p.reads[a.ID()], read{idx, data})

		return data, nil
	}

	return nil, fmt.Errorf("%w: array term %s", smt.ErrUnsupported, a)
}

func (p *encoder) apply(n *smt.Term) []z.Lit {
	var (
		f    = p.rep(n.Func())
		args = make([][]z.Lit, len(n.Args()))
	)
	//
	for i, arg := range n.Args() {
		args[i] = p.bits[arg.ID()]
	}

	result := p.fresh(n.Sort())
	p.funcs[f.ID()] = f
	p.apps[f.ID()] = append(p.apps[f.ID()], app{args, result})

	return result
}

// congruence returns the constraints forcing reads of the same base at equal
// addresses, and applications of the same function to equal arguments, to
// agree.
func (p *encoder) congruence() []z.Lit {
	var (
		c      = p.c
		axioms []z.Lit
	)
	//
	for _, reads := range p.reads {
		for i := range reads {
			for j := i + 1; j < len(reads); j++ {
				same := p.equal(reads[i].index, reads[j].index)
				axioms = append(axioms, c.Implies(same, p.equal(reads[i].data, reads[j].data)))
			}
		}
	}
	//
	for _, apps := range p.apps {
		for i := range apps {
			for j := i + 1; j < len(apps); j++ {
				same := make([]z.Lit, len(apps[i].args))
				for k := range same {
					same[k] = p.equal(apps[i].args[k], apps[j].args[k])
				}

				axioms = append(axioms, c.Implies(c.Ands(same...), p.equal(apps[i].result, apps[j].result)))
			}
		}
	}

	return axioms
}

// arrayEqual encodes a = b over every address used with arrays of that sort.
// This is only sound for equalities asserted positively, and must be called
// once all other formulas have been encoded.
func (p *encoder) arrayEqual(a, b *smt.Term) (z.Lit, error) {
	// Addresses written by either side are relevant
	for _, n := range smt.PostOrder(a, b) {
		if n.Op() == smt.OpStore {
			if _, err := p.encode(n.Arg(1)); err != nil {
				return z.LitNull, err
			}

			p.index(n.Sort(), n.Arg(1))
		}
	}
	//
	var eqs []z.Lit

	for _, idx := range p.indices[a.Sort()] {
		ra, err := p.selectAt(a, idx.id, idx.bits)
		if err != nil {
			return z.LitNull, err
		}

		rb, err := p.selectAt(b, idx.id, idx.bits)
		if err != nil {
			return z.LitNull, err
		}

		eqs = append(eqs, p.equal(ra, rb))
	}

	return p.c.Ands(eqs...), nil
}
