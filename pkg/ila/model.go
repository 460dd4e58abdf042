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

// Model is an instruction-level abstraction of a hardware design: a set of
// named inputs and persistent states, plus a set of guarded instructions which
// update those states atomically.  A model may contain child models whose
// instructions only fire when the child is valid (e.g. a multi-cycle
// operation launched by a top-level instruction).
//
// Inputs and states are free variables of the model's term context, named
// "<model>.<name>".  Children share the namespace of their root, so that a
// flattened model remains well formed.
type Model struct {
	name   string
	ctx    *smt.Context
	parent *Model
	// Condition under which instructions of this (child) model may fire.
	valid    *smt.Term
	inputs   []*smt.Term
	states   []*smt.Term
	instrs   []*Instr
	children []*Model
	funcs    map[string]*smt.Func
	// Inputs and states of the whole hierarchy, by unqualified name.
	scope map[string]*smt.Term
}

// NewModel constructs an empty model within a given term context.
func NewModel(ctx *smt.Context, name string) *Model {
	return &Model{
		name:  name,
		ctx:   ctx,
		funcs: make(map[string]*smt.Func),
		scope: make(map[string]*smt.Term),
	}
}

// Name returns the name of this model.
func (p *Model) Name() string {
	return p.name
}

// Context returns the term context of this model.
func (p *Model) Context() *smt.Context {
	return p.ctx
}

// Root returns the top-level model of the hierarchy containing this model.
func (p *Model) Root() *Model {
	m := p
	for m.parent != nil {
		m = m.parent
	}

	return m
}

// ============================================================================
// Declarations
// ============================================================================

// NewBvInput declares a bit-vector input of the given width.
func (p *Model) NewBvInput(name string, width uint) *smt.Term {
	v := p.declare(name, smt.BitVecSort(width))
	p.inputs = append(p.inputs, v)

	return v
}

// NewBoolInput declares a boolean input.
func (p *Model) NewBoolInput(name string) *smt.Term {
	v := p.declare(name, smt.BoolSort())
	p.inputs = append(p.inputs, v)

	return v
}

// NewBvState declares a bit-vector state of the given width.
func (p *Model) NewBvState(name string, width uint) *smt.Term {
	v := p.declare(name, smt.BitVecSort(width))
	p.states = append(p.states, v)

	return v
}

// NewMemState declares a memory state with the given address and data widths.
func (p *Model) NewMemState(name string, addrWidth, dataWidth uint) *smt.Term {
	v := p.declare(name, smt.ArraySort(addrWidth, dataWidth))
	p.states = append(p.states, v)

	return v
}

// NewFunc declares an uninterpreted function private to this model.  Distinct
// models declaring a function of the same name obtain distinct symbols.
func (p *Model) NewFunc(name string, rng smt.Sort, domain ...smt.Sort) *smt.Func {
	root := p.Root()
	if _, ok := root.funcs[name]; ok {
		panic(fmt.Sprintf("function %s already declared in %s", name, root.name))
	}

	f := p.ctx.DeclareFun(root.name+"."+name, rng, domain...)
	root.funcs[name] = f

	return f
}

// NewInstr adds a new instruction to this model.  The instruction has a true
// decode and no updates until these are set.
func (p *Model) NewInstr(name string) *Instr {
	if _, ok := p.Root().FindInstr(name); ok {
		panic(fmt.Sprintf("instruction %s already declared in %s", name, p.Root().name))
	}

	instr := &Instr{name: name, host: p, decode: p.ctx.True(), updates: make(map[uint]*smt.Term)}
	p.instrs = append(p.instrs, instr)

	return instr
}

// NewChild adds a child model to this model.  The child is valid until
// SetValid says otherwise.
func (p *Model) NewChild(name string) *Model {
	child := &Model{
		name:   name,
		ctx:    p.ctx,
		parent: p,
		valid:  p.ctx.True(),
		funcs:  p.Root().funcs,
		scope:  p.Root().scope,
	}
	p.children = append(p.children, child)

	return child
}

// SetValid sets the condition under which instructions of this child model
// may fire.
func (p *Model) SetValid(valid *smt.Term) {
	if p.parent == nil {
		panic("cannot set valid condition of top-level model")
	}

	p.valid = valid
}

// Valid returns the condition under which instructions of this model may
// fire, which is always true for a top-level model.
func (p *Model) Valid() *smt.Term {
	if p.valid == nil {
		return p.ctx.True()
	}

	return p.valid
}

func (p *Model) declare(name string, sort smt.Sort) *smt.Term {
	if _, ok := p.scope[name]; ok {
		panic(fmt.Sprintf("%s already declared in %s", name, p.Root().name))
	}

	v := p.ctx.Var(p.Root().name+"."+name, sort)
	p.scope[name] = v

	return v
}

// ============================================================================
// Lookup
// ============================================================================

// Input returns the input of the given (unqualified) name declared anywhere in
// this model's hierarchy.
func (p *Model) Input(name string) (*smt.Term, bool) {
	return p.lookup(name, func(m *Model) []*smt.Term { return m.inputs })
}

// State returns the state of the given (unqualified) name declared anywhere in
// this model's hierarchy.
func (p *Model) State(name string) (*smt.Term, bool) {
	return p.lookup(name, func(m *Model) []*smt.Term { return m.states })
}

func (p *Model) lookup(name string, vars func(*Model) []*smt.Term) (*smt.Term, bool) {
	v, ok := p.scope[name]
	if !ok {
		return nil, false
	}
	// Check the kind matches
	var found bool

	p.Root().walk(func(m *Model) {
		for _, w := range vars(m) {
			found = found || w == v
		}
	})

	return v, found
}

// Func returns the uninterpreted function of the given (unqualified) name.
func (p *Model) Func(name string) (*smt.Func, bool) {
	f, ok := p.funcs[name]
	return f, ok
}

// Inputs returns the inputs declared directly in this model.
func (p *Model) Inputs() []*smt.Term {
	return p.inputs
}

// States returns the states declared directly in this model.
func (p *Model) States() []*smt.Term {
	return p.states
}

// AllInputs returns the inputs declared anywhere in this model's hierarchy.
func (p *Model) AllInputs() []*smt.Term {
	var inputs []*smt.Term

	p.walk(func(m *Model) { inputs = append(inputs, m.inputs...) })

	return inputs
}

// AllStates returns the states declared anywhere in this model's hierarchy.
func (p *Model) AllStates() []*smt.Term {
	var states []*smt.Term

	p.walk(func(m *Model) { states = append(states, m.states...) })

	return states
}

// NumInstrs returns the number of instructions declared directly in this
// model.
func (p *Model) NumInstrs() uint {
	return uint(len(p.instrs))
}

// InstrAt returns the ith instruction declared directly in this model.
func (p *Model) InstrAt(i uint) *Instr {
	return p.instrs[i]
}

// Instrs returns the instructions declared directly in this model.
func (p *Model) Instrs() []*Instr {
	return p.instrs
}

// Instr returns the instruction of the given name declared directly in this
// model.
func (p *Model) Instr(name string) (*Instr, bool) {
	for _, i := range p.instrs {
		if i.name == name {
			return i, true
		}
	}

	return nil, false
}

// FindInstr returns the instruction of the given name declared anywhere in
// this model's hierarchy.
func (p *Model) FindInstr(name string) (*Instr, bool) {
	var found *Instr

	p.walk(func(m *Model) {
		if i, ok := m.Instr(name); ok && found == nil {
			found = i
		}
	})

	return found, found != nil
}

// Children returns the child models of this model.
func (p *Model) Children() []*Model {
	return p.children
}

func (p *Model) walk(fn func(*Model)) {
	fn(p)

	for _, c := range p.children {
		c.walk(fn)
	}
}

// ============================================================================
// Flattening
// ============================================================================

// Flatten returns an equivalent model without hierarchy.  Instructions of a
// child model are lifted into the result with their decode strengthened by the
// valid conditions of every enclosing child, and child states become states of
// the result.  The receiver is left unchanged.
func (p *Model) Flatten() *Model {
	flat := &Model{
		name:   p.name,
		ctx:    p.ctx,
		inputs: make([]*smt.Term, 0, len(p.inputs)),
		funcs:  p.funcs,
		scope:  p.scope,
	}
	//
	var lift func(m *Model, valid *smt.Term)

	lift = func(m *Model, valid *smt.Term) {
		flat.inputs = append(flat.inputs, m.inputs...)
		flat.states = append(flat.states, m.states...)
		//
		for _, i := range m.instrs {
			instr := &Instr{
				name:    i.name,
				host:    flat,
				decode:  p.ctx.And(valid, i.decode),
				updates: i.updates,
				order:   i.order,
			}
			flat.instrs = append(flat.instrs, instr)
		}

		for _, c := range m.children {
			lift(c, p.ctx.And(valid, c.Valid()))
		}
	}
	//
	lift(p, p.Valid())

	return flat
}
