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
	"context"
	"fmt"
	"io"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/consensys/go-ischeck/pkg/smt/backend"
)

// Side identifies one of the two models being compared.
type Side uint8

const (
	// SideA is the model whose stores fan out into several data lanes.
	SideA Side = 0
	// SideB is the model receiving one data value per store.
	SideB Side = 1
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	} else if s == SideB {
		return "B"
	}

	return fmt.Sprintf("side(%d)", uint8(s))
}

// Command is a parsed command, mapping field names to values.  One command
// drives each top-level instruction of a sequence.
type Command map[string]uint64

// Field returns the value of a given field.
func (c Command) Field(name string) (uint64, error) {
	v, ok := c[name]
	if !ok {
		return 0, configErrorf("command has no field %q", name)
	}

	return v, nil
}

// StoreIndex maps the address of a store to the step of the instruction
// sequence at which its data is presented.
type StoreIndex map[uint64]uint

// Step describes a top-level step of an instruction sequence being constrained
// by a command.
type Step struct {
	// Flattened model being constrained
	Model *ila.Model
	// Instruction fired at this step
	Instr *ila.Instr
	// Position within the instruction sequence
	Index uint
	// Strict requests that commands without a model be rejected, rather than
	// left unconstrained.
	Strict bool
}

// Filter translates commands of one design into constraints on the inputs of
// the steps they drive.  Implementations record any store performed by a
// command in the store index.
type Filter interface {
	Constrain(step Step, cmd Command, stores StoreIndex) (*smt.Term, error)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(step Step, cmd Command, stores StoreIndex) (*smt.Term, error)

// Constrain implementation for Filter interface.
func (f FilterFunc) Constrain(step Step, cmd Command, stores StoreIndex) (*smt.Term, error) {
	return f(step, cmd, stores)
}

// Correlation identifies the entities relating stores of the two models.  Each
// store of model A presents one data value on each of its lanes, which is
// written at consecutive addresses; each store of model B presents a single
// data value.
type Correlation struct {
	// Memory state compared in each model
	Memory [2]string
	// Data lane inputs of model A, least significant first
	LanesA []string
	// Data input of model B
	DataB string
}

// Fanout returns the number of model B stores corresponding to one store of
// model A.
func (c Correlation) Fanout() int {
	return len(c.LanesA)
}

// FuncPair names an uninterpreted function invoked by both models, which the
// two must agree on.
type FuncPair struct {
	A string
	B string
}

// Design binds two models together with everything needed to compare them.
// Both models must be declared in the same term context.
type Design struct {
	Models      [2]*ila.Model
	Filters     [2]Filter
	Correlation Correlation
	Funcs       []FuncPair
}

// AxiomPolicy determines how shared uninterpreted functions are related.
type AxiomPolicy uint8

const (
	// AutoPolicy identifies functions when the backend supports it, and
	// otherwise asserts axioms.
	AutoPolicy AxiomPolicy = iota
	// SamePolicy identifies the two function symbols.
	SamePolicy
	// AxiomsPolicy asserts commutativity, selection and cross-model
	// equivalence as quantified axioms.
	AxiomsPolicy
	// NoPolicy leaves the functions unrelated.
	NoPolicy
)

func (p AxiomPolicy) String() string {
	switch p {
	case AutoPolicy:
		return "auto"
	case SamePolicy:
		return "same"
	case AxiomsPolicy:
		return "axioms"
	case NoPolicy:
		return "none"
	}

	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParseAxiomPolicy returns the policy of the given name.
func ParseAxiomPolicy(name string) (AxiomPolicy, error) {
	for p := AutoPolicy; p <= NoPolicy; p++ {
		if p.String() == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown axiom policy %q (expected auto, same, axioms or none)", name)
}

// SolverFactory constructs a solver over a given term context.
type SolverFactory func(ctx context.Context, tctx *smt.Context) (smt.Solver, error)

// Config determines how a check is carried out.
type Config struct {
	// Backend used when no factory is given
	Backend backend.Kind
	// External solver command line (smtlib backend only)
	Solver []string
	// When non-nil, the query is written here instead of being solved
	// (smtlib backend only)
	Script io.Writer
	Policy AxiomPolicy
	// Directory where counterexample dumps are written, if any
	DumpDir string
	// Reject commands the design does not model
	Strict bool
	// Overrides backend selection
	NewSolver SolverFactory
}

func (c Config) solver(ctx context.Context, tctx *smt.Context) (smt.Solver, error) {
	if c.NewSolver != nil {
		return c.NewSolver(ctx, tctx)
	}

	return backend.New(ctx, tctx, backend.Options{Kind: c.Backend, Solver: c.Solver, Script: c.Script})
}
