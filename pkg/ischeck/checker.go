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
	"sort"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/consensys/go-ischeck/pkg/unroll"
	"github.com/consensys/go-ischeck/pkg/util"
	log "github.com/sirupsen/logrus"
)

// State is the position of a checker within its life cycle.
type State uint8

const (
	// Unconfigured means at least one instruction sequence is missing.
	Unconfigured State = iota
	// SequencesSet means both instruction sequences are known.
	SequencesSet
	// Preprocessed means top-level instructions are recorded and the models
	// flattened.
	Preprocessed
	// EnvConstrained means commands have been turned into step predicates.
	EnvConstrained
	// Unrolled means both transition relations are built.
	Unrolled
	// MiterBuilt means the proof obligation is built.
	MiterBuilt
	// Solved means the solver has returned.
	Solved
	// Equivalent means no violating execution exists.
	Equivalent
	// CounterexampleFound means a violating execution exists.
	CounterexampleFound
)

var stateNames = []string{"Unconfigured", "SequencesSet", "Preprocessed", "EnvConstrained", "Unrolled",
	"MiterBuilt", "Solved", "Equivalent", "CounterexampleFound"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("state(%d)", uint8(s))
}

// Checker decides whether two models, each driven through a fixed instruction
// sequence by a list of commands, leave corresponding memory locations with
// identical contents.  A checker handles exactly one query.
type Checker struct {
	design Design
	config Config
	ctx    *smt.Context
	sides  [2]*sideContext
	addrs  AddressMap
	state  State
	cex    *Counterexample
}

// New constructs a checker for a given design.
func New(design Design, config Config) (*Checker, error) {
	for i, m := range design.Models {
		if m == nil {
			return nil, configErrorf("model %s missing", Side(i))
		} else if design.Filters[i] == nil {
			return nil, configErrorf("filter for %s missing", m.Name())
		}
	}
	//
	ctx := design.Models[0].Context()
	if design.Models[1].Context() != ctx {
		return nil, configErrorf("models %s and %s belong to different term contexts",
			design.Models[0].Name(), design.Models[1].Name())
	} else if design.Correlation.Fanout() == 0 {
		return nil, configErrorf("no data lanes given for %s", design.Models[0].Name())
	}
	//
	p := &Checker{design: design, config: config, ctx: ctx, addrs: make(AddressMap)}
	for i := range p.sides {
		p.sides[i] = newSideContext(design.Models[i], design.Filters[i])
	}

	return p, nil
}

// State returns the current position of this checker within its life cycle.
func (p *Checker) State() State {
	return p.state
}

// Counterexample returns the diagnostic dump of the last check, if it found a
// counterexample.
func (p *Checker) Counterexample() *Counterexample {
	return p.cex
}

func (p *Checker) side(side Side) (*sideContext, error) {
	if int(side) >= len(p.sides) {
		return nil, configErrorf("unknown side %d", side)
	}

	return p.sides[side], nil
}

// SetInstrSeq reads an instruction sequence for a given side from a file.
func (p *Checker) SetInstrSeq(side Side, path string) error {
	names, err := ReadInstrNames(path)
	if err != nil {
		return err
	}

	return p.SetInstrNames(side, names)
}

// SetInstrNames resolves a list of instruction names against the model of a
// given side, appending them to its instruction sequence.  Resolution stops at
// the first unknown name.
func (p *Checker) SetInstrNames(side Side, names []string) error {
	s, err := p.side(side)
	if err != nil {
		return err
	}

	if len(s.seq) != 0 {
		log.Warnf("reading instruction sequence into non-empty sequence of %s", s.model.Name())
	}

	for _, name := range names {
		instr, ok := s.model.FindInstr(name)
		if !ok {
			return configErrorf("cannot find instruction %s in %s", name, s.model.Name())
		}

		s.seq = append(s.seq, instr)
	}

	if len(p.sides[0].seq) != 0 && len(p.sides[1].seq) != 0 {
		p.state = SequencesSet
	}

	return nil
}

// SetCommands sets the command sequence for a given side.
func (p *Checker) SetCommands(side Side, cmds []Command) error {
	s, err := p.side(side)
	if err != nil {
		return err
	}

	if len(s.cmds) != 0 {
		return configErrorf("commands of %s already set", s.model.Name())
	} else if len(cmds) == 0 {
		log.Warnf("no commands given for %s", s.model.Name())
	}

	s.cmds = cmds

	return nil
}

// SetAddressMap adds to the mapping from addresses of model A to addresses of
// model B.
func (p *Checker) SetAddressMap(mapping AddressMap) error {
	for src, dst := range mapping {
		if old, ok := p.addrs[src]; ok && old != dst {
			return configErrorf("conflicting mapping for address %#x", src)
		}

		p.addrs[src] = dst
	}

	return nil
}

// Check decides equivalence, returning true when no execution consistent with
// the commands leaves the compared memories in different states.  A false
// result without error means a counterexample was found.
func (p *Checker) Check(ctx context.Context) (bool, error) {
	if len(p.sides[0].seq) == 0 || len(p.sides[1].seq) == 0 {
		log.Error("Instruction sequence not set")
		return false, configErrorf("instruction sequence not set")
	} else if p.state > SequencesSet {
		// models are flattened in place, so a checker answers a single query
		return false, configErrorf("checker already used (state %s)", p.state)
	}
	//
	stats := util.NewPerfStats()

	if err := p.preprocess(); err != nil {
		return false, err
	}

	p.state = Preprocessed
	stats.Log("Preprocessing")
	//
	stats = util.NewPerfStats()

	for i, s := range p.sides {
		log.Infof("Adding %s specific constraints", s.model.Name())

		if err := s.constrain(p.config.Strict); err != nil {
			return false, err
		}

		log.Debugf("%s: %d steps, %d commands, %d stores", Side(i), len(s.seq), len(s.cmds), len(s.stores))
	}

	p.state = EnvConstrained
	stats.Log("Constraining")
	//
	formulas := [2]*smt.Term{p.sides[0].unroller.Formula(), p.sides[1].unroller.Formula()}
	p.state = Unrolled
	//
	stats = util.NewPerfStats()

	miter, err := p.miter()
	if err != nil {
		return false, err
	}

	p.state = MiterBuilt
	stats.Log("Building miter")
	//
	return p.solve(ctx, formulas, miter)
}

func (p *Checker) preprocess() error {
	for _, s := range p.sides {
		if err := s.preprocess(); err != nil {
			return err
		}
	}

	return nil
}

func (p *Checker) solve(ctx context.Context, formulas [2]*smt.Term, miter *smt.Term) (bool, error) {
	solver, err := p.config.solver(ctx, p.ctx)
	if err != nil {
		return false, err
	}
	// Release the solver (and any process) on every path
	defer func() {
		if err := solver.Close(); err != nil {
			log.Debugf("closing solver: %v", err)
		}
	}()
	//
	if err := p.axiomatize(solver); err != nil {
		return false, err
	}

	for _, f := range []*smt.Term{formulas[0], formulas[1], miter} {
		if err := solver.Assert(f); err != nil {
			return false, fmt.Errorf("asserting query: %w", err)
		}
	}
	//
	stats := util.NewPerfStats()
	res, err := solver.Check(ctx)

	stats.Log("Solving")

	if err != nil {
		return false, fmt.Errorf("solving: %w", err)
	}

	p.state = Solved
	log.Infof("Solver returned %s", res)
	//
	switch res {
	case smt.Unsat:
		p.state = Equivalent
		return true, nil
	case smt.Sat:
		p.state = CounterexampleFound
		p.cex = p.counterexample(solver)

		if p.config.DumpDir != "" {
			if err := p.cex.Save(p.config.DumpDir); err != nil {
				return false, err
			}
		}

		return false, nil
	}

	return false, ErrInconclusive
}

// ============================================================================
// Per-side context
// ============================================================================

// sideContext holds everything concerning one of the two models.
type sideContext struct {
	// Model as given, then flattened.
	model  *ila.Model
	filter Filter
	seq    []*ila.Instr
	// Names of top-level instructions, recorded before flattening.
	top      map[string]bool
	cmds     []Command
	stores   StoreIndex
	unroller *unroll.Unroller
}

func newSideContext(model *ila.Model, filter Filter) *sideContext {
	return &sideContext{model: model, filter: filter, stores: make(StoreIndex)}
}

// preprocess records the top-level instructions, then flattens the model and
// resolves the instruction sequence against the result.
func (p *sideContext) preprocess() error {
	p.top = make(map[string]bool)

	for _, instr := range p.model.Instrs() {
		p.top[instr.Name()] = true
	}
	//
	flat := p.model.Flatten()

	for i, instr := range p.seq {
		resolved, ok := flat.Instr(instr.Name())
		if !ok {
			return configErrorf("instruction %s lost by flattening %s", instr.Name(), flat.Name())
		}

		p.seq[i] = resolved
	}

	p.model = flat

	return nil
}

// constrain unrolls the instruction sequence, constraining each top-level step
// by the next command.
func (p *sideContext) constrain(strict bool) error {
	p.unroller = unroll.New(p.model, p.seq, "")
	//
	var (
		next = 0
		ntop = 0
	)
	//
	for i, instr := range p.seq {
		if !p.top[instr.Name()] {
			continue
		}

		ntop++

		if next >= len(p.cmds) {
			continue
		}

		step := Step{Model: p.model, Instr: instr, Index: uint(i), Strict: strict}

		pred, err := p.filter.Constrain(step, p.cmds[next], p.stores)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, instr.Name(), err)
		} else if err := p.unroller.AssertStep(pred, uint(i)); err != nil {
			return err
		}

		next++
	}
	//
	if len(p.cmds) > ntop {
		return violationf("%d commands for %d top-level steps of %s", len(p.cmds), ntop, p.model.Name())
	} else if len(p.cmds) < ntop {
		log.Warnf("only %d commands for %d top-level steps of %s", len(p.cmds), ntop, p.model.Name())
	}

	return nil
}

// addresses returns the stored addresses in ascending order.
func (p *sideContext) addresses() []uint64 {
	addrs := make([]uint64, 0, len(p.stores))
	for a := range p.stores {
		addrs = append(addrs, a)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}
