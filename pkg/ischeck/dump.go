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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
)

// Trace records the contents of the tracked memory locations of one model, as
// found by the solver.
type Trace struct {
	Model string
	// Tracked addresses, in the order they are compared
	Addresses []uint64
	// Steps[i][j] holds the contents of Addresses[j] before the ith
	// instruction fires.
	Steps [][]uint64
	// Complete memory after the last instruction
	Final smt.Value
}

// At returns the contents of a given address at a given step.
func (t *Trace) At(step uint, addr uint64) (uint64, bool) {
	for j, a := range t.Addresses {
		if a == addr && step < uint(len(t.Steps)) {
			return t.Steps[step][j], true
		}
	}

	return 0, false
}

// Write prints a trace as lines "i: values" followed by the complete memory.
func (t *Trace) Write(w io.Writer) error {
	out := bufio.NewWriter(w)
	//
	for i, row := range t.Steps {
		fmt.Fprintf(out, "%d:", i)

		for j, v := range row {
			fmt.Fprintf(out, " %#x=%#x", t.Addresses[j], v)
		}

		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "complete mem:")
	fmt.Fprintln(out, t.Final.String())

	return out.Flush()
}

// Counterexample is a diagnostic dump of an execution distinguishing the two
// models.
type Counterexample struct {
	Traces [2]*Trace
}

// Save writes each trace into a file "<model>_out.txt" within a given
// directory.
func (c *Counterexample) Save(dir string) error {
	for _, t := range c.Traces {
		if t == nil {
			continue
		}

		path := filepath.Join(dir, t.Model+"_out.txt")

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("writing counterexample: %w", err)
		}

		if err = t.Write(f); err == nil {
			err = f.Close()
		} else {
			f.Close()
		}

		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		log.Infof("Counterexample for %s written to %s", t.Model, path)
	}

	return nil
}

// counterexample evaluates the tracked memory locations of both models in the
// model found by a solver.  Locations which cannot be evaluated are left out.
func (p *Checker) counterexample(solver smt.Solver) *Counterexample {
	var cex Counterexample
	//
	mems, err := p.memories()
	if err != nil {
		log.Warnf("no counterexample: %v", err)
		return &cex
	}
	//
	tracked := [2][]uint64{}

	for _, addrA := range p.sides[0].addresses() {
		for i := range p.design.Correlation.Fanout() {
			addr := addrA + uint64(i)
			tracked[0] = append(tracked[0], addr)
			tracked[1] = append(tracked[1], p.addrs[addr])
		}
	}
	//
	for i, s := range p.sides {
		trace, err := p.trace(solver, s, mems[i], tracked[i])
		if err != nil {
			log.Warnf("incomplete counterexample for %s: %v", s.model.Name(), err)
		}

		cex.Traces[i] = trace
	}

	return &cex
}

func (p *Checker) trace(solver smt.Solver, s *sideContext, mem *smt.Term, addrs []uint64) (*Trace, error) {
	var (
		trace = &Trace{Model: s.model.Name(), Addresses: addrs}
		width = mem.Sort().Index
		n     = s.unroller.Steps()
	)
	//
	for step := uint(0); step <= n; step++ {
		m, err := s.unroller.ValueAt(mem, step)
		if err != nil {
			return trace, err
		}

		row := make([]uint64, len(addrs))

		for j, addr := range addrs {
			v, err := solver.Eval(p.ctx.Select(m, p.ctx.BitVec(addr, width)))
			if err != nil {
				return trace, err
			}

			row[j] = v.Uint64()
		}

		trace.Steps = append(trace.Steps, row)

		if step == n {
			if trace.Final, err = solver.Eval(m); err != nil {
				return trace, err
			}
		}
	}

	return trace, nil
}
