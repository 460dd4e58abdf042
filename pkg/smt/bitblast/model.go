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
	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

type entry struct {
	args   []uint64
	result uint64
}

// model is the assignment found by a satisfiable check, lifted back from bits
// to words.
type model struct {
	vars   map[uint]smt.Value
	arrays map[uint]map[uint64]uint64
	apps   map[uint][]entry
}

func extract(enc *encoder, g *gini.Gini) *model {
	m := &model{
		vars:   make(map[uint]smt.Value),
		arrays: make(map[uint]map[uint64]uint64),
		apps:   make(map[uint][]entry),
	}
	//
	word := func(bits []z.Lit) uint64 {
		var w uint64

		for i, b := range bits {
			if g.Value(b) {
				w |= 1 << i
			}
		}

		return w
	}
	//
	for id, v := range enc.vars {
		switch {
		case v.Sort().IsArray():
			entries := make(map[uint64]uint64)
			// First read at an address wins; congruence makes the rest agree.
			for _, r := range enc.reads[id] {
				if addr := word(r.index); !has(entries, addr) {
					entries[addr] = word(r.data)
				}
			}

			m.arrays[id] = entries
		case v.Sort().IsBool():
			m.vars[id] = smt.BoolValue(word(enc.bits[id]) != 0)
		default:
			m.vars[id] = smt.BitVecValue(word(enc.bits[id]), v.Sort().Width)
		}
	}
	//
	for id, apps := range enc.apps {
		for _, a := range apps {
			args := make([]uint64, len(a.args))
			for i, arg := range a.args {
				args[i] = word(arg)
			}

			m.apps[id] = append(m.apps[id], entry{args, word(a.result)})
		}
	}

	return m
}

func has(m map[uint64]uint64, k uint64) bool {
	_, ok := m[k]
	return ok
}

// interpretation completes the model: anything not constrained by the check
// evaluates to zero.
type interpretation struct {
	model *model
	find  func(*smt.Func) *smt.Func
}

func (p *interpretation) Var(v *smt.Term) smt.Value {
	if v.Sort().IsArray() {
		return smt.ArrayValue(v.Sort(), p.model.arrays[v.ID()])
	} else if val, ok := p.model.vars[v.ID()]; ok {
		return val
	} else if v.Sort().IsBool() {
		return smt.BoolValue(false)
	}

	return smt.BitVecValue(0, v.Sort().Width)
}

func (p *interpretation) Apply(f *smt.Func, args []smt.Value) smt.Value {
	rng := f.Range()
	//
	for _, e := range p.model.apps[p.find(f).ID()] {
		if matches(e.args, args) {
			if rng.IsBool() {
				return smt.BoolValue(e.result != 0)
			}

			return smt.BitVecValue(e.result, rng.Width)
		}
	}

	if rng.IsBool() {
		return smt.BoolValue(false)
	}

	return smt.BitVecValue(0, rng.Width)
}

func matches(entry []uint64, args []smt.Value) bool {
	for i, a := range args {
		if entry[i] != a.Uint64() {
			return false
		}
	}

	return true
}
