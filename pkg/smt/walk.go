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
package smt

import "fmt"

// Visit walks the DAG rooted at t in pre-order, visiting each distinct term
// at most once.  Children of a term are only explored when fn returns true.
func Visit(t *Term, fn func(*Term) bool) {
	var (
		seen  = make(map[uint]bool)
		stack = []*Term{t}
	)
	//
	for len(stack) > 0 {
		n := len(stack) - 1
		top := stack[n]
		stack = stack[:n]

		if seen[top.id] {
			continue
		}

		seen[top.id] = true

		if fn(top) {
			// Push in reverse so that operands are visited left-to-right
			for i := len(top.args) - 1; i >= 0; i-- {
				stack = append(stack, top.args[i])
			}
		}
	}
}

// PostOrder returns every distinct term reachable from the given roots such
// that operands always precede the terms using them.
func PostOrder(roots ...*Term) []*Term {
	var (
		order []*Term
		state = make(map[uint]uint8)
	)
	//
	type frame struct {
		t    *Term
		next int
	}
	//
	for _, root := range roots {
		if state[root.id] != 0 {
			continue
		}

		stack := []frame{{root, 0}}
		state[root.id] = 1

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.t.args) {
				arg := top.t.args[top.next]
				top.next++

				if state[arg.id] == 0 {
					state[arg.id] = 1
					stack = append(stack, frame{arg, 0})
				}

				continue
			}

			state[top.t.id] = 2
			order = append(order, top.t)
			stack = stack[:len(stack)-1]
		}
	}

	return order
}

// FreeVars returns the free constants occurring in the given terms, in
// post-order.
func FreeVars(roots ...*Term) []*Term {
	var vars []*Term

	for _, t := range PostOrder(roots...) {
		if t.op == OpVar {
			vars = append(vars, t)
		}
	}

	return vars
}

// Applications returns every application term occurring in the given terms,
// in post-order.
func Applications(roots ...*Term) []*Term {
	var apps []*Term

	for _, t := range PostOrder(roots...) {
		if t.op == OpApply {
			apps = append(apps, t)
		}
	}

	return apps
}

// Conjuncts splits a formula into its top-level conjuncts.
func Conjuncts(t *Term) []*Term {
	if t.op == OpAnd {
		return t.args
	} else if t.IsTrue() {
		return nil
	}

	return []*Term{t}
}

// Substitute replaces every occurrence of a key of subst within t by the
// corresponding value, rebuilding (and simplifying) the enclosing terms.
func (p *Context) Substitute(t *Term, subst map[*Term]*Term) *Term {
	if len(subst) == 0 {
		return t
	}

	memo := make(map[uint]*Term)

	for _, n := range PostOrder(t) {
		if r, ok := subst[n]; ok {
			if r.sort != n.sort {
				panic(fmt.Sprintf("cannot substitute %s (%s) for %s (%s)", r, r.sort, n, n.sort))
			}

			memo[n.id] = r

			continue
		}
		//
		args := make([]*Term, len(n.args))
		changed := false

		for i, arg := range n.args {
			args[i] = memo[arg.id]
			changed = changed || args[i] != arg
		}

		if changed {
			memo[n.id] = p.Rebuild(n, args...)
		} else {
			memo[n.id] = n
		}
	}

	return memo[t.id]
}

// Rebuild constructs a term with the same operator as t over new operands.
func (p *Context) Rebuild(t *Term, args ...*Term) *Term {
	switch t.op {
	case OpVar, OpBound, OpConst:
		return t
	case OpNot:
		return p.Not(args[0])
	case OpAnd:
		return p.And(args...)
	case OpOr:
		return p.Or(args...)
	case OpIte:
		return p.Ite(args[0], args[1], args[2])
	case OpEq:
		return p.Eq(args[0], args[1])
	case OpBvNot:
		return p.BvNot(args[0])
	case OpBvAnd:
		return p.BvAnd(args[0], args[1])
	case OpBvOr:
		return p.BvOr(args[0], args[1])
	case OpBvXor:
		return p.BvXor(args[0], args[1])
	case OpBvAdd:
		return p.BvAdd(args[0], args[1])
	case OpBvSub:
		return p.BvSub(args[0], args[1])
	case OpBvUlt:
		return p.Ult(args[0], args[1])
	case OpBvUle:
		return p.Ule(args[0], args[1])
	case OpExtract:
		return p.Extract(t.params[0], t.params[1], args[0])
	case OpZeroExt:
		return p.ZeroExt(t.params[0], args[0])
	case OpConcat:
		return p.Concat(args[0], args[1])
	case OpSelect:
		return p.Select(args[0], args[1])
	case OpStore:
		return p.Store(args[0], args[1], args[2])
	case OpApply:
		return p.Apply(t.fn, args...)
	case OpForall:
		return p.ForAll(args[:len(args)-1], args[len(args)-1])
	}

	panic(fmt.Sprintf("unknown operator %s", t.op))
}
