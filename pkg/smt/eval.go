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

// Interpretation supplies values for the uninterpreted parts of a term: free
// constants and function applications.  Solver adapters implement this over
// their models so that arbitrary terms can be evaluated after a satisfiable
// check.
type Interpretation interface {
	// Var returns the value assigned to a free constant.
	Var(v *Term) Value
	// Apply returns the value of f at the given argument values.
	Apply(f *Func, args []Value) Value
}

// Evaluate computes the value of a closed term under the given interpretation.
func Evaluate(t *Term, interp Interpretation) (Value, error) {
	memo := make(map[uint]Value)

	for _, n := range PostOrder(t) {
		v, err := evalNode(n, memo, interp)
		if err != nil {
			return Value{}, err
		}

		memo[n.id] = v
	}

	return memo[t.id], nil
}

func evalNode(n *Term, memo map[uint]Value, interp Interpretation) (Value, error) {
	arg := func(i int) Value { return memo[n.args[i].id] }
	bv := func(v uint64) Value { return BitVecValue(v, n.sort.Width) }
	//
	switch n.op {
	case OpVar:
		return interp.Var(n), nil
	case OpBound, OpForall:
		return Value{}, fmt.Errorf("cannot evaluate quantified term %s", n)
	case OpConst:
		return Value{sort: n.sort, bits: n.value}, nil
	case OpNot:
		return BoolValue(!arg(0).Bool()), nil
	case OpAnd:
		for i := range n.args {
			if !arg(i).Bool() {
				return BoolValue(false), nil
			}
		}

		return BoolValue(true), nil
	case OpOr:
		for i := range n.args {
			if arg(i).Bool() {
				return BoolValue(true), nil
			}
		}

		return BoolValue(false), nil
	case OpIte:
		if arg(0).Bool() {
			return arg(1), nil
		}

		return arg(2), nil
	case OpEq:
		return BoolValue(arg(0).Equal(arg(1))), nil
	case OpBvNot:
		return bv(^arg(0).bits), nil
	case OpBvAnd:
		return bv(arg(0).bits & arg(1).bits), nil
	case OpBvOr:
		return bv(arg(0).bits | arg(1).bits), nil
	case OpBvXor:
		return bv(arg(0).bits ^ arg(1).bits), nil
	case OpBvAdd:
		return bv(arg(0).bits + arg(1).bits), nil
	case OpBvSub:
		return bv(arg(0).bits - arg(1).bits), nil
	case OpBvUlt:
		return BoolValue(arg(0).bits < arg(1).bits), nil
	case OpBvUle:
		return BoolValue(arg(0).bits <= arg(1).bits), nil
	case OpExtract:
		return bv(arg(0).bits >> n.params[1]), nil
	case OpZeroExt:
		return bv(arg(0).bits), nil
	case OpConcat:
		return bv(arg(0).bits<<n.args[1].sort.Width | arg(1).bits), nil
	case OpSelect:
		return bv(arg(0).Select(arg(1).bits)), nil
	case OpStore:
		return arg(0).Store(arg(1).bits, arg(2).bits), nil
	case OpApply:
		args := make([]Value, len(n.args))
		for i := range n.args {
			args[i] = arg(i)
		}

		return interp.Apply(n.fn, args), nil
	}

	return Value{}, fmt.Errorf("unknown operator %s", n.op)
}
