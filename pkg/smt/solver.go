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

import (
	"context"
	"errors"
)

// Result is the outcome of a satisfiability check.
type Result uint8

const (
	// Unknown indicates the solver gave up (or was not asked to decide).
	Unknown Result = iota
	// Sat indicates the assertions have a model.
	Sat
	// Unsat indicates the assertions are contradictory.
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Feature identifies an optional capability of a solver backend.
type Feature uint8

const (
	// Quantifiers indicates universally quantified assertions are accepted.
	Quantifiers Feature = iota
	// FuncUnification indicates two function symbols can be declared to be
	// the same function.
	FuncUnification
)

// ErrUnsupported is returned when a backend cannot handle a request.
var ErrUnsupported = errors.New("unsupported by solver backend")

// ErrNoModel is returned when evaluation is requested without a preceding
// satisfiable check.
var ErrNoModel = errors.New("no model available")

// Solver is the interface implemented by every solver adapter.  Terms given to
// a solver must come from the context the solver was created with.
type Solver interface {
	// Assert adds a boolean formula to the current problem.
	Assert(t *Term) error
	// Unify declares f and g to be the same function.  Backends lacking
	// FuncUnification return ErrUnsupported.
	Unify(f, g *Func) error
	// Check decides satisfiability of all assertions so far.  This is the
	// only potentially long running operation and honours cancellation of
	// ctx.
	Check(ctx context.Context) (Result, error)
	// Eval evaluates a term in the model found by the last satisfiable
	// check.
	Eval(t *Term) (Value, error)
	// Supports reports whether a given optional feature is available.
	Supports(f Feature) bool
	// Close releases any resources held by the solver.
	Close() error
}
