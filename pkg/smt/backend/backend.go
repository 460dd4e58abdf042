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
package backend

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/consensys/go-ischeck/pkg/smt/bitblast"
	"github.com/consensys/go-ischeck/pkg/smt/smtlib"
)

// Kind identifies one of the available solver backends.
type Kind uint8

const (
	// Bitblast decides queries in-process with a SAT solver.
	Bitblast Kind = iota
	// SmtLib pipes queries to an external SMT-LIB2 solver.
	SmtLib
)

func (k Kind) String() string {
	switch k {
	case Bitblast:
		return "bitblast"
	case SmtLib:
		return "smtlib"
	}

	return fmt.Sprintf("backend(%d)", uint8(k))
}

// ParseKind returns the backend with the given name.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "bitblast", "sat":
		return Bitblast, nil
	case "smtlib", "z3":
		return SmtLib, nil
	}

	return 0, fmt.Errorf("unknown backend %q (expected bitblast or smtlib)", name)
}

// Options configures backend construction.
type Options struct {
	Kind Kind
	// Solver executable and arguments (SmtLib only)
	Solver []string
	// When non-nil, queries are written here instead of being solved (SmtLib
	// only).
	Script io.Writer
}

// DefaultSolver is the external solver invoked when none is given.
var DefaultSolver = []string{"z3", "-in"}

// New constructs a solver of the configured kind over terms of the given
// context.
func New(ctx context.Context, tctx *smt.Context, opts Options) (smt.Solver, error) {
	switch opts.Kind {
	case Bitblast:
		return bitblast.New(tctx), nil
	case SmtLib:
		if opts.Script != nil {
			return smtlib.New(tctx, opts.Script, nil), nil
		}

		cmd := opts.Solver
		if len(cmd) == 0 {
			cmd = DefaultSolver
		}

		return smtlib.Start(ctx, tctx, cmd[0], cmd[1:]...)
	}

	return nil, fmt.Errorf("unknown backend %s", opts.Kind)
}
