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
package smtlib

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
)

// Solver streams SMT-LIB2 commands to an external solver, such as "z3 -in".
// Every closed compound term is bound once with define-fun, so that sharing in
// the term DAG survives the translation.  Without a reader the solver runs in
// script mode: commands are written but never answered.
type Solver struct {
	ctx *smt.Context
	w   *bufio.Writer
	r   *bufio.Reader
	// Running process, if any
	cmd *exec.Cmd
	// Names of declared or defined terms
	names map[uint]string
	funcs map[uint]bool
	ndefs uint
	// Set when the last check was satisfiable
	model bool
	// Set when the connection is no longer usable
	broken error
}

// New constructs a solver which writes commands to w and reads responses from
// r.  If r is nil, the solver operates in script mode.
func New(ctx *smt.Context, w io.Writer, r io.Reader) *Solver {
	p := &Solver{
		ctx:   ctx,
		w:     bufio.NewWriter(w),
		names: make(map[uint]string),
		funcs: make(map[uint]bool),
	}
	//
	if r != nil {
		p.r = bufio.NewReader(r)
	}

	p.emit("(set-option :produce-models true)")

	return p
}

// Start launches an external solver reading commands on its standard input,
// e.g. Start(ctx, tctx, "z3", "-in").
func Start(ctx context.Context, tctx *smt.Context, path string, args ...string) (*Solver, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	//
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting solver %s: %w", path, err)
	}

	log.Debugf("started solver %s (pid %d)", path, cmd.Process.Pid)

	p := New(tctx, stdin, stdout)
	p.cmd = cmd

	return p, nil
}

// Assert implementation for smt.Solver interface.
func (p *Solver) Assert(t *smt.Term) error {
	if !t.Sort().IsBool() {
		return fmt.Errorf("cannot assert non-boolean term %s", t)
	} else if !t.IsClosed() {
		return fmt.Errorf("cannot assert term with free bound variables %s", t)
	}
	//
	p.model = false
	p.define(t)
	p.emit(fmt.Sprintf("(assert %s)", p.render(t)))

	return p.broken
}

// Unify implementation for smt.Solver interface.  Symbols are declared
// independently, hence cannot be identified after the fact.
func (p *Solver) Unify(f, g *smt.Func) error {
	return fmt.Errorf("%w: unifying %s with %s", smt.ErrUnsupported, f.Name(), g.Name())
}

// Supports implementation for smt.Solver interface.
func (p *Solver) Supports(f smt.Feature) bool {
	return f == smt.Quantifiers
}

// Check implementation for smt.Solver interface.
func (p *Solver) Check(ctx context.Context) (smt.Result, error) {
	p.model = false
	p.emit("(check-sat)")
	//
	if p.broken != nil {
		return smt.Unknown, p.broken
	} else if p.r == nil {
		// Script mode
		return smt.Unknown, nil
	}
	//
	reply, err := p.read(ctx)
	if err != nil {
		return smt.Unknown, err
	}

	switch reply {
	case "sat":
		p.model = true
		return smt.Sat, nil
	case "unsat":
		return smt.Unsat, nil
	case "unknown":
		return smt.Unknown, nil
	}

	return smt.Unknown, fmt.Errorf("unexpected solver response %q", reply)
}

// Eval implementation for smt.Solver interface.  Variables which never
// occurred in an assertion are unconstrained, and evaluate to zero.
func (p *Solver) Eval(t *smt.Term) (smt.Value, error) {
	if !p.model {
		return smt.Value{}, smt.ErrNoModel
	}
	// Complete the model for undeclared variables
	subst := make(map[*smt.Term]*smt.Term)

	for _, v := range smt.FreeVars(t) {
		if _, ok := p.names[v.ID()]; ok {
			continue
		}
		//
		switch {
		case v.Sort().IsBool():
			subst[v] = p.ctx.False()
		case v.Sort().IsBitVec():
			subst[v] = p.ctx.BitVec(0, v.Sort().Width)
		default:
			return smt.Value{}, fmt.Errorf("%w: array %s not in model", smt.ErrUnsupported, v)
		}
	}

	t = p.ctx.Substitute(t, subst)
	if t.IsConst() {
		return smt.Evaluate(t, nil)
	}
	//
	p.emit(fmt.Sprintf("(get-value (%s))", p.render(t)))

	if p.broken != nil {
		return smt.Value{}, p.broken
	}

	reply, err := p.read(context.Background())
	if err != nil {
		return smt.Value{}, err
	}

	return parseValue(t.Sort(), reply)
}

// Close implementation for smt.Solver interface.
func (p *Solver) Close() error {
	p.emit("(exit)")
	//
	if p.cmd == nil {
		return p.broken
	}
	// Ignore the exit status of a process we may have killed
	_ = p.cmd.Wait()

	return nil
}

// ============================================================================
// Output
// ============================================================================

// define declares the function symbols and free variables of t, then binds
// each closed compound subterm of t not yet named.
func (p *Solver) define(t *smt.Term) {
	for _, a := range smt.Applications(t) {
		p.declare(a.Func())
	}
	//
	for _, n := range smt.PostOrder(t) {
		if _, ok := p.names[n.ID()]; ok || !n.IsClosed() {
			continue
		}
		//
		if n.Op() == smt.OpConst {
			continue
		} else if n.Op() == smt.OpVar {
			p.names[n.ID()] = smt.QuoteSymbol(n.Name())
			p.emit(fmt.Sprintf("(declare-const %s %s)", p.names[n.ID()], n.Sort()))

			continue
		}
		//
		name := fmt.Sprintf("_t%d", p.ndefs)
		p.ndefs++
		p.emit(fmt.Sprintf("(define-fun %s () %s %s)", name, n.Sort(), p.render(n)))
		p.names[n.ID()] = name
	}
}

func (p *Solver) declare(f *smt.Func) {
	if p.funcs[f.ID()] {
		return
	}

	p.funcs[f.ID()] = true

	domain := make([]string, f.Arity())
	for i, s := range f.Domain() {
		domain[i] = s.String()
	}

	p.emit(fmt.Sprintf("(declare-fun %s (%s) %s)", smt.QuoteSymbol(f.Name()), strings.Join(domain, " "), f.Range()))
}

func (p *Solver) render(t *smt.Term) string {
	var b strings.Builder
	// Only the children of t may be replaced by names
	name, ok := p.names[t.ID()]
	if ok && t.Op() != smt.OpVar {
		return name
	}

	t.WriteTo(&b, p.names)

	return b.String()
}

func (p *Solver) emit(line string) {
	if p.broken != nil {
		return
	}

	if _, err := p.w.WriteString(line + "\n"); err != nil {
		p.broken = err
	} else if err := p.w.Flush(); err != nil {
		p.broken = err
	}
}

// ============================================================================
// Input
// ============================================================================

type reply struct {
	text string
	err  error
}

// read a single response, which is either a symbol or a balanced
// S-expression spanning one or more lines.  Cancellation of the context
// terminates the solver process.
func (p *Solver) read(ctx context.Context) (string, error) {
	ch := make(chan reply, 1)
	//
	go func() {
		text, err := p.readSExp()
		ch <- reply{text, err}
	}()
	//
	select {
	case r := <-ch:
		if r.err != nil {
			p.broken = r.err
			return "", r.err
		}

		if strings.HasPrefix(r.text, "(error") {
			return "", fmt.Errorf("solver error: %s", r.text)
		}

		return r.text, nil
	case <-ctx.Done():
		p.broken = ctx.Err()
		//
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}

		return "", ctx.Err()
	}
}

func (p *Solver) readSExp() (string, error) {
	var (
		b     strings.Builder
		depth int
	)
	//
	for {
		line, err := p.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}

			return "", err
		}
		//
		quoted := false

		for _, c := range line {
			switch {
			case c == '|':
				quoted = !quoted
			case quoted:
			case c == '(':
				depth++
			case c == ')':
				depth--
			}
		}

		b.WriteString(line)

		if text := strings.TrimSpace(b.String()); depth <= 0 && text != "" {
			return text, nil
		}
	}
}
