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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/smt"
	"github.com/consensys/go-ischeck/pkg/smt/backend"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storer is a model which stores its data input at its address input, after
// passing it through an optional transformation.  Its auxiliary child fires
// only when nothing is stored.
func storer(ctx *smt.Context, name, enable, store string, fn func(m *ila.Model, data *smt.Term) *smt.Term) *ila.Model {
	m := ila.NewModel(ctx, name)
	en := m.NewBoolInput(enable)
	addr := m.NewBvInput("addr", 8)
	data := m.NewBvInput("data", 8)
	mem := m.NewMemState("mem", 8, 8)
	//
	st := m.NewInstr(store)
	st.SetDecode(en)
	st.SetUpdate(mem, ctx.Store(mem, addr, fn(m, data)))
	//
	nop := m.NewInstr("NOP")
	nop.SetDecode(ctx.Not(en))
	//
	aux := m.NewChild("aux")
	aux.SetValid(ctx.Not(en))
	aux.NewInstr("CLEAR").SetUpdate(mem, ctx.Store(mem, addr, ctx.BitVec(0, 8)))

	return m
}

func identity(_ *ila.Model, data *smt.Term) *smt.Term {
	return data
}

// testFilter constrains the enable, address and data inputs of a storer by the
// fields "wr", "addr" and "data".
func testFilter(enable string) Filter {
	return FilterFunc(func(step Step, cmd Command, stores StoreIndex) (*smt.Term, error) {
		var (
			ctx     = step.Model.Context()
			en, _   = step.Model.Input(enable)
			addr, _ = step.Model.Input("addr")
			data, _ = step.Model.Input("data")
		)
		//
		wr, err := cmd.Field("wr")
		if err != nil {
			return nil, err
		} else if wr == 0 {
			return ctx.Not(en), nil
		}

		a, err := cmd.Field("addr")
		if err != nil {
			return nil, err
		}

		d, err := cmd.Field("data")
		if err != nil {
			return nil, err
		}

		stores[a] = step.Index

		return ctx.And(en, ctx.EqConst(addr, a), ctx.EqConst(data, d)), nil
	})
}

// fixture builds a design comparing model "a" against model "b", where "b"
// transforms its data by fn.
func fixture(fn func(m *ila.Model, data *smt.Term) *smt.Term) Design {
	return pair(identity, fn)
}

func pair(fa, fb func(m *ila.Model, data *smt.Term) *smt.Term) Design {
	ctx := smt.NewContext()

	return Design{
		Models:  [2]*ila.Model{storer(ctx, "a", "wr", "STORE", fa), storer(ctx, "b", "run", "WRITE", fb)},
		Filters: [2]Filter{testFilter("wr"), testFilter("run")},
		Correlation: Correlation{
			Memory: [2]string{"mem", "mem"},
			LanesA: []string{"data"},
			DataB:  "data",
		},
	}
}

func write(addr, data uint64) Command {
	return Command{"wr": 1, "addr": addr, "data": data}
}

func idle() Command {
	return Command{"wr": 0}
}

// setup constructs a checker with given sequences and commands, mapping
// addresses of "a" onto themselves.
func setup(t *testing.T, design Design, cfg Config, seqA, seqB []string, cmdsA, cmdsB []Command) *Checker {
	t.Helper()

	p, err := New(design, cfg)
	require.NoError(t, err)
	require.NoError(t, p.SetInstrNames(SideA, seqA))
	require.NoError(t, p.SetInstrNames(SideB, seqB))
	require.Equal(t, SequencesSet, p.State())
	require.NoError(t, p.SetCommands(SideA, cmdsA))
	require.NoError(t, p.SetCommands(SideB, cmdsB))
	require.NoError(t, p.SetAddressMap(AddressMap{0x10: 0x10, 0x11: 0x11}))

	return p
}

// neverCalled fails a test if a solver is requested.
func neverCalled(t *testing.T) SolverFactory {
	return func(context.Context, *smt.Context) (smt.Solver, error) {
		t.Fatal("solver constructed")
		return nil, nil
	}
}

func Test_Checker_Equivalent_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	//
	ok, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Equivalent, p.State())
	assert.Nil(t, p.Counterexample())
}

func Test_Checker_Twice_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	//
	ok, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	// A second query is refused and leaves the verdict intact
	var cerr *ConfigurationError

	_, err = p.Check(context.Background())
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "already used")
	assert.Equal(t, Equivalent, p.State())
}

func Test_Checker_Equivalent_02(t *testing.T) {
	// Two stores, after a child instruction and with an idle step in between
	p := setup(t, fixture(identity), Config{},
		[]string{"CLEAR", "STORE", "NOP", "STORE"}, []string{"WRITE", "WRITE"},
		[]Command{write(0x10, 0x01), idle(), write(0x11, 0x02)},
		[]Command{write(0x11, 0x02), write(0x10, 0x01)})
	//
	ok, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func Test_Checker_Counterexample_01(t *testing.T) {
	inc := func(m *ila.Model, data *smt.Term) *smt.Term {
		return m.Context().BvAddConst(data, 1)
	}
	dir := t.TempDir()
	p := setup(t, fixture(inc), Config{DumpDir: dir},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	//
	ok, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, CounterexampleFound, p.State())
	//
	cex := p.Counterexample()
	require.NotNil(t, cex)

	va, ok := cex.Traces[0].At(1, 0x10)
	require.True(t, ok)
	assert.Equal(t, uint64(0xab), va)

	vb, ok := cex.Traces[1].At(1, 0x10)
	require.True(t, ok)
	assert.Equal(t, uint64(0xac), vb)
	assert.Equal(t, uint64(0xac), cex.Traces[1].Final.Select(0x10))
	// Dumps
	bytes, err := os.ReadFile(filepath.Join(dir, "b_out.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(bytes), "1: 0x10=0xac\n")
	assert.Contains(t, string(bytes), "complete mem:\n")
	assert.FileExists(t, filepath.Join(dir, "a_out.txt"))
}

func Test_Checker_Unset_01(t *testing.T) {
	p, err := New(fixture(identity), Config{NewSolver: neverCalled(t)})
	require.NoError(t, err)
	require.NoError(t, p.SetInstrNames(SideA, []string{"STORE"}))
	assert.Equal(t, Unconfigured, p.State())
	//
	var cerr *ConfigurationError

	ok, err := p.Check(context.Background())
	assert.False(t, ok)
	assert.ErrorAs(t, err, &cerr)
}

func Test_Checker_Unknown_01(t *testing.T) {
	var cerr *ConfigurationError
	//
	p, err := New(fixture(identity), Config{NewSolver: neverCalled(t)})
	require.NoError(t, err)
	err = p.SetInstrNames(SideA, []string{"STORE", "BOGUS", "NOP"})
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "BOGUS")
	assert.Equal(t, Unconfigured, p.State())
}

func Test_Checker_Append_01(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	//
	p, err := New(fixture(identity), Config{})
	require.NoError(t, err)
	require.NoError(t, p.SetInstrNames(SideA, []string{"STORE"}))
	require.Empty(t, hook.AllEntries())
	require.NoError(t, p.SetInstrNames(SideA, []string{"NOP"}))
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	// Commands cannot be replaced
	var cerr *ConfigurationError

	require.NoError(t, p.SetCommands(SideB, []Command{idle()}))
	assert.ErrorAs(t, p.SetCommands(SideB, []Command{idle()}), &cerr)
}

func Test_Checker_NoStores_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{NewSolver: neverCalled(t)},
		[]string{"NOP"}, []string{"NOP"},
		[]Command{idle()}, []Command{idle()})
	//
	var iv *InvariantViolation

	ok, err := p.Check(context.Background())
	assert.False(t, ok)
	assert.ErrorAs(t, err, &iv)
	assert.Equal(t, Unrolled, p.State())
}

func Test_Checker_SizeMismatch_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{NewSolver: neverCalled(t)},
		[]string{"STORE"}, []string{"WRITE", "WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab), write(0x11, 0xcd)})
	//
	var iv *InvariantViolation

	_, err := p.Check(context.Background())
	assert.ErrorAs(t, err, &iv)
}

func Test_Checker_Unmapped_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{NewSolver: neverCalled(t)},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x12, 0xab)}, []Command{write(0x12, 0xab)})
	//
	var iv *InvariantViolation

	_, err := p.Check(context.Background())
	require.ErrorAs(t, err, &iv)
	assert.Contains(t, err.Error(), "0x12")
}

func Test_Checker_TooManyCommands_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{NewSolver: neverCalled(t)},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab), idle()}, []Command{write(0x10, 0xab)})
	//
	var iv *InvariantViolation

	_, err := p.Check(context.Background())
	assert.ErrorAs(t, err, &iv)
}

func Test_Checker_TooFewCommands_01(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	//
	p := setup(t, fixture(identity), Config{},
		[]string{"STORE", "NOP"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	//
	ok, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	//
	var warned bool

	for _, e := range hook.AllEntries() {
		warned = warned || (e.Level == log.WarnLevel && strings.Contains(e.Message, "only 1 commands"))
	}

	assert.True(t, warned)
}

func Test_Checker_Filter_Err_01(t *testing.T) {
	p := setup(t, fixture(identity), Config{NewSolver: neverCalled(t)},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{{"wr": 1, "addr": 0x10}}, []Command{write(0x10, 0xab)})
	//
	var cerr *ConfigurationError

	_, err := p.Check(context.Background())
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "data")
}

func Test_Checker_Design_Err_01(t *testing.T) {
	var cerr *ConfigurationError
	//
	design := fixture(identity)
	design.Models[1] = storer(smt.NewContext(), "b", "run", "WRITE", identity)
	_, err := New(design, Config{})
	assert.ErrorAs(t, err, &cerr)
	//
	design = fixture(identity)
	design.Filters[0] = nil
	_, err = New(design, Config{})
	assert.ErrorAs(t, err, &cerr)
	//
	design = fixture(identity)
	design.Correlation.LanesA = nil
	_, err = New(design, Config{})
	assert.ErrorAs(t, err, &cerr)
	//
	design = fixture(identity)
	design.Correlation.Memory[1] = "addr"
	p := setup(t, design, Config{NewSolver: neverCalled(t)},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	_, err = p.Check(context.Background())
	assert.ErrorAs(t, err, &cerr)
}

func Test_Checker_AddressMap_01(t *testing.T) {
	var cerr *ConfigurationError
	//
	p, err := New(fixture(identity), Config{})
	require.NoError(t, err)
	require.NoError(t, p.SetAddressMap(AddressMap{0x10: 0x20}))
	require.NoError(t, p.SetAddressMap(AddressMap{0x10: 0x20, 0x11: 0x21}))
	assert.ErrorAs(t, p.SetAddressMap(AddressMap{0x10: 0x30}), &cerr)
}

// ============================================================================
// Shared functions
// ============================================================================

// funcDesign compares two models applying their own function "max", the
// second with its arguments in a given order.
func funcDesign(swap bool) Design {
	apply := func(swap bool) func(m *ila.Model, data *smt.Term) *smt.Term {
		return func(m *ila.Model, data *smt.Term) *smt.Term {
			var (
				ctx = m.Context()
				bv8 = smt.BitVecSort(8)
				f   = m.NewFunc("max", bv8, bv8, bv8)
				k   = ctx.BitVec(0x80, 8)
			)

			if swap {
				return ctx.Apply(f, k, data)
			}

			return ctx.Apply(f, data, k)
		}
	}
	//
	design := pair(apply(false), apply(swap))
	design.Funcs = []FuncPair{{"max", "max"}}

	return design
}

func checkFuncs(t *testing.T, design Design, policy AxiomPolicy) bool {
	t.Helper()

	p := setup(t, design, Config{Policy: policy},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	//
	ok, err := p.Check(context.Background())
	require.NoError(t, err)

	return ok
}

func Test_Checker_Funcs_01(t *testing.T) {
	assert.True(t, checkFuncs(t, funcDesign(false), SamePolicy))
	assert.True(t, checkFuncs(t, funcDesign(false), AutoPolicy))
	assert.True(t, checkFuncs(t, funcDesign(false), AxiomsPolicy))
	assert.False(t, checkFuncs(t, funcDesign(false), NoPolicy))
}

func Test_Checker_Funcs_02(t *testing.T) {
	// Only commutativity relates swapped arguments
	assert.False(t, checkFuncs(t, funcDesign(true), SamePolicy))
	assert.True(t, checkFuncs(t, funcDesign(true), AxiomsPolicy))
}

func Test_Checker_Funcs_Err_01(t *testing.T) {
	var cerr *ConfigurationError
	//
	design := funcDesign(false)
	design.Funcs = []FuncPair{{"max", "min"}}
	p := setup(t, design, Config{},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	_, err := p.Check(context.Background())
	assert.ErrorAs(t, err, &cerr)
	// Script backend cannot identify functions
	p = setup(t, funcDesign(false), Config{Backend: backend.SmtLib, Script: &bytes.Buffer{}, Policy: SamePolicy},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	_, err = p.Check(context.Background())
	assert.ErrorAs(t, err, &cerr)
	assert.True(t, errors.Is(err, smt.ErrUnsupported))
}

// ============================================================================
// Scripts
// ============================================================================

func Test_Checker_Script_01(t *testing.T) {
	var buf bytes.Buffer
	//
	p := setup(t, funcDesign(true), Config{Backend: backend.SmtLib, Script: &buf},
		[]string{"STORE"}, []string{"WRITE"},
		[]Command{write(0x10, 0xab)}, []Command{write(0x10, 0xab)})
	//
	ok, err := p.Check(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInconclusive)
	assert.Equal(t, Solved, p.State())
	// Axioms asserted in place of unification
	script := buf.String()
	assert.Contains(t, script, "forall")
	assert.Contains(t, script, "(check-sat)")
	assert.Contains(t, script, "|a.max|")
	assert.Contains(t, script, "|b.max|")
}

func Test_Checker_State_01(t *testing.T) {
	names := map[State]string{Unconfigured: "Unconfigured", MiterBuilt: "MiterBuilt", CounterexampleFound: "CounterexampleFound"}
	for s, n := range names {
		assert.Equal(t, n, s.String())
	}

	assert.Equal(t, "state(42)", State(42).String())
}
