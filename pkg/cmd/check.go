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
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/consensys/go-ischeck/pkg/design/flexrelay"
	"github.com/consensys/go-ischeck/pkg/ischeck"
	"github.com/consensys/go-ischeck/pkg/smt/backend"
	"github.com/consensys/go-ischeck/pkg/util"
	"github.com/consensys/go-ischeck/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [flags]",
	Short: "Check a flex instruction sequence against a relay instruction sequence.",
	Long: `Check a flex instruction sequence against a relay instruction sequence.
	Instruction sequences, commands and address mappings can be given either
	as JSON or YAML files.  Exits with 0 when both are equivalent, 1 when a
	counterexample is found and 2 otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(exitError)
		}

		opts, err := readCheckOptions(cmd)
		if err != nil {
			fmt.Println(err)
			os.Exit(exitError)
		}
		//
		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if opts.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		}
		//
		stats := util.NewPerfStats()
		ok, err := runCheck(ctx, opts)

		stats.Log("Checking")
		cancel()
		os.Exit(report(ok, err, opts))
	},
}

// checkOptions encapsulates everything needed to run a single check.
type checkOptions struct {
	// Instruction sequence files (flex, relay)
	seqs [2]string
	// Command files (flex, relay)
	cmds    [2]string
	addrMap string
	// File where the query is written instead of being solved
	script  string
	timeout time.Duration
	config  ischeck.Config
}

func readCheckOptions(cmd *cobra.Command) (checkOptions, error) {
	var (
		opts checkOptions
		err  error
	)
	//
	opts.seqs = [2]string{getString(cmd, "seq-a"), getString(cmd, "seq-b")}
	opts.cmds = [2]string{getString(cmd, "cmd-a"), getString(cmd, "cmd-b")}
	opts.addrMap = getString(cmd, "addr-map")
	opts.script = getString(cmd, "smt2-out")
	opts.timeout = getDuration(cmd, "timeout")
	opts.config.DumpDir = getString(cmd, "dump-dir")
	opts.config.Strict = getFlag(cmd, "strict")
	opts.config.Solver = getCommandLine(cmd, "solver")
	//
	if opts.config.Backend, err = backend.ParseKind(getString(cmd, "backend")); err != nil {
		return opts, err
	} else if opts.config.Policy, err = ischeck.ParseAxiomPolicy(getString(cmd, "policy")); err != nil {
		return opts, err
	}

	return opts, nil
}

// runCheck checks the flex and relay sequences described by a given set of
// options.
func runCheck(ctx context.Context, opts checkOptions) (bool, error) {
	if opts.script != "" {
		f, err := os.Create(opts.script)
		if err != nil {
			return false, err
		}

		defer f.Close()

		opts.config.Backend = backend.SmtLib
		opts.config.Script = f
	}
	//
	checker, err := flexrelay.New(opts.config)
	if err != nil {
		return false, err
	}

	for i, side := range []ischeck.Side{ischeck.SideA, ischeck.SideB} {
		if err := checker.SetInstrSeq(side, opts.seqs[i]); err != nil {
			return false, err
		}
	}

	if err := checker.SetFlexCmd(opts.cmds[0]); err != nil {
		return false, err
	} else if err := checker.SetRelayCmd(opts.cmds[1]); err != nil {
		return false, err
	} else if err := checker.SetAddrMapping(opts.addrMap); err != nil {
		return false, err
	}

	return checker.Check(ctx)
}

// report prints the outcome of a check, returning the corresponding exit code.
func report(ok bool, err error, opts checkOptions) int {
	switch {
	case err == nil && ok:
		fmt.Println(termio.Colourise(os.Stdout, termio.TERM_GREEN, "EQUIVALENT"))
		return exitEquivalent
	case err == nil:
		fmt.Println(termio.Colourise(os.Stdout, termio.TERM_RED, "COUNTEREXAMPLE"))

		if opts.config.DumpDir != "" {
			fmt.Printf("memory traces written to %s\n", opts.config.DumpDir)
		}

		return exitCounterexample
	case opts.script != "" && errors.Is(err, ischeck.ErrInconclusive):
		fmt.Printf("query written to %s\n", opts.script)
		return exitEquivalent
	}
	//
	log.Debugf("check failed: %v", err)
	fmt.Println(termio.Colourise(os.Stdout, termio.TERM_YELLOW, "ERROR"), err)

	return exitError
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("seq-a", "", "flex instruction sequence")
	checkCmd.Flags().String("seq-b", "", "relay instruction sequence")
	checkCmd.Flags().String("cmd-a", "", "flex commands")
	checkCmd.Flags().String("cmd-b", "", "relay commands")
	checkCmd.Flags().String("addr-map", "", "mapping from flex to relay addresses")
	checkCmd.Flags().String("backend", "bitblast", "solver backend (bitblast or smtlib)")
	checkCmd.Flags().String("solver", "z3 -in", "external solver command line (smtlib backend)")
	checkCmd.Flags().String("policy", "auto", "relation of shared functions (auto, same, axioms or none)")
	checkCmd.Flags().String("dump-dir", "", "directory where counterexample traces are written")
	checkCmd.Flags().String("smt2-out", "", "write the query to a file instead of solving it")
	checkCmd.Flags().Duration("timeout", 0, "give up solving after a given duration")
	checkCmd.Flags().Bool("strict", false, "reject commands invoking unmodelled functions")

	for _, flag := range []string{"seq-a", "seq-b", "cmd-a", "cmd-b", "addr-map"} {
		if err := checkCmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}
}
