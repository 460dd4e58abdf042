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
package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/consensys/go-ischeck/pkg/design/flex"
	"github.com/consensys/go-ischeck/pkg/design/flexrelay"
	"github.com/consensys/go-ischeck/pkg/design/relay"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Uint("pools", 8, "Number of pooled pairs (maxpool scenario)")
	rootCmd.Flags().Uint64("seed", 0, "Seed for the stored data")
	rootCmd.Flags().Uint64("flex-base", 0x00500000, "First flex address")
	rootCmd.Flags().Uint64("relay-base", 0, "First relay address")
	rootCmd.Flags().String("out", "testdata", "Output directory")
	rootCmd.Flags().Bool("yaml", false, "Write yaml rather than json")
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "testgen [flags] scenario",
	Short: "Scenario generation utility for ischeck.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}

		var cfg TestGenConfig
		// Lookup generator
		cfg.model = findModel(args[0])
		cfg.pools = getUint(cmd, "pools")
		cfg.seed = getUint64(cmd, "seed")
		cfg.flexBase = getUint64(cmd, "flex-base")
		cfg.relayBase = getUint64(cmd, "relay-base")
		cfg.yaml = getBool(cmd, "yaml")
		//
		if cfg.pools > flex.Lanes/2 {
			fmt.Printf("at most %d pairs can be pooled\n", flex.Lanes/2)
			os.Exit(1)
		}
		// Generate & write out
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			panic(err)
		}

		writeScenario(out, cfg, cfg.model.Generate(cfg))
		os.Exit(0)
	},
}

// TestGenConfig encapsulates configuration related to scenario generation.
type TestGenConfig struct {
	model     Model
	pools     uint
	seed      uint64
	flexBase  uint64
	relayBase uint64
	yaml      bool
}

// Record is a single command or mapping entry, with every value written in
// hexadecimal.
type Record = map[string]string

// Scenario holds the inputs of a single check.
type Scenario struct {
	Seqs    [2][]string
	Cmds    [2][]Record
	Mapping []Record
}

// Model represents a hard-coded scenario generator.
type Model struct {
	// Name of the scenario
	Name string
	// Generator for the scenario
	Generate func(TestGenConfig) Scenario
}

var models = []Model{
	{"store", storeModel},
	{"maxpool", maxpoolModel},
}

func findModel(name string) Model {
	for _, m := range models {
		if m.Name == name {
			return m
		}
	}
	//
	panic(fmt.Sprintf("unknown scenario \"%s\"", name))
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

func relayCmd(id relay.FuncID, fields Record) Record {
	cmd := Record{flexrelay.FieldFuncRun: "0x1", flexrelay.FieldFuncID: hex(uint64(id))}
	//
	for _, f := range []string{flexrelay.FieldDataIn, flexrelay.FieldDataInX, flexrelay.FieldDataInY,
		flexrelay.FieldPoolSizeX, flexrelay.FieldPoolSizeY, flexrelay.FieldStrideX, flexrelay.FieldStrideY} {
		if v, ok := fields[f]; ok {
			cmd[f] = v
		} else {
			cmd[f] = "0x0"
		}
	}

	return cmd
}

// A single large store on the flex side, against one tensor store per byte on
// the relay side.
func storeModel(cfg TestGenConfig) Scenario {
	var (
		s    Scenario
		rng  = rand.New(rand.NewPCG(cfg.seed, cfg.seed))
		data = make([]byte, flex.Lanes)
	)
	//
	for i := range data {
		data[i] = byte(rng.UintN(256))
	}
	// Most significant lane first
	payload := "0x"
	for i := range data {
		payload += fmt.Sprintf("%02x", data[flex.Lanes-1-i])
	}

	s.Seqs[0] = []string{flex.StoreLarge}
	s.Cmds[0] = []Record{{
		flexrelay.FieldIsRd: "0x0",
		flexrelay.FieldIsWr: "0x1",
		flexrelay.FieldAddr: hex(cfg.flexBase),
		flexrelay.FieldData: payload,
	}}
	//
	for i, b := range data {
		s.Seqs[1] = append(s.Seqs[1], relay.TensorStore)
		s.Cmds[1] = append(s.Cmds[1], relayCmd(relay.TensorStoreID, Record{
			flexrelay.FieldDataIn:  hex(uint64(b)),
			flexrelay.FieldDataInY: hex(cfg.relayBase + uint64(i)),
		}))
		s.Mapping = append(s.Mapping, Record{
			flexrelay.FlexAddrField:  hex(cfg.flexBase + uint64(i)),
			flexrelay.RelayAddrField: hex(cfg.relayBase + uint64(i)),
		})
	}

	return s
}

// The store scenario, followed by pooling adjacent pairs in place.
func maxpoolModel(cfg TestGenConfig) Scenario {
	s := storeModel(cfg)
	// source and destination in lanes 0..7, count in lane 8
	config := fmt.Sprintf("0x%02x%08x%08x", cfg.pools, cfg.flexBase, cfg.flexBase)
	//
	s.Seqs[0] = append(s.Seqs[0], flex.ConfigMaxpool)
	s.Cmds[0] = append(s.Cmds[0], Record{
		flexrelay.FieldIsRd: "0x0",
		flexrelay.FieldIsWr: "0x1",
		flexrelay.FieldAddr: hex(flex.ConfigMaxpoolAddr),
		flexrelay.FieldData: config,
	})
	//
	for j := range uint64(cfg.pools) {
		s.Seqs[0] = append(s.Seqs[0], flex.MaxpoolStep)
		s.Seqs[1] = append(s.Seqs[1], relay.Maxpooling2D)
		s.Cmds[1] = append(s.Cmds[1], relayCmd(relay.MaxpoolingID, Record{
			flexrelay.FieldDataInY:   hex(cfg.relayBase + 2*j),
			flexrelay.FieldDataInX:   hex(cfg.relayBase + j),
			flexrelay.FieldPoolSizeY: "0x1",
			flexrelay.FieldPoolSizeX: "0x2",
			flexrelay.FieldStrideY:   "0x1",
			flexrelay.FieldStrideX:   "0x2",
		}))
	}

	return s
}

func writeScenario(dir string, cfg TestGenConfig, s Scenario) {
	var (
		name = cfg.model.Name
		ext  = ".json"
	)
	//
	if cfg.yaml {
		ext = ".yaml"
	}

	files := map[string]any{
		"instr_seq_flex_" + name + ext:  s.Seqs[0],
		"instr_seq_relay_" + name + ext: s.Seqs[1],
		"prog_frag_flex_" + name + ext:  map[string]any{flexrelay.CommandKey: s.Cmds[0]},
		"prog_frag_relay_" + name + ext: map[string]any{flexrelay.CommandKey: s.Cmds[1]},
		"addr_mapping_" + name + ext:    map[string]any{"address mapping": s.Mapping},
	}
	//
	for filename, contents := range files {
		var (
			bytes []byte
			err   error
		)

		if cfg.yaml {
			bytes, err = yaml.Marshal(contents)
		} else {
			bytes, err = json.MarshalIndent(contents, "", "  ")
		}

		if err != nil {
			panic(err)
		}

		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, append(bytes, '\n'), 0644); err != nil {
			panic(err)
		}
		// Log what happened
		log.Infof("Wrote %s", path)
	}
}

func getUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		panic(err)
	}

	return r
}

func getUint64(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		panic(err)
	}

	return r
}

func getBool(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		panic(err)
	}

	return r
}
