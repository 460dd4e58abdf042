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
// Package flexrelay checks the FlexASR global buffer against the Relay operator
// interface, by relating each 16 byte store of the former to sixteen tensor
// stores of the latter.
package flexrelay

import (
	"github.com/consensys/go-ischeck/pkg/design/flex"
	"github.com/consensys/go-ischeck/pkg/design/relay"
	"github.com/consensys/go-ischeck/pkg/ila"
	"github.com/consensys/go-ischeck/pkg/ischeck"
	"github.com/consensys/go-ischeck/pkg/smt"
)

// Checker is an equivalence checker for the flex and relay models.
type Checker struct {
	*ischeck.Checker
}

// New constructs a checker over fresh flex and relay models.
func New(config ischeck.Config) (*Checker, error) {
	checker, err := ischeck.New(NewDesign(smt.NewContext()), config)
	if err != nil {
		return nil, err
	}

	return &Checker{checker}, nil
}

// NewDesign binds the flex model (side A) to the relay model (side B), both
// constructed within a given context.
func NewDesign(ctx *smt.Context) ischeck.Design {
	return ischeck.Design{
		Models:  [2]*ila.Model{flex.New(ctx), relay.New(ctx)},
		Filters: [2]ischeck.Filter{ischeck.FilterFunc(constrainFlex), ischeck.FilterFunc(constrainRelay)},
		Correlation: ischeck.Correlation{
			Memory: [2]string{flex.LargeBuffer, relay.TensorMem},
			LanesA: flex.DataIn[:],
			DataB:  relay.DataIn,
		},
		Funcs: []ischeck.FuncPair{{A: flex.MaxFunc, B: relay.MaxFunc}},
	}
}

// SetFlexCmd reads the flex commands from a given file.
func (p *Checker) SetFlexCmd(path string) error {
	records, err := ischeck.ReadRecords(path, CommandKey)
	if err != nil {
		return err
	}

	return p.SetCommands(ischeck.SideA, ParseFlexCmds(records))
}

// SetRelayCmd reads the relay commands from a given file.
func (p *Checker) SetRelayCmd(path string) error {
	records, err := ischeck.ReadRecords(path, CommandKey)
	if err != nil {
		return err
	}

	return p.SetCommands(ischeck.SideB, ParseRelayCmds(records))
}

// SetAddrMapping reads the mapping from flex addresses to relay addresses from
// a given file.
func (p *Checker) SetAddrMapping(path string) error {
	mapping, err := ischeck.ReadAddressMap(path, FlexAddrField, RelayAddrField)
	if err != nil {
		return err
	}

	return p.SetAddressMap(mapping)
}
