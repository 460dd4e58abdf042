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
package flexrelay

import (
	"fmt"

	"github.com/consensys/go-ischeck/pkg/design/flex"
	"github.com/consensys/go-ischeck/pkg/ischeck"
	log "github.com/sirupsen/logrus"
)

// CommandKey is the key under which command files list their commands.
const CommandKey = "command inputs"

// Address mapping fields
const (
	FlexAddrField  = "flex_addr"
	RelayAddrField = "relay_addr"
)

// Flex command fields, besides one per data lane.
const (
	FieldIsRd = "is_rd"
	FieldIsWr = "is_wr"
	FieldAddr = "addr"
	FieldData = "data"
)

// Relay command fields
const (
	FieldDataIn    = "data_in"
	FieldDataInX   = "data_in_x"
	FieldDataInY   = "data_in_y"
	FieldFuncID    = "func_id"
	FieldFuncRun   = "func_run"
	FieldPoolSizeX = "pool_size_x"
	FieldPoolSizeY = "pool_size_y"
	FieldStrideX   = "stride_x"
	FieldStrideY   = "stride_y"
)

var flexFields = []string{FieldIsRd, FieldIsWr, FieldAddr}

var relayFields = []string{FieldDataIn, FieldDataInX, FieldDataInY, FieldFuncID, FieldFuncRun,
	FieldPoolSizeX, FieldPoolSizeY, FieldStrideX, FieldStrideY}

// ParseFlexCmds parses flex command records.  The 128 bit data payload of each
// command is split into one field per data lane, named after the lane input.
// Malformed records are reported and skipped.
func ParseFlexCmds(records []ischeck.Record) []ischeck.Command {
	var cmds []ischeck.Command
	//
	for i, rec := range records {
		cmd, err := parse(rec, flexFields)
		if err == nil {
			err = splitData(rec, cmd)
		}

		if err != nil {
			log.Errorf("Fail parsing command %d: %v", i, &ischeck.ParseError{Index: i, Err: err})
			continue
		}

		cmds = append(cmds, cmd)
	}

	return cmds
}

// ParseRelayCmds parses relay command records, reporting and skipping
// malformed ones.
func ParseRelayCmds(records []ischeck.Record) []ischeck.Command {
	var cmds []ischeck.Command
	//
	for i, rec := range records {
		cmd, err := parse(rec, relayFields)
		if err != nil {
			log.Errorf("Fail parsing command %d: %v", i, &ischeck.ParseError{Index: i, Err: err})
			continue
		}

		cmds = append(cmds, cmd)
	}

	return cmds
}

func parse(rec ischeck.Record, fields []string) (ischeck.Command, error) {
	cmd := make(ischeck.Command, len(fields))
	//
	for _, field := range fields {
		v, err := rec.Hex(field)
		if err != nil {
			return nil, err
		}

		cmd[field] = v
	}

	return cmd, nil
}

func splitData(rec ischeck.Record, cmd ischeck.Command) error {
	payload, ok := rec[FieldData]
	if !ok {
		return fmt.Errorf("missing field %q", FieldData)
	}

	values, err := ischeck.LaneValues(payload, flex.Lanes)
	if err != nil {
		return err
	}

	for i, v := range values {
		cmd[flex.DataIn[i]] = v
	}

	return nil
}
