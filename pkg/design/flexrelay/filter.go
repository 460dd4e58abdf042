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
	"github.com/consensys/go-ischeck/pkg/design/relay"
	"github.com/consensys/go-ischeck/pkg/ischeck"
	"github.com/consensys/go-ischeck/pkg/smt"
	log "github.com/sirupsen/logrus"
)

// binding relates an input of a model to the command field it is driven by.
type binding struct {
	input string
	field string
}

// bind constrains each bound input to the value of its command field.  Values
// wider than their input are rejected rather than truncated.
func bind(step ischeck.Step, cmd ischeck.Command, bindings ...binding) (*smt.Term, error) {
	var (
		ctx   = step.Model.Context()
		terms = make([]*smt.Term, len(bindings))
	)
	//
	for i, b := range bindings {
		in, ok := step.Model.Input(b.input)
		if !ok {
			return nil, &ischeck.ConfigurationError{Msg: fmt.Sprintf("unknown input %s in %s", b.input, step.Model.Name())}
		}

		v, err := cmd.Field(b.field)
		if err != nil {
			return nil, err
		} else if w := in.Sort().Width; v > smt.Mask(w) {
			return nil, &ischeck.ConfigurationError{
				Msg: fmt.Sprintf("value %#x of %s at step %d is out of range for %d-bit %s", v, b.field, step.Index, w, b.input)}
		}

		terms[i] = ctx.EqConst(in, v)
	}

	return ctx.And(terms...), nil
}

// dataSetup holds the flex instructions whose data lanes are left unconstrained,
// and which register a store.
var dataSetup = map[string]bool{flex.StoreLarge: true}

// constrainFlex constrains the AXI strobes and address of a flex step.  Data
// setup instructions register a store; all others have their data lanes
// constrained as well.
func constrainFlex(step ischeck.Step, cmd ischeck.Command, stores ischeck.StoreIndex) (*smt.Term, error) {
	ctrl, err := bind(step, cmd,
		binding{flex.TopIfWr, FieldIsWr},
		binding{flex.TopIfRd, FieldIsRd},
		binding{flex.TopAddrIn, FieldAddr})
	if err != nil {
		return nil, err
	}

	if dataSetup[step.Instr.Name()] {
		addr, _ := cmd.Field(FieldAddr)
		stores[addr] = step.Index

		return ctrl, nil
	}

	lanes := make([]binding, flex.Lanes)
	for i, name := range flex.DataIn {
		lanes[i] = binding{name, name}
	}

	data, err := bind(step, cmd, lanes...)
	if err != nil {
		return nil, err
	}

	return step.Model.Context().And(ctrl, data), nil
}

// constrainRelay constrains the function strobe of a relay step, and the fields
// relevant to the function invoked.  Tensor stores register a store.
func constrainRelay(step ischeck.Step, cmd ischeck.Command, stores ischeck.StoreIndex) (*smt.Term, error) {
	ctrl, err := bind(step, cmd,
		binding{relay.FuncRunIn, FieldFuncRun},
		binding{relay.FuncIDIn, FieldFuncID})
	if err != nil {
		return nil, err
	}

	id, _ := cmd.Field(FieldFuncID)

	var args *smt.Term

	switch relay.FuncID(id) {
	case relay.TensorStoreID:
		if args, err = bind(step, cmd, binding{relay.DataInY, FieldDataInY}); err != nil {
			return nil, err
		}

		addr, _ := cmd.Field(FieldDataInY)
		stores[addr] = step.Index
	case relay.MaxpoolingID:
		// data streamed in is left unconstrained
		args, err = bind(step, cmd,
			binding{relay.DataInY, FieldDataInY},
			binding{relay.DataInX, FieldDataInX},
			binding{relay.PoolSizeY, FieldPoolSizeY},
			binding{relay.PoolSizeX, FieldPoolSizeX},
			binding{relay.StridesY, FieldStrideY},
			binding{relay.StridesX, FieldStrideX})
		if err != nil {
			return nil, err
		}
	default:
		if step.Strict {
			return nil, &ischeck.ConfigurationError{
				Msg: fmt.Sprintf("relay function %s at step %d is not modelled", relay.FuncID(id), step.Index)}
		}

		log.Warnf("relay function %s at step %d is not modelled, leaving its arguments unconstrained", relay.FuncID(id), step.Index)

		return ctrl, nil
	}

	return step.Model.Context().And(ctrl, args), nil
}
