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
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates a source file whose extension is not
// recognised.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// ErrInconclusive indicates the solver could not decide the query, e.g. because
// it was only written out as a script.
var ErrInconclusive = errors.New("solver returned unknown")

// ConfigurationError reports a checker which is not set up to run: a missing
// instruction sequence, an unresolved name, or a source which cannot be used.
// Checking aborts before any solver is invoked.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}

	return "configuration error: " + e.Msg
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ParseError reports a malformed record within a source file.
type ParseError struct {
	// Position of the offending record within its source.
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}

	return fmt.Sprintf("record %d: field %q: %v", e.Index, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvariantViolation reports commands which are incompatible with the
// instruction sequences or the address mapping, detected while building the
// proof obligation.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Msg
}

func violationf(format string, args ...any) *InvariantViolation {
	return &InvariantViolation{fmt.Sprintf(format, args...)}
}
