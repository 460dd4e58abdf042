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
package termio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Escape_01(t *testing.T) {
	assert.Equal(t, "\033[0m", ResetAnsiEscape().Build())
	assert.Equal(t, "\033[31m", NewAnsiEscape().FgColour(TERM_RED).Build())
	assert.Equal(t, "\033[1;32m", NewAnsiEscape().Bold().FgColour(TERM_GREEN).Build())
	assert.Equal(t, "\033[33mok\033[0m", NewAnsiEscape().FgColour(TERM_YELLOW).Wrap("ok"))
}

func Test_Colourise_01(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)

	defer f.Close()
	// Not a terminal
	assert.False(t, IsTerminal(f))
	assert.Equal(t, "EQUIVALENT", Colourise(f, TERM_GREEN, "EQUIVALENT"))
}
