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
	"fmt"
	"strconv"
	"strings"
)

// StripHexPrefix removes any leading "0x" from a hexadecimal string.  Strings
// of at most two characters are returned unchanged.
func StripHexPrefix(s string) string {
	for len(s) > 2 && s[:2] == "0x" {
		s = s[2:]
	}

	return s
}

// ParseHex parses a hexadecimal string, with or without "0x" prefix.
func ParseHex(s string) (uint64, error) {
	return strconv.ParseUint(StripHexPrefix(s), 16, 64)
}

// SplitLanes splits a hexadecimal payload of at most 2*k digits into k byte
// lanes, most significant lane first.  Shorter payloads are zero-padded on the
// left.
func SplitLanes(payload string, k int) ([]string, error) {
	payload = StripHexPrefix(payload)
	//
	if len(payload) > 2*k {
		return nil, fmt.Errorf("payload of %d digits exceeds %d lanes", len(payload), k)
	}

	for _, c := range payload {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
	}
	//
	padded := strings.Repeat("0", 2*k-len(payload)) + payload
	lanes := make([]string, k)

	for i := range lanes {
		lanes[i] = padded[2*i : 2*i+2]
	}

	return lanes, nil
}

// JoinLanes reassembles byte lanes (most significant first) into a payload,
// dropping leading zeros.
func JoinLanes(lanes []string) string {
	payload := strings.TrimLeft(strings.Join(lanes, ""), "0")
	if payload == "" {
		return "0"
	}

	return payload
}

// LaneValues splits a payload into k byte values, indexed so that lane 0 is the
// least significant byte.
func LaneValues(payload string, k int) ([]uint64, error) {
	lanes, err := SplitLanes(payload, k)
	if err != nil {
		return nil, err
	}

	values := make([]uint64, k)

	for i := range values {
		if values[i], err = ParseHex(lanes[k-1-i]); err != nil {
			return nil, err
		}
	}

	return values, nil
}
