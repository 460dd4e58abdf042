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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is a single raw command, mapping field names to their (textual)
// values.  Fields whose value is not textual, such as nested objects or JSON
// numbers, are omitted.
type Record map[string]string

// Hex returns the value of a given hexadecimal field.
func (r Record) Hex(field string) (uint64, error) {
	s, ok := r[field]
	if !ok {
		return 0, fmt.Errorf("missing field %q", field)
	}

	v, err := ParseHex(s)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}

	return v, nil
}

// format identifies the syntax of a source file.
type format uint8

const (
	jsonFormat format = iota
	yamlFormat
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return jsonFormat, nil
	case ".yaml", ".yml":
		return yamlFormat, nil
	}

	return 0, &ConfigurationError{Msg: path, Err: ErrUnsupportedFormat}
}

// decode reads a source file into a given target, according to its extension.
func decode(path string, target any) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return &ConfigurationError{Msg: "reading " + path, Err: err}
	}

	switch f {
	case jsonFormat:
		err = json.Unmarshal(bytes, target)
	default:
		err = yaml.Unmarshal(bytes, target)
	}

	if err != nil {
		return &ParseError{Index: -1, Err: fmt.Errorf("%s: %w", path, err)}
	}

	return nil
}

// ReadInstrNames reads an instruction sequence, given as a list of instruction
// names.
func ReadInstrNames(path string) ([]string, error) {
	var names []string

	if err := decode(path, &names); err != nil {
		return nil, err
	}

	return names, nil
}

// ReadRecords reads the list of records stored under a given key of a source
// file, e.g. "command inputs".
func ReadRecords(path string, key string) ([]Record, error) {
	var (
		raw     map[string][]map[string]rawField
		records []Record
	)
	//
	if err := decode(path, &raw); err != nil {
		return nil, err
	}

	entries, ok := raw[key]
	if !ok {
		return nil, &ParseError{Index: -1, Field: key, Err: errors.New("missing key in " + path)}
	}

	for _, entry := range entries {
		rec := make(Record)

		for field, value := range entry {
			if value.scalar {
				rec[field] = value.text
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

// rawField captures a single scalar value from either syntax, keeping its
// original text.
type rawField struct {
	text   string
	scalar bool
}

func (p *rawField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.text, p.scalar = s, true
	}

	return nil
}

func (p *rawField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.text, p.scalar = node.Value, true
	}

	return nil
}

// AddressMap relates byte addresses of model A to those of model B.
type AddressMap map[uint64]uint64

// ReadAddressMap reads an address mapping, given as a list of records under
// "address mapping" with hexadecimal source and target fields.  Unlike
// commands, any malformed or duplicate entry is an error.
func ReadAddressMap(path string, srcField, dstField string) (AddressMap, error) {
	records, err := ReadRecords(path, "address mapping")
	if err != nil {
		return nil, err
	}

	mapping := make(AddressMap)

	for i, rec := range records {
		src, err := rec.Hex(srcField)
		if err != nil {
			return nil, &ParseError{Index: i, Field: srcField, Err: err}
		}

		dst, err := rec.Hex(dstField)
		if err != nil {
			return nil, &ParseError{Index: i, Field: dstField, Err: err}
		}

		if _, ok := mapping[src]; ok {
			return nil, configErrorf("duplicate mapping for address %#x in %s", src, path)
		}

		mapping[src] = dst
	}

	return mapping, nil
}
