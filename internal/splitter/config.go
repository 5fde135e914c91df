// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package splitter

import (
	"strings"

	"github.com/cardinalhq/groupsplit/internal/filereader"
	"github.com/cardinalhq/groupsplit/internal/membership"
)

// DefaultKeyColumn is the zero-based cell index holding the partition key
// (the city column in the original dataset layout).
const DefaultKeyColumn = 1

// NameFunc derives an output file base name (without extension) from a
// group's metadata. The pool guarantees collision safety on top of it.
type NameFunc func(info membership.GroupInfo) string

// Config describes one split run.
type Config struct {
	// InputPath is the source tabular file.
	InputPath string

	// InputFormat selects the input reader: filereader.FormatCSV or
	// filereader.FormatParquet. Defaults to csv.
	InputFormat string

	// Headers is the caller-supplied column header written verbatim as the
	// first line of every output. It is not read from the input file.
	Headers []string

	// KeyColumn is the zero-based index of the partition key cell.
	// Defaults to DefaultKeyColumn.
	KeyColumn int

	// OutputDir is where per-group output files are created.
	OutputDir string

	// OutputFormat selects the output backend: csv or parquet.
	// Defaults to csv.
	OutputFormat string

	// Resolver answers group membership for partition keys. Required.
	Resolver membership.Resolver

	// NameFunc overrides default output naming. Optional.
	NameFunc NameFunc
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return &ConfigError{Field: "InputPath", Message: "cannot be empty"}
	}
	if len(c.Headers) == 0 {
		return &ConfigError{Field: "Headers", Message: "cannot be empty"}
	}
	if c.OutputDir == "" {
		return &ConfigError{Field: "OutputDir", Message: "cannot be empty"}
	}
	if c.Resolver == nil {
		return &ConfigError{Field: "Resolver", Message: "is required"}
	}
	if c.KeyColumn < 0 {
		return &ConfigError{Field: "KeyColumn", Message: "cannot be negative"}
	}

	if c.InputFormat == "" {
		c.InputFormat = filereader.FormatCSV
	}
	if c.OutputFormat == "" {
		c.OutputFormat = filereader.FormatCSV
	}
	switch c.OutputFormat {
	case filereader.FormatCSV, filereader.FormatParquet:
	default:
		return &ConfigError{Field: "OutputFormat", Message: "must be csv or parquet"}
	}
	if c.NameFunc == nil {
		c.NameFunc = DefaultNameFunc
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "splitter config: " + e.Field + " " + e.Message
}

// DefaultNameFunc names outputs after the group's display name plus its id,
// which keeps names readable while guaranteeing per-group uniqueness.
func DefaultNameFunc(info membership.GroupInfo) string {
	name := sanitizeName(info.DisplayName())
	id := sanitizeName(string(info.ID))
	if name == "" || name == id {
		return id
	}
	return name + "-" + id
}

// sanitizeName keeps filenames portable: anything outside a conservative
// character set becomes an underscore.
func sanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
