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

// Package filereader provides single-pass, low-memory row readers for
// tabular input files. Readers produce one row at a time and never hold
// the full dataset in memory.
package filereader

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Row is one line of input data as an ordered sequence of scalar cells.
// Rows are transient: callers must not retain a Row across Next calls.
type Row []any

// Reader is the core interface for reading rows from a tabular file.
type Reader interface {
	// Next returns the next row of data.
	// Returns io.EOF when there are no more rows.
	// Returns error for any read failures.
	Next(ctx context.Context) (Row, error)

	// Columns returns the column names found in the input, in file order.
	// The input's own header is positional metadata only; it is never
	// echoed to outputs.
	Columns() []string

	// Close releases any resources held by the reader.
	Close() error
}

// Supported input formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Open opens the file at path and returns a streaming Reader for the given
// format. The reader owns the underlying file handle.
func Open(path string, format string) (Reader, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, &InputError{Path: path, Err: err}
		}
		r, err := NewCSVReader(f)
		if err != nil {
			return nil, &InputError{Path: path, Err: err}
		}
		return r, nil
	case FormatParquet:
		r, err := NewParquetReader(path)
		if err != nil {
			return nil, &InputError{Path: path, Err: err}
		}
		return r, nil
	default:
		return nil, &InputError{Path: path, Err: fmt.Errorf("unsupported input format %q", format)}
	}
}
