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

package filereader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// ParquetReader reads rows from a Parquet file one row at a time.
// Cell order follows the file's schema field order, which plays the role
// the CSV header plays for CSV input.
type ParquetReader struct {
	file      *os.File
	pfr       *parquet.GenericReader[map[string]any]
	columns   []string
	readBuf   []map[string]any
	closed    bool
	exhausted bool
}

var _ Reader = (*ParquetReader)(nil)

// NewParquetReader opens the Parquet file at path for streaming reads.
func NewParquetReader(path string) (*ParquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := pf.Schema().Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
	}

	return &ParquetReader{
		file:    f,
		pfr:     parquet.NewGenericReader[map[string]any](pf, pf.Schema()),
		columns: columns,
		readBuf: []map[string]any{make(map[string]any)},
	}, nil
}

func (r *ParquetReader) Next(ctx context.Context) (Row, error) {
	if r.closed {
		return nil, io.EOF
	}
	if r.exhausted {
		return nil, io.EOF
	}

	// Clear the reusable buffer map from previous use
	for k := range r.readBuf[0] {
		delete(r.readBuf[0], k)
	}

	n, err := r.pfr.Read(r.readBuf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("parquet reader error: %w", err)
	}
	if n == 0 {
		r.exhausted = true
		return nil, io.EOF
	}
	if err == io.EOF {
		r.exhausted = true
	}

	rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("reader", "ParquetReader"),
	))

	row := make(Row, len(r.columns))
	for i, col := range r.columns {
		row[i] = r.readBuf[0][col]
	}
	return row, nil
}

// Columns returns the schema field names in file order.
func (r *ParquetReader) Columns() []string {
	return r.columns
}

// Close closes the reader and releases resources.
func (r *ParquetReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.pfr != nil {
		if cerr := r.pfr.Close(); cerr != nil {
			err = fmt.Errorf("failed to close parquet reader: %w", cerr)
		}
		r.pfr = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}
