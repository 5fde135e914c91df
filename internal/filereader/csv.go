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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// CSVReader reads rows from a CSV stream one row at a time. The first
// record is treated as the file's header and consumed during construction;
// it is exposed via Columns and never returned as data.
type CSVReader struct {
	reader   *csv.Reader
	columns  []string
	closer   io.Closer
	rowIndex int
	closed   bool
}

var _ Reader = (*CSVReader)(nil)

// NewCSVReader creates a new CSVReader for the given io.ReadCloser.
// The reader takes ownership of the closer and will close it when Close is called.
func NewCSVReader(reader io.ReadCloser) (*CSVReader, error) {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields

	columns, err := csvReader.Read()
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(columns) == 0 {
		_ = reader.Close()
		return nil, fmt.Errorf("CSV file has no header")
	}

	return &CSVReader{
		reader:  csvReader,
		columns: columns,
		closer:  reader,
	}, nil
}

func (r *CSVReader) Next(ctx context.Context) (Row, error) {
	if r.closed {
		return nil, io.EOF
	}

	for {
		record, err := r.reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("CSV read error at line %d: %w", r.rowIndex+2, err)
		}
		r.rowIndex++

		// Skip rows with wrong number of columns
		if len(record) != len(r.columns) {
			rowsDroppedCounter.Add(ctx, 1, otelmetric.WithAttributes(
				attribute.String("reader", "CSVReader"),
				attribute.String("reason", "column_count_mismatch"),
			))
			continue
		}

		rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reader", "CSVReader"),
		))

		row := make(Row, len(record))
		for i, value := range record {
			row[i] = parseValue(value)
		}
		return row, nil
	}
}

// Columns returns the header record read from the file.
func (r *CSVReader) Columns() []string {
	return r.columns
}

// Close closes the reader and the underlying io.ReadCloser.
func (r *CSVReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.reader = nil
	return err
}

// parseValue attempts to parse a string value as a number if possible.
func parseValue(value string) any {
	trimmed := strings.TrimSpace(value)

	// Empty strings remain as empty strings
	if trimmed == "" {
		return ""
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return value
}
