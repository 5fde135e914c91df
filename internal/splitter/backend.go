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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/groupsplit/internal/filereader"
)

// rowWriter is a streaming output sink for one group. Implementations
// persist each row incrementally and never buffer the whole output.
type rowWriter interface {
	// WriteRow appends one data row.
	WriteRow(row filereader.Row) error

	// Close flushes and closes the underlying file.
	Close() error
}

// newRowWriter opens a streaming writer at path for the given output
// format, writing the caller-supplied header before any data row.
func newRowWriter(path string, format string, headers []string) (rowWriter, error) {
	switch format {
	case filereader.FormatCSV:
		return newCSVRowWriter(path, headers)
	case filereader.FormatParquet:
		return newParquetRowWriter(path, headers)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// csvRowWriter streams rows to a CSV file, flushing after every row so at
// most one row is ever held in memory.
type csvRowWriter struct {
	file *os.File
	w    *csv.Writer
}

var _ rowWriter = (*csvRowWriter)(nil)

func newCSVRowWriter(path string, headers []string) (*csvRowWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flush header: %w", err)
	}

	return &csvRowWriter{file: f, w: w}, nil
}

func (c *csvRowWriter) WriteRow(row filereader.Row) error {
	record := make([]string, len(row))
	for i, cell := range row {
		record[i] = formatCell(cell)
	}
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvRowWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if cerr := c.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// parquetRowWriter streams rows to a Parquet file using a static schema
// derived from the caller-supplied headers. Cells are persisted as their
// string form; the column set is the output header, exactly once.
type parquetRowWriter struct {
	file    *os.File
	w       *parquet.GenericWriter[map[string]any]
	headers []string
	buf     []map[string]any
}

var _ rowWriter = (*parquetRowWriter)(nil)

func newParquetRowWriter(path string, headers []string) (*parquetRowWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	nodes := make(parquet.Group, len(headers))
	for _, header := range headers {
		nodes[header] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("groupsplit", nodes)

	return &parquetRowWriter{
		file:    f,
		w:       parquet.NewGenericWriter[map[string]any](f, schema),
		headers: headers,
		buf:     []map[string]any{make(map[string]any, len(headers))},
	}, nil
}

func (p *parquetRowWriter) WriteRow(row filereader.Row) error {
	rec := p.buf[0]
	for k := range rec {
		delete(rec, k)
	}
	for i, header := range p.headers {
		if i < len(row) && row[i] != nil {
			rec[header] = formatCell(row[i])
		}
	}
	if _, err := p.w.Write(p.buf); err != nil {
		return err
	}
	return nil
}

func (p *parquetRowWriter) Close() error {
	err := p.w.Close()
	if cerr := p.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// formatCell renders a scalar cell as text for the output file.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
