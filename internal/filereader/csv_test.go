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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVReader_StreamsRows(t *testing.T) {
	input := "id,city,value\n1,Paris,10\n2,Lagos,5\n3,Paris,7.5\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(input)))
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, []string{"id", "city", "value"}, r.Columns())

	ctx := context.Background()

	row, err := r.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, Row{int64(1), "Paris", int64(10)}, row)

	row, err = r.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, Row{int64(2), "Lagos", int64(5)}, row)

	row, err = r.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, Row{int64(3), "Paris", 7.5}, row)

	_, err = r.Next(ctx)
	require.Equal(t, io.EOF, err)
}

func TestCSVReader_SkipsMalformedRows(t *testing.T) {
	input := "id,city\n1,Paris\n2\n3,Berlin\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(input)))
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()

	row, err := r.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "Paris", row[1])

	// The two-cell row "2" is dropped, so Berlin comes next.
	row, err = r.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "Berlin", row[1])

	_, err = r.Next(ctx)
	require.Equal(t, io.EOF, err)
}

func TestCSVReader_EmptyCellsStayStrings(t *testing.T) {
	input := "id,city\n1,\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(input)))
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", row[1])
}

func TestCSVReader_NoHeader(t *testing.T) {
	_, err := NewCSVReader(io.NopCloser(strings.NewReader("")))
	require.Error(t, err)
}

func TestCSVReader_NextAfterClose(t *testing.T) {
	r, err := NewCSVReader(io.NopCloser(strings.NewReader("id\n1\n")))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close()) // idempotent

	_, err = r.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), FormatCSV)
	require.Error(t, err)

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Open(path, "xlsx")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported input format")
}

func TestOpen_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,city\n1,Paris\n"), 0o644))

	r, err := Open(path, FormatCSV)
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Paris", row[1])
}
