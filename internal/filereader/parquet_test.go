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
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

type parquetTestRow struct {
	ID   int64  `parquet:"id"`
	City string `parquet:"city"`
}

func writeTestParquet(t *testing.T, rows []parquetTestRow) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "in.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := parquet.NewGenericWriter[parquetTestRow](f)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	return path
}

func TestParquetReader_StreamsRows(t *testing.T) {
	path := writeTestParquet(t, []parquetTestRow{
		{ID: 1, City: "Paris"},
		{ID: 2, City: "Lagos"},
	})

	r, err := Open(path, FormatParquet)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, []string{"id", "city"}, r.Columns())

	ctx := context.Background()

	row, err := r.Next(ctx)
	require.NoError(t, err)
	require.Len(t, row, 2)
	require.Equal(t, "Paris", row[1])

	row, err = r.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "Lagos", row[1])

	_, err = r.Next(ctx)
	require.Equal(t, io.EOF, err)
}

func TestParquetReader_NotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not a parquet file"), 0o644))

	_, err := Open(path, FormatParquet)
	require.Error(t, err)
}

func TestParquetReader_CloseIdempotent(t *testing.T) {
	path := writeTestParquet(t, []parquetTestRow{{ID: 1, City: "Paris"}})

	r, err := NewParquetReader(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Next(context.Background())
	require.Equal(t, io.EOF, err)
}
