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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/groupsplit/internal/membership"
)

// fakeResolver is a scriptable membership.Resolver. Lookup results are
// consumed per key in order, repeating the last entry once exhausted, so
// tests can model a membership service whose answers change between rows.
type fakeResolver struct {
	lookups     map[string][][]membership.GroupID
	lookupIdx   map[string]int
	infos       map[membership.GroupID]membership.GroupInfo
	lookupErrs  map[string]error
	infoErrs    map[membership.GroupID]error
	initErr     error
	initCalls   int
	onLookup    func(key string)
	lookupCalls int
}

var _ membership.Resolver = (*fakeResolver)(nil)

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		lookups:    make(map[string][][]membership.GroupID),
		lookupIdx:  make(map[string]int),
		infos:      make(map[membership.GroupID]membership.GroupInfo),
		lookupErrs: make(map[string]error),
		infoErrs:   make(map[membership.GroupID]error),
	}
}

func (r *fakeResolver) addLookup(key string, groups ...[]membership.GroupID) {
	r.lookups[key] = append(r.lookups[key], groups...)
}

func (r *fakeResolver) addGroup(id membership.GroupID, name string) {
	r.infos[id] = membership.GroupInfo{ID: id, Name: name}
}

func (r *fakeResolver) Initialize(ctx context.Context) error {
	r.initCalls++
	return r.initErr
}

func (r *fakeResolver) GroupsForKey(ctx context.Context, key string) ([]membership.GroupID, error) {
	r.lookupCalls++
	if r.onLookup != nil {
		r.onLookup(key)
	}
	if err := r.lookupErrs[key]; err != nil {
		return nil, err
	}
	seq := r.lookups[key]
	if len(seq) == 0 {
		return nil, nil
	}
	idx := r.lookupIdx[key]
	if idx >= len(seq) {
		idx = len(seq) - 1
	} else {
		r.lookupIdx[key] = idx + 1
	}
	return seq[idx], nil
}

func (r *fakeResolver) GroupInfo(ctx context.Context, id membership.GroupID) (membership.GroupInfo, error) {
	if err := r.infoErrs[id]; err != nil {
		return membership.GroupInfo{}, err
	}
	info, ok := r.infos[id]
	if !ok {
		return membership.GroupInfo{}, membership.ErrUnknownGroup
	}
	return info, nil
}

func writeInputCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestSplitter_FanOutScenario(t *testing.T) {
	// Rows: (1,Paris,10)->{EU}; (2,Lagos,5)->{}; (3,Paris,7)->{EU,VIP}.
	resolver := newFakeResolver()
	resolver.addGroup("EU", "Europe")
	resolver.addGroup("VIP", "VIP Cities")
	resolver.addLookup("Paris",
		[]membership.GroupID{"EU"},
		[]membership.GroupID{"EU", "VIP"},
	)

	input := writeInputCSV(t, "id,city,value\n1,Paris,10\n2,Lagos,5\n3,Paris,7\n")
	outDir := t.TempDir()

	result, err := Split(context.Background(), Config{
		InputPath: input,
		Headers:   []string{"Id", "City", "Value"},
		OutputDir: outDir,
		Resolver:  resolver,
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, int64(3), result.TotalRows)
	assert.Equal(t, int64(3), result.MatchedRows) // per-write counting
	assert.Equal(t, []string{"Lagos"}, result.UnmatchedKeys)
	assert.Empty(t, result.GroupErrors)

	require.Len(t, result.OutputFiles, 2)
	assert.Equal(t, int64(2), result.OutputFiles["EU"].RowCount)
	assert.Equal(t, int64(1), result.OutputFiles["VIP"].RowCount)
	assert.Equal(t, int64(2), result.Stats["EU"])
	assert.Equal(t, int64(1), result.Stats["VIP"])

	euData, err := os.ReadFile(result.OutputFiles["EU"].Path)
	require.NoError(t, err)
	assert.Equal(t, "Id,City,Value\n1,Paris,10\n3,Paris,7\n", string(euData))

	vipData, err := os.ReadFile(result.OutputFiles["VIP"].Path)
	require.NoError(t, err)
	assert.Equal(t, "Id,City,Value\n3,Paris,7\n", string(vipData))
}

func TestSplitter_MissingInputFile(t *testing.T) {
	resolver := newFakeResolver()

	result, err := Split(context.Background(), Config{
		InputPath: filepath.Join(t.TempDir(), "does-not-exist.csv"),
		Headers:   []string{"Id", "City"},
		OutputDir: t.TempDir(),
		Resolver:  resolver,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, int64(0), result.TotalRows)
	assert.Empty(t, result.OutputFiles)
}

func TestSplitter_EmptyKeyCountsTowardTotalOnly(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addGroup("EU", "Europe")
	resolver.addLookup("Paris", []membership.GroupID{"EU"})

	input := writeInputCSV(t, "id,city\n1,Paris\n2,\n3,Paris\n")

	result, err := Split(context.Background(), Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: t.TempDir(),
		Resolver:  resolver,
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	assert.Equal(t, int64(3), result.TotalRows)
	assert.Equal(t, int64(2), result.MatchedRows)
	assert.Empty(t, result.UnmatchedKeys)
	// The empty-key row triggered no lookup at all.
	assert.Equal(t, 2, resolver.lookupCalls)
}

func TestSplitter_UnmatchedKeysDeduplicated(t *testing.T) {
	resolver := newFakeResolver()

	input := writeInputCSV(t, "id,city\n1,Lagos\n2,Lagos\n3,Atlantis\n")

	result, err := Split(context.Background(), Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: t.TempDir(),
		Resolver:  resolver,
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	assert.Equal(t, int64(3), result.TotalRows)
	assert.ElementsMatch(t, []string{"Lagos", "Atlantis"}, result.UnmatchedKeys)
	assert.Empty(t, result.OutputFiles)
}

func TestSplitter_ResolverErrorIsIsolated(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addGroup("EU", "Europe")
	resolver.addLookup("Paris", []membership.GroupID{"EU"})
	resolver.lookupErrs["Gotham"] = errors.New("membership service exploded")

	input := writeInputCSV(t, "id,city\n1,Gotham\n2,Paris\n")

	result, err := Split(context.Background(), Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: t.TempDir(),
		Resolver:  resolver,
	})
	require.NoError(t, err)

	require.True(t, result.Success)
	assert.Equal(t, int64(2), result.TotalRows)
	assert.Equal(t, int64(1), result.MatchedRows)
	assert.NotContains(t, result.UnmatchedKeys, "Gotham")

	require.Len(t, result.GroupErrors, 1)
	assert.Equal(t, StageResolve, result.GroupErrors[0].Stage)
	assert.Equal(t, "Gotham", result.GroupErrors[0].Key)
	assert.Contains(t, result.GroupErrors[0].Error, "exploded")
}

func TestSplitter_WriterCreateFailureIsIsolated(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addGroup("EU", "Europe")
	resolver.addLookup("Paris", []membership.GroupID{"EU"})

	input := writeInputCSV(t, "id,city\n1,Paris\n2,Paris\n")

	// OutputDir's parent is a regular file, so MkdirAll must fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	result, err := Split(context.Background(), Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: filepath.Join(blocker, "out"),
		Resolver:  resolver,
	})
	require.NoError(t, err)

	// The run completes; the broken group is reported, not fatal.
	require.True(t, result.Success)
	assert.Equal(t, int64(2), result.TotalRows)
	assert.Equal(t, int64(0), result.MatchedRows)
	assert.Empty(t, result.OutputFiles)

	// The failed group is skipped after the first failure, so exactly one
	// create error is recorded for the two Paris rows.
	require.Len(t, result.GroupErrors, 1)
	assert.Equal(t, StageCreate, result.GroupErrors[0].Stage)
	assert.Equal(t, membership.GroupID("EU"), result.GroupErrors[0].GroupID)
}

func TestSplitter_CancellationAbortsAndRemovesOutputs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	resolver := newFakeResolver()
	resolver.addGroup("EU", "Europe")
	resolver.addLookup("Paris", []membership.GroupID{"EU"})
	resolver.onLookup = func(key string) {
		if key == "Berlin" {
			cancel()
		}
	}
	resolver.addLookup("Berlin", []membership.GroupID{"EU"})

	input := writeInputCSV(t, "id,city\n1,Paris\n2,Berlin\n3,Paris\n")
	outDir := t.TempDir()

	result, err := Split(ctx, Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: outDir,
		Resolver:  resolver,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "cancelled")
	assert.Empty(t, result.OutputFiles)

	// The writer opened for Paris must have been closed and removed.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSplitter_ResolverInitializeFailureIsFatal(t *testing.T) {
	resolver := newFakeResolver()
	resolver.initErr = errors.New("no routing state")

	input := writeInputCSV(t, "id,city\n1,Paris\n")

	result, err := Split(context.Background(), Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: t.TempDir(),
		Resolver:  resolver,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no routing state")
	assert.Equal(t, int64(0), result.TotalRows)
}

func TestSplitter_ConfigValidation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "InputPath", cfgErr.Field)
}

func TestSplitSync_MatchesAsyncResult(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addGroup("EU", "Europe")
	resolver.addLookup("Paris", []membership.GroupID{"EU"})

	input := writeInputCSV(t, "id,city\n1,Paris\n")

	result, err := SplitSync(Config{
		InputPath: input,
		Headers:   []string{"Id", "City"},
		OutputDir: t.TempDir(),
		Resolver:  resolver,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(1), result.TotalRows)
	assert.Equal(t, int64(1), result.MatchedRows)
}
