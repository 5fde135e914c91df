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

// Package splitter partitions a tabular input file into one streaming
// output per destination group. Group membership is resolved row by row
// through an injected membership.Resolver; memory stays bounded by one
// in-flight row plus one open writer per distinct group, independent of
// input size.
package splitter

import (
	"context"
	"errors"
	"io"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/groupsplit/internal/filereader"
	"github.com/cardinalhq/groupsplit/internal/idgen"
	"github.com/cardinalhq/groupsplit/internal/logctx"
	"github.com/cardinalhq/groupsplit/internal/membership"
)

// Splitter drives one split run: read a row, resolve its destinations,
// fan it out to each destination's writer, track statistics. Strictly
// row-sequential: row N's writes complete before row N+1 is read, so
// resolver latency and writer I/O naturally pace the whole pipeline.
type Splitter struct {
	cfg  Config
	pool *writerPool

	totalRows   int64
	matchedRows int64
	unmatched   mapset.Set[string]
	groupErrors []GroupError

	// failedGroups marks groups whose writer could not be created; they
	// are skipped for the rest of the run rather than retried per row.
	failedGroups map[membership.GroupID]bool

	runID string
}

// New creates a Splitter for the given configuration.
func New(cfg Config) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Splitter{
		cfg:          cfg,
		unmatched:    mapset.NewThreadUnsafeSet[string](),
		failedGroups: make(map[membership.GroupID]bool),
		runID:        idgen.RunID(),
	}
	s.pool = newWriterPool(&s.cfg)
	return s, nil
}

// Run executes the split and always returns a RunResult: a success result
// after the finalize step, or a failure result (no partial metadata) when
// a fatal error stops the loop. On the failure path every writer opened so
// far is closed and its partial output removed.
func (s *Splitter) Run(ctx context.Context) *RunResult {
	ctx = logctx.WithAttrs(ctx, "run_id", s.runID)
	ll := logctx.FromContext(ctx)

	if err := s.cfg.Resolver.Initialize(ctx); err != nil {
		ll.Error("membership resolver initialization failed", "error", err.Error())
		return failureResult("initialize resolver: " + err.Error())
	}

	reader, err := filereader.Open(s.cfg.InputPath, s.cfg.InputFormat)
	if err != nil {
		ll.Error("failed to open input", "path", s.cfg.InputPath, "error", err.Error())
		return failureResult(err.Error())
	}
	defer func() { _ = reader.Close() }()

	ll.Info("split run starting",
		"input", s.cfg.InputPath,
		"output_dir", s.cfg.OutputDir,
		"output_format", s.cfg.OutputFormat)

	for {
		if err := ctx.Err(); err != nil {
			s.pool.abort()
			ll.Error("split run cancelled", "error", err.Error())
			return failureResult("run cancelled: " + err.Error())
		}

		row, err := reader.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.pool.abort()
			ll.Error("input read failed", "error", err.Error())
			return failureResult("read input: " + err.Error())
		}

		s.totalRows++
		rowsProcessedCounter.Add(ctx, 1)
		s.processRow(ctx, row)
	}

	return s.finalize(ctx)
}

// processRow dispatches one row. Lookup and writer failures are isolated:
// they are logged, recorded in the per-group error list, and never stop
// the remaining input.
func (s *Splitter) processRow(ctx context.Context, row filereader.Row) {
	key := s.extractKey(row)
	if key == "" {
		// Absent key: no lookup, no unmatched record, but the row still
		// counts toward the total.
		return
	}

	groups, err := s.cfg.Resolver.GroupsForKey(ctx, key)
	if err != nil {
		resolveErrorsCounter.Add(ctx, 1)
		logctx.FromContext(ctx).Warn("group lookup failed",
			"key", key, "error", err.Error())
		s.groupErrors = append(s.groupErrors, GroupError{
			Key:   key,
			Stage: StageResolve,
			Error: err.Error(),
		})
		return
	}

	if len(groups) == 0 {
		if s.unmatched.Add(key) {
			rowsUnmatchedCounter.Add(ctx, 1)
		}
		return
	}

	for _, id := range groups {
		s.writeToGroup(ctx, id, row)
	}
}

func (s *Splitter) writeToGroup(ctx context.Context, id membership.GroupID, row filereader.Row) {
	if s.failedGroups[id] {
		return
	}

	t, err := s.pool.ensure(ctx, id)
	if err != nil {
		writeErrorsCounter.Add(ctx, 1)
		logctx.FromContext(ctx).Warn("failed to create output for group",
			"group", string(id), "error", err.Error())
		s.failedGroups[id] = true
		s.groupErrors = append(s.groupErrors, GroupError{
			GroupID: id,
			Stage:   StageCreate,
			Error:   err.Error(),
		})
		return
	}

	if err := t.writeRow(row); err != nil {
		if errors.Is(err, ErrTargetFailed) {
			// Already recorded when the first write failed.
			return
		}
		writeErrorsCounter.Add(ctx, 1)
		logctx.FromContext(ctx).Warn("failed to write row for group",
			"group", string(id), "error", err.Error())
		s.groupErrors = append(s.groupErrors, GroupError{
			GroupID: id,
			Stage:   StageWrite,
			Error:   err.Error(),
		})
		return
	}

	s.matchedRows++
	rowsMatchedCounter.Add(ctx, 1)
}

// extractKey pulls the partition key cell out of the row. A missing or
// empty cell means no key.
func (s *Splitter) extractKey(row filereader.Row) string {
	if s.cfg.KeyColumn >= len(row) {
		return ""
	}
	cell := row[s.cfg.KeyColumn]
	if cell == nil {
		return ""
	}
	return formatCell(cell)
}

// finalize closes every open writer in turn (best-effort), computes final
// per-group counts, and assembles the success RunResult.
func (s *Splitter) finalize(ctx context.Context) *RunResult {
	ll := logctx.FromContext(ctx)

	s.groupErrors = append(s.groupErrors, s.pool.closeAll(ctx)...)

	outputFiles := make(map[membership.GroupID]OutputFile, len(s.pool.targets))
	stats := make(map[membership.GroupID]int64, len(s.pool.targets))
	for _, id := range s.pool.order {
		t := s.pool.targets[id]
		outputFiles[id] = OutputFile{
			Filename: t.filename,
			Path:     t.path,
			RowCount: t.rowCount(),
		}
		stats[id] = t.rowCount()
		ll.Info("output saved",
			"group", string(id), "file", t.filename, "rows", t.rowCount())
	}

	ll.Info("split run complete",
		"total_rows", s.totalRows,
		"matched_rows", s.matchedRows,
		"groups", len(outputFiles),
		"unmatched_keys", s.unmatched.Cardinality())

	return &RunResult{
		Success:       true,
		TotalRows:     s.totalRows,
		MatchedRows:   s.matchedRows,
		OutputFiles:   outputFiles,
		UnmatchedKeys: s.unmatched.ToSlice(),
		Stats:         stats,
		GroupErrors:   s.groupErrors,
	}
}

// Split runs one partition operation to completion under ctx.
func Split(ctx context.Context, cfg Config) (*RunResult, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx), nil
}

// SplitSync is the synchronous adapter: it runs Split with a background
// context and returns the identical RunResult structure.
func SplitSync(cfg Config) (*RunResult, error) {
	return Split(context.Background(), cfg)
}
