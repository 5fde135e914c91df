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

import "github.com/cardinalhq/groupsplit/internal/membership"

// OutputFile describes one per-group output created by a run.
type OutputFile struct {
	// Filename is the base name of the output file.
	Filename string `json:"filename"`

	// Path is the absolute or OutputDir-relative path to the file.
	Path string `json:"path"`

	// RowCount is the number of data rows written (header excluded).
	RowCount int64 `json:"row_count"`
}

// Error stages for GroupError.
const (
	StageResolve = "resolve"
	StageCreate  = "create"
	StageWrite   = "write"
	StageClose   = "close"
)

// GroupError records an isolated failure that did not abort the run.
// Resolve-stage errors carry the key that failed; the other stages carry
// the group whose writer failed.
type GroupError struct {
	GroupID membership.GroupID `json:"group_id,omitempty"`
	Key     string             `json:"key,omitempty"`
	Stage   string             `json:"stage"`
	Error   string             `json:"error"`
}

// RunResult is the aggregate outcome of a split run, built exactly once.
type RunResult struct {
	// Success reports whether the run completed without a fatal error.
	Success bool `json:"success"`

	// TotalRows is the number of data rows seen (input header excluded).
	TotalRows int64 `json:"total_rows"`

	// MatchedRows counts destination writes performed. A row fanned out to
	// two groups contributes 2 (per-write counting policy).
	MatchedRows int64 `json:"matched_rows"`

	// OutputFiles describes every output that was opened, keyed by group.
	OutputFiles map[membership.GroupID]OutputFile `json:"output_files"`

	// UnmatchedKeys holds every distinct key that resolved to zero groups.
	UnmatchedKeys []string `json:"unmatched_keys"`

	// Stats maps each group to its written row count.
	Stats map[membership.GroupID]int64 `json:"stats"`

	// GroupErrors lists isolated per-group and per-key failures.
	GroupErrors []GroupError `json:"group_errors,omitempty"`

	// Error is the fatal error message when Success is false.
	Error string `json:"error,omitempty"`
}

func failureResult(msg string) *RunResult {
	return &RunResult{
		Success:       false,
		Error:         msg,
		TotalRows:     0,
		OutputFiles:   map[membership.GroupID]OutputFile{},
		UnmatchedKeys: []string{},
		Stats:         map[membership.GroupID]int64{},
	}
}
