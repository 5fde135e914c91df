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
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/groupsplit/internal/filereader"
	"github.com/cardinalhq/groupsplit/internal/logctx"
	"github.com/cardinalhq/groupsplit/internal/membership"
)

// target is the per-group writer state: one open streaming output file
// plus its cursor. The cursor starts at 1 (row 0 is the header) and the
// final row count is cursor - 1.
type target struct {
	id       membership.GroupID
	filename string
	path     string
	writer   rowWriter
	cursor   int64
	failed   bool
}

func (t *target) rowCount() int64 {
	return t.cursor - 1
}

func (t *target) writeRow(row filereader.Row) error {
	if t.failed {
		return ErrTargetFailed
	}
	if err := t.writer.WriteRow(row); err != nil {
		t.failed = true
		return err
	}
	t.cursor++
	return nil
}

// writerPool lazily creates and holds one streaming writer per group id.
// State is O(G) in the number of distinct groups seen; rows are never
// buffered. Not concurrency-safe: exactly one logical thread drives it.
type writerPool struct {
	cfg       *Config
	targets   map[membership.GroupID]*target
	order     []membership.GroupID
	usedNames map[string]membership.GroupID
	closed    bool
}

func newWriterPool(cfg *Config) *writerPool {
	return &writerPool{
		cfg:       cfg,
		targets:   make(map[membership.GroupID]*target),
		usedNames: make(map[string]membership.GroupID),
	}
}

// ensure returns the target for id, creating it on first sight: resolve
// naming metadata, derive a collision-safe path, open the writer, and
// write the caller-supplied header. Idempotent: a second call returns the
// existing target untouched.
func (p *writerPool) ensure(ctx context.Context, id membership.GroupID) (*target, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}
	if t, ok := p.targets[id]; ok {
		return t, nil
	}

	info, err := p.cfg.Resolver.GroupInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve group info for %s: %w", id, err)
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	filename := p.deriveFilename(info)
	path := filepath.Join(p.cfg.OutputDir, filename)

	writer, err := newRowWriter(path, p.cfg.OutputFormat, p.cfg.Headers)
	if err != nil {
		return nil, fmt.Errorf("open writer for group %s: %w", id, err)
	}

	t := &target{
		id:       id,
		filename: filename,
		path:     path,
		writer:   writer,
		cursor:   1,
	}
	p.targets[id] = t
	p.order = append(p.order, id)
	p.usedNames[filename] = id

	logctx.FromContext(ctx).Debug("writer created",
		"group", string(id), "path", path)

	return t, nil
}

// deriveFilename applies the configured NameFunc and guarantees the result
// is unique within this run even if the naming function collides.
func (p *writerPool) deriveFilename(info membership.GroupInfo) string {
	base := p.cfg.NameFunc(info)
	if base == "" {
		base = sanitizeName(string(info.ID))
	}

	ext := "." + p.cfg.OutputFormat
	filename := base + ext
	for n := 2; ; n++ {
		if _, taken := p.usedNames[filename]; !taken {
			return filename
		}
		filename = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
}

// write appends row to the target for id, which must have been ensured.
func (p *writerPool) write(id membership.GroupID, row filereader.Row) error {
	if p.closed {
		return ErrPoolClosed
	}
	t, ok := p.targets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTarget, id)
	}
	return t.writeRow(row)
}

// closeAll closes every open target, best-effort: a failure closing one
// target is collected and logged but never blocks closing the rest.
// Returns one GroupError per failed close.
func (p *writerPool) closeAll(ctx context.Context) []GroupError {
	if p.closed {
		return nil
	}
	p.closed = true

	ll := logctx.FromContext(ctx)

	var errs *multierror.Error
	var groupErrs []GroupError
	for _, id := range p.order {
		t := p.targets[id]
		if err := t.writer.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close %s: %w", id, err))
			groupErrs = append(groupErrs, GroupError{
				GroupID: id,
				Stage:   StageClose,
				Error:   err.Error(),
			})
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		ll.Error("some output writers failed to close", "error", err.Error())
	}
	return groupErrs
}

// abort closes and removes every output created so far. Used on the fatal
// error path so no half-written file survives a failed run. Safe to call
// more than once.
func (p *writerPool) abort() {
	if p.closed {
		return
	}
	p.closed = true

	for _, id := range p.order {
		t := p.targets[id]
		_ = t.writer.Close()
		_ = os.Remove(t.path)
	}
}
