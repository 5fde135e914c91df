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

import "errors"

var (
	// ErrPoolClosed is returned by writer-pool operations after CloseAll
	// or Abort.
	ErrPoolClosed = errors.New("splitter: writer pool is closed")

	// ErrTargetFailed marks a target whose writer previously failed;
	// further writes to it are skipped, not retried.
	ErrTargetFailed = errors.New("splitter: target previously failed")

	// ErrNoTarget is returned by write when ensure was never called for
	// the group.
	ErrNoTarget = errors.New("splitter: no target for group")
)
