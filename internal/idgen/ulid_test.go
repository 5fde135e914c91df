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

package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestULIDGenerator_Monotonic(t *testing.T) {
	gen := NewULIDGenerator()
	now := time.Now()

	prev := gen.Make(now)
	for range 100 {
		next := gen.Make(now)
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestRunID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := RunID()
		require.Len(t, id, 26)
		require.False(t, seen[id])
		seen[id] = true
	}
}
