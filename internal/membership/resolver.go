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

// Package membership resolves partition keys to destination groups.
// The split engine only depends on the Resolver contract; concrete
// providers (file, HTTP, cached) are wired by the caller so a test double
// can stand in without touching the engine.
package membership

import (
	"context"
	"errors"
	"fmt"
)

// GroupID identifies an externally defined destination group.
type GroupID string

// GroupInfo is the descriptive metadata for a group, used only to derive
// output file names.
type GroupInfo struct {
	ID          GroupID `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Resolver answers which groups claim a partition key. Lookups may be
// backed by a network service; latency and caching behavior are opaque to
// callers.
type Resolver interface {
	// Initialize prepares the resolver for lookups. It is idempotent and
	// must complete before the first GroupsForKey call.
	Initialize(ctx context.Context) error

	// GroupsForKey returns the ids of every group that claims the key.
	// An empty result is not an error.
	GroupsForKey(ctx context.Context, key string) ([]GroupID, error)

	// GroupInfo returns naming metadata for a group id.
	GroupInfo(ctx context.Context, id GroupID) (GroupInfo, error)
}

// ErrUnknownGroup is returned by GroupInfo for an id no provider knows.
var ErrUnknownGroup = errors.New("membership: unknown group")

// ErrNotInitialized is returned by lookups performed before Initialize.
var ErrNotInitialized = errors.New("membership: resolver not initialized")

// DisplayName returns the best human-readable name for the group.
func (g GroupInfo) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return string(g.ID)
}

func (g GroupInfo) String() string {
	return fmt.Sprintf("%s (%s)", g.DisplayName(), g.ID)
}
