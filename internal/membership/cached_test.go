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

package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingResolver records how many times each lookup path is exercised.
type countingResolver struct {
	byKey       map[string][]GroupID
	infos       map[GroupID]GroupInfo
	lookupCalls int
	infoCalls   int
	lookupErr   error
}

var _ Resolver = (*countingResolver)(nil)

func (r *countingResolver) Initialize(ctx context.Context) error { return nil }

func (r *countingResolver) GroupsForKey(ctx context.Context, key string) ([]GroupID, error) {
	r.lookupCalls++
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	return r.byKey[key], nil
}

func (r *countingResolver) GroupInfo(ctx context.Context, id GroupID) (GroupInfo, error) {
	r.infoCalls++
	info, ok := r.infos[id]
	if !ok {
		return GroupInfo{}, ErrUnknownGroup
	}
	return info, nil
}

func TestCachedResolver_SingleLoadPerKey(t *testing.T) {
	inner := &countingResolver{
		byKey: map[string][]GroupID{"Paris": {"EU"}},
	}
	cached := NewCachedResolver(inner, time.Minute)
	defer cached.Stop()

	ctx := context.Background()
	require.NoError(t, cached.Initialize(ctx))

	for range 5 {
		groups, err := cached.GroupsForKey(ctx, "Paris")
		require.NoError(t, err)
		require.Equal(t, []GroupID{"EU"}, groups)
	}
	require.Equal(t, 1, inner.lookupCalls)
}

func TestCachedResolver_EmptyResultIsCached(t *testing.T) {
	inner := &countingResolver{byKey: map[string][]GroupID{}}
	cached := NewCachedResolver(inner, time.Minute)
	defer cached.Stop()

	ctx := context.Background()
	for range 3 {
		groups, err := cached.GroupsForKey(ctx, "Lagos")
		require.NoError(t, err)
		require.Empty(t, groups)
	}
	require.Equal(t, 1, inner.lookupCalls)
}

func TestCachedResolver_ErrorsNotCached(t *testing.T) {
	inner := &countingResolver{lookupErr: errors.New("boom")}
	cached := NewCachedResolver(inner, time.Minute)
	defer cached.Stop()

	ctx := context.Background()

	_, err := cached.GroupsForKey(ctx, "Paris")
	require.Error(t, err)

	inner.lookupErr = nil
	inner.byKey = map[string][]GroupID{"Paris": {"EU"}}

	groups, err := cached.GroupsForKey(ctx, "Paris")
	require.NoError(t, err)
	require.Equal(t, []GroupID{"EU"}, groups)
}

func TestCachedResolver_GroupInfoCached(t *testing.T) {
	inner := &countingResolver{
		infos: map[GroupID]GroupInfo{"EU": {ID: "EU", Name: "Europe"}},
	}
	cached := NewCachedResolver(inner, time.Minute)
	defer cached.Stop()

	ctx := context.Background()
	for range 4 {
		info, err := cached.GroupInfo(ctx, "EU")
		require.NoError(t, err)
		require.Equal(t, "Europe", info.Name)
	}
	require.Equal(t, 1, inner.infoCalls)

	// Unknown groups are cached too; the sentinel survives the cache.
	_, err := cached.GroupInfo(ctx, "NOPE")
	require.ErrorIs(t, err, ErrUnknownGroup)
	_, err = cached.GroupInfo(ctx, "NOPE")
	require.ErrorIs(t, err, ErrUnknownGroup)
	require.Equal(t, 2, inner.infoCalls)
}
