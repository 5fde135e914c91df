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
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheTTL is the lookup cache TTL used when the caller does not
// specify one.
const DefaultCacheTTL = 5 * time.Minute

type lookupCacheValue struct {
	groups []GroupID
	err    error
}

type infoCacheValue struct {
	info GroupInfo
	err  error
}

// CachedResolver memoizes lookups against an inner resolver. Repeated key
// values in the input (the common case for a city column) hit the cache
// instead of the backing service.
type CachedResolver struct {
	inner       Resolver
	lookupCache *ttlcache.Cache[string, lookupCacheValue]
	infoCache   *ttlcache.Cache[GroupID, infoCacheValue]
}

var _ Resolver = (*CachedResolver)(nil)

// NewCachedResolver wraps inner with TTL caches for both lookup paths.
// A non-positive ttl uses DefaultCacheTTL.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedResolver{
		inner: inner,
		lookupCache: ttlcache.New(
			ttlcache.WithTTL[string, lookupCacheValue](ttl),
		),
		infoCache: ttlcache.New(
			ttlcache.WithTTL[GroupID, infoCacheValue](ttl),
		),
	}
}

func (r *CachedResolver) Initialize(ctx context.Context) error {
	return r.inner.Initialize(ctx)
}

func (r *CachedResolver) GroupsForKey(ctx context.Context, key string) ([]GroupID, error) {
	lookupCallsCounter.Add(ctx, 1)

	loader := ttlcache.LoaderFunc[string, lookupCacheValue](
		func(cache *ttlcache.Cache[string, lookupCacheValue], k string) *ttlcache.Item[string, lookupCacheValue] {
			groups, err := r.inner.GroupsForKey(ctx, k)
			if err != nil {
				// Errors are not cached; the next row retries the lookup.
				lookupErrorsCounter.Add(ctx, 1)
				return nil
			}
			lookupMissesCounter.Add(ctx, 1)
			return cache.Set(k, lookupCacheValue{groups: groups}, ttlcache.DefaultTTL)
		},
	)

	v := r.lookupCache.Get(key, ttlcache.WithLoader(loader))
	if v == nil {
		// Loader declined to cache: surface the inner error directly.
		groups, err := r.inner.GroupsForKey(ctx, key)
		if err != nil {
			return nil, err
		}
		return groups, nil
	}
	return v.Value().groups, v.Value().err
}

func (r *CachedResolver) GroupInfo(ctx context.Context, id GroupID) (GroupInfo, error) {
	loader := ttlcache.LoaderFunc[GroupID, infoCacheValue](
		func(cache *ttlcache.Cache[GroupID, infoCacheValue], k GroupID) *ttlcache.Item[GroupID, infoCacheValue] {
			info, err := r.inner.GroupInfo(ctx, k)
			if err != nil && !errors.Is(err, ErrUnknownGroup) {
				return nil
			}
			return cache.Set(k, infoCacheValue{info: info, err: err}, ttlcache.DefaultTTL)
		},
	)

	v := r.infoCache.Get(id, ttlcache.WithLoader(loader))
	if v == nil {
		return r.inner.GroupInfo(ctx, id)
	}
	return v.Value().info, v.Value().err
}

// Stop releases the cache janitor goroutines. Optional; caches created
// without Start never spawn them.
func (r *CachedResolver) Stop() {
	r.lookupCache.Stop()
	r.infoCache.Stop()
}
