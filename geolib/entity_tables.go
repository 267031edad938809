package geolib

import (
	"context"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
)

// MemoryEntityTable is an EntityTable which keeps all entities in
// memory. It must not be modified after it was given to a snapshot.
type MemoryEntityTable map[int64]LocationEntity

func (m MemoryEntityTable) Lookup(_ context.Context, geonameID int64) (LocationEntity, bool, error) {
	entity, ok := m[geonameID]

	return entity, ok, nil
}

type cachedEntity struct {
	entity LocationEntity
	found  bool
}

// CachingEntityTable is an EntityTable which keeps results of another
// table in ristretto cache. It can be shared by many snapshots. Close
// stops background goroutines of the cache.
type CachingEntityTable struct {
	EntityTable

	cache *ristretto.Cache
	ttl   time.Duration
}

func (c *CachingEntityTable) Lookup(ctx context.Context, geonameID int64) (LocationEntity, bool, error) {
	cacheKey := strconv.FormatInt(geonameID, 10)

	if value, ok := c.cache.Get(cacheKey); ok {
		cached := value.(cachedEntity)

		return cached.entity, cached.found, nil
	}

	entity, found, err := c.EntityTable.Lookup(ctx, geonameID)
	if err != nil {
		return LocationEntity{}, false, err
	}

	c.cache.SetWithTTL(cacheKey, cachedEntity{entity: entity, found: found}, 1, c.ttl)

	return entity, found, nil
}

func (c *CachingEntityTable) Close() error {
	c.cache.Close()

	return nil
}

// NewCachingEntityTable wraps a slow entity table (usually one which
// goes to a database on each lookup) with in-memory cache. Absent
// entities are cached as well. Errors are not cached.
func NewCachingEntityTable(table EntityTable, itemsCount uint, ttl time.Duration) *CachingEntityTable {
	cacheConfig := &ristretto.Config{
		MaxCost:     int64(itemsCount),
		NumCounters: 10 * int64(itemsCount),
		Metrics:     false,
		BufferItems: 64,
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		panic(err)
	}

	return &CachingEntityTable{
		EntityTable: table,
		cache:       cache,
		ttl:         ttl,
	}
}
