package workflow

import (
	"context"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

type cacheKey struct{}

// DefinitionCache memoizes stage and level lookups of workflow versions. It travels in a context.Context so every
// request or job decides on its own cache lifetime.
type DefinitionCache struct {
	c *cache.Cache
}

func NewDefinitionCache(expiration time.Duration) *DefinitionCache {
	return &DefinitionCache{c: cache.New(expiration, 2*expiration)}
}

func WithDefinitionCache(ctx context.Context, c *DefinitionCache) context.Context {
	return context.WithValue(ctx, cacheKey{}, c)
}

func DefinitionCacheFrom(ctx context.Context) *DefinitionCache {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(cacheKey{}).(*DefinitionCache)
	return c
}

func (d *DefinitionCache) Clear() {
	d.c.Flush()
}

func (d *DefinitionCache) ItemCount() int {
	return d.c.ItemCount()
}

func (d *DefinitionCache) forgetStages(versionID types.ID) {
	d.c.Delete("stages:" + versionID.String())
}

func (d *DefinitionCache) forgetLevels(stageID types.ID) {
	d.c.Delete("levels:" + stageID.String())
}

// CachedStages is FindStages served from the context cache when one is present.
func CachedStages(ctx context.Context, db *gorm.DB, versionID types.ID) ([]Stage, error) {
	d := DefinitionCacheFrom(ctx)
	key := "stages:" + versionID.String()
	if d != nil {
		if v, found := d.c.Get(key); found {
			return append([]Stage{}, v.([]Stage)...), nil
		}
	}
	stages, err := FindStages(db, versionID)
	if err != nil {
		return nil, err
	}
	if d != nil {
		d.c.SetDefault(key, append([]Stage{}, stages...))
	}
	return stages, nil
}

// CachedLevels is FindLevels served from the context cache when one is present.
func CachedLevels(ctx context.Context, db *gorm.DB, stageID types.ID) ([]ApprovalLevel, error) {
	d := DefinitionCacheFrom(ctx)
	key := "levels:" + stageID.String()
	if d != nil {
		if v, found := d.c.Get(key); found {
			return append([]ApprovalLevel{}, v.([]ApprovalLevel)...), nil
		}
	}
	levels, err := FindLevels(db, stageID)
	if err != nil {
		return nil, err
	}
	if d != nil {
		d.c.SetDefault(key, append([]ApprovalLevel{}, levels...))
	}
	return levels, nil
}
