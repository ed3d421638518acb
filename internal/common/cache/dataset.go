package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/logger"
)

const datasetKeyPrefix = "dataset:"

// DatasetCache keeps resolved datasets in Redis. Only found datasets are
// stored; a missing dataset is looked up again on every call.
type DatasetCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewDatasetCache(client *redis.Client, ttl time.Duration, log logger.Logger) *DatasetCache {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &DatasetCache{client: client, ttl: ttl, logger: log}
}

func DatasetKey(datasetID string) string {
	return datasetKeyPrefix + datasetID
}

// Get returns the cached dataset. Misses and cache errors both report
// ok=false; errors are logged and never surfaced.
func (c *DatasetCache) Get(ctx context.Context, datasetID string) (*dataloop.Dataset, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	val, err := c.client.Get(ctx, DatasetKey(datasetID)).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			c.logger.Warn("Dataset cache read failed", map[string]interface{}{
				"datasetId": datasetID,
				"error":     err.Error(),
			})
		}
		return nil, false
	}

	var ds dataloop.Dataset
	if err := json.Unmarshal([]byte(val), &ds); err != nil {
		c.logger.Warn("Discarding malformed dataset cache entry", map[string]interface{}{
			"datasetId": datasetID,
			"error":     err.Error(),
		})
		return nil, false
	}
	return &ds, true
}

func (c *DatasetCache) Set(ctx context.Context, ds *dataloop.Dataset) {
	if c == nil || c.client == nil || ds == nil {
		return
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, DatasetKey(ds.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Dataset cache write failed", map[string]interface{}{
			"datasetId": ds.ID,
			"error":     err.Error(),
		})
	}
}
