package mongodbimport

import (
	"context"

	"mongodb-connector/internal/common/audit"
	"mongodb-connector/internal/common/database"
	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/logger"
	"mongodb-connector/internal/common/observability"
)

type Input struct {
	Username   string `json:"username"`
	Host       string `json:"host"`
	DBName     string `json:"dbName"`
	Collection string `json:"collection"`
	DatasetID  string `json:"datasetId"`
}

func (in *Input) Target() database.MongoTarget {
	return database.MongoTarget{
		Username:   in.Username,
		Host:       in.Host,
		Database:   in.DBName,
		Collection: in.Collection,
	}
}

// Output lists the uploaded items in the order the store returned them.
type Output struct {
	DatasetID string          `json:"datasetId"`
	Items     []dataloop.Item `json:"-"`
	ItemIDs   []string        `json:"itemIds"`
	ItemCount int             `json:"itemCount"`
}

// DatasetCache is satisfied by cache.DatasetCache.
type DatasetCache interface {
	Get(ctx context.Context, datasetID string) (*dataloop.Dataset, bool)
	Set(ctx context.Context, ds *dataloop.Dataset)
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Mongo         database.Provider
	Store         dataloop.Store
	Cache         DatasetCache
	Reporter      audit.Reporter
	Observability *observability.Observability
}
