package mongodbexport

import (
	"mongodb-connector/internal/common/audit"
	"mongodb-connector/internal/common/database"
	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/logger"
	"mongodb-connector/internal/common/observability"
)

// Input identifies the annotated item and the collection its source
// document lives in. ItemName is looked up when absent.
type Input struct {
	ItemID     string `json:"itemId"`
	ItemName   string `json:"itemName,omitempty"`
	Username   string `json:"username"`
	Host       string `json:"host"`
	DBName     string `json:"dbName"`
	Collection string `json:"collection"`
}

func (in *Input) Target() database.MongoTarget {
	return database.MongoTarget{
		Username:   in.Username,
		Host:       in.Host,
		Database:   in.DBName,
		Collection: in.Collection,
	}
}

// Output carries the item unchanged plus what was written for it.
type Output struct {
	Item          dataloop.Item `json:"item"`
	DocumentID    string        `json:"documentId"`
	ModelID       string        `json:"modelId"`
	ModelName     string        `json:"modelName"`
	MatchedCount  int64         `json:"matchedCount"`
	ModifiedCount int64         `json:"modifiedCount"`
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Mongo         database.Provider
	Store         dataloop.Store
	Reporter      audit.Reporter
	Observability *observability.Observability
}
