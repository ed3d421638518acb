package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mongodb-connector/internal/common/config"
	"mongodb-connector/internal/common/errors"
	"mongodb-connector/internal/common/logger"
)

// MongoTarget names the server and collection a unit of work operates on.
type MongoTarget struct {
	Username   string
	Host       string
	Database   string
	Collection string
}

func (t MongoTarget) Validate() error {
	switch {
	case t.Username == "":
		return errors.NewValidationError("username is required")
	case t.Host == "":
		return errors.NewValidationError("host is required")
	case t.Database == "":
		return errors.NewValidationError("database name is required")
	case t.Collection == "":
		return errors.NewValidationError("collection is required")
	}
	return nil
}

// UpdateResult reports how many documents an update matched and changed.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// Collection is the slice of the driver the pipelines need.
type Collection interface {
	// ForEach walks every document in natural cursor order, unfiltered.
	// fn must not retain raw after it returns.
	ForEach(ctx context.Context, fn func(raw bson.Raw) error) error
	// UpdateByID applies $set to at most one document. It never upserts.
	UpdateByID(ctx context.Context, id interface{}, set bson.M) (*UpdateResult, error)
}

// Provider scopes a unit of work to one collection.
type Provider interface {
	WithCollection(ctx context.Context, target MongoTarget, fn func(Collection) error) error
}

// Connector opens a driver client for a connection URI.
type Connector func(ctx context.Context, uri string) (*mongo.Client, error)

// MongoProvider hands out scoped collection handles. It holds no connection
// between calls.
type MongoProvider struct {
	password               string
	connectTimeout         time.Duration
	serverSelectionTimeout time.Duration
	connect                Connector
	logger                 logger.Logger
}

// NewMongoProvider fails fast when the password is missing instead of
// letting the driver surface an authentication error later.
func NewMongoProvider(cfg config.MongoDBConfig, log logger.Logger) (*MongoProvider, error) {
	if cfg.Password == "" {
		return nil, errors.NewConfigurationError("mongodb password is not set")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	p := &MongoProvider{
		password:               cfg.Password,
		connectTimeout:         config.GetDuration(cfg.ConnectTimeout),
		serverSelectionTimeout: config.GetDuration(cfg.ServerSelectionTimeout),
		logger:                 log.WithFields(map[string]interface{}{"component": "mongodb"}),
	}
	p.connect = p.dial
	return p, nil
}

// WithConnector replaces the driver entry point.
func (p *MongoProvider) WithConnector(connect Connector) *MongoProvider {
	p.connect = connect
	return p
}

// ConnectionURI renders the SRV connection string. retryWrites and the
// majority write concern are fixed.
func (p *MongoProvider) ConnectionURI(target MongoTarget) string {
	return fmt.Sprintf(
		"mongodb+srv://%s:%s@%s/%s?retryWrites=true&w=majority",
		url.QueryEscape(target.Username),
		url.QueryEscape(p.password),
		target.Host,
		target.Database,
	)
}

func (p *MongoProvider) dial(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	if p.connectTimeout > 0 {
		opts.SetConnectTimeout(p.connectTimeout)
	}
	if p.serverSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(p.serverSelectionTimeout)
	}
	return mongo.Connect(ctx, opts)
}

// WithCollection connects, runs fn against the target collection and
// disconnects on every exit path, including a panic in fn.
func (p *MongoProvider) WithCollection(ctx context.Context, target MongoTarget, fn func(Collection) error) error {
	if err := target.Validate(); err != nil {
		return err
	}

	p.logger.Info("Executing query on server", map[string]interface{}{
		"host":       target.Host,
		"collection": target.Collection,
	})

	client, err := p.connect(ctx, p.ConnectionURI(target))
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer func() {
		// ctx may already be cancelled; disconnect on a fresh deadline.
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if derr := client.Disconnect(dctx); derr != nil {
			p.logger.Warn("Failed to disconnect from MongoDB", map[string]interface{}{
				"host":  target.Host,
				"error": derr.Error(),
			})
		}
	}()

	coll := client.Database(target.Database).Collection(target.Collection)
	return fn(NewCollection(coll))
}

type mongoCollection struct {
	coll *mongo.Collection
}

// NewCollection adapts a driver collection.
func NewCollection(coll *mongo.Collection) Collection {
	return &mongoCollection{coll: coll}
}

func (c *mongoCollection) ForEach(ctx context.Context, fn func(raw bson.Raw) error) error {
	cursor, err := c.coll.Find(ctx, bson.D{})
	if err != nil {
		return errors.NewDocumentReadFailedError(c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		if err := fn(cursor.Current); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return errors.NewDocumentReadFailedError(c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) UpdateByID(ctx context.Context, id interface{}, set bson.M) (*UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, errors.NewDocumentUpdateFailedError(fmt.Sprint(id), err)
	}
	return &UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}
