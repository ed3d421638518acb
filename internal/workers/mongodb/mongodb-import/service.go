package mongodbimport

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"

	"mongodb-connector/internal/common/audit"
	"mongodb-connector/internal/common/database"
	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/errors"
	"mongodb-connector/internal/common/logger"
	"mongodb-connector/internal/common/metrics"
	"mongodb-connector/internal/common/observability"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	mongo    database.Provider
	store    dataloop.Store
	cache    DatasetCache
	reporter audit.Reporter
	obs      *observability.Observability
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config:   config,
		logger:   log,
		mongo:    deps.Mongo,
		store:    deps.Store,
		cache:    deps.Cache,
		reporter: deps.Reporter,
		obs:      deps.Observability,
	}
}

// Execute copies every document of the collection into the dataset as a
// prompt item. A missing dataset is logged and reported as
// errors.ErrDatasetNotFound with a nil output; nothing is read or uploaded.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	run := audit.NewRun(audit.OperationImport, input.Collection)
	run.DatasetID = input.DatasetID

	ctx, span := s.obs.StartSpan(ctx, "mongodb.import",
		attribute.String("mongodb.host", input.Host),
		attribute.String("mongodb.collection", input.Collection),
		attribute.String("dataset.id", input.DatasetID),
	)

	output, err := s.execute(ctx, input)

	count := 0
	if output != nil {
		count = output.ItemCount
	}
	recovered := errors.Is(err, errors.ErrDatasetNotFound)
	if recovered {
		metrics.RecoveredFailures.WithLabelValues(audit.OperationImport, string(errors.ErrCodeDatasetNotFound)).Inc()
	}
	run.Finish(count, err, recovered)
	observability.EndSpan(span, err)

	if s.reporter != nil {
		s.reporter.Report(context.WithoutCancel(ctx), *run)
	}
	return output, err
}

func (s *Service) execute(ctx context.Context, input *Input) (*Output, error) {
	s.logger.Info("Creating table for dataset and collection", map[string]interface{}{
		"datasetId":  input.DatasetID,
		"collection": input.Collection,
	})

	dataset, err := s.resolveDataset(ctx, input.DatasetID)
	if err != nil {
		return nil, err
	}

	items, err := s.readPromptItems(ctx, input)
	if err != nil {
		return nil, err
	}
	metrics.DocumentsImported.WithLabelValues(input.Collection).Add(float64(len(items)))

	result, err := s.store.UploadItems(ctx, dataset.ID, items, s.config.Overwrite)
	if err != nil {
		return nil, errors.NewItemUploadFailedError(dataset.ID, err)
	}
	uploaded, err := result.Items()
	if err != nil {
		return nil, errors.NewItemUploadFailedError(dataset.ID, err)
	}

	metrics.ItemsUploaded.WithLabelValues(dataset.ID).Add(float64(len(uploaded)))
	s.obs.RecordRecords(ctx, audit.OperationImport, len(uploaded))

	s.logger.Info("Successfully uploaded items to dataset", map[string]interface{}{
		"datasetId": dataset.ID,
		"itemCount": len(uploaded),
	})

	ids := make([]string, len(uploaded))
	for i, item := range uploaded {
		ids[i] = item.ID
	}

	return &Output{
		DatasetID: dataset.ID,
		Items:     uploaded,
		ItemIDs:   ids,
		ItemCount: len(uploaded),
	}, nil
}

// resolveDataset consults the cache first. Only found datasets are cached.
func (s *Service) resolveDataset(ctx context.Context, datasetID string) (*dataloop.Dataset, error) {
	if s.cache != nil {
		if ds, ok := s.cache.Get(ctx, datasetID); ok {
			s.logger.Debug("Dataset resolved from cache", map[string]interface{}{"datasetId": datasetID})
			return ds, nil
		}
	}

	ds, err := s.store.GetDataset(ctx, datasetID)
	if err != nil {
		if errors.Is(err, dataloop.ErrNotFound) {
			s.logger.Error("Failed to get dataset", map[string]interface{}{
				"datasetId": datasetID,
				"error":     err.Error(),
			})
			return nil, errors.NewDatasetNotFoundError(datasetID)
		}
		return nil, errors.NewDatasetLookupFailedError(datasetID, err)
	}

	s.logger.Info("Successfully retrieved dataset", map[string]interface{}{"datasetId": datasetID})
	if s.cache != nil {
		s.cache.Set(ctx, ds)
	}
	return ds, nil
}

// readPromptItems buffers one prompt item per document. The connection is
// released before this returns, so the upload never holds it.
func (s *Service) readPromptItems(ctx context.Context, input *Input) ([]*dataloop.PromptItem, error) {
	items := []*dataloop.PromptItem{}

	err := s.mongo.WithCollection(ctx, input.Target(), func(coll database.Collection) error {
		return coll.ForEach(ctx, func(raw bson.Raw) error {
			item, err := BuildPromptItem(raw)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
