package mongodbexport

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
		reporter: deps.Reporter,
		obs:      deps.Observability,
	}
}

// Execute writes the item's best response back to the document it was
// imported from. When no annotation qualifies the miss is logged and
// reported as errors.ErrBestResponseNotFound with a nil output; the
// database is not touched.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	run := audit.NewRun(audit.OperationExport, input.Collection)
	run.ItemID = input.ItemID

	ctx, span := s.obs.StartSpan(ctx, "mongodb.export",
		attribute.String("mongodb.host", input.Host),
		attribute.String("mongodb.collection", input.Collection),
		attribute.String("item.id", input.ItemID),
	)

	output, err := s.execute(ctx, input)

	count := 0
	if output != nil {
		count = int(output.ModifiedCount)
		run.DatasetID = output.Item.DatasetID
	}
	recovered := errors.Is(err, errors.ErrBestResponseNotFound)
	if recovered {
		metrics.RecoveredFailures.WithLabelValues(audit.OperationExport, string(errors.ErrCodeBestResponseNotFound)).Inc()
	}
	run.Finish(count, err, recovered)
	observability.EndSpan(span, err)

	if s.reporter != nil {
		s.reporter.Report(context.WithoutCancel(ctx), *run)
	}
	return output, err
}

func (s *Service) execute(ctx context.Context, input *Input) (*Output, error) {
	s.logger.Info("Updating collection for item", map[string]interface{}{
		"collection": input.Collection,
		"itemId":     input.ItemID,
	})

	item, err := s.resolveItem(ctx, input)
	if err != nil {
		return nil, err
	}

	prompt, err := s.store.GetPromptItem(ctx, *item)
	if err != nil {
		if errors.Is(err, dataloop.ErrInvalidPromptItem) {
			return nil, errors.NewPromptItemInvalidError(item.ID, err.Error())
		}
		return nil, errors.NewItemLookupFailedError(item.ID, err)
	}
	promptKey, ok := prompt.FirstPromptKey()
	if !ok {
		return nil, errors.NewPromptItemInvalidError(item.ID, "prompt item has no prompts")
	}

	annotations, err := s.store.ListAnnotations(ctx, item.ID)
	if err != nil {
		return nil, errors.NewAnnotationListFailedError(item.ID, err)
	}

	best, ok := SelectBestResponse(promptKey, annotations)
	if !ok {
		s.logger.Error("No best response found for item", map[string]interface{}{
			"itemId":      item.ID,
			"promptKey":   promptKey,
			"annotations": len(annotations),
		})
		return nil, errors.NewBestResponseNotFoundError(item.ID)
	}

	docID, err := DocumentIDFromItemName(prompt.Name)
	if err != nil {
		return nil, err
	}

	var result *database.UpdateResult
	err = s.mongo.WithCollection(ctx, input.Target(), func(coll database.Collection) error {
		var uerr error
		result, uerr = coll.UpdateByID(ctx, docID, bson.M{
			"response": best.Response,
			"model_id": best.ModelID,
			"name":     best.Name,
		})
		return uerr
	})
	if err != nil {
		return nil, err
	}

	if result.MatchedCount == 0 {
		s.logger.Warn("No document matched item", map[string]interface{}{
			"itemId":     item.ID,
			"documentId": docID.Hex(),
			"collection": input.Collection,
		})
	}
	metrics.ResponsesExported.WithLabelValues(input.Collection).Add(float64(result.ModifiedCount))
	s.obs.RecordRecords(ctx, audit.OperationExport, int(result.ModifiedCount))

	s.logger.Info("Successfully updated collection for item", map[string]interface{}{
		"collection":    input.Collection,
		"itemId":        item.ID,
		"documentId":    docID.Hex(),
		"annotationId":  best.AnnotationID,
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
	})

	return &Output{
		Item:          *item,
		DocumentID:    docID.Hex(),
		ModelID:       best.ModelID,
		ModelName:     best.Name,
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
	}, nil
}

func (s *Service) resolveItem(ctx context.Context, input *Input) (*dataloop.Item, error) {
	if input.ItemName != "" {
		return &dataloop.Item{ID: input.ItemID, Name: input.ItemName}, nil
	}

	item, err := s.store.GetItem(ctx, input.ItemID)
	if err != nil {
		return nil, errors.NewItemLookupFailedError(input.ItemID, err)
	}
	return item, nil
}
