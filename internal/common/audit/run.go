package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mongodb-connector/internal/common/errors"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusRecovered marks a run that ended in a logged, non-propagated
	// failure such as a missing dataset.
	StatusRecovered Status = "recovered"
	StatusFailed    Status = "failed"
)

const (
	OperationImport = "import"
	OperationExport = "export"
)

// Run is one execution of a pipeline.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Operation  string    `json:"operation"`
	DatasetID  string    `json:"datasetId,omitempty"`
	Collection string    `json:"collection"`
	ItemID     string    `json:"itemId,omitempty"`
	Status     Status    `json:"status"`
	ItemCount  int       `json:"itemCount"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func NewRun(operation, collection string) *Run {
	return &Run{
		ID:         uuid.New(),
		Operation:  operation,
		Collection: collection,
		StartedAt:  time.Now().UTC(),
	}
}

// Finish stamps the outcome. recovered distinguishes logged failures that
// are not returned to the caller as hard errors.
func (r *Run) Finish(itemCount int, err error, recovered bool) {
	r.FinishedAt = time.Now().UTC()
	r.ItemCount = itemCount

	switch {
	case err == nil:
		r.Status = StatusSucceeded
	case recovered:
		r.Status = StatusRecovered
		r.ErrorCode = string(errors.Normalize(err).Code)
	default:
		r.Status = StatusFailed
		r.ErrorCode = string(errors.Normalize(err).Code)
	}
}

func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Reporter receives finished runs. Implementations must not fail the run;
// they log their own errors.
type Reporter interface {
	Report(ctx context.Context, run Run)
}

// Reporters fans a run out to every non-nil reporter in order.
type Reporters []Reporter

func (rs Reporters) Report(ctx context.Context, run Run) {
	for _, r := range rs {
		if r != nil {
			r.Report(ctx, run)
		}
	}
}
