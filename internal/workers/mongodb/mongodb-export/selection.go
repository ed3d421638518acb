package mongodbexport

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/errors"
)

const itemNameSuffixLen = len(".json")

// BestResponse is what gets written back to the source document.
type BestResponse struct {
	AnnotationID string
	Response     interface{}
	ModelID      string
	Name         string
}

// SelectBestResponse returns the first annotation, in listing order, that
// is flagged isBest and answers promptKey. There is no tie-break between
// several flagged annotations. A first match with empty or unreadable
// coordinates ends the search without a result.
func SelectBestResponse(promptKey string, annotations []dataloop.Annotation) (*BestResponse, bool) {
	for _, a := range annotations {
		if !a.IsBest() || a.PromptID() != promptKey {
			continue
		}

		response, err := a.Response()
		if err != nil || response == nil {
			return nil, false
		}
		info := a.ModelInfo()
		return &BestResponse{
			AnnotationID: a.ID,
			Response:     response,
			ModelID:      info.ModelID,
			Name:         info.Name,
		}, true
	}
	return nil, false
}

// DocumentIDFromItemName drops the trailing ".json" the platform appends
// to uploaded prompt items and parses the rest as an ObjectID. The last
// five characters are removed whatever they are.
func DocumentIDFromItemName(name string) (primitive.ObjectID, error) {
	if len(name) <= itemNameSuffixLen {
		return primitive.NilObjectID, errors.NewInvalidItemNameError(name, nil)
	}
	oid, err := primitive.ObjectIDFromHex(name[:len(name)-itemNameSuffixLen])
	if err != nil {
		return primitive.NilObjectID, errors.NewInvalidItemNameError(name, err)
	}
	return oid, nil
}
