package mongodbimport

import (
	"mongodb-connector/internal/common/errors"
	"mongodb-connector/internal/common/validation"
)

// ErrorCodes lists the codes a failed import job can carry.
func ErrorCodes() []errors.ErrorCode {
	return []errors.ErrorCode{
		errors.ErrCodeInputParsingFailed,
		errors.ErrCodeValidationFailed,
		errors.ErrCodeDatasetNotFound,
		errors.ErrCodeDatasetLookupFailed,
		errors.ErrCodeDatabaseConnectionFailed,
		errors.ErrCodeDocumentReadFailed,
		errors.ErrCodeDocumentMalformed,
		errors.ErrCodeItemUploadFailed,
	}
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"username", "host", "dbName", "collection", "datasetId"},
		Properties: map[string]validation.Property{
			"username": {
				Type:        "string",
				Description: "MongoDB user",
				MinLength:   validation.IntPtr(1),
			},
			"host": {
				Type:        "string",
				Description: "MongoDB SRV host, e.g. cluster0.abcde.mongodb.net",
				MinLength:   validation.IntPtr(1),
			},
			"dbName": {
				Type:        "string",
				Description: "Database holding the source collection",
				MinLength:   validation.IntPtr(1),
			},
			"collection": {
				Type:        "string",
				Description: "Collection to import",
				MinLength:   validation.IntPtr(1),
			},
			"datasetId": {
				Type:        "string",
				Description: "Destination dataset",
				MinLength:   validation.IntPtr(1),
			},
		},
		// Zeebe hands every process variable to the job.
		AdditionalProperties: true,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"datasetId": {
				Type:        "string",
				Description: "Dataset the items were uploaded to",
			},
			"itemIds": {
				Type:        "array",
				Description: "IDs of the uploaded items in upload order",
				Items:       &validation.Property{Type: "string"},
			},
			"itemCount": {
				Type:        "integer",
				Description: "Number of uploaded items",
			},
		},
	}
}
