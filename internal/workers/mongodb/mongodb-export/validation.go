package mongodbexport

import (
	"mongodb-connector/internal/common/errors"
	"mongodb-connector/internal/common/validation"
)

func ErrorCodes() []errors.ErrorCode {
	return []errors.ErrorCode{
		errors.ErrCodeInputParsingFailed,
		errors.ErrCodeValidationFailed,
		errors.ErrCodeItemLookupFailed,
		errors.ErrCodePromptItemInvalid,
		errors.ErrCodeAnnotationListFailed,
		errors.ErrCodeBestResponseNotFound,
		errors.ErrCodeInvalidItemName,
		errors.ErrCodeDatabaseConnectionFailed,
		errors.ErrCodeDocumentUpdateFailed,
	}
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"itemId", "username", "host", "dbName", "collection"},
		Properties: map[string]validation.Property{
			"itemId": {
				Type:        "string",
				Description: "Annotated prompt item",
				MinLength:   validation.IntPtr(1),
			},
			"itemName": {
				Type:        "string",
				Description: "Item name, <documentId>.json; fetched when omitted",
				Pattern:     validation.StringPtr(`^.{6,}$`),
			},
			"username": {
				Type:        "string",
				Description: "MongoDB user",
				MinLength:   validation.IntPtr(1),
			},
			"host": {
				Type:        "string",
				Description: "MongoDB SRV host",
				MinLength:   validation.IntPtr(1),
			},
			"dbName": {
				Type:        "string",
				Description: "Database holding the target collection",
				MinLength:   validation.IntPtr(1),
			},
			"collection": {
				Type:        "string",
				Description: "Collection to write the best response to",
				MinLength:   validation.IntPtr(1),
			},
		},
		AdditionalProperties: true,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"itemId":        {Type: "string", Description: "Exported item"},
			"documentId":    {Type: "string", Description: "Updated document _id (hex)"},
			"modelId":       {Type: "string", Description: "Model that produced the best response, empty for humans"},
			"modelName":     {Type: "string", Description: "Model name, \"human\" when unknown"},
			"matchedCount":  {Type: "integer", Description: "Documents matched by the update (0 or 1)"},
			"modifiedCount": {Type: "integer", Description: "Documents changed by the update (0 or 1)"},
		},
	}
}
