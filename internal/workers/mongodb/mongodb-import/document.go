package mongodbimport

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/errors"
)

// BuildPromptItem maps one source document to a prompt item named after its
// _id, holding the document's prompt as a single user text message.
func BuildPromptItem(raw bson.Raw) (*dataloop.PromptItem, error) {
	idVal, err := raw.LookupErr("_id")
	if err != nil {
		return nil, errors.NewDocumentMalformedError("document has no _id")
	}
	name := DocumentName(idVal)

	promptVal, err := raw.LookupErr("prompt")
	if err != nil {
		return nil, errors.NewDocumentMalformedError(fmt.Sprintf("document %s has no prompt field", name))
	}
	prompt, ok := promptVal.StringValueOK()
	if !ok {
		return nil, errors.NewDocumentMalformedError(
			fmt.Sprintf("prompt of document %s is %s, not a string", name, promptVal.Type))
	}

	item := dataloop.NewPromptItem(name)
	err = item.Add(dataloop.Message{
		Role: dataloop.RoleUser,
		Content: []dataloop.Content{{
			Mimetype: dataloop.PromptTypeText,
			Value:    prompt,
		}},
	})
	if err != nil {
		return nil, errors.NewDocumentMalformedError(err.Error())
	}
	return item, nil
}

// DocumentName renders an _id the way it is printed: hex for ObjectIDs,
// verbatim for strings.
func DocumentName(id bson.RawValue) string {
	if oid, ok := id.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := id.StringValueOK(); ok {
		return s
	}
	if i, ok := id.Int32OK(); ok {
		return fmt.Sprint(i)
	}
	if i, ok := id.Int64OK(); ok {
		return fmt.Sprint(i)
	}
	if f, ok := id.DoubleOK(); ok {
		return fmt.Sprint(f)
	}
	return id.String()
}
