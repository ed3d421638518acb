package dataloop

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Dataset struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ItemsCount int    `json:"itemsCount,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

type Item struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Filename  string                 `json:"filename,omitempty"`
	DatasetID string                 `json:"datasetId,omitempty"`
	Dir       string                 `json:"dir,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Annotation is a candidate response attached to an item. Attributes are
// kept raw because the platform sends either an object or a legacy list.
type Annotation struct {
	ID          string             `json:"id"`
	ItemID      string             `json:"itemId,omitempty"`
	Type        string             `json:"type,omitempty"`
	Label       string             `json:"label,omitempty"`
	Coordinates json.RawMessage    `json:"coordinates,omitempty"`
	Attributes  json.RawMessage    `json:"attributes,omitempty"`
	Metadata    AnnotationMetadata `json:"metadata"`
}

type AnnotationMetadata struct {
	System map[string]interface{} `json:"system,omitempty"`
	User   map[string]interface{} `json:"user,omitempty"`
}

// ModelInfo is the provenance of a response.
type ModelInfo struct {
	ModelID string
	Name    string
}

const DefaultModelName = "human"

// IsBest reads the isBest attribute. Anything other than a JSON true under
// an attributes object counts as false.
func (a Annotation) IsBest() bool {
	if len(a.Attributes) == 0 {
		return false
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(a.Attributes, &attrs); err != nil {
		return false
	}
	v, ok := attrs["isBest"].(bool)
	return ok && v
}

// PromptID is the prompt key this annotation answers, or "" if unset.
func (a Annotation) PromptID() string {
	v, ok := a.Metadata.System["promptId"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ModelInfo reads metadata.user.model. The id is taken from "model_id",
// falling back to "id".
func (a Annotation) ModelInfo() ModelInfo {
	info := ModelInfo{Name: DefaultModelName}

	model, ok := a.Metadata.User["model"].(map[string]interface{})
	if !ok {
		return info
	}
	if id, ok := model["model_id"].(string); ok {
		info.ModelID = id
	} else if id, ok := model["id"].(string); ok {
		info.ModelID = id
	}
	if name, ok := model["name"].(string); ok {
		info.Name = name
	}
	return info
}

// Response decodes the annotation coordinates into plain Go values.
func (a Annotation) Response() (interface{}, error) {
	if len(a.Coordinates) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(a.Coordinates, &v); err != nil {
		return nil, fmt.Errorf("decode coordinates of annotation %s: %w", a.ID, err)
	}
	return v, nil
}

// ItemsResult is the raw upload response. The platform answers with a
// single item, an array, or a page object holding "items".
type ItemsResult struct {
	raw json.RawMessage
}

func NewItemsResult(raw []byte) ItemsResult {
	return ItemsResult{raw: raw}
}

// Items materializes the response into an ordered slice.
func (r ItemsResult) Items() ([]Item, error) {
	trimmed := bytes.TrimSpace(r.raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Item{}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode uploaded items: %w", err)
		}
		return items, nil
	case '{':
		var page struct {
			Items *[]Item `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &page); err == nil && page.Items != nil {
			return *page.Items, nil
		}
		var item Item
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, fmt.Errorf("decode uploaded item: %w", err)
		}
		return []Item{item}, nil
	default:
		return nil, fmt.Errorf("unexpected upload response: %.64s", trimmed)
	}
}
