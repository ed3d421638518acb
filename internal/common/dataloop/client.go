package dataloop

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	commonhttp "mongodb-connector/internal/common/http"
)

// ErrNotFound is wrapped by every lookup that the platform answers with 404.
var ErrNotFound = stderrors.New("dataloop: not found")

// Store is the part of the platform API the pipelines use.
type Store interface {
	GetDataset(ctx context.Context, datasetID string) (*Dataset, error)
	UploadItems(ctx context.Context, datasetID string, items []*PromptItem, overwrite bool) (ItemsResult, error)
	GetItem(ctx context.Context, itemID string) (*Item, error)
	GetPromptItem(ctx context.Context, item Item) (*PromptItem, error)
	ListAnnotations(ctx context.Context, itemID string) ([]Annotation, error)
}

type Client struct {
	api *commonhttp.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{api: commonhttp.NewClient(baseURL, token, timeout)}
}

// NewClientWithAPI wraps an already configured HTTP client.
func NewClientWithAPI(api *commonhttp.Client) *Client {
	return &Client{api: api}
}

func (c *Client) GetDataset(ctx context.Context, datasetID string) (*Dataset, error) {
	body, err := c.get(ctx, "/datasets/"+url.PathEscape(datasetID))
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", datasetID, err)
	}

	var ds Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset %s: %w", datasetID, err)
	}
	return &ds, nil
}

// UploadItems sends every prompt item as one "<name>.json" file in a single
// multipart request.
func (c *Client) UploadItems(ctx context.Context, datasetID string, items []*PromptItem, overwrite bool) (ItemsResult, error) {
	if len(items) == 0 {
		return NewItemsResult(nil), nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("overwrite", fmt.Sprint(overwrite)); err != nil {
		return ItemsResult{}, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := mw.WriteField("remotePath", "/"); err != nil {
		return ItemsResult{}, fmt.Errorf("failed to write form field: %w", err)
	}

	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return ItemsResult{}, fmt.Errorf("failed to marshal prompt item %s: %w", item.Name, err)
		}
		part, err := mw.CreateFormFile("file", item.FileName())
		if err != nil {
			return ItemsResult{}, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return ItemsResult{}, fmt.Errorf("failed to write prompt item %s: %w", item.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return ItemsResult{}, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := c.api.NewRequest(ctx, http.MethodPost, "/datasets/"+url.PathEscape(datasetID)+"/items", &buf)
	if err != nil {
		return ItemsResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.api.Do(req)
	if err != nil {
		return ItemsResult{}, fmt.Errorf("upload items to dataset %s: %w", datasetID, err)
	}
	return NewItemsResult(body), nil
}

func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	body, err := c.get(ctx, "/items/"+url.PathEscape(itemID))
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item %s: %w", itemID, err)
	}
	return &item, nil
}

// GetPromptItem downloads the item's stored JSON and parses it as a prompt
// item named after the item.
func (c *Client) GetPromptItem(ctx context.Context, item Item) (*PromptItem, error) {
	body, err := c.get(ctx, "/items/"+url.PathEscape(item.ID)+"/stream")
	if err != nil {
		return nil, fmt.Errorf("download item %s: %w", item.ID, err)
	}
	return ParsePromptItem(item.Name, body)
}

func (c *Client) ListAnnotations(ctx context.Context, itemID string) ([]Annotation, error) {
	body, err := c.get(ctx, "/items/"+url.PathEscape(itemID)+"/annotations")
	if err != nil {
		return nil, fmt.Errorf("list annotations of item %s: %w", itemID, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Items []Annotation `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
		}
		return page.Items, nil
	}

	var annotations []Annotation
	if err := json.Unmarshal(trimmed, &annotations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
	}
	return annotations, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := c.api.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.api.Do(req)
	if err != nil {
		var status *commonhttp.StatusError
		if stderrors.As(err, &status) && status.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return body, nil
}
