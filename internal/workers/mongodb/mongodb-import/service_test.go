package mongodbimport

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mongodb-connector/internal/common/audit"
	"mongodb-connector/internal/common/database"
	"mongodb-connector/internal/common/dataloop"
	"mongodb-connector/internal/common/errors"
	"mongodb-connector/internal/common/logger"
)

// ==========================
// Fakes
// ==========================

type fakeCollection struct {
	docs    []bson.Raw
	readErr error
}

func (c *fakeCollection) ForEach(_ context.Context, fn func(raw bson.Raw) error) error {
	for _, d := range c.docs {
		if err := fn(d); err != nil {
			return err
		}
	}
	return c.readErr
}

func (c *fakeCollection) UpdateByID(context.Context, interface{}, bson.M) (*database.UpdateResult, error) {
	return nil, stderrors.New("not used by import")
}

type fakeProvider struct {
	coll       *fakeCollection
	connectErr error
	calls      int
	open       bool
	target     database.MongoTarget
}

func (p *fakeProvider) WithCollection(_ context.Context, target database.MongoTarget, fn func(database.Collection) error) error {
	p.calls++
	p.target = target
	if p.connectErr != nil {
		return p.connectErr
	}
	p.open = true
	defer func() { p.open = false }()
	return fn(p.coll)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetDataset(ctx context.Context, datasetID string) (*dataloop.Dataset, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataloop.Dataset), args.Error(1)
}

func (m *MockStore) UploadItems(ctx context.Context, datasetID string, items []*dataloop.PromptItem, overwrite bool) (dataloop.ItemsResult, error) {
	args := m.Called(ctx, datasetID, items, overwrite)
	return args.Get(0).(dataloop.ItemsResult), args.Error(1)
}

func (m *MockStore) GetItem(ctx context.Context, itemID string) (*dataloop.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataloop.Item), args.Error(1)
}

func (m *MockStore) GetPromptItem(ctx context.Context, item dataloop.Item) (*dataloop.PromptItem, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataloop.PromptItem), args.Error(1)
}

func (m *MockStore) ListAnnotations(ctx context.Context, itemID string) ([]dataloop.Annotation, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dataloop.Annotation), args.Error(1)
}

type mapCache struct {
	entries map[string]*dataloop.Dataset
	sets    int
}

func (c *mapCache) Get(_ context.Context, id string) (*dataloop.Dataset, bool) {
	ds, ok := c.entries[id]
	return ds, ok
}

func (c *mapCache) Set(_ context.Context, ds *dataloop.Dataset) {
	c.sets++
	c.entries[ds.ID] = ds
}

type recordingReporter struct {
	runs []audit.Run
}

func (r *recordingReporter) Report(_ context.Context, run audit.Run) {
	r.runs = append(r.runs, run)
}

// ==========================
// Helpers
// ==========================

func doc(t *testing.T, d bson.D) bson.Raw {
	t.Helper()
	data, err := bson.Marshal(d)
	require.NoError(t, err)
	return bson.Raw(data)
}

func createInput() *Input {
	return &Input{
		Username:   "reader",
		Host:       "cluster0.example.mongodb.net",
		DBName:     "llm",
		Collection: "prompts",
		DatasetID:  "ds-1",
	}
}

type fixture struct {
	provider *fakeProvider
	store    *MockStore
	reporter *recordingReporter
	service  *Service
}

func newFixture(t *testing.T, docs ...bson.Raw) *fixture {
	f := &fixture{
		provider: &fakeProvider{coll: &fakeCollection{docs: docs}},
		store:    &MockStore{},
		reporter: &recordingReporter{},
	}
	f.service = NewService(ServiceDependencies{
		Logger:   logger.NewTestLogger(t),
		Mongo:    f.provider,
		Store:    f.store,
		Reporter: f.reporter,
	}, DefaultConfig())
	return f
}

func itemsJSON(ids ...string) []byte {
	out := "["
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"id": %q, "name": "%s.json"}`, "item-"+id, id)
	}
	return []byte(out + "]")
}

// ==========================
// Tests
// ==========================

func TestService_Execute_SingleDocument(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)

	f := newFixture(t, doc(t, bson.D{{Key: "_id", Value: oid}, {Key: "prompt", Value: "Hello"}}))
	f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1", Name: "prompts"}, nil)
	f.store.On("UploadItems", mock.Anything, "ds-1", mock.Anything, true).
		Run(func(args mock.Arguments) {
			assert.False(t, f.provider.open, "connection must be released before upload")

			items := args.Get(2).([]*dataloop.PromptItem)
			require.Len(t, items, 1)
			assert.Equal(t, "507f1f77bcf86cd799439011", items[0].Name)
			require.Len(t, items[0].Prompts, 1)
			assert.Equal(t, dataloop.RoleUser, items[0].Prompts[0].Role)
			assert.Equal(t, []dataloop.Content{{Mimetype: "application/text", Value: "Hello"}}, items[0].Prompts[0].Elements)
		}).
		Return(dataloop.NewItemsResult([]byte(`{"id": "item-1", "name": "507f1f77bcf86cd799439011.json"}`)), nil)

	output, err := f.service.Execute(context.Background(), createInput())
	require.NoError(t, err)
	require.NotNil(t, output)

	assert.Equal(t, 1, output.ItemCount)
	assert.Equal(t, []string{"item-1"}, output.ItemIDs)
	assert.Equal(t, "ds-1", output.DatasetID)
	assert.Equal(t, 1, f.provider.calls)
	assert.Equal(t, "prompts", f.provider.target.Collection)

	require.Len(t, f.reporter.runs, 1)
	assert.Equal(t, audit.StatusSucceeded, f.reporter.runs[0].Status)
	assert.Equal(t, 1, f.reporter.runs[0].ItemCount)
	f.store.AssertExpectations(t)
}

func TestService_Execute_CountMatchesDocuments(t *testing.T) {
	docs := []bson.Raw{
		doc(t, bson.D{{Key: "_id", Value: "a"}, {Key: "prompt", Value: "one"}}),
		doc(t, bson.D{{Key: "_id", Value: "b"}, {Key: "prompt", Value: "two"}}),
		doc(t, bson.D{{Key: "_id", Value: "c"}, {Key: "prompt", Value: "three"}}),
	}
	f := newFixture(t, docs...)
	f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
	f.store.On("UploadItems", mock.Anything, "ds-1", mock.MatchedBy(func(items []*dataloop.PromptItem) bool {
		return len(items) == 3 && items[0].Name == "a" && items[1].Name == "b" && items[2].Name == "c"
	}), true).Return(dataloop.NewItemsResult(itemsJSON("a", "b", "c")), nil)

	output, err := f.service.Execute(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, 3, output.ItemCount)
	assert.Equal(t, []string{"item-a", "item-b", "item-c"}, output.ItemIDs)
	f.store.AssertExpectations(t)
}

func TestService_Execute_EmptyCollection(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
	f.store.On("UploadItems", mock.Anything, "ds-1", []*dataloop.PromptItem{}, true).
		Return(dataloop.NewItemsResult(nil), nil)

	output, err := f.service.Execute(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, 0, output.ItemCount)
	assert.Empty(t, output.ItemIDs)
}

func TestService_Execute_DatasetNotFound(t *testing.T) {
	f := newFixture(t, doc(t, bson.D{{Key: "_id", Value: "a"}, {Key: "prompt", Value: "one"}}))
	f.store.On("GetDataset", mock.Anything, "ds-1").
		Return(nil, fmt.Errorf("get dataset ds-1: %w", dataloop.ErrNotFound))

	output, err := f.service.Execute(context.Background(), createInput())

	assert.Nil(t, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDatasetNotFound))
	assert.Equal(t, 0, f.provider.calls, "collection must not be read")
	f.store.AssertNotCalled(t, "UploadItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	require.Len(t, f.reporter.runs, 1)
	assert.Equal(t, audit.StatusRecovered, f.reporter.runs[0].Status)
	assert.Equal(t, "DATASET_NOT_FOUND", f.reporter.runs[0].ErrorCode)
}

func TestService_Execute_Failures(t *testing.T) {
	noPrompt := doc(t, bson.D{{Key: "_id", Value: "x"}})

	tests := []struct {
		name         string
		setup        func(f *fixture)
		expectedCode errors.ErrorCode
		uploads      bool
	}{
		{
			name: "dataset lookup fails",
			setup: func(f *fixture) {
				f.store.On("GetDataset", mock.Anything, "ds-1").Return(nil, stderrors.New("status 500"))
			},
			expectedCode: errors.ErrCodeDatasetLookupFailed,
		},
		{
			name: "connection fails",
			setup: func(f *fixture) {
				f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
				f.provider.connectErr = errors.NewDatabaseConnectionFailedError(stderrors.New("auth failed"))
			},
			expectedCode: errors.ErrCodeDatabaseConnectionFailed,
		},
		{
			name: "cursor fails",
			setup: func(f *fixture) {
				f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
				f.provider.coll.readErr = errors.NewDocumentReadFailedError("prompts", stderrors.New("cursor killed"))
			},
			expectedCode: errors.ErrCodeDocumentReadFailed,
		},
		{
			name: "document without prompt",
			setup: func(f *fixture) {
				f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
				f.provider.coll.docs = append(f.provider.coll.docs, noPrompt)
			},
			expectedCode: errors.ErrCodeDocumentMalformed,
		},
		{
			name: "upload fails",
			setup: func(f *fixture) {
				f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
				f.store.On("UploadItems", mock.Anything, "ds-1", mock.Anything, true).
					Return(dataloop.ItemsResult{}, stderrors.New("status 502"))
			},
			expectedCode: errors.ErrCodeItemUploadFailed,
			uploads:      true,
		},
		{
			name: "upload response unreadable",
			setup: func(f *fixture) {
				f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil)
				f.store.On("UploadItems", mock.Anything, "ds-1", mock.Anything, true).
					Return(dataloop.NewItemsResult([]byte(`"ok"`)), nil)
			},
			expectedCode: errors.ErrCodeItemUploadFailed,
			uploads:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, doc(t, bson.D{{Key: "_id", Value: "a"}, {Key: "prompt", Value: "one"}}))
			tt.setup(f)

			output, err := f.service.Execute(context.Background(), createInput())

			assert.Nil(t, output)
			require.Error(t, err)
			assert.Equal(t, tt.expectedCode, errors.Normalize(err).Code)
			assert.False(t, errors.Is(err, errors.ErrDatasetNotFound))
			if !tt.uploads {
				f.store.AssertNotCalled(t, "UploadItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}

			require.Len(t, f.reporter.runs, 1)
			assert.Equal(t, audit.StatusFailed, f.reporter.runs[0].Status)
			assert.Equal(t, string(tt.expectedCode), f.reporter.runs[0].ErrorCode)
		})
	}
}

func TestService_Execute_DatasetCache(t *testing.T) {
	cache := &mapCache{entries: map[string]*dataloop.Dataset{}}

	f := newFixture(t)
	f.service.cache = cache
	f.store.On("GetDataset", mock.Anything, "ds-1").Return(&dataloop.Dataset{ID: "ds-1"}, nil).Once()
	f.store.On("UploadItems", mock.Anything, "ds-1", mock.Anything, true).Return(dataloop.NewItemsResult(nil), nil)

	_, err := f.service.Execute(context.Background(), createInput())
	require.NoError(t, err)
	_, err = f.service.Execute(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, 1, cache.sets)
	f.store.AssertNumberOfCalls(t, "GetDataset", 1)
}

func TestService_Execute_MissingDatasetIsNotCached(t *testing.T) {
	cache := &mapCache{entries: map[string]*dataloop.Dataset{}}

	f := newFixture(t)
	f.service.cache = cache
	f.store.On("GetDataset", mock.Anything, "ds-1").Return(nil, dataloop.ErrNotFound)

	for i := 0; i < 2; i++ {
		_, err := f.service.Execute(context.Background(), createInput())
		assert.True(t, errors.Is(err, errors.ErrDatasetNotFound))
	}

	assert.Equal(t, 0, cache.sets)
	f.store.AssertNumberOfCalls(t, "GetDataset", 2)
}
