package mongodbimport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"mongodb-connector/internal/common/config"
	"mongodb-connector/internal/common/errors"
	"mongodb-connector/internal/common/logger"
)

// ==========================
// Mock Service Implementation
// ==========================

type MockService struct {
	mock.Mock
}

func (m *MockService) Execute(ctx context.Context, input *Input) (*Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Output), args.Error(1)
}

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "mongodb-sync",
		ElementId:          "Activity_MongoDBImport",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func validVariables() map[string]interface{} {
	return map[string]interface{}{
		"username":   "reader",
		"host":       "cluster0.example.mongodb.net",
		"dbName":     "llm",
		"collection": "prompts",
		"datasetId":  "ds-1",
	}
}

func createTestHandler(t *testing.T, svc executor) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Logger:       logger.NewTestLogger(t),
		Dependencies: ServiceDependencies{
			Mongo: &fakeProvider{coll: &fakeCollection{}},
			Store: &MockStore{},
		},
	})
	require.NoError(t, err)
	if svc != nil {
		h.service = svc
	}
	return h
}

// ==========================
// Fake Zeebe gateway
// ==========================

type fakeGateway struct {
	pb.GatewayClient
	completed *pb.CompleteJobRequest
	failed    *pb.FailJobRequest
	thrown    *pb.ThrowErrorRequest
}

func (g *fakeGateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.completed = in
	return &pb.CompleteJobResponse{}, nil
}

func (g *fakeGateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.failed = in
	return &pb.FailJobResponse{}, nil
}

func (g *fakeGateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.thrown = in
	return &pb.ThrowErrorResponse{}, nil
}

type fakeJobClient struct {
	gateway *fakeGateway
}

func noRetry(context.Context, error) bool { return false }

func (c fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}

// ==========================
// Tests
// ==========================

func TestNewHandler(t *testing.T) {
	t.Run("requires dependencies", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{Logger: logger.NewTestLogger(t)})
		assert.Error(t, err)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{
			CustomConfig: &Config{Enabled: true, MaxJobsActive: 0, Timeout: time.Second},
			Logger:       logger.NewTestLogger(t),
			Dependencies: ServiceDependencies{Mongo: &fakeProvider{}, Store: &MockStore{}},
		})
		assert.Error(t, err)
	})

	t.Run("builds from app config", func(t *testing.T) {
		h, err := NewHandler(HandlerOptions{
			AppConfig: &config.Config{Workers: map[string]config.WorkerConfig{
				ConfigKey: {Enabled: false, MaxJobsActive: 7, Timeout: 90000},
			}},
			Logger:       logger.NewTestLogger(t),
			Dependencies: ServiceDependencies{Mongo: &fakeProvider{}, Store: &MockStore{}},
		})
		require.NoError(t, err)

		assert.False(t, h.IsEnabled())
		assert.Equal(t, 7, h.GetConfig().MaxJobsActive)
		assert.Equal(t, 90*time.Second, h.GetConfig().Timeout)
		assert.True(t, h.GetConfig().Overwrite)
		assert.Equal(t, "mongodb.dataset.import", h.GetTaskType())
		assert.NoError(t, h.Register(), "disabled workers register as a no-op")
	})
}

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, nil)

	t.Run("valid", func(t *testing.T) {
		vars := validVariables()
		vars["unrelatedProcessVariable"] = 12
		input, err := h.parseInput(createMockJob(1, vars))
		require.NoError(t, err)
		assert.Equal(t, createInput(), input)
	})

	for _, field := range []string{"username", "host", "dbName", "collection", "datasetId"} {
		field := field
		t.Run("missing "+field, func(t *testing.T) {
			vars := validVariables()
			delete(vars, field)

			_, err := h.parseInput(createMockJob(2, vars))
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeValidationFailed, errors.Normalize(err).Code)
			assert.Contains(t, err.Error(), field)
		})
	}

	t.Run("wrong type", func(t *testing.T) {
		vars := validVariables()
		vars["collection"] = 5
		_, err := h.parseInput(createMockJob(3, vars))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeValidationFailed, errors.Normalize(err).Code)
	})

	t.Run("unparseable variables", func(t *testing.T) {
		job := createMockJob(4, nil)
		job.Variables = "{not json"
		_, err := h.parseInput(job)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInputParsingFailed, errors.Normalize(err).Code)
	})
}

func TestHandler_Execute(t *testing.T) {
	svc := &MockService{}
	h := createTestHandler(t, svc)
	input := createInput()

	svc.On("Execute", mock.Anything, input).Return(&Output{
		DatasetID: "ds-1",
		ItemIDs:   []string{"item-1"},
		ItemCount: 1,
	}, nil).Once()
	svc.On("Execute", mock.Anything, input).Return(nil, errors.NewDatasetNotFoundError("ds-1")).Once()

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, output.ItemCount)

	output, err = h.Execute(context.Background(), input)
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, errors.ErrDatasetNotFound))

	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, 0, bpmn.Retries, "a missing dataset is never retried")

	svc.AssertExpectations(t)
}

func TestOutputVariables(t *testing.T) {
	vars := outputVariables(&Output{DatasetID: "ds-1", ItemIDs: []string{"a", "b"}, ItemCount: 2})

	assert.Equal(t, map[string]interface{}{
		"datasetId": "ds-1",
		"itemIds":   []string{"a", "b"},
		"itemCount": 2,
	}, vars)
}

func TestHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		output    *Output
		err       error
		check     func(t *testing.T, gw *fakeGateway)
	}{
		{
			name:      "completes with item ids",
			variables: validVariables(),
			output:    &Output{DatasetID: "ds-1", ItemIDs: []string{"item-1"}, ItemCount: 1},
			check: func(t *testing.T, gw *fakeGateway) {
				require.NotNil(t, gw.completed)
				assert.Nil(t, gw.failed)
				assert.Nil(t, gw.thrown)

				var vars map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(gw.completed.Variables), &vars))
				assert.Equal(t, "ds-1", vars["datasetId"])
				assert.Equal(t, []interface{}{"item-1"}, vars["itemIds"])
				assert.EqualValues(t, 1, vars["itemCount"])
			},
		},
		{
			name:      "missing dataset throws",
			variables: validVariables(),
			err:       errors.NewDatasetNotFoundError("ds-1"),
			check: func(t *testing.T, gw *fakeGateway) {
				assert.Nil(t, gw.completed)
				require.NotNil(t, gw.thrown)
				assert.Equal(t, "DATASET_NOT_FOUND", gw.thrown.ErrorCode)
			},
		},
		{
			name:      "upload failure is retried",
			variables: validVariables(),
			err:       errors.NewItemUploadFailedError("ds-1", errors.New("502")),
			check: func(t *testing.T, gw *fakeGateway) {
				require.NotNil(t, gw.failed)
				assert.Equal(t, int32(2), gw.failed.Retries)
			},
		},
		{
			name:      "invalid input throws without executing",
			variables: map[string]interface{}{"username": "reader"},
			check: func(t *testing.T, gw *fakeGateway) {
				require.NotNil(t, gw.thrown)
				assert.Equal(t, "VALIDATION_FAILED", gw.thrown.ErrorCode)
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockService{}
			if tt.output != nil || tt.err != nil {
				svc.On("Execute", mock.Anything, createInput()).Return(tt.output, tt.err).Once()
			}
			h := createTestHandler(t, svc)
			gw := &fakeGateway{}

			h.Handle(fakeJobClient{gw}, createMockJob(int64(100+i), tt.variables))

			tt.check(t, gw)
			svc.AssertExpectations(t)
		})
	}
}
