package synccontacts

import (
	"context"
	"testing"
	"time"

	"contact-sync/internal/common/logger"
	"contact-sync/internal/common/records"
	"contact-sync/internal/common/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestHandler(t *testing.T, svc *Service) *Handler {
	t.Helper()
	handler, err := NewHandler(HandlerOptions{
		Config:  svc.config,
		Service: svc,
		Logger:  logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return handler
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Config: DefaultConfig()})
	assert.Error(t, err)

	svc := createTestService(t, &mockRecordStore{}, &mockGateway{}, nil)
	cfg := *svc.config
	cfg.ProductID = ""
	_, err = NewHandler(HandlerOptions{Config: &cfg, Service: svc})
	assert.Error(t, err)

	cfg = *svc.config
	cfg.LeaseTTL = 0
	_, err = NewHandler(HandlerOptions{Config: &cfg, Service: svc})
	assert.Error(t, err)
}

func TestHandler_Execute_CompletedRun(t *testing.T) {
	store := &mockRecordStore{}
	svc := createTestService(t, store, &mockGateway{}, nil)
	store.On("ListRecords", mock.Anything).Return(&records.ListResult{
		Records: []records.Record{createRecord("rec1", map[string]interface{}{records.FieldProcess: ProcessStart})},
	}, nil).Once()

	variables, err := createTestHandler(t, svc).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, false, variables["syncSkipped"])
	assert.Equal(t, 0, variables["syncFetched"])
	assert.Equal(t, 0, variables["syncFailed"])
	assert.NotEmpty(t, variables["syncRunId"])
	assert.NotContains(t, variables, "syncFailures")
}

func TestHandler_Execute_OutsideWindow(t *testing.T) {
	sunday := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	svc := createTestService(t, &mockRecordStore{}, &mockGateway{}, func(_ *Config, deps *ServiceDependencies) {
		deps.Clock = schedule.ClockFunc(func() time.Time { return sunday })
	})

	variables, err := createTestHandler(t, svc).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, true, variables["syncSkipped"])
	assert.Equal(t, "outside_operating_window", variables["syncReason"])
}

func TestHandler_Execute_LeaseHeld(t *testing.T) {
	_, client := newRedis(t)
	svc := createTestService(t, &mockRecordStore{}, &mockGateway{}, func(_ *Config, deps *ServiceDependencies) {
		deps.Lease = client
	})
	_, err := client.AcquireLease(context.Background(), svc.config.LeaseKey, time.Minute)
	require.NoError(t, err)

	variables, err := createTestHandler(t, svc).Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "lease_held", variables["syncReason"])
}

func TestHandler_Execute_Cancelled(t *testing.T) {
	store := &mockRecordStore{}
	svc := createTestService(t, store, &mockGateway{}, nil)
	store.On("ListRecords", mock.Anything).Return(&records.ListResult{
		Records: []records.Record{eligibleRecord("rec1", "alice", "1")},
	}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := createTestHandler(t, svc).Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummaryVariables_IncludesFailures(t *testing.T) {
	variables := summaryVariables(&RunSummary{
		RunID:     "run-1",
		Fetched:   2,
		Succeeded: 1,
		Failed:    1,
		Failures:  []RecordFailure{{RecordID: "rec1", Step: StepLink, Code: "TRANSPORT_ERROR"}},
	})

	assert.Equal(t, "run-1", variables["syncRunId"])
	assert.Equal(t, 1, variables["syncSucceeded"])
	assert.Len(t, variables["syncFailures"], 1)
}
