package synccontacts

import (
	"encoding/json"
	"testing"
	"time"

	"contact-sync/internal/common/logger"
	"contact-sync/internal/common/records"
	"contact-sync/internal/common/schedule"
)

// insideWindow is Wednesday 10:00 in Brisbane.
var insideWindow = time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

func createTestConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Location = brisbane(t)
	cfg.ProductID = "prod_test"
	return cfg
}

func createTestService(t *testing.T, store RecordStore, gateway *mockGateway, mutate func(*Config, *ServiceDependencies)) *Service {
	t.Helper()
	cfg := createTestConfig(t)
	deps := ServiceDependencies{
		Logger:   logger.NewTestLogger(t),
		Clock:    schedule.ClockFunc(func() time.Time { return insideWindow }),
		Records:  store,
		Payments: gateway,
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	return NewService(deps, cfg)
}

func createRecord(id string, fields map[string]interface{}) records.Record {
	return records.Record{ID: id, Fields: fields}
}

func eligibleRecord(id, name, amount string) records.Record {
	fields := map[string]interface{}{
		records.FieldName:        name,
		records.FieldEmail:       name + "@example.com",
		records.FieldDebtorName:  "Acme Pty Ltd",
		records.FieldClientRefID: "REF-" + id,
		records.FieldProcess:     ProcessNew,
	}
	if amount != "" {
		fields[records.FieldOverdueAmount] = json.Number(amount)
	}
	return createRecord(id, fields)
}
