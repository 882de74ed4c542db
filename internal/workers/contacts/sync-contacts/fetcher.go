package synccontacts

import (
	"context"

	"contact-sync/internal/common/errors"
	"contact-sync/internal/common/records"
)

// RecordStore is the records-service surface the pipeline reads from and writes back to.
type RecordStore interface {
	ListRecords(ctx context.Context) (*records.ListResult, error)
	UpdateRecord(ctx context.Context, recordID string, fields map[string]interface{}) error
}

// FetchEligible reads the table once and keeps the contacts whose PROCESS is "new" and that have no
// payment link yet, in source order.
func (s *Service) FetchEligible(ctx context.Context) ([]Contact, error) {
	result, err := s.records.ListRecords(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch records", errors.AsStandardError(err).LogFields())
		return nil, err
	}

	if result.Offset != "" {
		s.logger.Debug("Records service reported further pages; only the first page is processed", map[string]interface{}{
			"offset": result.Offset,
		})
	}

	eligible := make([]Contact, 0, len(result.Records))
	for _, rec := range result.Records {
		contact := contactFromRecord(rec)
		if contact.eligible() {
			eligible = append(eligible, contact)
		}
	}

	s.logger.Info("Fetched records", map[string]interface{}{
		"total":    len(result.Records),
		"eligible": len(eligible),
	})

	return eligible, nil
}

// PersistResult patches exactly the supplied fields of one record. Failures are not retried.
func (s *Service) PersistResult(ctx context.Context, recordID string, fields map[string]interface{}) error {
	log := s.logger.WithFields(map[string]interface{}{
		"recordId": recordID,
		"step":     string(StepWriteback),
	})

	if err := s.records.UpdateRecord(ctx, recordID, fields); err != nil {
		log.Error("Failed to update record", errors.AsStandardError(err).LogFields())
		return err
	}

	log.Info("Record updated", map[string]interface{}{
		"fields": len(fields),
	})
	return nil
}
