package synccontacts

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"contact-sync/internal/common/database"
	"contact-sync/internal/common/errors"
	"contact-sync/internal/common/logger"
	"contact-sync/internal/common/metrics"
	"contact-sync/internal/common/payments"
	"contact-sync/internal/common/records"
	"contact-sync/internal/common/schedule"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned by Invoke when another process holds the run lease.
var ErrRunInProgress = stderrors.New("another sync run holds the lease")

// LeaseStore grants the exclusive run lease.
type LeaseStore interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (*database.Lease, error)
	RenewLease(ctx context.Context, lease *database.Lease, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, lease *database.Lease) error
}

// Recorder receives run and record outcomes in addition to the Prometheus collectors.
type Recorder interface {
	RecordRun(ctx context.Context, outcome string, duration time.Duration)
	RecordRecord(ctx context.Context, outcome, step string)
}

type ServiceDependencies struct {
	Logger   logger.Logger
	Clock    schedule.Clock
	Records  RecordStore
	Payments payments.Gateway
	// Memo is consulted only when customer reuse is enabled.
	Memo     CustomerMemo
	Lease    LeaseStore
	Recorder Recorder
}

type Service struct {
	config   *Config
	logger   logger.Logger
	clock    schedule.Clock
	gate     Gate
	records  RecordStore
	payments payments.Gateway
	memo     CustomerMemo
	lease    LeaseStore
	recorder Recorder
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = schedule.SystemClock{}
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Service{
		config:   config,
		logger:   log,
		clock:    clock,
		gate:     NewGate(config.Location, config.OpenHour, config.CloseHour),
		records:  deps.Records,
		payments: deps.Payments,
		lease:    deps.Lease,
		recorder: deps.Recorder,
	}
	if config.ReuseCustomers {
		s.memo = deps.Memo
	}
	return s
}

// Invoke runs the pipeline once, holding the run lease when one is configured. The lease is renewed
// while the run is in flight; losing it cancels the run before the next record.
func (s *Service) Invoke(ctx context.Context) (*RunSummary, error) {
	if s.lease == nil {
		return s.Run(ctx)
	}

	lease, err := s.lease.AcquireLease(ctx, s.config.LeaseKey, s.config.LeaseTTL)
	if err != nil {
		s.logger.Error("Failed to acquire run lease, skipping run", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeLeaseError).Inc()
		return nil, err
	}
	if lease == nil {
		s.logger.Info("Run lease held elsewhere, skipping run", map[string]interface{}{
			"leaseKey": s.config.LeaseKey,
		})
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeLeaseHeld).Inc()
		return nil, ErrRunInProgress
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lease.ReleaseLease(releaseCtx, lease); err != nil {
			s.logger.Warn("Failed to release run lease", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.keepLease(runCtx, cancel, lease, done)
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	return s.Run(runCtx)
}

// keepLease renews the lease every third of its TTL until done is closed. It cancels the run when
// the lease has passed to another holder or when renewals keep failing until the TTL has run out.
func (s *Service) keepLease(ctx context.Context, cancel context.CancelFunc, lease *database.Lease, done <-chan struct{}) {
	ttl := s.config.LeaseTTL
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	lastRenewed := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		renewed, err := s.lease.RenewLease(ctx, lease, ttl)
		switch {
		case err != nil:
			s.logger.Warn("Failed to renew run lease", map[string]interface{}{
				"error": err.Error(),
			})
			if time.Since(lastRenewed) >= ttl {
				s.logger.Error("Run lease expired without renewal, cancelling run", map[string]interface{}{
					"leaseKey": lease.Key,
				})
				cancel()
				return
			}
		case !renewed:
			s.logger.Error("Run lease lost, cancelling run", map[string]interface{}{
				"leaseKey": lease.Key,
			})
			cancel()
			return
		default:
			lastRenewed = time.Now()
		}
	}
}

// Run executes one invocation: gate check, a single fetch, then every eligible record in order.
// Record failures are counted in the summary; the only error returned is context cancellation.
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	startedAt := s.clock.Now()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
	}
	log := s.logger.WithFields(map[string]interface{}{"runId": summary.RunID})

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	timer := time.Now()
	finish := func(outcome string) {
		elapsed := time.Since(timer)
		summary.FinishedAt = startedAt.Add(elapsed)
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
		metrics.RunDuration.Observe(elapsed.Seconds())
		if s.recorder != nil {
			s.recorder.RecordRun(ctx, outcome, elapsed)
		}
	}

	if !s.gate.IsWithinOperatingWindow(startedAt) {
		summary.Skipped = true
		log.Info("Outside operating window, skipping run", map[string]interface{}{
			"now": startedAt.In(s.config.Location).Format(time.RFC3339),
		})
		finish(summary.Outcome())
		return summary, nil
	}

	contacts, err := s.FetchEligible(ctx)
	if err != nil {
		if ctx.Err() != nil {
			finish(metrics.OutcomeCancelled)
			return summary, ctx.Err()
		}
		summary.FetchFailed = true
		log.Error("Fetch failed, treating run as empty", errors.AsStandardError(err).LogFields())
		finish(summary.Outcome())
		return summary, nil
	}
	summary.Fetched = len(contacts)

	for _, contact := range contacts {
		if err := ctx.Err(); err != nil {
			log.Warn("Run cancelled between records", map[string]interface{}{
				"processed": summary.Succeeded + summary.Failed,
				"fetched":   summary.Fetched,
			})
			finish(metrics.OutcomeCancelled)
			return summary, err
		}

		if _, err := s.ProcessRecord(ctx, contact); err != nil {
			stdErr := errors.AsStandardError(err)
			summary.Failed++
			summary.Failures = append(summary.Failures, RecordFailure{
				RecordID: contact.ID,
				Step:     Step(stdErr.Step),
				Code:     string(stdErr.Code),
				Message:  stdErr.Message,
			})
			metrics.RecordsTotal.WithLabelValues(metrics.RecordFailed).Inc()
			metrics.StepFailures.WithLabelValues(stdErr.Step, string(stdErr.Code)).Inc()
			if s.recorder != nil {
				s.recorder.RecordRecord(ctx, metrics.RecordFailed, stdErr.Step)
			}
			continue
		}

		summary.Succeeded++
		metrics.RecordsTotal.WithLabelValues(metrics.RecordSucceeded).Inc()
		if s.recorder != nil {
			s.recorder.RecordRecord(ctx, metrics.RecordSucceeded, string(StepWriteback))
		}
	}

	finish(summary.Outcome())
	log.Info("Run finished", map[string]interface{}{
		"fetched":   summary.Fetched,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	})
	return summary, nil
}

// ProcessRecord takes one contact through customer, price, link and writeback. The returned error is
// a StandardError carrying the failed step and the record id.
func (s *Service) ProcessRecord(ctx context.Context, contact Contact) (*RecordOutcome, error) {
	customerID, err := s.EnsureCustomer(ctx, contact)
	if err != nil {
		return nil, stepError(StepCustomer, contact.ID, err)
	}

	priceID, err := s.CreatePrice(ctx, contact)
	if err != nil {
		return nil, stepError(StepPrice, contact.ID, err)
	}

	url, err := s.UpsertPaymentLink(ctx, contact, priceID)
	if err != nil {
		return nil, stepError(StepLink, contact.ID, err)
	}

	fields := map[string]interface{}{
		records.FieldPaylink:     url,
		records.FieldProcess:     ProcessStart,
		records.FieldPortalLogin: s.config.PortalLoginURL,
		records.FieldStripeRefID: customerID,
	}
	if err := s.PersistResult(ctx, contact.ID, fields); err != nil {
		return nil, stepError(StepWriteback, contact.ID, err)
	}

	if s.memo != nil {
		if err := s.memo.Forget(ctx, contact.ID); err != nil {
			s.logger.Warn("Failed to clear customer memo", map[string]interface{}{
				"recordId": contact.ID,
				"error":    err.Error(),
			})
		}
	}

	return &RecordOutcome{
		RecordID:       contact.ID,
		CustomerID:     customerID,
		PriceID:        priceID,
		PaymentLinkURL: url,
	}, nil
}

func stepError(step Step, recordID string, err error) error {
	return errors.AsStandardError(err).WithContext(string(step), recordID)
}
