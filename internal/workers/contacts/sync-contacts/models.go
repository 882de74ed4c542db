package synccontacts

import (
	"time"

	"contact-sync/internal/common/metrics"
	"contact-sync/internal/common/records"
)

// Step names a stage of the per-record pipeline.
type Step string

const (
	StepCustomer  Step = "CUSTOMER"
	StepPrice     Step = "PRICE"
	StepLink      Step = "LINK"
	StepWriteback Step = "WRITEBACK"
)

// Process status values of the PROCESS field.
const (
	ProcessNew   = "new"
	ProcessStart = "START"
)

// Contact is a records-service row projected onto the fields the pipeline reads.
type Contact struct {
	ID            string
	Name          string
	Email         string
	DebtorName    string
	ClientRefID   string
	OverdueAmount string
	ProcessStatus string
	Paylink       string
	StripeRefID   string
}

func contactFromRecord(r records.Record) Contact {
	return Contact{
		ID:            r.ID,
		Name:          r.Text(records.FieldName),
		Email:         r.Text(records.FieldEmail),
		DebtorName:    r.Text(records.FieldDebtorName),
		ClientRefID:   r.Text(records.FieldClientRefID),
		OverdueAmount: r.Text(records.FieldOverdueAmount),
		ProcessStatus: r.Text(records.FieldProcess),
		Paylink:       r.Text(records.FieldPaylink),
		StripeRefID:   r.Text(records.FieldStripeRefID),
	}
}

// eligible reports whether the contact still needs a payment link.
func (c Contact) eligible() bool {
	return c.ProcessStatus == ProcessNew && c.Paylink == ""
}

// RecordOutcome is the result of a record that went through every step.
type RecordOutcome struct {
	RecordID       string `json:"recordId"`
	CustomerID     string `json:"customerId"`
	PriceID        string `json:"priceId"`
	PaymentLinkURL string `json:"paymentLinkUrl"`
}

// RecordFailure identifies the step at which a record was abandoned.
type RecordFailure struct {
	RecordID string `json:"recordId"`
	Step     Step   `json:"step"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// RunSummary describes one invocation.
type RunSummary struct {
	RunID       string          `json:"runId"`
	StartedAt   time.Time       `json:"startedAt"`
	FinishedAt  time.Time       `json:"finishedAt"`
	Skipped     bool            `json:"skipped"`
	FetchFailed bool            `json:"fetchFailed"`
	Fetched     int             `json:"fetched"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Failures    []RecordFailure `json:"failures,omitempty"`
}

// Outcome is the run outcome label used in metrics.
func (s *RunSummary) Outcome() string {
	switch {
	case s.Skipped:
		return metrics.OutcomeSkipped
	case s.FetchFailed:
		return metrics.OutcomeFetchFailed
	default:
		return metrics.OutcomeCompleted
	}
}
