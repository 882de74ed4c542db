package synccontacts

import (
	"context"
	"fmt"
	"math"
	"strings"

	"contact-sync/internal/common/errors"
	"contact-sync/internal/common/payments"
	"contact-sync/internal/common/records"

	"github.com/shopspring/decimal"
)

// CustomerMemo remembers customers created for records that have not been written back yet.
type CustomerMemo interface {
	Lookup(ctx context.Context, recordID string) (string, error)
	Remember(ctx context.Context, recordID, customerID string) error
	Forget(ctx context.Context, recordID string) error
}

// maxExponent bounds the decimal exponent accepted before any rescaling. Rounding a value with a
// larger exponent allocates one digit per power of ten.
const maxExponent = 18

var (
	hundred  = decimal.NewFromInt(100)
	maxMajor = decimal.NewFromInt(math.MaxInt64 / 100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ToMinorUnits converts a major-unit amount to integer minor units, rounding half away from zero.
func ToMinorUnits(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, errors.NewValidationError(records.FieldOverdueAmount, "amount is missing")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, errors.NewValidationError(records.FieldOverdueAmount, fmt.Sprintf("amount %q is not a number", amount))
	}

	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent || d.Abs().GreaterThan(maxMajor) {
		return 0, errors.NewValidationError(records.FieldOverdueAmount, fmt.Sprintf("amount %q is out of range", amount))
	}

	minor := d.Mul(hundred).Round(0)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, errors.NewValidationError(records.FieldOverdueAmount, fmt.Sprintf("amount %q is out of range", amount))
	}
	return minor.IntPart(), nil
}

// EnsureCustomer creates a billing customer for the contact. Without a memo every call creates a new
// customer, even for a contact seen before.
func (s *Service) EnsureCustomer(ctx context.Context, contact Contact) (string, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"recordId": contact.ID,
		"step":     string(StepCustomer),
	})

	if s.memo != nil {
		customerID, err := s.memo.Lookup(ctx, contact.ID)
		if err != nil {
			log.Warn("Customer memo lookup failed, creating a new customer", map[string]interface{}{
				"error": err.Error(),
			})
		} else if customerID != "" {
			log.Info("Reusing customer from an earlier attempt", map[string]interface{}{
				"customerId": customerID,
			})
			return customerID, nil
		}
	}

	customerID, err := s.payments.CreateCustomer(ctx, &payments.CustomerRequest{
		Name:  contact.Name,
		Email: contact.Email,
		Metadata: map[string]string{
			"debitor": contact.DebtorName,
			"ref_id":  contact.ClientRefID,
		},
	})
	if err != nil {
		log.Error("Failed to create customer", errors.AsStandardError(err).LogFields())
		return "", err
	}

	log.Info("Customer created", map[string]interface{}{
		"customerId": customerID,
	})

	if s.memo != nil {
		if err := s.memo.Remember(ctx, contact.ID, customerID); err != nil {
			log.Warn("Failed to remember customer", map[string]interface{}{
				"customerId": customerID,
				"error":      err.Error(),
			})
		}
	}

	return customerID, nil
}

// CreatePrice creates a one-off price for the contact's overdue amount. A missing amount fails
// before any call is made.
func (s *Service) CreatePrice(ctx context.Context, contact Contact) (string, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"recordId": contact.ID,
		"step":     string(StepPrice),
	})

	unitAmount, err := ToMinorUnits(contact.OverdueAmount)
	if err != nil {
		log.Error("Cannot price record", errors.AsStandardError(err).LogFields())
		return "", err
	}

	priceID, err := s.payments.CreatePrice(ctx, &payments.PriceRequest{
		UnitAmount: unitAmount,
		Currency:   s.config.Currency,
		ProductID:  s.config.ProductID,
	})
	if err != nil {
		log.Error("Failed to create price", errors.AsStandardError(err).LogFields())
		return "", err
	}

	log.Info("Price created", map[string]interface{}{
		"priceId":    priceID,
		"unitAmount": unitAmount,
		"currency":   s.config.Currency,
	})
	return priceID, nil
}

// UpsertPaymentLink updates the contact's existing link or creates a new one. Both branches send
// the same options.
func (s *Service) UpsertPaymentLink(ctx context.Context, contact Contact, priceID string) (string, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"recordId": contact.ID,
		"step":     string(StepLink),
	})

	req := s.linkRequest(contact, priceID)

	var (
		link *payments.PaymentLink
		err  error
	)
	if contact.Paylink != "" {
		// The stored paylink is passed through unchanged as the link id. Records written by this
		// pipeline hold the link URL there, which the gateway rejects.
		link, err = s.payments.UpdatePaymentLink(ctx, contact.Paylink, req)
	} else {
		link, err = s.payments.CreatePaymentLink(ctx, req)
	}
	if err != nil {
		log.Error("Failed to upsert payment link", errors.AsStandardError(err).LogFields())
		return "", err
	}

	log.Info("Payment link ready", map[string]interface{}{
		"linkId":  link.ID,
		"url":     link.URL,
		"updated": contact.Paylink != "",
	})
	return link.URL, nil
}

func (s *Service) linkRequest(contact Contact, priceID string) *payments.LinkRequest {
	return &payments.LinkRequest{
		PriceID:  priceID,
		Quantity: 1,
		Metadata: map[string]string{
			"customer_email": contact.Email,
			"customer_id":    contact.ClientRefID,
			"customer_name":  contact.Name,
		},
		PaymentMethodTypes:  s.config.PaymentMethodTypes,
		AllowPromotionCodes: true,
		InvoiceDescription:  "Invoice for " + contact.Name,
		InvoiceMetadata: map[string]string{
			"Customer Email": contact.Email,
			"Customer ID":    contact.ClientRefID,
		},
		ShippingCountries:        s.config.ShippingCountries,
		BillingAddressCollection: "required",
		CollectPhoneNumber:       true,
		RedirectURL:              s.config.SuccessURL,
	}
}
