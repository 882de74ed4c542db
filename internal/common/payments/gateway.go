// Package payments creates billing artifacts (customers, prices, payment links) in the payments service.
package payments

import "context"

// CustomerRequest describes a billing customer to create.
type CustomerRequest struct {
	Name     string
	Email    string
	Metadata map[string]string
}

// PriceRequest describes a one-off price in minor currency units.
type PriceRequest struct {
	UnitAmount int64
	Currency   string
	ProductID  string
}

// LinkRequest carries every option applied to a payment link, on create and on update alike.
type LinkRequest struct {
	PriceID                  string
	Quantity                 int64
	Metadata                 map[string]string
	PaymentMethodTypes       []string
	AllowPromotionCodes      bool
	InvoiceDescription       string
	InvoiceMetadata          map[string]string
	ShippingCountries        []string
	BillingAddressCollection string
	CollectPhoneNumber       bool
	RedirectURL              string
}

// PaymentLink is a shareable checkout link.
type PaymentLink struct {
	ID  string
	URL string
}

// Gateway is the subset of the payments service used by the sync pipeline.
type Gateway interface {
	CreateCustomer(ctx context.Context, req *CustomerRequest) (string, error)
	CreatePrice(ctx context.Context, req *PriceRequest) (string, error)
	CreatePaymentLink(ctx context.Context, req *LinkRequest) (*PaymentLink, error)
	UpdatePaymentLink(ctx context.Context, linkID string, req *LinkRequest) (*PaymentLink, error)
}
