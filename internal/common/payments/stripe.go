package payments

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"contact-sync/internal/common/errors"
	"contact-sync/internal/common/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	APIKey string
	// APIURL replaces https://api.stripe.com when set.
	APIURL  string
	Timeout time.Duration
	Logger  logger.Logger
}

// StripeGateway implements Gateway on top of stripe-go.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigurationError(errors.ServicePayments, "missing API key")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}
	if cfg.Logger != nil {
		backendConfig.LeveledLogger = &stripeLogger{log: cfg.Logger.WithFields(map[string]interface{}{
			"service": errors.ServicePayments,
		})}
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	return &StripeGateway{api: client.New(cfg.APIKey, backends)}, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, req *CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{
		Name:  optionalString(req.Name),
		Email: optionalString(req.Email),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", classify(err)
	}
	return customer.ID, nil
}

func (g *StripeGateway) CreatePrice(ctx context.Context, req *PriceRequest) (string, error) {
	params := &stripe.PriceParams{
		Currency:   stripe.String(req.Currency),
		UnitAmount: stripe.Int64(req.UnitAmount),
		Product:    stripe.String(req.ProductID),
	}
	params.Context = ctx

	price, err := g.api.Prices.New(params)
	if err != nil {
		return "", classify(err)
	}
	return price.ID, nil
}

func (g *StripeGateway) CreatePaymentLink(ctx context.Context, req *LinkRequest) (*PaymentLink, error) {
	params := linkParams(req)
	params.Context = ctx

	link, err := g.api.PaymentLinks.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return &PaymentLink{ID: link.ID, URL: link.URL}, nil
}

// UpdatePaymentLink sends the full link options to an existing link. linkID must be a plink_ id;
// callers passing a stored link URL get an upstream rejection. Stripe also rejects price changes
// in line_items on update.
func (g *StripeGateway) UpdatePaymentLink(ctx context.Context, linkID string, req *LinkRequest) (*PaymentLink, error) {
	params := linkParams(req)
	params.Context = ctx

	link, err := g.api.PaymentLinks.Update(linkID, params)
	if err != nil {
		return nil, classify(err)
	}
	return &PaymentLink{ID: link.ID, URL: link.URL}, nil
}

func linkParams(req *LinkRequest) *stripe.PaymentLinkParams {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	invoiceData := &stripe.PaymentLinkInvoiceCreationInvoiceDataParams{
		Description: optionalString(req.InvoiceDescription),
	}
	for k, v := range req.InvoiceMetadata {
		invoiceData.AddMetadata(k, v)
	}

	params := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		PaymentMethodTypes:  stripe.StringSlice(req.PaymentMethodTypes),
		AllowPromotionCodes: stripe.Bool(req.AllowPromotionCodes),
		InvoiceCreation: &stripe.PaymentLinkInvoiceCreationParams{
			Enabled:     stripe.Bool(true),
			InvoiceData: invoiceData,
		},
		ShippingAddressCollection: &stripe.PaymentLinkShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.ShippingCountries),
		},
		BillingAddressCollection: optionalString(req.BillingAddressCollection),
		PhoneNumberCollection: &stripe.PaymentLinkPhoneNumberCollectionParams{
			Enabled: stripe.Bool(req.CollectPhoneNumber),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	if req.RedirectURL != "" {
		params.AfterCompletion = &stripe.PaymentLinkAfterCompletionParams{
			Type: stripe.String(string(stripe.PaymentLinkAfterCompletionTypeRedirect)),
			Redirect: &stripe.PaymentLinkAfterCompletionRedirectParams{
				URL: stripe.String(req.RedirectURL),
			},
		}
	}

	return params
}

// classify maps SDK errors onto the pipeline taxonomy: an answer with a status is a rejection,
// anything else never reached the service.
func classify(err error) error {
	var stripeErr *stripe.Error
	if stderrors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 {
		details := stripeErr.Msg
		if stripeErr.Code != "" {
			details = fmt.Sprintf("%s: %s", stripeErr.Code, stripeErr.Msg)
		}
		return errors.NewUpstreamRejection(errors.ServicePayments, stripeErr.HTTPStatusCode, details)
	}
	return errors.NewTransportError(errors.ServicePayments, err)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}

// stripeLogger routes SDK logs through the application logger.
type stripeLogger struct {
	log logger.Logger
}

func (l *stripeLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), nil)
}

func (l *stripeLogger) Infof(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), nil)
}

func (l *stripeLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...), nil)
}

func (l *stripeLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), nil)
}
