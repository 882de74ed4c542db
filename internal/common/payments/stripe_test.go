package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"contact-sync/internal/common/errors"
	"contact-sync/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	form   url.Values
}

func newTestGateway(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*StripeGateway, *[]capturedRequest) {
	t.Helper()

	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		captured = append(captured, capturedRequest{method: r.Method, path: r.URL.Path, form: r.PostForm})
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	gateway, err := NewStripeGateway(StripeConfig{
		APIKey:  "sk_test_123",
		APIURL:  server.URL,
		Timeout: 5 * time.Second,
		Logger:  logger.NewNoOpLogger(),
	})
	require.NoError(t, err)

	return gateway, &captured
}

func sampleLinkRequest() *LinkRequest {
	return &LinkRequest{
		PriceID:                  "price_1",
		Quantity:                 1,
		Metadata:                 map[string]string{"customer_email": "a@x.com", "customer_id": "R-1", "customer_name": "Alice"},
		PaymentMethodTypes:       []string{"card", "afterpay_clearpay", "link", "zip"},
		AllowPromotionCodes:      true,
		InvoiceDescription:       "Invoice for Alice",
		InvoiceMetadata:          map[string]string{"Customer Email": "a@x.com", "Customer ID": "R-1"},
		ShippingCountries:        []string{"AU", "US", "CA", "GB", "NZ"},
		BillingAddressCollection: "required",
		CollectPhoneNumber:       true,
		RedirectURL:              "https://example.com/success",
	}
}

func TestNewStripeGateway_MissingKey(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfiguration, errors.CodeOf(err))
}

func TestCreateCustomer(t *testing.T) {
	gateway, captured := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	})

	id, err := gateway.CreateCustomer(context.Background(), &CustomerRequest{
		Name:     "Alice",
		Email:    "a@x.com",
		Metadata: map[string]string{"debitor": "Acme", "ref_id": "R-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v1/customers", req.path)
	assert.Equal(t, "Alice", req.form.Get("name"))
	assert.Equal(t, "a@x.com", req.form.Get("email"))
	assert.Equal(t, "Acme", req.form.Get("metadata[debitor]"))
	assert.Equal(t, "R-1", req.form.Get("metadata[ref_id]"))
}

func TestCreateCustomer_OmitsEmptyName(t *testing.T) {
	gateway, captured := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cus_456","object":"customer"}`))
	})

	_, err := gateway.CreateCustomer(context.Background(), &CustomerRequest{Email: "b@x.com"})
	require.NoError(t, err)

	_, hasName := (*captured)[0].form["name"]
	assert.False(t, hasName)
}

func TestCreatePrice(t *testing.T) {
	gateway, captured := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"price_1","object":"price"}`))
	})

	id, err := gateway.CreatePrice(context.Background(), &PriceRequest{
		UnitAmount: 1235,
		Currency:   "aud",
		ProductID:  "prod_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "price_1", id)

	req := (*captured)[0]
	assert.Equal(t, "/v1/prices", req.path)
	assert.Equal(t, "1235", req.form.Get("unit_amount"))
	assert.Equal(t, "aud", req.form.Get("currency"))
	assert.Equal(t, "prod_1", req.form.Get("product"))
}

func TestCreatePaymentLink(t *testing.T) {
	gateway, captured := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"plink_1","object":"payment_link","url":"https://buy.stripe.com/test_1"}`))
	})

	link, err := gateway.CreatePaymentLink(context.Background(), sampleLinkRequest())
	require.NoError(t, err)
	assert.Equal(t, "plink_1", link.ID)
	assert.Equal(t, "https://buy.stripe.com/test_1", link.URL)

	req := (*captured)[0]
	assert.Equal(t, "/v1/payment_links", req.path)
	form := req.form
	assert.Equal(t, "price_1", form.Get("line_items[0][price]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "card", form.Get("payment_method_types[0]"))
	assert.Equal(t, "zip", form.Get("payment_method_types[3]"))
	assert.Equal(t, "true", form.Get("allow_promotion_codes"))
	assert.Equal(t, "true", form.Get("invoice_creation[enabled]"))
	assert.Equal(t, "Invoice for Alice", form.Get("invoice_creation[invoice_data][description]"))
	assert.Equal(t, "a@x.com", form.Get("invoice_creation[invoice_data][metadata][Customer Email]"))
	assert.Equal(t, "R-1", form.Get("invoice_creation[invoice_data][metadata][Customer ID]"))
	assert.Equal(t, "AU", form.Get("shipping_address_collection[allowed_countries][0]"))
	assert.Equal(t, "NZ", form.Get("shipping_address_collection[allowed_countries][4]"))
	assert.Equal(t, "required", form.Get("billing_address_collection"))
	assert.Equal(t, "true", form.Get("phone_number_collection[enabled]"))
	assert.Equal(t, "redirect", form.Get("after_completion[type]"))
	assert.Equal(t, "https://example.com/success", form.Get("after_completion[redirect][url]"))
	assert.Equal(t, "a@x.com", form.Get("metadata[customer_email]"))
	assert.Equal(t, "R-1", form.Get("metadata[customer_id]"))
	assert.Equal(t, "Alice", form.Get("metadata[customer_name]"))
}

func TestUpdatePaymentLink(t *testing.T) {
	gateway, captured := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"plink_9","object":"payment_link","url":"https://buy.stripe.com/test_9"}`))
	})

	link, err := gateway.UpdatePaymentLink(context.Background(), "plink_9", sampleLinkRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://buy.stripe.com/test_9", link.URL)

	req := (*captured)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v1/payment_links/plink_9", req.path)
	assert.Equal(t, "price_1", req.form.Get("line_items[0][price]"))
}

func TestUpdatePaymentLink_StoredURLIsRejected(t *testing.T) {
	gateway, captured := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment link"}}`))
	})

	_, err := gateway.UpdatePaymentLink(context.Background(), "https://buy.stripe.com/test_1", sampleLinkRequest())
	require.Error(t, err)

	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeUpstreamRejection, stdErr.Code)
	assert.Equal(t, http.StatusNotFound, stdErr.StatusCode)
	require.Len(t, *captured, 1)
	assert.Equal(t, http.MethodPost, (*captured)[0].method)
}

func TestGateway_Rejection(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such product: 'prod_x'"}}`))
	})

	_, err := gateway.CreatePrice(context.Background(), &PriceRequest{UnitAmount: 100, Currency: "aud", ProductID: "prod_x"})
	require.Error(t, err)

	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeUpstreamRejection, stdErr.Code)
	assert.Equal(t, http.StatusBadRequest, stdErr.StatusCode)
	assert.Contains(t, stdErr.Details, "resource_missing")
}

func TestGateway_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	gateway, err := NewStripeGateway(StripeConfig{APIKey: "sk_test_123", APIURL: serverURL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = gateway.CreateCustomer(context.Background(), &CustomerRequest{Name: "Alice"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTransport, errors.CodeOf(err))
}
