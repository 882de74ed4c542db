package synccontacts

import (
	"context"

	"contact-sync/internal/common/payments"
	"contact-sync/internal/common/records"

	"github.com/stretchr/testify/mock"
)

type mockRecordStore struct {
	mock.Mock
}

func (m *mockRecordStore) ListRecords(ctx context.Context) (*records.ListResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*records.ListResult)
	return result, args.Error(1)
}

func (m *mockRecordStore) UpdateRecord(ctx context.Context, recordID string, fields map[string]interface{}) error {
	args := m.Called(ctx, recordID, fields)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, req *payments.CustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreatePrice(ctx context.Context, req *payments.PriceRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreatePaymentLink(ctx context.Context, req *payments.LinkRequest) (*payments.PaymentLink, error) {
	args := m.Called(ctx, req)
	link, _ := args.Get(0).(*payments.PaymentLink)
	return link, args.Error(1)
}

func (m *mockGateway) UpdatePaymentLink(ctx context.Context, linkID string, req *payments.LinkRequest) (*payments.PaymentLink, error) {
	args := m.Called(ctx, linkID, req)
	link, _ := args.Get(0).(*payments.PaymentLink)
	return link, args.Error(1)
}
