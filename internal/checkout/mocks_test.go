package checkout

import (
	"context"

	"resto_storefront/internal/backend"
	"resto_storefront/internal/models"
)

// MockOrderAPI implements OrderAPI for testing
type MockOrderAPI struct {
	Order     *models.PlacedOrder
	CreateErr error
	Secret    string
	IntentErr error

	CreateCalls  int
	IntentCalls  int
	LastRequest  backend.OrderRequest
	LastIdemKey  string
	LastToken    string
	LastAmount   int64
	LastIntentID string
}

func (m *MockOrderAPI) CreateOrder(_ context.Context, token, idempotencyKey string, req backend.OrderRequest) (*models.PlacedOrder, error) {
	m.CreateCalls++
	m.LastRequest = req
	m.LastIdemKey = idempotencyKey
	m.LastToken = token
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Order == nil {
		return nil, nil
	}
	order := *m.Order
	return &order, nil
}

func (m *MockOrderAPI) CreatePaymentIntent(_ context.Context, _ string, amount int64, orderID string) (string, error) {
	m.IntentCalls++
	m.LastAmount = amount
	m.LastIntentID = orderID
	if m.IntentErr != nil {
		return "", m.IntentErr
	}
	return m.Secret, nil
}

// MockConfirmer implements PaymentConfirmer for testing
type MockConfirmer struct {
	Outcome PaymentOutcome
	Err     error

	Calls      int
	LastSecret string
	LastMethod string
}

func (m *MockConfirmer) Confirm(_ context.Context, clientSecret, paymentMethodID string) (PaymentOutcome, error) {
	m.Calls++
	m.LastSecret = clientSecret
	m.LastMethod = paymentMethodID
	return m.Outcome, m.Err
}
