package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
	name string
}

func newMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *MockProvider) GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(RateQuote), args.Error(1)
}
