package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"incorpapi/internal/notify"
)

// MockSender is a testify mock for notify.Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, kind notify.Kind, recipient string, data map[string]any) error {
	args := m.Called(ctx, kind, recipient, data)
	return args.Error(0)
}
