package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"incorpapi/internal/expiry"
	"incorpapi/internal/model"
	"incorpapi/internal/service"
)

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) Create(ctx context.Context, req model.Requester, in service.CreateInput) (*model.Registration, bool, error) {
	args := m.Called(ctx, req, in)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Registration), args.Bool(1), args.Error(2)
}

func (m *MockRegistrationService) Get(ctx context.Context, req model.Requester, id string) (*model.Registration, error) {
	args := m.Called(ctx, req, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockRegistrationService) List(ctx context.Context, req model.Requester, limit, offset int) (*service.RegistrationListResult, error) {
	args := m.Called(ctx, req, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RegistrationListResult), args.Error(1)
}

func (m *MockRegistrationService) Patch(ctx context.Context, req model.Requester, id string, body []byte) (*service.PatchResult, error) {
	args := m.Called(ctx, req, id, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PatchResult), args.Error(1)
}

func (m *MockRegistrationService) Reopen(ctx context.Context, req model.Requester, id string, step model.Step) (*model.Registration, error) {
	args := m.Called(ctx, req, id, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockRegistrationService) Delete(ctx context.Context, req model.Requester, id string) error {
	args := m.Called(ctx, req, id)
	return args.Error(0)
}

func (m *MockRegistrationService) Quote(shareholders []model.Shareholder, directors []model.Director) model.FeeBreakdown {
	args := m.Called(shareholders, directors)
	return args.Get(0).(model.FeeBreakdown)
}

func (m *MockRegistrationService) Fees(ctx context.Context, req model.Requester, id string) (*model.FeeBreakdown, error) {
	args := m.Called(ctx, req, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FeeBreakdown), args.Error(1)
}

func (m *MockRegistrationService) DocumentLinks(ctx context.Context, req model.Requester, id, slot string) ([]service.DocumentLink, error) {
	args := m.Called(ctx, req, id, slot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.DocumentLink), args.Error(1)
}

func (m *MockRegistrationService) SweepExpired(ctx context.Context, req model.Requester) (expiry.Summary, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(expiry.Summary), args.Error(1)
}
