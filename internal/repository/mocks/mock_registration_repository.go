package mocks

import (
	"context"
	"time"

	"incorpapi/internal/model"
	"incorpapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) Create(ctx context.Context, reg *model.Registration) (*model.Registration, bool, error) {
	args := m.Called(ctx, reg)
	if f, ok := args.Get(0).(func(*model.Registration) *model.Registration); ok {
		return f(reg), args.Bool(1), args.Error(2)
	}
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Registration), args.Bool(1), args.Error(2)
}

func (m *MockRegistrationRepository) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) List(ctx context.Context, f repository.ListFilter, pq repository.PageQuery) (*repository.PageResult[model.Registration], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Registration]), args.Error(1)
}

func (m *MockRegistrationRepository) ListExpiryCandidates(ctx context.Context, today time.Time, limit int) ([]model.Registration, error) {
	args := m.Called(ctx, today, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Registration), args.Error(1)
}

// Mutate runs fn against the registration configured as the first return value,
// mirroring the read-modify-write the real store performs.
func (m *MockRegistrationRepository) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (*model.Registration, error) {
	args := m.Called(ctx, id, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current := *args.Get(0).(*model.Registration)
	return fn(&current)
}

func (m *MockRegistrationRepository) ClaimExpiryDispatch(ctx context.Context, id string, at, dayStart time.Time) (*time.Time, bool, error) {
	args := m.Called(ctx, id, at, dayStart)
	var prev *time.Time
	if v := args.Get(0); v != nil {
		prev = v.(*time.Time)
	}
	return prev, args.Bool(1), args.Error(2)
}

func (m *MockRegistrationRepository) ReleaseExpiryDispatch(ctx context.Context, id string, at time.Time, prev *time.Time) error {
	args := m.Called(ctx, id, at, prev)
	return args.Error(0)
}

func (m *MockRegistrationRepository) MarkExpiryNotified(ctx context.Context, id string, at time.Time) (int64, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRegistrationRepository) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}
