// Package mocks provides test doubles for the report package.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/lojaops/gerencial-vendas/internal/model"
)

// MockSource is a mock type for the Source interface.
type MockSource struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, r, listBy, breakBy, token
func (_m *MockSource) Fetch(ctx context.Context, r model.DateRange, listBy string, breakBy string, token string) (string, error) {
	ret := _m.Called(ctx, r, listBy, breakBy, token)

	if len(ret) == 0 {
		panic("no return value specified for Fetch")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.DateRange, string, string, string) (string, error)); ok {
		return rf(ctx, r, listBy, breakBy, token)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.DateRange, string, string, string) string); ok {
		r0 = rf(ctx, r, listBy, breakBy, token)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.DateRange, string, string, string) error); ok {
		r1 = rf(ctx, r, listBy, breakBy, token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSource creates a new instance of MockSource. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSource {
	m := &MockSource{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
