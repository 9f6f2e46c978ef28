// Package mocks provides test doubles for the store.
package mocks

import (
	"context"

	model "github.com/sells-group/enrich-cli/internal/model"
	store "github.com/sells-group/enrich-cli/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// GetResult provides a mock function with given fields: ctx, domain
func (_m *MockStore) GetResult(ctx context.Context, domain string) (*model.Result, error) {
	ret := _m.Called(ctx, domain)

	if len(ret) == 0 {
		panic("no return value specified for GetResult")
	}

	var r0 *model.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Result, error)); ok {
		return rf(ctx, domain)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Result); ok {
		r0 = rf(ctx, domain)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Result)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, domain)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpsertResult provides a mock function with given fields: ctx, res
func (_m *MockStore) UpsertResult(ctx context.Context, res *model.Result) error {
	ret := _m.Called(ctx, res)

	if len(ret) == 0 {
		panic("no return value specified for UpsertResult")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.Result) error); ok {
		r0 = rf(ctx, res)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListResults provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListResults(ctx context.Context, filter store.ResultFilter) ([]store.Summary, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListResults")
	}

	var r0 []store.Summary
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.ResultFilter) ([]store.Summary, error)); ok {
		return rf(ctx, filter)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]store.Summary)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// RecordRun provides a mock function with given fields: ctx, run
func (_m *MockStore) RecordRun(ctx context.Context, run store.Run) error {
	ret := _m.Called(ctx, run)

	if len(ret) == 0 {
		panic("no return value specified for RecordRun")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, store.Run) error); ok {
		r0 = rf(ctx, run)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListRuns provides a mock function with given fields: ctx, filter
func (_m *MockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListRuns")
	}

	var r0 []store.Run
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.RunFilter) ([]store.Run, error)); ok {
		return rf(ctx, filter)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]store.Run)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	return ret.Error(0)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	return ret.Error(0)
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ store.Store = (*MockStore)(nil)
