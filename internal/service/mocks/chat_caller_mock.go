package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
)

// MockChatCaller is a mock type for the ChatCaller type
type MockChatCaller struct {
	mock.Mock
}

// CallAPI provides a mock function with given fields: ctx, req
func (_m *MockChatCaller) CallAPI(ctx context.Context, req ai.CallRequest) (*ai.ChatResponse, error) {
	ret := _m.Called(ctx, req)

	var r0 *ai.ChatResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ai.CallRequest) (*ai.ChatResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.ChatResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockChatCaller creates a new instance of MockChatCaller. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockChatCaller(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockChatCaller {
	m := &MockChatCaller{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.ChatCaller = (*MockChatCaller)(nil)
