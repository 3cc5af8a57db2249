package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
)

// MockImageGenerator is a mock type for the ImageGenerator type
type MockImageGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, setting, character
func (_m *MockImageGenerator) Generate(ctx context.Context, setting models.ImageGenerationSetting, character *models.Character) (*service.GeneratedImage, error) {
	ret := _m.Called(ctx, setting, character)

	var r0 *service.GeneratedImage
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.GeneratedImage)
	}
	return r0, ret.Error(1)
}

// NewMockImageGenerator creates a new instance of MockImageGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageGenerator {
	m := &MockImageGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockImageTask is a mock type for the ImageTask type
type MockImageTask struct {
	mock.Mock
}

// Await provides a mock function with given fields: ctx
func (_m *MockImageTask) Await(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)
	return ret.String(0), ret.Error(1)
}

var (
	_ service.ImageGenerator = (*MockImageGenerator)(nil)
	_ service.ImageTask      = (*MockImageTask)(nil)
)
