package enabler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/apiml-sample-service/config"
)

// MockEnabler mocks the registration handle for handler tests.
type MockEnabler struct {
	mock.Mock
}

// Register mocks the Register method
func (m *MockEnabler) Register(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Unregister mocks the Unregister method
func (m *MockEnabler) Unregister(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SSLConfig mocks the SSLConfig method
func (m *MockEnabler) SSLConfig() config.SSL {
	args := m.Called()
	return args.Get(0).(config.SSL)
}

// Close mocks the Close method
func (m *MockEnabler) Close() {
	m.Called()
}
