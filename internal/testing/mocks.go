package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/launchpad/internal/deployment"
)

// MockPlatform is a testify mock of deployment.Platform.
type MockPlatform struct {
	mock.Mock
}

// FindByName implements deployment.Platform.
func (m *MockPlatform) FindByName(ctx context.Context, name string) (*deployment.App, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deployment.App), args.Error(1)
}

// Create implements deployment.Platform.
func (m *MockPlatform) Create(ctx context.Context, name, fqdn string, env map[string]string) (string, error) {
	args := m.Called(ctx, name, fqdn, env)
	return args.String(0), args.Error(1)
}

// Update implements deployment.Platform.
func (m *MockPlatform) Update(ctx context.Context, id, fqdn string, env map[string]string) error {
	args := m.Called(ctx, id, fqdn, env)
	return args.Error(0)
}

// Delete implements deployment.Platform.
func (m *MockPlatform) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetStatus implements deployment.Platform.
func (m *MockPlatform) GetStatus(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// Start implements deployment.Platform.
func (m *MockPlatform) Start(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// NewMockPlatform creates a MockPlatform where no app exists yet.
func NewMockPlatform() *MockPlatform {
	m := &MockPlatform{}
	m.On("FindByName", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	return m
}
