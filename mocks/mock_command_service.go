package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicer/internal/service"
)

// MockCommandService is a mock implementation of service.CommandService.
type MockCommandService struct {
	mock.Mock
}

func (m *MockCommandService) Interpret(ctx context.Context, input service.InterpretInput) (*service.InterpretResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InterpretResult), args.Error(1)
}
