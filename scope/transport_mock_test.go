package scope

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Command(cmd string) ([]byte, error) {
	args := m.Called(cmd)
	reply, _ := args.Get(0).([]byte)

	return reply, args.Error(1)
}

func (m *mockTransport) Exec(cmd string) error {
	return m.Called(cmd).Error(0)
}

func (m *mockTransport) QueryBlock(ctx context.Context, cmd string) ([]byte, error) {
	args := m.Called(ctx, cmd)
	payload, _ := args.Get(0).([]byte)

	return payload, args.Error(1)
}

func (m *mockTransport) reply(cmd, text string) {
	m.On("Command", cmd).Return([]byte(text), nil).Once()
}
