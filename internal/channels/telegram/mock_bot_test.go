package telegram

import (
	"context"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/mock"
)

// MockBot is a testify mock of BotInterface.
type MockBot struct {
	mock.Mock
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.User), args.Error(1)
}

func (m *MockBot) GetChat(ctx context.Context, params *telego.GetChatParams) (*telego.ChatFullInfo, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.ChatFullInfo), args.Error(1)
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, opts ...telego.LongPollingOption) (<-chan telego.Update, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chan telego.Update), args.Error(1)
}

// newMockBotSuccess returns a bot whose calls all succeed.
func newMockBotSuccess() *MockBot {
	m := new(MockBot)
	m.On("GetMe", mock.Anything).Return(&telego.User{ID: 987654321, FirstName: "DM", Username: "dm_test_bot"}, nil).Maybe()
	m.On("SetMyCommands", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 1}, nil).Maybe()
	return m
}
