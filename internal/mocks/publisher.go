package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rental-chat/internal/observability"
	"rental-chat/internal/rabbitmq"
)

// PublisherMock stands in for the broker in event and audit tests.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var (
	_ rabbitmq.Publisher      = (*PublisherMock)(nil)
	_ observability.Publisher = (*PublisherMock)(nil)
)
