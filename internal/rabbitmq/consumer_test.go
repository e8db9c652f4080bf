package rabbitmq

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type AcknowledgerMock struct {
	mock.Mock
}

func (m *AcknowledgerMock) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

func (m *AcknowledgerMock) Nack(tag uint64, multiple, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

func (m *AcknowledgerMock) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

func TestConsumer_Handle(t *testing.T) {
	tests := []struct {
		name        string
		redelivered bool
		handler     func([]byte) error
		setupMock   func(m *AcknowledgerMock)
	}{
		{
			name:    "успешная обработка подтверждается",
			handler: func([]byte) error { return nil },
			setupMock: func(m *AcknowledgerMock) {
				m.On("Ack", uint64(7), false).Return(nil)
			},
		},
		{
			name:    "первая ошибка возвращает сообщение в очередь",
			handler: func([]byte) error { return errors.New("telegram down") },
			setupMock: func(m *AcknowledgerMock) {
				m.On("Nack", uint64(7), false, true).Return(nil)
			},
		},
		{
			name:        "повторная ошибка отбрасывает сообщение",
			redelivered: true,
			handler:     func([]byte) error { return errors.New("telegram down") },
			setupMock: func(m *AcknowledgerMock) {
				m.On("Nack", uint64(7), false, false).Return(nil)
			},
		},
		{
			name:    "паника обработчика считается ошибкой",
			handler: func([]byte) error { panic("nil map") },
			setupMock: func(m *AcknowledgerMock) {
				m.On("Nack", uint64(7), false, true).Return(nil)
			},
		},
		{
			name:    "ошибка ack только логируется",
			handler: func([]byte) error { return nil },
			setupMock: func(m *AcknowledgerMock) {
				m.On("Ack", uint64(7), false).Return(amqp.ErrClosed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := new(AcknowledgerMock)
			tt.setupMock(ack)

			c := NewConsumer("notifications.trial", tt.handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
			assert.NotPanics(t, func() {
				c.handle(amqp.Delivery{
					Acknowledger: ack,
					DeliveryTag:  7,
					Redelivered:  tt.redelivered,
					Body:         []byte(`{"text":"hi"}`),
				})
			})

			ack.AssertExpectations(t)
		})
	}
}

func TestNewConsumer(t *testing.T) {
	c := NewConsumer("notifications.billing", func([]byte) error { return nil }, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, "sender.notifications.billing", c.tag)
	assert.Equal(t, defaultMaxInFlight, c.maxInFlight)
}
