package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

func newService(n Notifier) *SenderService {
	return NewSenderService(n, metrics.New(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func envelope(t *testing.T, userID int64, text string) []byte {
	t.Helper()
	body, err := json.Marshal(models.Notification{
		ID: "id-1", Kind: models.NotificationTrial, UserID: userID, Text: text, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return body
}

func TestDeliver(t *testing.T) {
	tests := []struct {
		name      string
		body      func(t *testing.T) []byte
		sendErr   error
		expectFn  bool
		wantError bool
	}{
		{
			name:     "успешная доставка",
			body:     func(t *testing.T) []byte { return envelope(t, 42, "триал заканчивается") },
			expectFn: true,
		},
		{
			name: "битый json подтверждается",
			body: func(*testing.T) []byte { return []byte("{not json") },
		},
		{
			name: "нет получателя",
			body: func(t *testing.T) []byte { return envelope(t, 0, "текст") },
		},
		{
			name:      "временная ошибка отправки",
			body:      func(t *testing.T) []byte { return envelope(t, 42, "триал заканчивается") },
			sendErr:   errors.New("timeout"),
			expectFn:  true,
			wantError: true,
		},
		{
			name:     "пользователь заблокировал бота",
			body:     func(t *testing.T) []byte { return envelope(t, 42, "триал заканчивается") },
			sendErr:  fmt.Errorf("telegram: %w", ErrRecipientUnavailable),
			expectFn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := new(MockNotifier)
			if tt.expectFn {
				n.On("Send", mock.Anything, int64(42), "триал заканчивается").Return(tt.sendErr).Once()
			}

			err := newService(n).Handler(context.Background())(tt.body(t))

			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			n.AssertExpectations(t)
		})
	}
}
