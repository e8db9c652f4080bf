package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/subscription-tracker/internal/services/sender"
)

// Notifier доставляет уведомления в личные чаты через Bot API.
type Notifier struct {
	api Sender
}

// NewNotifier создаёт Notifier.
func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

// Send отправляет текст пользователю. Если бот заблокирован или чат
// недоступен, возвращается ошибка, обёрнутая в sender.ErrRecipientUnavailable.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	const op = "bot.Notifier.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusBadRequest) {
			return fmt.Errorf("%s: %w: %s", op, sender.ErrRecipientUnavailable, apiErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
