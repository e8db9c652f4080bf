// Package bot реализует Telegram-интерфейс трекера: разбор команд,
// вызов сервисов подписок и аналитики и форматирование ответов.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/overlap"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage"
)

// Sender отправляет сообщения в Telegram. Реализуется *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Subscriptions — операции с подписками, доступные из бота.
type Subscriptions interface {
	RegisterUser(ctx context.Context, id int64, username, firstName string) (*models.User, error)
	Create(ctx context.Context, userID int64, req models.DummySubscription) (int, error)
	List(ctx context.Context, userID int64, withCancelled bool) ([]models.Subscription, error)
	Delete(ctx context.Context, userID int64, id int) error
	Pause(ctx context.Context, userID int64, id int) error
	Resume(ctx context.Context, userID int64, id int) error
}

// Analytics — аналитические отчёты, доступные из бота.
type Analytics interface {
	DetectOverlaps(ctx context.Context, userID int64) ([]models.OverlapAlert, error)
	GenerateTips(ctx context.Context, userID int64) ([]models.Tip, error)
	BuildReport(ctx context.Context, userID int64) (models.AnalyticsReport, error)
	TrialsSummary(ctx context.Context, userID int64) (models.TrialsSummary, error)
}

// Catalog — поиск по каталогу сервисов.
type Catalog interface {
	Lookup
	Search(query string) []catalog.ServiceRecord
}

// TokenMaker выпускает токен для входа в веб-приложение.
type TokenMaker interface {
	GenerateToken(userID int64) (string, error)
}

// Bot обрабатывает обновления Telegram.
type Bot struct {
	api       Sender
	subs      Subscriptions
	analytics Analytics
	catalog   Catalog
	tokens    TokenMaker
	webAppURL string
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт бота.
func New(api Sender, subs Subscriptions, analytics Analytics, c Catalog, tokens TokenMaker,
	webAppURL string, m *metrics.Metrics, log *slog.Logger) *Bot {
	return &Bot{
		api:       api,
		subs:      subs,
		analytics: analytics,
		catalog:   c,
		tokens:    tokens,
		webAppURL: webAppURL,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Run читает обновления, пока не закроется канал или не отменится ctx.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate обрабатывает одно обновление. Всё, кроме команд, игнорируется.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}

	command := msg.Command()
	userID := msg.From.ID
	log := b.log.With(
		slog.String("op", "bot.HandleUpdate"),
		slog.String("command", command),
		sl.UserID(userID),
	)
	b.metrics.BotCommand(command)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("command panicked", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			b.reply(log, tgbotapi.NewMessage(msg.Chat.ID, textInternalError))
		}
	}()

	if _, err := b.subs.RegisterUser(ctx, userID, msg.From.UserName, msg.From.FirstName); err != nil {
		log.Error("failed to register user", sl.Err(err))
		b.reply(log, tgbotapi.NewMessage(msg.Chat.ID, textInternalError))
		return
	}

	if command == "webapp" {
		b.reply(log, b.webApp(log, msg.Chat.ID, userID))
		return
	}

	text, err := b.dispatch(ctx, command, userID, msg.CommandArguments())
	if err != nil {
		text = b.errorText(log, err)
	}
	b.reply(log, tgbotapi.NewMessage(msg.Chat.ID, text))
}

func (b *Bot) dispatch(ctx context.Context, command string, userID int64, args string) (string, error) {
	switch command {
	case "start":
		return textStart, nil
	case "help":
		return textHelp, nil
	case "list":
		subs, err := b.subs.List(ctx, userID, false)
		if err != nil {
			return "", err
		}
		return RenderList(subs), nil
	case "add":
		req, err := ParseAdd(args, b.catalog, b.now())
		if err != nil {
			return "", err
		}
		id, err := b.subs.Create(ctx, userID, req)
		if err != nil {
			return "", err
		}
		return RenderAdded(id, req, b.catalog), nil
	case "delete":
		return b.byID(ctx, command, args, userID, b.subs.Delete, "🗑 Подписка #%d удалена")
	case "pause":
		return b.byID(ctx, command, args, userID, b.subs.Pause, "⏸ Подписка #%d приостановлена")
	case "resume":
		return b.byID(ctx, command, args, userID, b.subs.Resume, "▶️ Подписка #%d снова активна")
	case "overlaps":
		alerts, err := b.analytics.DetectOverlaps(ctx, userID)
		if err != nil {
			return "", err
		}
		return RenderOverlaps(alerts, overlap.TotalPotentialSavings(alerts)), nil
	case "tips":
		tips, err := b.analytics.GenerateTips(ctx, userID)
		if err != nil {
			return "", err
		}
		return RenderTips(tips), nil
	case "report":
		report, err := b.analytics.BuildReport(ctx, userID)
		if err != nil {
			return "", err
		}
		return RenderReport(report), nil
	case "trials":
		summary, err := b.analytics.TrialsSummary(ctx, userID)
		if err != nil {
			return "", err
		}
		return RenderTrials(summary), nil
	case "catalog":
		q, err := ParseQuery(args)
		if err != nil {
			return "", err
		}
		return RenderCatalog(q, b.catalog.Search(q)), nil
	default:
		return textUnknown, nil
	}
}

func (b *Bot) byID(ctx context.Context, command, args string, userID int64,
	action func(context.Context, int64, int) error, done string) (string, error) {
	id, err := ParseID(command, args)
	if err != nil {
		return "", err
	}
	if err := action(ctx, userID, id); err != nil {
		return "", err
	}
	return fmt.Sprintf(done, id), nil
}

func (b *Bot) webApp(log *slog.Logger, chatID, userID int64) tgbotapi.MessageConfig {
	token, err := b.tokens.GenerateToken(userID)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return tgbotapi.NewMessage(chatID, textInternalError)
	}
	if b.webAppURL == "" {
		return tgbotapi.NewMessage(chatID, "🔑 Токен для API:\n"+token)
	}
	msg := tgbotapi.NewMessage(chatID, "📱 Откройте веб-приложение:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Открыть", WebAppLink(b.webAppURL, token)),
		),
	)
	return msg
}

func (b *Bot) errorText(log *slog.Logger, err error) string {
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		return usage.Error()
	case errors.Is(err, subservice.ErrLimitReached):
		return textLimitReached
	case errors.Is(err, subservice.ErrPriceRequired):
		return "Укажите цену: " + usageAdd
	case errors.Is(err, subservice.ErrInvalidInput):
		return "Некорректные данные подписки"
	case errors.Is(err, storage.ErrSubscriptionNotFound):
		return "Подписка не найдена"
	default:
		log.Error("command failed", sl.Err(err))
		return textInternalError
	}
}

func (b *Bot) reply(log *slog.Logger, msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		log.Error("failed to send reply", sl.Err(err))
	}
}
