// Package sender собирает процесс доставки уведомлений: читает очереди
// RabbitMQ и отправляет сообщения пользователям в Telegram.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-tracker/internal/bot"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/sender"
)

// App представляет приложение отправителя уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	metricsAddr   string
	logger        *slog.Logger
}

// New подключается к Bot API и RabbitMQ.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("%s: telegram bot token is not set", op)
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	api.Debug = cfg.BotDebug

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	senderService := senderservice.NewSenderService(bot.NewNotifier(api), metrics.Default(), logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		metricsAddr:   cfg.MetricsAddress,
		logger:        logger,
	}, nil
}

// Run запускает потребителей всех очередей уведомлений и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go metrics.Serve(ctx, a.metricsAddr, a.logger)

	queues := rabbitmq.GetNotificationQueues()
	consumers := make([]*rabbitmq.Consumer, 0, len(queues))
	for _, q := range queues {
		c := rabbitmq.NewConsumer(q.QueueName, a.senderService.Handler(ctx), a.logger)
		if err := c.Start(ctx, a.ch); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
		consumers = append(consumers, c)
		a.logger.Info("consumer started", slog.String("queue", q.QueueName))
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	// Канал закрывается только после ack/nack всех уже полученных сообщений.
	for _, c := range consumers {
		c.Wait()
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
