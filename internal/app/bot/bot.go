// Package bot собирает процесс Telegram-бота: long polling обновлений
// и обработку команд поверх сервисов подписок и аналитики.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	tgbot "github.com/magabrotheeeer/subscription-tracker/internal/bot"
	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	analyticsservice "github.com/magabrotheeeer/subscription-tracker/internal/services/analytics"
	subservice "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// App — процесс Telegram-бота.
type App struct {
	api           *tgbotapi.BotAPI
	bot           *tgbot.Bot
	updateTimeout int
	metricsAddr   string
	db            *repository.Storage
	cache         *cache.Cache
	logger        *slog.Logger
}

// New подключает хранилище, кеш и Bot API.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.bot.New"

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("%s: telegram bot token is not set", op)
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwt secret key is not set", op)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	index, err := catalog.Default()
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	api.Debug = cfg.BotDebug
	logger.Info("authorized on telegram", slog.String("account", api.Self.UserName))

	m := metrics.Default()
	subscriptionService := subservice.NewSubscriptionService(db, cacheRedis, index, subservice.Options{
		FreeLimit: cfg.FreeSubscriptions,
		CacheTTL:  cfg.CacheTTL,
	}, logger)
	analyticsService := analyticsservice.New(db, index, analyticsservice.Config{
		Tips:      cfg.Analytics.Tips,
		Reference: cfg.Analytics.Reference,
	}, m, logger)

	return &App{
		api: api,
		bot: tgbot.New(api, subscriptionService, analyticsService, index,
			jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), cfg.WebAppURL, m, logger),
		updateTimeout: cfg.UpdateTimeout,
		metricsAddr:   cfg.MetricsAddress,
		db:            db,
		cache:         cacheRedis,
		logger:        logger,
	}, nil
}

// Run получает обновления до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go metrics.Serve(ctx, a.metricsAddr, a.logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.updateTimeout
	updates := a.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		a.logger.Info("stopping telegram updates")
		a.api.StopReceivingUpdates()
	}()

	a.bot.Run(ctx, updates)

	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
	return nil
}
