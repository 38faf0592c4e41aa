package premiumaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/premium-access/internal/access"
	"github.com/magabrotheeeer/premium-access/internal/cache"
	"github.com/magabrotheeeer/premium-access/internal/config"
	"github.com/magabrotheeeer/premium-access/internal/lib/jwt"
	"github.com/magabrotheeeer/premium-access/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/metrics"
	"github.com/magabrotheeeer/premium-access/internal/migrations"
	"github.com/magabrotheeeer/premium-access/internal/models"
	authservice "github.com/magabrotheeeer/premium-access/internal/services/auth"
	"github.com/magabrotheeeer/premium-access/internal/services/ledger"
	"github.com/magabrotheeeer/premium-access/internal/services/notification"
	paymentservice "github.com/magabrotheeeer/premium-access/internal/services/payment"
	subservice "github.com/magabrotheeeer/premium-access/internal/services/subscription"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// App HTTP-сервер премиум-доступа со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилище, кэш и брокер, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.premiumaccess.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		cacheRedis.Close()
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		cacheRedis.Close()
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.MustRegister()

	policy := access.New(cfg.Access.TrialDays)
	subs := subservice.New(db, cacheRedis, policy, logger)
	payments := ledger.New(db, models.BankDetails{
		Institution:   cfg.Bank.Institution,
		Holder:        cfg.Bank.Holder,
		AccountNumber: cfg.Bank.AccountNumber,
		IBAN:          cfg.Bank.IBAN,
	}, logger)
	notifier := notification.New(ch, cfg.RabbitMQ.Exchange, logger)
	workflow := paymentservice.New(db, subs, payments, notifier, paymentservice.PriceTable{
		models.PlanSevenDays:  cfg.Pricing.SevenDays,
		models.PlanThirtyDays: cfg.Pricing.ThirtyDays,
	}, logger)
	auth := authservice.New(db, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:          auth,
		Subscriptions: subs,
		Payments:      workflow,
		Storage:       db,
	}, RateLimit{RPS: cfg.RateLimit, Burst: cfg.RateBurst}, Webhook{Secret: cfg.Webhook.Secret})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
