// Package sender собирает сервис рассылки уведомлений о платежах.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/premium-access/internal/config"
	"github.com/magabrotheeeer/premium-access/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/premium-access/internal/services/sender"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// App потребитель очередей уведомлений.
type App struct {
	db            *storage.Storage
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к хранилищу и брокеру и объявляет очереди.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		db:            db,
		conn:          conn,
		ch:            ch,
		senderService: senderservice.New(db, transport, cfg.SMTP.AdminEmail, logger),
		logger:        logger,
	}, nil
}

// Run запускает потребителей всех очередей и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	// начатые письма дописываются и после отмены ctx
	handlerCtx := context.WithoutCancel(ctx)
	for _, q := range rabbitmq.GetNotificationQueues() {
		err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, &wg, func(body []byte) error {
			return a.senderService.HandleMessage(handlerCtx, body)
		})
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	wg.Wait()

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
