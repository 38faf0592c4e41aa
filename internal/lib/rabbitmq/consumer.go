package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
)

// maxInFlight сколько сообщений одной очереди обрабатывается одновременно.
const maxInFlight = 10

// ConsumerMessage запускает потребителя очереди queueName. Сообщение подтверждается,
// если handler вернул nil, иначе возвращается в очередь.
// Одновременно обрабатывается не более 10 сообщений.
//
// Потребитель и все начатые обработчики учитываются в wg: после отмены ctx
// wg.Wait дожидается их ack/nack, и только потом можно закрывать канал.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, wg *sync.WaitGroup, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	wg.Add(1)
	go consume(ctx, log, delivery, maxInFlight, wg, handler)
	return nil
}

func consume(ctx context.Context, log *slog.Logger, deliveries <-chan amqp.Delivery, limit int, wg *sync.WaitGroup, handler func([]byte) error) {
	defer wg.Done()
	sem := make(chan struct{}, limit)
	for {
		var d amqp.Delivery
		select {
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			d = msg
		case <-ctx.Done():
			return
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			if err := d.Nack(false, true); err != nil {
				log.Error("failed to requeue message on shutdown", sl.Err(err))
			}
			return
		}

		wg.Add(1)
		go func(d amqp.Delivery) {
			defer wg.Done()
			defer func() { <-sem }()
			handle(log, d, handler)
		}(d)
	}
}

func handle(log *slog.Logger, d amqp.Delivery, handler func([]byte) error) {
	if err := handler(d.Body); err != nil {
		log.Warn("handler failed, requeueing", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
