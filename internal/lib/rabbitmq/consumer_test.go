package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.nacks = append(a.nacks, tag)
	}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *ackRecorder) snapshot() (acks, nacks []uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acks...), append([]uint64(nil), a.nacks...)
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func waitGroupDone(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsume_AckAndRequeue(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ack := &ackRecorder{}
	deliveries := make(chan amqp.Delivery)

	var wg sync.WaitGroup
	wg.Add(1)
	go consume(context.Background(), log, deliveries, 2, &wg, func(body []byte) error {
		if string(body) == "bad" {
			return errors.New("smtp down")
		}
		return nil
	})

	deliveries <- delivery(ack, 1, "ok")
	deliveries <- delivery(ack, 2, "bad")
	close(deliveries)
	waitGroupDone(t, &wg)

	acks, nacks := ack.snapshot()
	assert.Equal(t, []uint64{1}, acks)
	assert.Equal(t, []uint64{2}, nacks)
}

func TestConsume_ShutdownWaitsForInFlight(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ack := &ackRecorder{}
	deliveries := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go consume(ctx, log, deliveries, 1, &wg, func([]byte) error {
		close(started)
		<-release
		return nil
	})

	deliveries <- delivery(ack, 1, "slow")
	<-started
	// единственный слот занят, второе сообщение ждёт его
	deliveries <- delivery(ack, 2, "waiting")
	cancel()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("wait returned before the in-flight handler finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	waitGroupDone(t, &wg)

	acks, nacks := ack.snapshot()
	require.Equal(t, []uint64{1}, acks)
	assert.Equal(t, []uint64{2}, nacks)
}
