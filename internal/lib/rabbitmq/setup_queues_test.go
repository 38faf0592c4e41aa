package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/premium-access/internal/models"
)

func TestGetNotificationQueues(t *testing.T) {
	queues := GetNotificationQueues()
	require.Len(t, queues, 3)

	assert.Equal(t, "notifications.approved", queues[1].QueueName)
	assert.Equal(t, "payment.approved", queues[1].RoutingKey)

	seen := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
		seen[q.QueueName] = true
	}
}

type channelStub struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (c *channelStub) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func TestPublishMessage(t *testing.T) {
	ch := &channelStub{}
	n := models.Notification{Kind: models.NotifyRejected, UserID: "u-1", Reason: "proof unreadable"}

	err := PublishMessage(context.Background(), ch, "notifications", RoutingKey(n.Kind), n)
	require.NoError(t, err)

	assert.Equal(t, "notifications", ch.exchange)
	assert.Equal(t, "payment.rejected", ch.key)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var got models.Notification
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, n.Reason, got.Reason)
}

func TestPublishMessage_Errors(t *testing.T) {
	ch := &channelStub{err: errors.New("channel closed")}
	err := PublishMessage(context.Background(), ch, "notifications", "payment.approved", struct{}{})
	assert.ErrorContains(t, err, "channel closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = PublishMessage(ctx, &channelStub{}, "notifications", "payment.approved", struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
}
