package worker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

// QueueNotifier 把邮件消息发布到 RabbitMQ 的邮件队列
type QueueNotifier struct {
	channel *amqp.Channel
	queue   string
	timeout time.Duration
}

func NewQueueNotifier(ch *amqp.Channel, queue string, timeout time.Duration) *QueueNotifier {
	return &QueueNotifier{
		channel: ch,
		queue:   queue,
		timeout: timeout,
	}
}

func (n *QueueNotifier) Notify(ctx context.Context, message domain.MailMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.channel.PublishWithContext(
		ctx,
		"",
		n.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
