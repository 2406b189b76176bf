package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/cafe/internal/notifier"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 10

// ErrMalformedMessage marks deliveries that can never be processed.
var ErrMalformedMessage = errors.New("malformed notification message")

// deliverer sends a notification, e.g. by email.
type deliverer interface {
	Deliver(ctx context.Context, n notification.Notification) error
}

// acknowledger is the part of amqp.Delivery the consumer settles messages with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type broker interface {
	DeclareQueue(cfg rabbitmq.DeclareQueueConfig) (amqp.Queue, error)
	Qos(prefetch int) error
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
}

// Consumer represents the RabbitMQ consumer transport.
type Consumer struct {
	client      broker
	deliverer   deliverer
	queue       amqp.Queue
	concurrency int
	timeout     time.Duration
	stop        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewConsumer declares the notifications queue and creates a Consumer.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func NewConsumer(client broker, deliverer deliverer) *Consumer {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	concurrency := viper.GetInt("mailer.concurrency")
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	timeout := viper.GetDuration("notifier.timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Consumer{
		client:      client,
		deliverer:   deliverer,
		queue:       queue,
		concurrency: concurrency,
		timeout:     timeout,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run consumes messages until Shutdown is called or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "cafe-mailer"
	}

	if err := c.client.Qos(c.concurrency); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag, "concurrency", c.concurrency)

	return c.consume(ctx, msgs)
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) error {
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	defer close(c.done)

	for {
		select {
		case <-c.stop:
			slog.Info("Stopping consumer")

			return c.wait(&g)
		case <-ctx.Done():
			slog.Info("Consumer context cancelled")

			return c.wait(&g)
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("Message channel closed")

				return c.wait(&g)
			}

			g.Go(func() error {
				// Failures are settled per message and must not stop the consumer.
				_ = c.processMessage(ctx, msg.Body, msg.Headers, msg.Redelivered, &msg)

				return nil
			})
		}
	}
}

func (c *Consumer) wait(g *errgroup.Group) error {
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage delivers one notification and settles the message.
// Malformed messages and permanent rejections are dropped. Other delivery failures are
// requeued once; a redelivered message that fails again is dropped.
func (c *Consumer) processMessage(ctx context.Context, body []byte, headers amqp.Table, redelivered bool, ack acknowledger) error {
	if headers != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, rabbitmq.HeaderCarrier(headers))
	}
	ctx, span := otel.Tracer("mailer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	var n notification.Notification
	if err := json.Unmarshal(body, &n); err != nil || n.To == "" || n.Code == "" {
		if err == nil {
			err = errors.New("missing recipient or code")
		}
		slog.Error("Dropping malformed notification", "error", err)
		if err := ack.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	deliverCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.deliverer.Deliver(deliverCtx, n); err != nil {
		requeue := !redelivered && !errors.Is(err, notifier.ErrPermanent)
		if requeue {
			slog.Error("Failed to deliver notification, requeueing", "order_id", n.OrderID, "error", err)
		} else {
			slog.Error("Failed to deliver notification, dropping", "order_id", n.OrderID, "redelivered", redelivered, "error", err)
		}
		if err := ack.Nack(false, requeue); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := ack.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Info("Notification delivered", "order_id", n.OrderID)

	return nil
}

// Shutdown stops consuming and waits for in-flight messages.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	c.stopOnce.Do(func() { close(c.stop) })

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
