package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
)

type publisher interface {
	Publish(queue string, msg amqp.Publishing) error
}

// AMQPDeliverer hands notifications to the mailer through a queue.
type AMQPDeliverer struct {
	publisher publisher
	queue     string
}

//goland:noinspection GoExportedFuncWithUnexportedType
func NewAMQPDeliverer(p publisher, queue string) *AMQPDeliverer {
	return &AMQPDeliverer{
		publisher: p,
		queue:     queue,
	}
}

func (d *AMQPDeliverer) Name() string {
	return DriverAMQP
}

func (d *AMQPDeliverer) Deliver(ctx context.Context, n notification.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, rabbitmq.HeaderCarrier(headers))

	err = d.publisher.Publish(d.queue, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         "order.verification_code",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
