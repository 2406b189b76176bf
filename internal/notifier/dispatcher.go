package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/metrics"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/sony/gobreaker/v2"
)

const (
	DriverLog      = "log"
	DriverSendGrid = "sendgrid"
	DriverAMQP     = "amqp"

	defaultTimeout = 10 * time.Second
)

// Deliverer sends one notification synchronously.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, n notification.Notification) error
}

// Dispatcher delivers notifications in the background so callers never wait on email.
type Dispatcher struct {
	deliverer Deliverer
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker[struct{}]
	wg        sync.WaitGroup
}

func NewDispatcher(deliverer Deliverer, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        deliverer.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Notifier circuit breaker state changed", "driver", name, "from", from.String(), "to", to.String())
		},
	})

	return &Dispatcher{
		deliverer: deliverer,
		timeout:   timeout,
		breaker:   breaker,
	}
}

// Notify schedules delivery and returns immediately. Failures are logged and counted.
func (d *Dispatcher) Notify(ctx context.Context, n notification.Notification) {
	// Delivery outlives the request that triggered it.
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		_, err := d.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, d.deliverer.Deliver(ctx, n)
		})
		if err != nil {
			metrics.NotificationsFailed.WithLabelValues(d.deliverer.Name()).Inc()
			slog.Error("Failed to deliver verification code",
				"driver", d.deliverer.Name(),
				"order_id", n.OrderID,
				"error", err,
			)

			return
		}

		slog.Debug("Verification code delivered", "driver", d.deliverer.Name(), "order_id", n.OrderID)
	}()
}

// Close waits for in-flight deliveries or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
