package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/dal/mongo"
	"github.com/corray333/backend-labs/cafe/internal/dal/postgres"
	"github.com/corray333/backend-labs/cafe/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/cafe/internal/dal/redis"
	redisrepo "github.com/corray333/backend-labs/cafe/internal/dal/repositories/attempts/redis"
	mongorepo "github.com/corray333/backend-labs/cafe/internal/dal/repositories/order/mongo"
	postgresrepo "github.com/corray333/backend-labs/cafe/internal/dal/repositories/order/postgres"
	"github.com/corray333/backend-labs/cafe/internal/notifier"
	"github.com/corray333/backend-labs/cafe/internal/otel"
	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/services/ordersvc"
	httptransport "github.com/corray333/backend-labs/cafe/internal/transport/http"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type orderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	GetByID(ctx context.Context, id string) (order.Order, error)
	ConfirmPending(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}

type resource struct {
	name  string
	close func() error
}

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	dispatcher     *notifier.Dispatcher
	otelController *otel.OtelController
	resources      []resource
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	a := &App{}
	a.otelController = otel.MustInitOtel("cafe-order-svc")

	repo := a.mustNewOrderRepository()

	limiterOpt := ordersvc.WithAttemptLimiter(nil, 0)
	if limiter := a.newAttemptLimiter(); limiter != nil {
		limiterOpt = ordersvc.WithAttemptLimiter(limiter, viper.GetInt64("verify.max_attempts"))
	}

	a.dispatcher = notifier.NewDispatcher(a.mustNewDeliverer(), viper.GetDuration("notifier.timeout"))

	a.orderSvc = ordersvc.MustNewOrderService(
		ordersvc.WithRepository(repo),
		ordersvc.WithNotifier(a.dispatcher),
		limiterOpt,
		ordersvc.WithConfirmedLimit(viper.GetInt("orders.confirmed_limit")),
		ordersvc.WithEnforceTotal(viper.GetBool("orders.enforce_total")),
	)

	a.transport = httptransport.NewHTTPTransport(a.orderSvc)
	a.transport.RegisterRoutes()

	return a
}

// StoreKind picks the order store from the scheme of the connection string.
func StoreKind(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid store.uri: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return StorePostgres, nil
	case "mongodb", "mongodb+srv":
		return StoreMongo, nil
	default:
		return "", fmt.Errorf("unsupported store.uri scheme %q", u.Scheme)
	}
}

func (a *App) mustNewOrderRepository() orderRepository {
	uri := viper.GetString("store.uri")
	if uri == "" {
		panic("store.uri is not set")
	}

	kind, err := StoreKind(uri)
	if err != nil {
		panic(err)
	}

	switch kind {
	case StorePostgres:
		client := postgres.MustNewClient()
		a.resources = append(a.resources, resource{"PostgreSQL connection", client.Close})
		slog.Info("Using PostgreSQL order store")

		return postgresrepo.NewPostgresOrderRepository(client.DB())
	default:
		client := mongo.MustNewClient()
		a.resources = append(a.resources, resource{"MongoDB connection", client.Close})

		repo := mongorepo.NewMongoOrderRepository(client.Database(), viper.GetString("store.collection"))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.CreateIndexes(ctx); err != nil {
			slog.Warn("Failed to create order indexes", "error", err)
		}
		slog.Info("Using MongoDB order store")

		return repo
	}
}

// newAttemptLimiter returns nil unless attempt limiting is enabled and Redis is configured.
func (a *App) newAttemptLimiter() *redisrepo.RedisAttemptRepository {
	if viper.GetInt64("verify.max_attempts") <= 0 {
		return nil
	}
	if viper.GetString("redis.addr") == "" {
		slog.Warn("verify.max_attempts is set but redis.addr is empty, attempts are not limited")

		return nil
	}

	client := redis.MustNewClient()
	a.resources = append(a.resources, resource{"Redis connection", client.Close})

	return redisrepo.NewRedisAttemptRepository(client, viper.GetDuration("verify.attempts_ttl"))
}

func (a *App) mustNewDeliverer() notifier.Deliverer {
	apiKey := viper.GetString("notifier.sendgrid.api_key")

	driver, err := notifier.ResolveDriver(viper.GetString("notifier.driver"), apiKey)
	if err != nil {
		panic(err)
	}

	switch driver {
	case notifier.DriverSendGrid:
		slog.Info("SendGrid email delivery configured")

		return notifier.NewSendGridDeliverer(apiKey, viper.GetString("notifier.from"), viper.GetString("notifier.from_name"))
	case notifier.DriverAMQP:
		client := rabbitmq.MustNewClient()
		a.resources = append(a.resources, resource{"RabbitMQ connection", client.Close})

		queue := viper.GetString("notifier.amqp.queue")
		if _, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{Name: queue, Durable: true}); err != nil {
			panic(err)
		}
		slog.Info("Verification codes are handed to the mailer", "queue", queue)

		return notifier.NewAMQPDeliverer(client, queue)
	default:
		slog.Warn("Email delivery is disabled, verification codes will be logged")

		return notifier.NewLogDeliverer(slog.Default())
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()
}

// gracefulShutdown stops the HTTP server first so no new notifications are queued,
// then drains the notifier and releases connections.
func (a *App) gracefulShutdown() {
	timeout := viper.GetDuration("server.http.shutdown_timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.dispatcher.Close(ctx); err != nil {
		slog.Error("Pending notifications were not delivered", "error", err)
	} else {
		slog.Info("Notifier drained")
	}

	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.close(); err != nil {
			slog.Error(r.name+" close error", "error", err)
		} else {
			slog.Info(r.name + " closed gracefully")
		}
	}

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
