package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corray333/backend-labs/cafe/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/cafe/internal/notifier"
	"github.com/corray333/backend-labs/cafe/internal/otel"
	"github.com/corray333/backend-labs/cafe/internal/transport/consumer"
	"github.com/spf13/viper"
)

// MailerApp consumes queued notifications and emails them.
type MailerApp struct {
	consumerTransp *consumer.Consumer
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewMailerApp creates the mailer. The AMQP driver is not allowed here
// since the mailer would publish to its own queue.
func MustNewMailerApp() *MailerApp {
	otelController := otel.MustInitOtel("cafe-mailer")

	apiKey := viper.GetString("notifier.sendgrid.api_key")
	driver, err := notifier.ResolveDriver("", apiKey)
	if err != nil {
		panic(err)
	}

	var deliverer notifier.Deliverer
	if driver == notifier.DriverSendGrid {
		deliverer = notifier.NewSendGridDeliverer(apiKey, viper.GetString("notifier.from"), viper.GetString("notifier.from_name"))
	} else {
		slog.Warn("SendGrid is not configured, verification codes will be logged")
		deliverer = notifier.NewLogDeliverer(slog.Default())
	}

	rabbitMqClient := rabbitmq.MustNewClient()
	consumerTransp := consumer.NewConsumer(rabbitMqClient, deliverer)

	return &MailerApp{
		consumerTransp: consumerTransp,
		rabbitMqClient: rabbitMqClient,
		otelController: otelController,
	}
}

// Run starts consuming and blocks until SIGINT or SIGTERM.
func (a *MailerApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	}
	cancel()

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.otelController.Shutdown(context.Background()); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
