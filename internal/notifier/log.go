package notifier

import (
	"context"
	"log/slog"

	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
)

// LogDeliverer writes the code to the log for manual retrieval.
// It is used when no email credential is configured.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Name() string {
	return DriverLog
}

func (d *LogDeliverer) Deliver(ctx context.Context, n notification.Notification) error {
	d.logger.InfoContext(ctx, "Email delivery disabled, verification code logged instead",
		"order_id", n.OrderID,
		"to", n.To,
		"code", n.Code,
	)

	return nil
}
