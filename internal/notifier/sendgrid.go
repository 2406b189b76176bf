package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendEndpoint = "/v3/mail/send"

// SendGridDeliverer emails the verification code through the SendGrid v3 API.
type SendGridDeliverer struct {
	client *sendgrid.Client
	from   *mail.Email
}

type sendGridOption func(*sendGridConfig)

type sendGridConfig struct {
	host string
}

// WithSendGridHost overrides the API host, e.g. for a local mock.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSendGridHost(host string) sendGridOption {
	return func(c *sendGridConfig) {
		c.host = host
	}
}

func NewSendGridDeliverer(apiKey, from, fromName string, opts ...sendGridOption) *SendGridDeliverer {
	cfg := &sendGridConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	request := sendgrid.GetRequest(apiKey, sendEndpoint, cfg.host)
	request.Method = "POST"

	return &SendGridDeliverer{
		client: &sendgrid.Client{Request: request},
		from:   mail.NewEmail(fromName, from),
	}
}

func (d *SendGridDeliverer) Name() string {
	return DriverSendGrid
}

func (d *SendGridDeliverer) Deliver(ctx context.Context, n notification.Notification) error {
	email, err := Render(n)
	if err != nil {
		return err
	}

	to := mail.NewEmail(n.EmployeeName, n.To)
	message := mail.NewSingleEmail(d.from, email.Subject, to, email.Text, email.HTML)

	resp, err := d.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: sendgrid responded with status %d: %s", ErrPermanent, resp.StatusCode, resp.Body)
	default:
		return fmt.Errorf("sendgrid responded with status %d: %s", resp.StatusCode, resp.Body)
	}
}
