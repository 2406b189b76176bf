package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification() notification.Notification {
	return notification.Notification{
		OrderID:      "order-1",
		To:           "ana@x.com",
		EmployeeName: "Ana",
		Code:         "482913",
		Items: []orderitem.OrderItem{
			{ProductID: "1", Name: "Espresso Simple", Quantity: 1, Price: decimal.RequireFromString("2.50")},
			{ProductID: "2", Name: "Latte Vainilla", Quantity: 2, Price: decimal.RequireFromString("4.50")},
		},
		Total: decimal.RequireFromString("11.50"),
	}
}

func TestResolveDriver(t *testing.T) {
	d, err := ResolveDriver("", "")
	require.NoError(t, err)
	assert.Equal(t, DriverLog, d)

	d, err = ResolveDriver("", "SG.key")
	require.NoError(t, err)
	assert.Equal(t, DriverSendGrid, d)

	d, err = ResolveDriver(" AMQP ", "")
	require.NoError(t, err)
	assert.Equal(t, DriverAMQP, d)

	_, err = ResolveDriver("sendgrid", "")
	assert.Error(t, err)

	_, err = ResolveDriver("pigeon", "")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	email, err := Render(testNotification())
	require.NoError(t, err)

	assert.Contains(t, email.Subject, "482913")
	assert.Contains(t, email.HTML, "1x Espresso Simple - $2.50")
	assert.Contains(t, email.HTML, "2x Latte Vainilla - $9.00")
	assert.Contains(t, email.HTML, "Total: $11.50")
	assert.Contains(t, email.Text, "- 2x Latte Vainilla - $9.00")
	assert.Contains(t, email.Text, "verification code: 482913")
}

func TestRender_EscapesHTML(t *testing.T) {
	n := testNotification()
	n.EmployeeName = "<script>alert(1)</script>"

	email, err := Render(n)
	require.NoError(t, err)
	assert.NotContains(t, email.HTML, "<script>")
}

func TestLogDeliverer(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDeliverer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, d.Deliver(context.Background(), testNotification()))
	assert.Contains(t, buf.String(), "code=482913")
	assert.Contains(t, buf.String(), "to=ana@x.com")
}

func TestSendGridDeliverer(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendEndpoint, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewSendGridDeliverer("SG.test", "cafe@example.com", "Café", WithSendGridHost(server.URL))
	require.NoError(t, d.Deliver(context.Background(), testNotification()))

	assert.Equal(t, "Bearer SG.test", gotAuth)
	assert.Contains(t, gotBody["subject"], "482913")
	from, _ := gotBody["from"].(map[string]any)
	assert.Equal(t, "cafe@example.com", from["email"])
}

func TestSendGridDeliverer_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	d := NewSendGridDeliverer("SG.bad", "cafe@example.com", "Café", WithSendGridHost(server.URL))
	err := d.Deliver(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestSendGridDeliverer_RetryableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		d := NewSendGridDeliverer("SG.test", "cafe@example.com", "Café", WithSendGridHost(server.URL))
		err := d.Deliver(context.Background(), testNotification())
		server.Close()

		require.Error(t, err, status)
		assert.NotErrorIs(t, err, ErrPermanent, status)
	}
}

type fakePublisher struct {
	mu    sync.Mutex
	queue string
	msgs  []amqp.Publishing
	err   error
}

func (p *fakePublisher) Publish(queue string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = queue
	p.msgs = append(p.msgs, msg)

	return p.err
}

func TestAMQPDeliverer(t *testing.T) {
	p := &fakePublisher{}
	d := NewAMQPDeliverer(p, "order.notifications")

	require.NoError(t, d.Deliver(context.Background(), testNotification()))

	require.Len(t, p.msgs, 1)
	assert.Equal(t, "order.notifications", p.queue)
	assert.Equal(t, "application/json", p.msgs[0].ContentType)
	assert.NotEmpty(t, p.msgs[0].MessageId)

	var decoded notification.Notification
	require.NoError(t, json.Unmarshal(p.msgs[0].Body, &decoded))
	assert.Equal(t, "482913", decoded.Code)
	assert.True(t, decoded.Total.Equal(decimal.RequireFromString("11.5")))

	// Headers are a valid carrier even without an active span.
	assert.NotNil(t, rabbitmq.HeaderCarrier(p.msgs[0].Headers).Keys())
}

type fakeDeliverer struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (d *fakeDeliverer) Name() string { return "fake" }

func (d *fakeDeliverer) Deliver(ctx context.Context, _ notification.Notification) error {
	d.calls.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return d.err
}

func TestDispatcher_NotifyIsAsync(t *testing.T) {
	d := &fakeDeliverer{delay: 50 * time.Millisecond}
	disp := NewDispatcher(d, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	disp.Notify(ctx, testNotification())
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	// Cancelling the request does not abort delivery.
	cancel()

	require.NoError(t, disp.Close(context.Background()))
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestDispatcher_FailureDoesNotPanic(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("smtp down")}
	disp := NewDispatcher(d, time.Second)

	disp.Notify(context.Background(), testNotification())
	require.NoError(t, disp.Close(context.Background()))
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestDispatcher_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("smtp down")}
	disp := NewDispatcher(d, time.Second)

	for i := 0; i < 8; i++ {
		disp.Notify(context.Background(), testNotification())
		require.NoError(t, disp.Close(context.Background()))
	}

	assert.Equal(t, int32(5), d.calls.Load())
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	d := &fakeDeliverer{delay: time.Second}
	disp := NewDispatcher(d, 5*time.Second)
	disp.Notify(context.Background(), testNotification())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, disp.Close(ctx), context.DeadlineExceeded)
}
