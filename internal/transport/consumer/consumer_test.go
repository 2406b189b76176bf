package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/cafe/internal/notifier"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	declared rabbitmq.DeclareQueueConfig
	prefetch int
	msgs     chan amqp.Delivery
}

func (b *fakeBroker) Qos(prefetch int) error {
	b.prefetch = prefetch

	return nil
}

func (b *fakeBroker) DeclareQueue(cfg rabbitmq.DeclareQueueConfig) (amqp.Queue, error) {
	b.declared = cfg

	return amqp.Queue{Name: cfg.Name}, nil
}

func (b *fakeBroker) Consume(_ rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error) {
	return b.msgs, nil
}

type fakeDeliverer struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (d *fakeDeliverer) Deliver(_ context.Context, n notification.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)

	return d.err
}

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *fakeAck) Ack(bool) error {
	a.acked = true

	return nil
}

func (a *fakeAck) Nack(_, requeue bool) error {
	a.nacked = true
	a.requeued = requeue

	return nil
}

// recordingAcknowledger satisfies amqp.Acknowledger for deliveries fed through a channel.
type recordingAcknowledger struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []uint64
}

func (r *recordingAcknowledger) Ack(tag uint64, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, tag)

	return nil
}

func (r *recordingAcknowledger) Nack(tag uint64, _, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacks = append(r.nacks, tag)

	return nil
}

func (r *recordingAcknowledger) Reject(tag uint64, _ bool) error {
	return r.Nack(tag, false, false)
}

func newTestConsumer(t *testing.T, d *fakeDeliverer) (*Consumer, *fakeBroker) {
	t.Helper()
	viper.Set("rabbitmq.queue", "order.notifications")
	t.Cleanup(viper.Reset)

	b := &fakeBroker{msgs: make(chan amqp.Delivery)}

	return NewConsumer(b, d), b
}

func body(t *testing.T, n notification.Notification) []byte {
	t.Helper()
	b, err := json.Marshal(n)
	require.NoError(t, err)

	return b
}

func TestNewConsumer_DeclaresDurableQueue(t *testing.T) {
	_, b := newTestConsumer(t, &fakeDeliverer{})

	assert.Equal(t, "order.notifications", b.declared.Name)
	assert.True(t, b.declared.Durable)
}

func TestNewConsumer_PanicsWithoutQueue(t *testing.T) {
	viper.Reset()
	assert.Panics(t, func() { NewConsumer(&fakeBroker{}, &fakeDeliverer{}) })
}

func TestProcessMessage_Delivered(t *testing.T) {
	d := &fakeDeliverer{}
	c, _ := newTestConsumer(t, d)
	ack := &fakeAck{}

	err := c.processMessage(context.Background(), body(t, notification.Notification{
		OrderID: "o1", To: "ana@x.com", Code: "482913",
	}), amqp.Table{}, false, ack)

	require.NoError(t, err)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	require.Len(t, d.sent, 1)
	assert.Equal(t, "482913", d.sent[0].Code)
}

func TestProcessMessage_MalformedIsDropped(t *testing.T) {
	d := &fakeDeliverer{}
	c, _ := newTestConsumer(t, d)

	for _, raw := range [][]byte{[]byte("{not json"), []byte(`{"orderId":"o1"}`)} {
		ack := &fakeAck{}
		err := c.processMessage(context.Background(), raw, nil, false, ack)

		assert.ErrorIs(t, err, ErrMalformedMessage)
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
	}
	assert.Empty(t, d.sent)
}

func TestProcessMessage_DeliveryFailureRequeues(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("sendgrid 503")}
	c, _ := newTestConsumer(t, d)
	ack := &fakeAck{}

	err := c.processMessage(context.Background(), body(t, notification.Notification{
		OrderID: "o1", To: "ana@x.com", Code: "482913",
	}), nil, false, ack)

	require.Error(t, err)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeued)
	assert.False(t, ack.acked)
}

func TestProcessMessage_PermanentFailureIsDropped(t *testing.T) {
	d := &fakeDeliverer{err: fmt.Errorf("%w: sendgrid responded with status 401", notifier.ErrPermanent)}
	c, _ := newTestConsumer(t, d)
	ack := &fakeAck{}

	err := c.processMessage(context.Background(), body(t, notification.Notification{
		OrderID: "o1", To: "ana@x.com", Code: "482913",
	}), nil, false, ack)

	assert.ErrorIs(t, err, notifier.ErrPermanent)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
	assert.False(t, ack.acked)
}

func TestProcessMessage_RedeliveredFailureIsDropped(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("sendgrid 503")}
	c, _ := newTestConsumer(t, d)
	ack := &fakeAck{}

	err := c.processMessage(context.Background(), body(t, notification.Notification{
		OrderID: "o1", To: "ana@x.com", Code: "482913",
	}), nil, true, ack)

	require.Error(t, err)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
	require.Len(t, d.sent, 1)
}

func TestRun_ProcessesUntilShutdown(t *testing.T) {
	d := &fakeDeliverer{}
	c, b := newTestConsumer(t, d)
	acker := &recordingAcknowledger{}

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	for i := uint64(1); i <= 3; i++ {
		b.msgs <- amqp.Delivery{
			Acknowledger: acker,
			DeliveryTag:  i,
			Body:         body(t, notification.Notification{OrderID: "o", To: "ana@x.com", Code: "111111"}),
		}
	}

	require.NoError(t, c.Shutdown())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	acker.mu.Lock()
	defer acker.mu.Unlock()
	assert.ElementsMatch(t, []uint64{1, 2, 3}, acker.acks)
	assert.Empty(t, acker.nacks)
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	c, b := newTestConsumer(t, &fakeDeliverer{})

	close(b.msgs)
	assert.NoError(t, c.Run(context.Background()))
	assert.Equal(t, defaultConcurrency, b.prefetch)
}
