package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter(time.Second)

	var got Task
	r.Handle(TaskTicketEmail, func(ctx context.Context, task Task) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		got = task
		return nil
	})

	task := NewTask(TaskTicketEmail, uuid.New(), uuid.New())
	require.NoError(t, r.Dispatch(context.Background(), task))
	assert.Equal(t, task, got)
}

func TestRouter_DispatchErrors(t *testing.T) {
	r := NewRouter(0)
	boom := errors.New("smtp down")
	r.Handle(TaskTicketEmail, func(context.Context, Task) error { return boom })

	assert.ErrorIs(t, r.Dispatch(context.Background(), NewTask(TaskTicketEmail, uuid.New(), uuid.New())), boom)
	assert.ErrorIs(t, r.Dispatch(context.Background(), NewTask(TaskInvoiceRequest, uuid.New(), uuid.New())), ErrNoHandler)
}

func TestMemoryQueue(t *testing.T) {
	r := NewRouter(time.Second)

	var (
		mu   sync.Mutex
		seen = map[uuid.UUID]bool{}
	)
	r.Handle(TaskTicketEmail, func(_ context.Context, task Task) error {
		mu.Lock()
		defer mu.Unlock()
		seen[task.BookingID] = true
		return nil
	})

	q := NewMemoryQueue(r, 16)
	q.Start(context.Background(), 3)

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Publish(context.Background(), NewTask(TaskTicketEmail, ids[i], uuid.New())))
	}

	// Close drains the buffer before returning.
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.True(t, seen[id], id.String())
	}

	assert.ErrorIs(t, q.Publish(context.Background(), NewTask(TaskTicketEmail, uuid.New(), uuid.New())), ErrQueueClosed)
	q.Close()
}

func TestMemoryQueue_Full(t *testing.T) {
	q := NewMemoryQueue(NewRouter(0), 1)

	require.NoError(t, q.Publish(context.Background(), NewTask(TaskTicketEmail, uuid.New(), uuid.New())))
	assert.ErrorIs(t, q.Publish(context.Background(), NewTask(TaskTicketEmail, uuid.New(), uuid.New())), ErrQueueFull)
}

type fakeAcknowledger struct {
	acks, nacks atomic.Int32
	requeued    atomic.Bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acks.Add(1)
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks.Add(1)
	if requeue {
		f.requeued.Store(true)
	}
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return f.Nack(0, false, requeue)
}

func delivery(t *testing.T, ack amqp.Acknowledger, task Task) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(task)
	require.NoError(t, err)

	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, MessageId: task.ID.String(), Body: body}
}

func TestAMQPConsumer_Handle(t *testing.T) {
	r := NewRouter(time.Second)
	r.Handle(TaskTicketEmail, func(context.Context, Task) error { return nil })
	r.Handle(TaskInvoiceRequest, func(context.Context, Task) error { return errors.New("provider down") })
	c := NewAMQPConsumer("amqp://unused", "tasks", 4, r)

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		c.handle(context.Background(), delivery(t, ack, NewTask(TaskTicketEmail, uuid.New(), uuid.New())))
		assert.EqualValues(t, 1, ack.acks.Load())
		assert.Zero(t, ack.nacks.Load())
	})

	t.Run("nack without requeue on failure", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		c.handle(context.Background(), delivery(t, ack, NewTask(TaskInvoiceRequest, uuid.New(), uuid.New())))
		assert.EqualValues(t, 1, ack.nacks.Load())
		assert.False(t, ack.requeued.Load())
	})

	t.Run("malformed body", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
		assert.EqualValues(t, 1, ack.nacks.Load())
		assert.Zero(t, ack.acks.Load())
	})
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second))
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
