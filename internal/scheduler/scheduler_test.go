package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResubmitter struct {
	calls atomic.Int32
}

func (c *countingResubmitter) ResubmitStale(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestScheduler_InvoiceSweep(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	r := &countingResubmitter{}
	require.NoError(t, s.AddInvoiceSweep(context.Background(), 20*time.Millisecond, r))
	assert.Equal(t, 1, s.JobCount())

	s.Start()
	defer func() { assert.NoError(t, s.Shutdown()) }()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
