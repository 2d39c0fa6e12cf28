package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 16})
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "notify", "sendMessage", func() error {
			ran.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(10), ran.Load())
	assert.Zero(t, d.ErrorCount())
	assert.Zero(t, d.Pending())

	assert.ErrorIs(t, d.Enqueue(context.Background(), "late", "", func() error { return nil }), ErrQueueClosed)
	d.Close()
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "notify", "", func() error {
		if calls.Add(1) < 3 {
			return refused
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "notify", "", func() error {
		calls.Add(1)
		return errors.New("chat not found")
	}))
	d.Close()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherReportsFinalResultOnce(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	var recovered, exhausted []error
	var calls atomic.Int32
	require.NoError(t, d.EnqueueWithResult(context.Background(), "notify", "", func() error {
		if calls.Add(1) < 2 {
			return refused
		}
		return nil
	}, func(err error) { recovered = append(recovered, err) }))
	require.NoError(t, d.EnqueueWithResult(context.Background(), "notify", "", func() error {
		return refused
	}, func(err error) { exhausted = append(exhausted, err) }))
	d.Close()

	assert.Equal(t, []error{nil}, recovered)
	require.Len(t, exhausted, 1)
	assert.ErrorIs(t, exhausted[0], syscall.ECONNREFUSED)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherQueueFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	require.NoError(t, d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func() error { return nil }), ErrQueueFull)
	close(block)
	d.Close()
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": EOF`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, sanitizeErrorMessage(err))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}))
	assert.Equal(t, "unknown", classifyError(errors.New("x")))
}
