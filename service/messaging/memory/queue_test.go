package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/service/messaging"
)

func TestQueue(t *testing.T) {
	queue := NewQueue[machine.Trap](DefaultConfig())
	ctx := context.Background()
	traps := []machine.Trap{
		machine.NewSyscall(state.State{PC: 0x100}, 4, 0x40, 0, 0),
		machine.NewInterrupt(state.State{PC: 0x200}, device.LineTimer),
	}
	for i := range traps {
		require.NoError(t, queue.Publish(ctx, &traps[i]))
	}
	assert.Equal(t, 2, queue.Size())

	for _, expect := range traps {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, message.ID())
		assert.Equal(t, expect, *message.T(), "FIFO order")
		assert.NoError(t, message.Ack())
		assert.Error(t, message.Ack(), "double ack")
	}
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Nack(t *testing.T) {
	var testCases = []struct {
		description string
		deadLetter  bool
		expect      int
	}{
		{description: "dead letter enabled", deadLetter: true, expect: 1},
		{description: "dead letter disabled", deadLetter: false, expect: 0},
	}
	for _, testCase := range testCases {
		queue := NewQueue[machine.Trap](Config{Buffer: 1, DeadLetter: testCase.deadLetter})
		ctx := context.Background()
		trap := machine.NewInterrupt(state.State{}, device.LineDisk)
		require.NoError(t, queue.Publish(ctx, &trap), testCase.description)
		message, err := queue.Consume(ctx)
		require.NoError(t, err, testCase.description)

		cause := errors.New("kernel panic")
		assert.NoError(t, message.Nack(cause), testCase.description)
		assert.Error(t, message.Nack(cause), testCase.description)
		assert.Equal(t, 0, queue.Size(), "no redelivery")
		dlq := queue.DLQ()
		require.Len(t, dlq, testCase.expect, testCase.description)
		if testCase.expect > 0 {
			assert.Equal(t, cause, dlq[0].Err(), testCase.description)
		}
	}
}

func TestQueue_NonBlocking(t *testing.T) {
	queue := NewQueue[int](Config{Buffer: 1, NonBlocking: true})
	ctx := context.Background()
	one, two := 1, 2
	assert.NoError(t, queue.Publish(ctx, &one))
	assert.ErrorIs(t, queue.Publish(ctx, &two), messaging.ErrQueueFull)
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[int](Config{Buffer: 4})
	ctx := context.Background()
	producers, perProducer := 8, 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				assert.NoError(t, queue.Publish(ctx, &v))
			}
		}(p)
	}

	seen := map[int]bool{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for len(seen) < producers*perProducer {
			message, err := queue.Consume(ctx)
			if !assert.NoError(t, err) {
				return
			}
			seen[*message.T()] = true
			assert.NoError(t, message.Ack())
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	wg.Wait()
	assert.Len(t, seen, producers*perProducer)
}

func TestQueue_ContextCancellation(t *testing.T) {
	queue := NewQueue[int](Config{Buffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := 1
	assert.ErrorIs(t, queue.Publish(ctx, &v), context.Canceled)

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, queue.Publish(context.Background(), &v))
	blockedCtx, cancelBlocked := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelBlocked()
	assert.ErrorIs(t, queue.Publish(blockedCtx, &v), context.DeadlineExceeded, "full queue waits for the context")
}
