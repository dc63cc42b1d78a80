package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nucleus/machine/sim"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/pcb"
)

func newKernel() (*kernel.Kernel, *sim.Machine) {
	m := sim.New()
	config := kernel.Config{MaxProc: 4, MaxSemaphores: 4, TimeSlice: 5000, PseudoClock: 100000, DevicesPerLine: 8}
	return kernel.New(config, m, nil), m
}

func spawn(t *testing.T, k *kernel.Kernel, pc uint32) pcb.ID {
	id, ok := k.Procs.Allocate()
	require.True(t, ok)
	d := k.Procs.Get(id)
	d.PID = k.NextPID()
	d.State.PC = pc
	k.ProcessCount++
	return id
}

func TestService_Dispatch(t *testing.T) {
	k, m := newKernel()
	a := spawn(t, k, 0x100)
	b := spawn(t, k, 0x200)
	k.MakeReady(a)
	k.MakeReady(b)
	m.Advance(40000)

	outcome, err := New().Schedule(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, OutcomeResumed, outcome)
	assert.Equal(t, a, k.Current)
	running, _ := m.Running()
	assert.EqualValues(t, 0x100, running.PC)
	assert.EqualValues(t, 5000, m.Timer(), "full slice fits in the pseudo-clock period")
	assert.EqualValues(t, 40000, k.Tick)
	assert.Equal(t, []pcb.ID{b}, k.Procs.Items(&k.Ready))
}

func TestService_DispatchResetsSliceOnly(t *testing.T) {
	k, _ := newKernel()
	a := spawn(t, k, 0x100)
	d := k.Procs.Get(a)
	d.CPUTime, d.SliceUsed = 7000, 5000
	k.MakeReady(a)

	_, err := New().Schedule(context.Background(), k)
	require.NoError(t, err)
	assert.EqualValues(t, 0, d.SliceUsed, "a new slice starts on dispatch")
	assert.EqualValues(t, 7000, d.CPUTime, "lifetime CPU time is kept")
}

func TestService_TimerPicksSmallerBudget(t *testing.T) {
	var testCases = []struct {
		description string
		tick        uint64
		sliceUsed   uint64
		elapsed     uint64
		expect      uint64
	}{
		{description: "slice remainder", tick: 0, sliceUsed: 1000, elapsed: 1000, expect: 3000},
		{description: "pseudo-clock remainder", tick: 98000, sliceUsed: 0, elapsed: 500, expect: 1500},
		{description: "slice exhausted", tick: 0, sliceUsed: 4000, elapsed: 2000, expect: 0},
		{description: "period overdue", tick: 99900, sliceUsed: 0, elapsed: 200, expect: 0},
	}
	for _, testCase := range testCases {
		k, m := newKernel()
		k.Current = spawn(t, k, 0x100)
		k.CurrentDescriptor().SliceUsed = testCase.sliceUsed
		k.Tick = testCase.tick
		m.Advance(testCase.elapsed)

		outcome, err := New().Schedule(context.Background(), k)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, OutcomeResumed, outcome, testCase.description)
		assert.Equal(t, testCase.expect, m.Timer(), testCase.description)
		assert.EqualValues(t, testCase.elapsed, k.CurrentDescriptor().CPUTime, testCase.description)
	}
}

func TestService_Halt(t *testing.T) {
	k, m := newKernel()
	outcome, err := New().Schedule(context.Background(), k)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeHalted, outcome)
	assert.True(t, m.Halted())
}

func TestService_Deadlock(t *testing.T) {
	k, m := newKernel()
	ctx := context.Background()
	k.Current = spawn(t, k, 0x100)
	blocked, err := k.Passeren(ctx, 0x40, false)
	require.NoError(t, err)
	require.True(t, blocked)

	_, err = New().Schedule(ctx, k)
	assert.True(t, kernel.IsPanic(err))
	assert.ErrorIs(t, err, kernel.ErrDeadlock)
	assert.False(t, m.Halted())
	assert.Equal(t, 0, m.Waits())
}

func TestService_Wait(t *testing.T) {
	k, m := newKernel()
	ctx := context.Background()
	k.Current = spawn(t, k, 0x100)
	blocked, err := k.Passeren(ctx, k.Bank().PseudoClock(), true)
	require.NoError(t, err)
	require.True(t, blocked)
	m.Advance(30000)

	outcome, err := New().Schedule(ctx, k)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeWaiting, outcome)
	assert.Equal(t, 1, m.Waits())
	assert.EqualValues(t, 70000, m.Timer())
	assert.Equal(t, "waiting", outcome.String())
}
