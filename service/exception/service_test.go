package exception

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/machine/sim"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/pcb"
)

type fixture struct {
	k      *kernel.Kernel
	m      *sim.Machine
	events []kernel.Event
}

func newFixture(maxProc int) *fixture {
	m := sim.New()
	config := kernel.Config{MaxProc: maxProc, MaxSemaphores: maxProc, TimeSlice: 5000, PseudoClock: 100000, DevicesPerLine: 8}
	ret := &fixture{k: kernel.New(config, m, nil), m: m}
	ret.k.AddListener(func(ctx context.Context, event kernel.Event) {
		ret.events = append(ret.events, event)
	})
	return ret
}

// boot makes a kernel-mode process current.
func (f *fixture) boot(t *testing.T) pcb.ID {
	id, ok := f.k.Procs.Allocate()
	require.True(t, ok)
	d := f.k.Procs.Get(id)
	d.PID = f.k.NextPID()
	d.State.SetMode(state.ModeKernel)
	d.State.PC = 0x1000
	f.k.ProcessCount++
	f.k.Current = id
	return id
}

func (f *fixture) syscall(t *testing.T, number, a2, a3, a4 uint32) error {
	d := f.k.CurrentDescriptor()
	require.NotNil(t, d)
	return New().Handle(context.Background(), f.k, machine.NewSyscall(d.State, number, a2, a3, a4))
}

func (f *fixture) terminated() []kernel.Event {
	var ret []kernel.Event
	for _, event := range f.events {
		if event.Type == kernel.EventTerminated {
			ret = append(ret, event)
		}
	}
	return ret
}

func TestService_Create(t *testing.T) {
	f := newFixture(3)
	parent := f.boot(t)
	f.m.StoreState(0x2000, state.State{PC: 0x3000, SP: 0x8000})

	require.NoError(t, f.syscall(t, SysCreate, 0x2000, 0, 0))
	d := f.k.Procs.Get(parent)
	assert.EqualValues(t, 2, d.State.A1)
	assert.EqualValues(t, 0x1004, d.State.PC, "syscall returns past the trapping instruction")
	assert.Equal(t, 2, f.k.ProcessCount)

	children := f.k.Procs.Children(parent)
	require.Len(t, children, 1)
	child := f.k.Procs.Get(children[0])
	assert.EqualValues(t, 0x3000, child.State.PC)
	assert.EqualValues(t, 0, child.CPUTime)
	assert.Equal(t, []pcb.ID{children[0]}, f.k.Procs.Items(&f.k.Ready))
	assert.Equal(t, kernel.EventCreated, f.events[0].Type)
	assert.NoError(t, f.k.Check())
}

func TestService_CreateExhausted(t *testing.T) {
	f := newFixture(1)
	parent := f.boot(t)
	require.NoError(t, f.syscall(t, SysCreate, 0x2000, 0, 0))
	assert.Equal(t, CreateFailed, int32(f.k.Procs.Get(parent).State.A1))
	assert.Equal(t, 1, f.k.ProcessCount)
	assert.Equal(t, parent, f.k.Current)
}

func TestService_TerminateTree(t *testing.T) {
	f := newFixture(4)
	root := f.boot(t)
	f.m.StoreState(0x2000, state.State{PC: 0x3000})
	require.NoError(t, f.syscall(t, SysCreate, 0x2000, 0, 0))
	require.NoError(t, f.syscall(t, SysCreate, 0x2000, 0, 0))
	require.Equal(t, 3, f.k.ProcessCount)

	// the first child blocks on a user semaphore, the second stays ready
	f.k.Preempt()
	first, ok := f.k.Dispatch()
	require.True(t, ok)
	require.NoError(t, f.syscall(t, SysPasseren, 0x40, 0, 0))
	assert.Equal(t, pcb.None, f.k.Current)
	assert.EqualValues(t, -1, f.k.Value(0x40))
	assert.Equal(t, []uint32{0x40}, f.k.Sems.Active())
	require.NoError(t, f.k.Procs.Remove(&f.k.Ready, root))
	f.k.Current = root

	require.NoError(t, f.syscall(t, SysTerminate, 0, 0, 0))
	assert.EqualValues(t, 0, f.k.Value(0x40), "P undone")
	assert.Equal(t, 0, f.k.ProcessCount)
	assert.Equal(t, pcb.None, f.k.Current)
	assert.True(t, f.k.Ready.IsEmpty())
	assert.Empty(t, f.k.Sems.Active())
	assert.Equal(t, 4, f.k.Procs.FreeCount())

	records := f.terminated()
	require.Len(t, records, 3)
	assert.Equal(t, accounting.ReasonKilled, records[0].Reason)
	assert.False(t, records[0].Blocked, "second child was ready")
	assert.Equal(t, accounting.ReasonKilled, records[1].Reason)
	assert.True(t, records[1].Blocked)
	assert.Equal(t, 0, f.k.PID(first), "released descriptors report no PID")
	assert.Equal(t, accounting.ReasonExit, records[2].Reason)
	assert.Equal(t, 1, records[2].PID)
	assert.Equal(t, 1, records[0].ParentPID)
}

func TestService_TerminateParentOfDeviceWaiter(t *testing.T) {
	f := newFixture(3)
	ctx := context.Background()
	parent := f.boot(t)
	f.m.StoreState(0x2000, state.State{PC: 0x3000})
	require.NoError(t, f.syscall(t, SysCreate, 0x2000, 0, 0))

	child, ok := f.k.Procs.RemoveHead(&f.k.Ready)
	require.True(t, ok)
	f.k.Current = child
	require.NoError(t, f.syscall(t, SysWaitIO, device.LineDisk, 2, 1))
	addr, _ := f.k.Bank().Device(device.LineDisk, 2, device.Receive)
	assert.EqualValues(t, -1, f.k.Value(addr))
	assert.Equal(t, 1, f.k.SoftBlockCount)

	f.k.Current = parent
	require.NoError(t, New().Terminate(ctx, f.k, parent, accounting.ReasonExit))
	assert.EqualValues(t, 0, f.k.Value(addr))
	assert.Equal(t, 0, f.k.ProcessCount)
	assert.Equal(t, 0, f.k.SoftBlockCount)
	records := f.terminated()
	require.Len(t, records, 2)
	assert.True(t, records[0].Blocked)
	assert.Equal(t, addr, records[0].SemAddr)
}

func TestService_Semaphores(t *testing.T) {
	f := newFixture(2)
	id := f.boot(t)
	f.m.StoreWord(0x40, 1)

	require.NoError(t, f.syscall(t, SysPasseren, 0x40, 0, 0))
	assert.Equal(t, id, f.k.Current, "value 1 does not block")
	assert.EqualValues(t, 0, f.m.LoadWord(0x40))

	require.NoError(t, f.syscall(t, SysVerhogen, 0x40, 0, 0))
	assert.EqualValues(t, 1, f.m.LoadWord(0x40))

	f.m.StoreWord(0x40, 0)
	require.NoError(t, f.syscall(t, SysPasseren, 0x40, 0, 0))
	assert.Equal(t, pcb.None, f.k.Current)
	assert.Equal(t, 0, f.k.SoftBlockCount, "user semaphores never soft-block")
	assert.EqualValues(t, 0x100c, f.k.Procs.Get(id).State.PC, "each of the three calls advances one word")
}

func TestService_SemaphoreKernelAddress(t *testing.T) {
	var testCases = []struct {
		description string
		number      uint32
		addr        func(k *kernel.Kernel) uint32
	}{
		{description: "V on pseudo-clock", number: SysVerhogen, addr: func(k *kernel.Kernel) uint32 { return k.Bank().PseudoClock() }},
		{description: "P on pseudo-clock", number: SysPasseren, addr: func(k *kernel.Kernel) uint32 { return k.Bank().PseudoClock() }},
		{
			description: "V on disk semaphore",
			number:      SysVerhogen,
			addr: func(k *kernel.Kernel) uint32 {
				addr, _ := k.Bank().Device(device.LineDisk, 0, device.Receive)
				return addr
			},
		},
		{
			description: "P on disk semaphore",
			number:      SysPasseren,
			addr: func(k *kernel.Kernel) uint32 {
				addr, _ := k.Bank().Device(device.LineDisk, 0, device.Receive)
				return addr
			},
		},
		{description: "P on unassigned kernel address", number: SysPasseren, addr: func(k *kernel.Kernel) uint32 { return 0xFFFFFFF0 }},
	}
	for _, testCase := range testCases {
		f := newFixture(2)
		f.boot(t)
		addr := testCase.addr(f.k)
		require.NoError(t, f.syscall(t, testCase.number, addr, 0, 0), testCase.description)
		assert.Equal(t, pcb.None, f.k.Current, testCase.description)
		assert.Equal(t, 0, f.k.ProcessCount, testCase.description)
		assert.Equal(t, 0, f.k.SoftBlockCount, testCase.description)
		assert.EqualValues(t, 0, f.k.Value(addr), testCase.description)
		assert.Empty(t, f.k.Sems.Active(), testCase.description)
		records := f.terminated()
		require.Len(t, records, 1, testCase.description)
		assert.Equal(t, accounting.ReasonBadArgument, records[0].Reason, testCase.description)
	}
}

func TestService_SpecTrapVec(t *testing.T) {
	var testCases = []struct {
		description string
		calls       [][3]uint32
		alive       bool
	}{
		{description: "single registration", calls: [][3]uint32{{uint32(state.ClassTLB), 0x100, 0x200}}, alive: true},
		{description: "one per class", calls: [][3]uint32{{0, 0x100, 0x200}, {1, 0x300, 0x400}, {2, 0x500, 0x600}}, alive: true},
		{description: "repeated class", calls: [][3]uint32{{1, 0x100, 0x200}, {1, 0x300, 0x400}}},
		{description: "invalid class", calls: [][3]uint32{{7, 0x100, 0x200}}},
		{description: "negative class", calls: [][3]uint32{{0xFFFFFFFF, 0x100, 0x200}}},
	}
	for _, testCase := range testCases {
		f := newFixture(2)
		id := f.boot(t)
		for _, call := range testCase.calls {
			require.NoError(t, f.syscall(t, SysSpecTrapVec, call[0], call[1], call[2]), testCase.description)
			if f.k.Current == pcb.None {
				break
			}
		}
		if !testCase.alive {
			assert.Equal(t, 0, f.k.ProcessCount, testCase.description)
			require.Len(t, f.terminated(), 1, testCase.description)
			assert.Equal(t, accounting.ReasonBadVector, f.terminated()[0].Reason, testCase.description)
			continue
		}
		assert.Equal(t, id, f.k.Current, testCase.description)
		for _, call := range testCase.calls {
			vector := f.k.Procs.Get(id).Vectors[call[0]]
			assert.Equal(t, pcb.Vector{Old: call[1], New: call[2], Registered: true}, vector, testCase.description)
		}
	}
}

func TestService_PassUpOrDie(t *testing.T) {
	var testCases = []struct {
		description string
		trap        func(s state.State) machine.Trap
		class       state.Class
	}{
		{
			description: "tlb",
			trap: func(s state.State) machine.Trap {
				s.Cause = state.NewCause(state.ExcTLBLoad)
				return machine.Trap{Area: state.AreaTLB, State: s}
			},
			class: state.ClassTLB,
		},
		{
			description: "program trap",
			trap: func(s state.State) machine.Trap {
				s.Cause = state.NewCause(state.ExcAddrLoad)
				return machine.Trap{Area: state.AreaProgramTrap, State: s}
			},
			class: state.ClassProgramTrap,
		},
		{
			description: "breakpoint",
			trap: func(s state.State) machine.Trap {
				s.Cause = state.NewCause(state.ExcBreakpoint)
				return machine.Trap{Area: state.AreaSyscall, State: s}
			},
			class: state.ClassSyscall,
		},
		{
			description: "unknown service",
			trap: func(s state.State) machine.Trap {
				return machine.NewSyscall(s, 9, 0, 0, 0)
			},
			class: state.ClassSyscall,
		},
	}
	for _, testCase := range testCases {
		// registered: pass up
		f := newFixture(2)
		id := f.boot(t)
		f.m.StoreState(0x600, state.State{PC: 0x7000})
		f.k.Procs.Get(id).Vectors[testCase.class] = pcb.Vector{Old: 0x500, New: 0x600, Registered: true}
		trap := testCase.trap(f.k.CurrentDescriptor().State)
		require.NoError(t, New().Handle(context.Background(), f.k, trap), testCase.description)
		assert.Equal(t, id, f.k.Current, testCase.description)
		assert.EqualValues(t, 0x7000, f.k.Procs.Get(id).State.PC, testCase.description)
		assert.Equal(t, trap.State.Cause, f.m.LoadState(0x500).Cause, testCase.description)

		// not registered: die
		f = newFixture(2)
		f.boot(t)
		trap = testCase.trap(f.k.CurrentDescriptor().State)
		require.NoError(t, New().Handle(context.Background(), f.k, trap), testCase.description)
		assert.Equal(t, pcb.None, f.k.Current, testCase.description)
		assert.Equal(t, 0, f.k.ProcessCount, testCase.description)
		require.Len(t, f.terminated(), 1, testCase.description)
		assert.Equal(t, accounting.ReasonUnhandled, f.terminated()[0].Reason, testCase.description)
	}
}

func TestService_UserModePrivileged(t *testing.T) {
	t.Run("no vector", func(t *testing.T) {
		f := newFixture(2)
		id := f.boot(t)
		f.k.Procs.Get(id).State.SetMode(state.ModeUser)
		require.NoError(t, f.syscall(t, SysCreate, 0x2000, 0, 0))
		assert.Equal(t, 0, f.k.ProcessCount)
		require.Len(t, f.terminated(), 1)
		assert.Equal(t, accounting.ReasonPrivileged, f.terminated()[0].Reason)
	})
	t.Run("program trap vector", func(t *testing.T) {
		f := newFixture(2)
		id := f.boot(t)
		d := f.k.Procs.Get(id)
		d.State.SetMode(state.ModeUser)
		d.Vectors[state.ClassProgramTrap] = pcb.Vector{Old: 0x500, New: 0x600, Registered: true}
		f.m.StoreState(0x600, state.State{PC: 0x7000})

		require.NoError(t, f.syscall(t, SysTerminate, 0, 0, 0))
		assert.Equal(t, 1, f.k.ProcessCount, "service not performed")
		old := f.m.LoadState(0x500)
		assert.Equal(t, state.ExcReservedInstr, old.Cause.ExcCode())
		assert.EqualValues(t, SysTerminate, old.A1)
		assert.EqualValues(t, 0x7000, d.State.PC)
	})
}

func TestService_CPUTime(t *testing.T) {
	f := newFixture(2)
	id := f.boot(t)
	f.k.Procs.Get(id).CPUTime = 100
	f.m.Advance(250)
	require.NoError(t, f.syscall(t, SysCPUTime, 0, 0, 0))
	assert.EqualValues(t, 350, f.k.Procs.Get(id).State.A1)

	f.k.Procs.Get(id).CPUTime = 1 << 33
	require.NoError(t, f.syscall(t, SysCPUTime, 0, 0, 0))
	assert.EqualValues(t, uint32(0xFFFFFFFF), f.k.Procs.Get(id).State.A1, "saturates at 32 bits")
	assert.EqualValues(t, uint64(1<<33), f.k.Procs.Get(id).CPUTime)
}

func TestService_WaitClock(t *testing.T) {
	f := newFixture(2)
	f.boot(t)
	require.NoError(t, f.syscall(t, SysWaitClock, 0, 0, 0))
	assert.Equal(t, pcb.None, f.k.Current)
	assert.Equal(t, 1, f.k.SoftBlockCount)
	assert.EqualValues(t, -1, f.k.Value(f.k.Bank().PseudoClock()))
}

func TestService_WaitIO(t *testing.T) {
	t.Run("completion already recorded", func(t *testing.T) {
		f := newFixture(2)
		id := f.boot(t)
		addr, _ := f.k.Bank().Device(device.LineTerminal, 1, device.Transmit)
		f.k.SetValue(addr, 1)
		f.k.Bank().SetStatus(addr, device.StatusCharTransmitted|'x'<<8)
		require.NoError(t, f.syscall(t, SysWaitIO, device.LineTerminal, 1, 0))
		assert.Equal(t, id, f.k.Current)
		assert.Equal(t, device.StatusCharTransmitted|'x'<<8, f.k.Procs.Get(id).State.A1)
		assert.Equal(t, 0, f.k.SoftBlockCount)
	})
	t.Run("blocks", func(t *testing.T) {
		f := newFixture(2)
		f.boot(t)
		require.NoError(t, f.syscall(t, SysWaitIO, device.LineTerminal, 1, 1))
		addr, _ := f.k.Bank().Device(device.LineTerminal, 1, device.Receive)
		assert.Equal(t, []uint32{addr}, f.k.Sems.Active())
		assert.Equal(t, 1, f.k.SoftBlockCount)
	})
	var testCases = []struct {
		description string
		line, dev   uint32
	}{
		{description: "timer line", line: device.LineTimer, dev: 0},
		{description: "device out of range", line: device.LineDisk, dev: 8},
		{description: "line out of range", line: 9, dev: 0},
	}
	for _, testCase := range testCases {
		f := newFixture(2)
		f.boot(t)
		require.NoError(t, f.syscall(t, SysWaitIO, testCase.line, testCase.dev, 1), testCase.description)
		assert.Equal(t, 0, f.k.ProcessCount, testCase.description)
		require.Len(t, f.terminated(), 1, testCase.description)
		assert.Equal(t, accounting.ReasonBadArgument, f.terminated()[0].Reason, testCase.description)
	}
}

func TestService_Panics(t *testing.T) {
	f := newFixture(2)
	err := New().Handle(context.Background(), f.k, machine.NewSyscall(state.State{}, SysCreate, 0, 0, 0))
	assert.ErrorIs(t, err, kernel.ErrNoCurrent)

	f.boot(t)
	trap := machine.Trap{Area: state.AreaSyscall, State: state.State{Cause: state.NewCause(state.ExcOverflow)}}
	err = New().Handle(context.Background(), f.k, trap)
	assert.True(t, kernel.IsPanic(err))
	assert.ErrorIs(t, err, kernel.ErrUnknownException)
}
