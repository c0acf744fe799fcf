package software

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

type waiter struct {
	value uint64
	fire  func()
}

type Fence struct {
	mu      sync.Mutex
	value   uint64
	waiters []waiter
}

func (d *Device) CreateFence(initialValue uint64) (native.Fence, error) {
	return &Fence{value: initialValue}, nil
}

func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Signal sets the completed value from the host and wakes satisfied waiters.
func (f *Fence) Signal(value uint64) error {
	f.mu.Lock()
	f.value = value
	var ready []func()
	pending := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= value {
			ready = append(ready, w.fire)
		} else {
			pending = append(pending, w)
		}
	}
	f.waiters = pending
	f.mu.Unlock()

	for _, fire := range ready {
		fire()
	}
	return nil
}

func (f *Fence) SetEventOnCompletion(value uint64, event native.Event) error {
	ev, ok := event.(*Event)
	if !ok {
		return errors.Wrap(ErrForeignObject, "fence completion event")
	}
	f.notify(value, ev.Set)
	return nil
}

func (f *Fence) notify(value uint64, fire func()) {
	f.mu.Lock()
	if f.value >= value {
		f.mu.Unlock()
		fire()
		return
	}
	f.waiters = append(f.waiters, waiter{value: value, fire: fire})
	f.mu.Unlock()
}

func (f *Fence) Release() {}

func (d *Device) SetEventOnMultipleFenceCompletion(fences []native.Fence, values []uint64, flags native.MultipleFenceWaitFlags, event native.Event) error {
	if len(fences) != len(values) {
		return errors.Wrapf(ErrInvalidArgument, "%d fences with %d values", len(fences), len(values))
	}
	ev, ok := event.(*Event)
	if !ok {
		return errors.Wrap(ErrForeignObject, "multiple fence completion event")
	}
	owned := make([]*Fence, len(fences))
	for i, f := range fences {
		sf, ok := f.(*Fence)
		if !ok {
			return errors.Wrapf(ErrForeignObject, "fence %d", i)
		}
		owned[i] = sf
	}
	if len(owned) == 0 {
		ev.Set()
		return nil
	}

	switch flags {
	case native.MultipleFenceWaitAny:
		var once sync.Once
		set := func() { once.Do(ev.Set) }
		for i, f := range owned {
			f.notify(values[i], set)
		}
	case native.MultipleFenceWaitAll:
		var remaining atomic.Int32
		remaining.Store(int32(len(owned)))
		done := func() {
			if remaining.Add(-1) == 0 {
				ev.Set()
			}
		}
		for i, f := range owned {
			f.notify(values[i], done)
		}
	default:
		return errors.Wrapf(ErrInvalidArgument, "multiple fence wait flags %d", flags)
	}
	return nil
}

// Event is an auto-reset event.
type Event struct {
	dev    *Device
	ch     chan struct{}
	closed atomic.Bool
}

func (d *Device) CreateEvent() (native.Event, error) {
	d.openEvents.Add(1)
	return &Event{dev: d, ch: make(chan struct{}, 1)}, nil
}

// OpenEvents reports how many events were created and not yet closed.
func (d *Device) OpenEvents() int {
	return int(d.openEvents.Load())
}

func (e *Event) Set() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func (e *Event) Wait(timeout time.Duration) (bool, error) {
	if e.closed.Load() {
		return false, ErrEventClosed
	}
	switch {
	case timeout < 0:
		<-e.ch
		return true, nil
	case timeout == 0:
		select {
		case <-e.ch:
			return true, nil
		default:
			return false, nil
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-e.ch:
		return true, nil
	case <-t.C:
		return false, nil
	}
}

func (e *Event) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		e.dev.openEvents.Add(-1)
	}
	return nil
}

type pendingSignal struct {
	fence native.Fence
	value uint64
}

// CommandQueue completes signals as soon as they are enqueued. Suspend holds
// them back until Flush, standing in for in-flight GPU work.
type CommandQueue struct {
	listType  native.CommandListType
	mu        sync.Mutex
	suspended bool
	pending   []pendingSignal
}

func (q *CommandQueue) Type() native.CommandListType {
	return q.listType
}

func (q *CommandQueue) Signal(fence native.Fence, value uint64) error {
	q.mu.Lock()
	if q.suspended {
		q.pending = append(q.pending, pendingSignal{fence: fence, value: value})
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()
	return fence.Signal(value)
}

func (q *CommandQueue) Wait(fence native.Fence, value uint64) error {
	return nil
}

func (q *CommandQueue) Suspend() {
	q.mu.Lock()
	q.suspended = true
	q.mu.Unlock()
}

// Flush completes every held signal in submission order and resumes.
func (q *CommandQueue) Flush() error {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.suspended = false
	q.mu.Unlock()

	for _, p := range pending {
		if err := p.fence.Signal(p.value); err != nil {
			return err
		}
	}
	return nil
}

func (q *CommandQueue) Release() {}
