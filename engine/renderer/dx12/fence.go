package dx12

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// TimeoutInfinite makes WaitFences block until the fences complete.
const TimeoutInfinite time.Duration = -1

type WaitResult int

const (
	WaitComplete WaitResult = iota
	WaitTimeout
)

func (r WaitResult) String() string {
	if r == WaitComplete {
		return "complete"
	}
	return "timeout"
}

// timeline is a native fence plus the value its next signal will write. The
// native fence starts at 0 and only moves forward.
type timeline struct {
	native    native.Fence
	nextValue atomic.Uint64
}

func (t *timeline) init(dev native.Device, signalled bool) error {
	nf, err := dev.CreateFence(0)
	if err != nil {
		return err
	}
	t.native = nf
	if signalled {
		t.nextValue.Store(1)
	} else {
		t.nextValue.Store(2)
	}
	return nil
}

// advance reserves the value of a new signal.
func (t *timeline) advance() uint64 {
	return t.nextValue.Add(1) - 1
}

// waitValue is the value the fence has to reach for the last reserved
// signal to be complete.
func (t *timeline) waitValue() uint64 {
	return t.nextValue.Load() - 1
}

func (t *timeline) release() {
	if t.native != nil {
		t.native.Release()
		t.native = nil
	}
}

// Fence is a host-visible timeline. Signals are enqueued with Queue.Signal
// and observed with PollFence or WaitFences.
type Fence struct {
	timeline
}

func (f *Fence) NextValue() uint64 {
	return f.nextValue.Load()
}

func (f *Fence) WaitValue() uint64 {
	return f.waitValue()
}

func (f *Fence) Native() native.Fence {
	return f.native
}

// Reset does nothing. A fence counts up forever and is never rewound.
func (f *Fence) Reset() {}

func (f *Fence) Destroy() {
	f.release()
}

// Semaphore orders work between queues. The host cannot wait on it.
type Semaphore struct {
	timeline
}

func (s *Semaphore) Destroy() {
	s.release()
}

// Queue is the device queue of one type.
type Queue struct {
	queueType metadata.QueueType
	native    native.CommandQueue
}

func (q *Queue) Type() metadata.QueueType {
	return q.queueType
}

func (q *Queue) Native() native.CommandQueue {
	return q.native
}

// Signal enqueues a signal of f after the work already submitted to q.
func (q *Queue) Signal(f *Fence) error {
	v := f.advance()
	if err := q.native.Signal(f.native, v); err != nil {
		return errors.Wrapf(err, "signal fence to %d on the %s queue", v, q.queueType)
	}
	return nil
}

func (q *Queue) SignalSemaphore(s *Semaphore) error {
	v := s.advance()
	if err := q.native.Signal(s.native, v); err != nil {
		return errors.Wrapf(err, "signal semaphore to %d on the %s queue", v, q.queueType)
	}
	return nil
}

// WaitSemaphore makes work submitted to q after this call wait for the last
// signal of s.
func (q *Queue) WaitSemaphore(s *Semaphore) error {
	if err := q.native.Wait(s.native, s.waitValue()); err != nil {
		return errors.Wrapf(err, "wait semaphore on the %s queue", q.queueType)
	}
	return nil
}

func (q *Queue) release() {
	if q.native != nil {
		q.native.Release()
		q.native = nil
	}
}

// maxCachedEvents bounds each event cache; extra events are closed on put.
const maxCachedEvents = 16

// eventCache keeps OS wait events for reuse across calls. An event that
// timed out is dropped instead of returned, since its fence may still set
// it later. Cached events are closed when the device is destroyed.
type eventCache struct {
	dev native.Device

	mu     sync.Mutex
	free   *containers.RingQueue[native.Event]
	closed bool
}

func newEventCache(dev native.Device) *eventCache {
	return &eventCache{dev: dev, free: containers.NewRingQueue[native.Event](maxCachedEvents)}
}

func (c *eventCache) get() (native.Event, error) {
	c.mu.Lock()
	ev, err := c.free.Dequeue()
	c.mu.Unlock()
	if err == nil {
		return ev, nil
	}
	return c.dev.CreateEvent()
}

// put keeps ev for reuse. A nil cache closes it.
func (c *eventCache) put(ev native.Event) {
	if c == nil {
		c.drop(ev)
		return
	}
	c.mu.Lock()
	kept := !c.closed && c.free.Enqueue(ev) == nil
	c.mu.Unlock()
	if !kept {
		c.drop(ev)
	}
}

func (c *eventCache) drop(ev native.Event) {
	if err := ev.Close(); err != nil {
		core.LogWarn("closing wait event: %v", err)
	}
}

// len reports how many events are waiting for reuse.
func (c *eventCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.free.Len()
}

func (c *eventCache) destroy() {
	c.mu.Lock()
	c.closed = true
	var events []native.Event
	for !c.free.IsEmpty() {
		ev, _ := c.free.Dequeue()
		events = append(events, ev)
	}
	c.mu.Unlock()
	for _, ev := range events {
		c.drop(ev)
	}
}

// PollFence reports whether f reached its wait value. It never blocks.
func (d *Device) PollFence(f *Fence) bool {
	return f.native.CompletedValue() >= f.waitValue()
}

// WaitFences blocks until any or all of fences reach their wait values, or
// timeout elapses.
func (d *Device) WaitFences(fences []*Fence, waitAll bool, timeout time.Duration) (WaitResult, error) {
	switch len(fences) {
	case 0:
		return WaitComplete, nil
	case 1:
		return d.waitOne(fences[0], timeout)
	}

	s := containers.AcquireScratch()
	defer s.Release()

	natives := containers.Alloc[native.Fence](s, len(fences))
	values := containers.Alloc[uint64](s, len(fences))
	for i, f := range fences {
		natives[i] = f.native
		values[i] = f.waitValue()
	}
	flags := native.MultipleFenceWaitAny
	if waitAll {
		flags = native.MultipleFenceWaitAll
	}

	ev, err := d.multiEvents.get()
	if err != nil {
		return WaitTimeout, platformError(ErrFenceWait, err, "create wait event")
	}
	if err := d.native.SetEventOnMultipleFenceCompletion(natives, values, flags, ev); err != nil {
		d.multiEvents.drop(ev)
		return WaitTimeout, platformError(ErrFenceWait, err, "%d fences", len(fences))
	}
	// fences still pending after an ANY wait may set the event later
	cache := d.multiEvents
	if !waitAll {
		cache = nil
	}
	return d.block(cache, ev, timeout)
}

func (d *Device) waitOne(f *Fence, timeout time.Duration) (WaitResult, error) {
	value := f.waitValue()
	if f.native.CompletedValue() >= value {
		return WaitComplete, nil
	}
	ev, err := d.singleEvents.get()
	if err != nil {
		return WaitTimeout, platformError(ErrFenceWait, err, "create wait event")
	}
	if err := f.native.SetEventOnCompletion(value, ev); err != nil {
		d.singleEvents.drop(ev)
		return WaitTimeout, platformError(ErrFenceWait, err, "fence value %d", value)
	}
	return d.block(d.singleEvents, ev, timeout)
}

func (d *Device) block(cache *eventCache, ev native.Event, timeout time.Duration) (WaitResult, error) {
	ok, err := ev.Wait(timeout)
	if err != nil {
		cache.drop(ev)
		return WaitTimeout, platformError(ErrFenceWait, err, "wait event")
	}
	if !ok {
		cache.drop(ev)
		return WaitTimeout, nil
	}
	cache.put(ev)
	return WaitComplete, nil
}
