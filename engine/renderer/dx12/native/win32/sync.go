//go:build windows && !(js && wasm)

package win32

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/wgpu/hal/dx12/d3d12"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"golang.org/x/sys/windows"
)

// maxWaitObjects is MAXIMUM_WAIT_OBJECTS.
const maxWaitObjects = 64

type Fence struct {
	raw *d3d12.ID3D12Fence
}

func (d *Device) CreateFence(initialValue uint64) (native.Fence, error) {
	raw, err := d.raw.CreateFence(initialValue, d3d12.D3D12_FENCE_FLAG_NONE)
	if err != nil {
		return nil, err
	}
	return &Fence{raw: raw}, nil
}

func (f *Fence) CompletedValue() uint64 {
	return f.raw.GetCompletedValue()
}

func (f *Fence) SetEventOnCompletion(value uint64, event native.Event) error {
	ev, err := rawEvent(event)
	if err != nil {
		return err
	}
	ev.clearGroup()
	return f.raw.SetEventOnCompletion(value, uintptr(ev.handle))
}

func (f *Fence) Signal(value uint64) error {
	return f.raw.Signal(value)
}

func (f *Fence) Release() {
	if f.raw != nil {
		f.raw.Release()
		f.raw = nil
	}
}

func rawFence(f native.Fence) (*Fence, error) {
	nf, ok := f.(*Fence)
	if !ok {
		return nil, errors.Wrapf(ErrForeignObject, "fence %T", f)
	}
	return nf, nil
}

type CommandQueue struct {
	raw *d3d12.ID3D12CommandQueue
}

func (q *CommandQueue) Signal(fence native.Fence, value uint64) error {
	f, err := rawFence(fence)
	if err != nil {
		return err
	}
	return q.raw.Signal(f.raw, value)
}

func (q *CommandQueue) Wait(fence native.Fence, value uint64) error {
	f, err := rawFence(fence)
	if err != nil {
		return err
	}
	return q.raw.Wait(f.raw, value)
}

func (q *CommandQueue) Raw() *d3d12.ID3D12CommandQueue {
	return q.raw
}

func (q *CommandQueue) Release() {
	if q.raw != nil {
		q.raw.Release()
		q.raw = nil
	}
}

// Event is an auto-reset Win32 event. When armed by
// SetEventOnMultipleFenceCompletion it waits on one helper event per fence
// instead, since ID3D12Device1 is not exposed by the bindings.
type Event struct {
	handle windows.Handle

	mu      sync.Mutex
	group   []windows.Handle
	waitAll bool
}

func (d *Device) CreateEvent() (native.Event, error) {
	return newEvent()
}

func newEvent() (*Event, error) {
	h, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, errors.Wrap(err, "CreateEvent")
	}
	return &Event{handle: h}, nil
}

func rawEvent(e native.Event) (*Event, error) {
	ev, ok := e.(*Event)
	if !ok {
		return nil, errors.Wrapf(ErrForeignObject, "event %T", e)
	}
	return ev, nil
}

func (d *Device) SetEventOnMultipleFenceCompletion(fences []native.Fence, values []uint64, flags native.MultipleFenceWaitFlags, event native.Event) error {
	if len(fences) != len(values) {
		return errors.Newf("%d fences but %d values", len(fences), len(values))
	}
	if len(fences) > maxWaitObjects {
		return errors.Newf("cannot wait on more than %d fences, got %d", maxWaitObjects, len(fences))
	}
	ev, err := rawEvent(event)
	if err != nil {
		return err
	}
	group := make([]windows.Handle, 0, len(fences))
	closeAll := func() {
		for _, h := range group {
			_ = windows.CloseHandle(h)
		}
	}
	for i, f := range fences {
		nf, err := rawFence(f)
		if err != nil {
			closeAll()
			return err
		}
		h, err := windows.CreateEvent(nil, 0, 0, nil)
		if err != nil {
			closeAll()
			return errors.Wrap(err, "CreateEvent")
		}
		group = append(group, h)
		if err := nf.raw.SetEventOnCompletion(values[i], uintptr(h)); err != nil {
			closeAll()
			return errors.Wrapf(err, "fence %d", i)
		}
	}
	ev.mu.Lock()
	old := ev.group
	ev.group, ev.waitAll = group, flags == native.MultipleFenceWaitAll
	ev.mu.Unlock()
	for _, h := range old {
		_ = windows.CloseHandle(h)
	}
	return nil
}

func (e *Event) clearGroup() {
	e.mu.Lock()
	old := e.group
	e.group = nil
	e.mu.Unlock()
	for _, h := range old {
		_ = windows.CloseHandle(h)
	}
}

func milliseconds(timeout time.Duration) uint32 {
	if timeout < 0 {
		return windows.INFINITE
	}
	ms := timeout.Milliseconds()
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	if ms >= windows.INFINITE {
		ms = windows.INFINITE - 1
	}
	return uint32(ms)
}

func (e *Event) Wait(timeout time.Duration) (bool, error) {
	e.mu.Lock()
	group, waitAll := e.group, e.waitAll
	e.mu.Unlock()

	var (
		ret uint32
		err error
	)
	if len(group) > 0 {
		ret, err = windows.WaitForMultipleObjects(group, waitAll, milliseconds(timeout))
	} else {
		ret, err = windows.WaitForSingleObject(e.handle, milliseconds(timeout))
	}
	switch {
	case ret == uint32(windows.WAIT_TIMEOUT):
		return false, nil
	case err != nil:
		return false, errors.Wrap(err, "wait for event")
	}
	if len(group) > 0 {
		e.clearGroup()
	}
	return true, nil
}

func (e *Event) Close() error {
	e.clearGroup()
	if e.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(e.handle)
	e.handle = 0
	return err
}
