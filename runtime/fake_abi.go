package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/iree-org/fusilli-go/ferrors"
)

// inProcessABI is the reference ABI implementation registered under the
// name "in-process". It simulates the push/invoke/pop and buffer lifecycle
// contract entirely in Go, without involving an actual compiled module or
// device: LoadModule simply records the bytes it was given, and Invoke
// echoes its first input back as its single output. This is a test double
// for exercising Handle/Buffer/Session plumbing, not a claim of device
// execution.
type inProcessABI struct {
	mu      sync.Mutex
	buffers map[BufferHandle]*fakeBuffer
	nextID  int64
}

type fakeBuffer struct {
	shape []int64
	elem  HALElementType
	data  []byte
}

type fakeInstance struct{ id int64 }
type fakeDevice struct{ id int64 }
type fakeSession struct {
	module []byte
	id     int64
}

func newInProcessABI() *inProcessABI {
	return &inProcessABI{buffers: make(map[BufferHandle]*fakeBuffer)}
}

func (a *inProcessABI) id() int64 { return atomic.AddInt64(&a.nextID, 1) }

func (a *inProcessABI) CreateInstance() (InstanceHandle, error) {
	return &fakeInstance{id: a.id()}, nil
}

func (a *inProcessABI) ReleaseInstance(InstanceHandle) error { return nil }

func (a *inProcessABI) CreateDevice(inst InstanceHandle, driverName string) (DeviceHandle, error) {
	if _, ok := inst.(*fakeInstance); !ok {
		return nil, ferrors.New(ferrors.RuntimeFailure, "CreateDevice: handle not from this ABI")
	}
	return &fakeDevice{id: a.id()}, nil
}

func (a *inProcessABI) ReleaseDevice(DeviceHandle) error { return nil }

func (a *inProcessABI) CreateSession(inst InstanceHandle, dev DeviceHandle) (SessionHandle, error) {
	return &fakeSession{id: a.id()}, nil
}

func (a *inProcessABI) ReleaseSession(SessionHandle) error { return nil }

func (a *inProcessABI) LoadModule(sess SessionHandle, moduleBytes []byte) error {
	s, ok := sess.(*fakeSession)
	if !ok {
		return ferrors.New(ferrors.RuntimeFailure, "LoadModule: session not from this ABI")
	}
	s.module = moduleBytes
	return nil
}

// Invoke simulates execution by returning a single fresh buffer holding a
// byte-for-byte copy of the first input's current contents (an identity
// kernel); any further inputs are not read. Real execution semantics belong
// to the registered ABI a
// production deployment would supply instead of this one.
func (a *inProcessABI) Invoke(sess SessionHandle, entrypoint string, inputs []BufferHandle) ([]BufferHandle, error) {
	if _, ok := sess.(*fakeSession); !ok {
		return nil, ferrors.New(ferrors.RuntimeFailure, "Invoke: session not from this ABI")
	}
	if len(inputs) == 0 {
		return nil, ferrors.New(ferrors.RuntimeFailure, "Invoke: %s requires at least one input", entrypoint)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	src, ok := a.buffers[inputs[0]]
	if !ok {
		return nil, ferrors.New(ferrors.RuntimeFailure, "Invoke: unknown input buffer handle")
	}
	out := &fakeBuffer{shape: append([]int64(nil), src.shape...), elem: src.elem, data: append([]byte(nil), src.data...)}
	h := &struct{ id int64 }{id: a.id()}
	a.buffers[h] = out
	return []BufferHandle{h}, nil
}

func (a *inProcessABI) AllocateBuffer(dev DeviceHandle, shape []int64, elemType HALElementType, hostData []byte) (BufferHandle, error) {
	if _, ok := dev.(*fakeDevice); !ok {
		return nil, ferrors.New(ferrors.RuntimeFailure, "AllocateBuffer: device not from this ABI")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	h := &struct{ id int64 }{id: a.id()}
	a.buffers[h] = &fakeBuffer{shape: append([]int64(nil), shape...), elem: elemType, data: append([]byte(nil), hostData...)}
	return h, nil
}

func (a *inProcessABI) ImportBuffer(dev DeviceHandle, shape []int64, elemType HALElementType, external any) (BufferHandle, error) {
	data, ok := external.([]byte)
	if !ok {
		return nil, ferrors.New(ferrors.InvalidAttribute, "in-process ABI ImportBuffer requires []byte, got %T", external)
	}
	return a.AllocateBuffer(dev, shape, elemType, data)
}

func (a *inProcessABI) Release(bh BufferHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, bh)
	return nil
}

func (a *inProcessABI) TransferToHost(bh BufferHandle) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[bh]
	if !ok {
		return nil, ferrors.New(ferrors.RuntimeFailure, "TransferToHost: unknown buffer handle")
	}
	return append([]byte(nil), buf.data...), nil
}
