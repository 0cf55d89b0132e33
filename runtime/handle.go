package runtime

import (
	"sync"

	"github.com/iree-org/fusilli-go/ferrors"
)

// sharedInstance is the process-wide refcounted runtime instance. Fusilli's
// handle.h documents that creating a runtime instance is expensive enough
// to amortize across every Handle in a process, while a device is cheap
// enough (and stateful enough, carrying an async execution queue) to keep
// one per Handle. sharedInstance implements the amortized half of that
// split; Handle.device implements the per-handle half.
type sharedInstance struct {
	mu     sync.Mutex
	abi    ABI
	handle InstanceHandle
	refs   int
}

var instances = make(map[ABI]*sharedInstance)
var instancesMu sync.Mutex

func acquireSharedInstance(abi ABI) (*sharedInstance, error) {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	inst, ok := instances[abi]
	if !ok {
		inst = &sharedInstance{abi: abi}
		instances[abi] = inst
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.refs == 0 {
		h, err := abi.CreateInstance()
		if err != nil {
			return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "create runtime instance")
		}
		inst.handle = h
	}
	inst.refs++
	return inst, nil
}

func (inst *sharedInstance) release() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.refs--
	if inst.refs > 0 {
		return nil
	}
	h := inst.handle
	inst.handle = nil
	if err := inst.abi.ReleaseInstance(h); err != nil {
		return ferrors.Wrap(ferrors.RuntimeFailure, err, "release runtime instance")
	}
	return nil
}

// Handle is the top-level handle to a backend, bundling the shared runtime
// instance with a device created for this Handle alone (spec §4.6,
// supplemented from handle.h's documented handle/instance/device lifetime
// split). A Handle must be released exactly once via Release.
type Handle struct {
	backend  Backend
	abi      ABI
	instance *sharedInstance
	device   DeviceHandle

	mu       sync.Mutex
	released bool
}

// CreateHandle creates a Handle for backend using the default-registered
// ABI. Acquires (or reuses) the process-wide shared runtime instance, then
// creates a device scoped to this Handle alone.
func CreateHandle(backend Backend) (*Handle, error) {
	return CreateHandleWithABI(backend, "")
}

// CreateHandleWithABI is CreateHandle with an explicit registered ABI name
// (see RegisterABI), for selecting a non-default runtime implementation.
func CreateHandleWithABI(backend Backend, abiName string) (*Handle, error) {
	abi, err := lookupABI(abiName)
	if err != nil {
		return nil, err
	}
	driver, err := backend.HALDriver()
	if err != nil {
		return nil, err
	}

	inst, err := acquireSharedInstance(abi)
	if err != nil {
		return nil, err
	}

	dev, err := abi.CreateDevice(inst.handle, driver)
	if err != nil {
		_ = inst.release()
		return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "create device for backend %s", backend)
	}

	return &Handle{
		backend:  backend,
		abi:      abi,
		instance: inst,
		device:   dev,
	}, nil
}

// Backend returns the backend this Handle was created for.
func (h *Handle) Backend() Backend { return h.backend }

// Release tears down this Handle's device and drops its reference on the
// shared runtime instance, releasing the instance itself once the last
// Handle referencing it is released. Release is idempotent.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	var err error
	if releaseErr := h.abi.ReleaseDevice(h.device); releaseErr != nil {
		err = ferrors.Wrap(ferrors.RuntimeFailure, releaseErr, "release device")
	}
	if instErr := h.instance.release(); instErr != nil && err == nil {
		err = instErr
	}
	return err
}

func (h *Handle) checkNotReleased() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ferrors.New(ferrors.RuntimeFailure, "handle for backend %s already released", h.backend)
	}
	return nil
}
