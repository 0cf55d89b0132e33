package runtime

import "github.com/iree-org/fusilli-go/ferrors"

// InstanceHandle, DeviceHandle, SessionHandle and BufferHandle are opaque
// native resource handles owned by whatever ABI implementation is
// registered. fusilli-go never dereferences them; it only threads them
// through ABI calls and releases them via the matching Release* call.
type (
	InstanceHandle any
	DeviceHandle   any
	SessionHandle  any
	BufferHandle   any
)

// ABI is the narrow interface to the runtime's C ABI described in spec §6:
// (a) create/release of runtime instance, (b) create/release of device by
// driver name, (c) create/release of session bound to device, (d) load
// module from a byte blob, (e) push input view / invoke by entrypoint name
// / pop output view, (f) allocate buffer view, (g) host-device transfer.
//
// This is the Go realization of the out-of-scope "runtime ABI" external
// collaborator (spec §1); production deployments register a concrete
// implementation backed by the actual native runtime library. This module
// ships one reference implementation, inProcessABI, which simulates the
// contract in pure Go for testing (see fake_abi.go) — it is not a real
// device backend.
type ABI interface {
	// CreateInstance creates a process-shareable runtime instance.
	CreateInstance() (InstanceHandle, error)
	// ReleaseInstance releases a runtime instance created by CreateInstance.
	ReleaseInstance(InstanceHandle) error

	// CreateDevice creates a device for the given HAL driver name.
	CreateDevice(inst InstanceHandle, driverName string) (DeviceHandle, error)
	// ReleaseDevice releases a device created by CreateDevice.
	ReleaseDevice(DeviceHandle) error

	// CreateSession creates a session bound to a device.
	CreateSession(inst InstanceHandle, dev DeviceHandle) (SessionHandle, error)
	// ReleaseSession releases a session created by CreateSession.
	ReleaseSession(SessionHandle) error
	// LoadModule loads a compiled module (e.g. a .vmfb's bytes) into a session.
	LoadModule(sess SessionHandle, moduleBytes []byte) error

	// Invoke pushes inputs, calls entrypoint, and returns the outputs
	// popped in the same order. inputs are buffer views previously returned
	// by AllocateBuffer/ImportBuffer; outputs are new buffer views.
	Invoke(sess SessionHandle, entrypoint string, inputs []BufferHandle) ([]BufferHandle, error)

	// AllocateBuffer allocates a device buffer view with the given shape,
	// element type and initial host bytes, and returns its handle.
	AllocateBuffer(dev DeviceHandle, shape []int64, elemType HALElementType, hostData []byte) (BufferHandle, error)
	// ImportBuffer wraps an externally owned view, with retain/release
	// parity handled by the caller via Release.
	ImportBuffer(dev DeviceHandle, shape []int64, elemType HALElementType, external any) (BufferHandle, error)
	// Release releases a buffer view created by AllocateBuffer/ImportBuffer.
	Release(BufferHandle) error

	// TransferToHost reads back a buffer's contents into host memory,
	// blocking until the device signals completion (spec §5).
	TransferToHost(BufferHandle) ([]byte, error)
}

var registeredABIs = make(map[string]ABI)

// RegisterABI registers a named ABI implementation. Call during package
// initialization of an ABI-providing package, mirroring the
// backends.Register constructor-registry pattern used for pluggable
// computation backends elsewhere in this module's dependency tree.
func RegisterABI(name string, abi ABI) {
	registeredABIs[name] = abi
}

// DefaultABIName is the name looked up by Handle creation when no explicit
// ABI name is given; defaults to the in-process reference implementation.
var DefaultABIName = "in-process"

func lookupABI(name string) (ABI, error) {
	if name == "" {
		name = DefaultABIName
	}
	abi, ok := registeredABIs[name]
	if !ok {
		return nil, ferrors.New(ferrors.RuntimeFailure, "no ABI registered under name %q", name)
	}
	return abi, nil
}

func init() {
	RegisterABI("in-process", newInProcessABI())
}
