package runtime

import (
	"sync"

	"github.com/iree-org/fusilli-go/dtype"
	"github.com/iree-org/fusilli-go/ferrors"
)

// Buffer is a move-only device buffer view, created either by allocating
// fresh device memory and copying host data in, or by importing an
// externally owned view. A Buffer must be released exactly once via
// Release (spec §4.6's resource-ownership model).
type Buffer struct {
	handle   BufferHandle
	abi      ABI
	shape    []int64
	elem     HALElementType
	dtype    dtype.DataType
	imported bool

	mu       sync.Mutex
	released bool
}

// AllocateBuffer allocates a device buffer on h's device, sized for shape
// and dt, copying hostData in as its initial contents. hostData may be nil
// for an output buffer the runtime will populate during Execute.
func (h *Handle) AllocateBuffer(shape []int64, dt dtype.DataType, hostData []byte) (*Buffer, error) {
	if err := h.checkNotReleased(); err != nil {
		return nil, err
	}
	elem, err := ElementTypeTrait(dt)
	if err != nil {
		return nil, err
	}
	bh, err := h.abi.AllocateBuffer(h.device, shape, elem, hostData)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "allocate buffer of shape %v", shape)
	}
	return &Buffer{handle: bh, abi: h.abi, shape: append([]int64(nil), shape...), elem: elem, dtype: dt}, nil
}

// ImportBuffer wraps an externally owned host or device view without
// copying, for zero-copy handoff into a Session (spec §4.6 "import mode").
// The caller remains responsible for the lifetime of external until the
// returned Buffer is Released.
func (h *Handle) ImportBuffer(shape []int64, dt dtype.DataType, external any) (*Buffer, error) {
	if err := h.checkNotReleased(); err != nil {
		return nil, err
	}
	elem, err := ElementTypeTrait(dt)
	if err != nil {
		return nil, err
	}
	bh, err := h.abi.ImportBuffer(h.device, shape, elem, external)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "import buffer of shape %v", shape)
	}
	return &Buffer{handle: bh, abi: h.abi, shape: append([]int64(nil), shape...), elem: elem, dtype: dt, imported: true}, nil
}

// Shape returns the buffer's logical shape.
func (b *Buffer) Shape() []int64 { return append([]int64(nil), b.shape...) }

// DataType returns the buffer's element data type.
func (b *Buffer) DataType() dtype.DataType { return b.dtype }

// ToHost blocks until device work touching b completes and returns its
// contents as host bytes (spec §5's "transfer-to-host is a synchronization
// point").
func (b *Buffer) ToHost() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil, ferrors.New(ferrors.RuntimeFailure, "buffer already released")
	}
	data, err := b.abi.TransferToHost(b.handle)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "transfer buffer to host")
	}
	return data, nil
}

// Release releases the underlying device resources. Idempotent.
func (b *Buffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	b.released = true
	if err := b.abi.Release(b.handle); err != nil {
		return ferrors.Wrap(ferrors.RuntimeFailure, err, "release buffer")
	}
	return nil
}
