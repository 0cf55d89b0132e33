package runtime

import (
	"sync"

	"github.com/iree-org/fusilli-go/ferrors"
)

// VariantPack maps a graph's tensor names to the Buffers bound to them for
// one Execute call, matching spec §4.5's "buffers are looked up by the
// tensor name recorded at build time, not by positional index" contract.
type VariantPack map[string]*Buffer

// Session is a loaded, executable compiled module bound to a Handle's
// device (spec §4.6). A Session must be released exactly once via Release.
type Session struct {
	handle     *Handle
	abi        ABI
	session    SessionHandle
	entrypoint string

	mu       sync.Mutex
	released bool
}

// CreateSession loads moduleBytes (the compiled artifact's contents) onto
// h's device and binds it to entrypoint, the MLIR function name emitted
// for the graph (spec §4.3's single top-level function per graph).
func CreateSession(h *Handle, moduleBytes []byte, entrypoint string) (*Session, error) {
	if err := h.checkNotReleased(); err != nil {
		return nil, err
	}
	sh, err := h.abi.CreateSession(h.instance.handle, h.device)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "create session")
	}
	if err := h.abi.LoadModule(sh, moduleBytes); err != nil {
		_ = h.abi.ReleaseSession(sh)
		return nil, ferrors.Wrap(ferrors.RuntimeFailure, err, "load compiled module")
	}
	return &Session{handle: h, abi: h.abi, session: sh, entrypoint: entrypoint}, nil
}

// Execute pushes inputNames' buffers in the given order, invokes the
// session's entrypoint, and pops the results into outputNames' matching
// entries of pack as the freshly returned buffers. When pack already holds a
// Buffer for that name, that Buffer is released and replaced; results are
// not written into it.
func (s *Session) Execute(pack VariantPack, inputNames, outputNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ferrors.New(ferrors.RuntimeFailure, "session already released")
	}

	inputs := make([]BufferHandle, len(inputNames))
	for i, name := range inputNames {
		buf, ok := pack[name]
		if !ok {
			return ferrors.New(ferrors.RuntimeFailure, "variant pack missing input tensor %q", name)
		}
		inputs[i] = buf.handle
	}

	outputs, err := s.abi.Invoke(s.session, s.entrypoint, inputs)
	if err != nil {
		return ferrors.Wrap(ferrors.RuntimeFailure, err, "invoke entrypoint %q", s.entrypoint)
	}
	if len(outputs) != len(outputNames) {
		return ferrors.New(ferrors.RuntimeFailure,
			"entrypoint %q returned %d outputs, expected %d", s.entrypoint, len(outputs), len(outputNames))
	}

	for i, name := range outputNames {
		if existing, ok := pack[name]; ok {
			// A placeholder buffer was bound under this name already (e.g.
			// an in-place target); the session's popped result replaces it,
			// so the stale binding is released before rebinding.
			if err := existing.Release(); err != nil {
				return err
			}
		}
		pack[name] = &Buffer{handle: outputs[i], abi: s.abi, elem: HALElementType(halOpaque)}
	}
	return nil
}

// Release releases the underlying session. Idempotent.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	if err := s.abi.ReleaseSession(s.session); err != nil {
		return ferrors.Wrap(ferrors.RuntimeFailure, err, "release session")
	}
	return nil
}
