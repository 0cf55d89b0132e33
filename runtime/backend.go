// Package runtime defines the external bindings (§4.6, §6 of the design):
// a Backend enum and the three parallel lookup tables derived from it (HAL
// driver name, compiler flags, element-type trait), plus the Handle/Buffer/
// Session wrappers with scoped release and the pluggable ABI interface that
// stands in for the runtime's C ABI.
//
// This package deliberately does not import the graph package: it is the
// narrow-interface external collaborator spec §1 places out of scope beyond
// the contract stated in §6, and keeping it graph-agnostic lets the graph
// package depend on it (for Graph.Compile / Graph.Execute) without an
// import cycle.
package runtime

import (
	"fmt"

	"github.com/iree-org/fusilli-go/dtype"
	"github.com/iree-org/fusilli-go/ferrors"
)

// Backend identifies the target device/compiler configuration a Graph is
// compiled for (spec §4.4 "Each backend has a fixed flag vector").
type Backend int

const (
	CPU Backend = iota
	GFX942
)

func (b Backend) String() string {
	switch b {
	case CPU:
		return "CPU"
	case GFX942:
		return "GFX942"
	default:
		return "UNKNOWN_BACKEND"
	}
}

// halDriver maps a Backend to the runtime's HAL driver name, the single
// source of truth spec §9's "Backend mapping" design note calls for.
var halDriver = map[Backend]string{
	CPU:    "local-task",
	GFX942: "hip",
}

// HALDriver returns the runtime HAL driver name for b.
func (b Backend) HALDriver() (string, error) {
	d, ok := halDriver[b]
	if !ok {
		return "", ferrors.New(ferrors.InvalidAttribute, "no HAL driver registered for backend %s", b)
	}
	return d, nil
}

// compileFlags maps a Backend to its fixed compiler flag vector (spec §4.4,
// §6 "The flag vector is fixed per backend").
var compileFlags = map[Backend][]string{
	CPU: {
		"--iree-hal-target-backends=llvm-cpu",
		"--iree-llvmcpu-target-cpu=host",
	},
	GFX942: {
		"--iree-hal-target-backends=rocm",
		"--iree-hip-target=gfx942",
		"--iree-opt-level=O3",
	},
}

// CompileFlags returns the fixed flag vector for b, in declaration order.
func (b Backend) CompileFlags() ([]string, error) {
	flags, ok := compileFlags[b]
	if !ok {
		return nil, ferrors.New(ferrors.InvalidAttribute, "no compile flags registered for backend %s", b)
	}
	out := make([]string, len(flags))
	copy(out, flags)
	return out, nil
}

// HALElementType identifies the runtime ABI's native element-type
// identifier used for buffer marshalling (spec §3(b)).
type HALElementType int32

// Element-type identifiers mirror IREE HAL's element type encoding scheme
// (numeric category in the high byte, bit width in the low byte) closely
// enough to serve as stable, backend-agnostic identifiers for this
// module's own ABI boundary; exact numeric compatibility with a specific
// runtime build is the concern of whatever ABI implementation is
// registered (see RegisterABI), not of this table.
const (
	halOpaque      = 0
	halBoolean     = 1<<24 | 8
	halSInt8       = 2<<24 | 8
	halSInt16      = 2<<24 | 16
	halSInt32      = 2<<24 | 32
	halSInt64      = 2<<24 | 64
	halUInt8       = 3<<24 | 8
	halFloat16     = 4<<24 | 16
	halFloat32     = 4<<24 | 32
	halFloat64     = 4<<24 | 64
	halBFloat16    = 5<<24 | 16
	halFloat8E5M2  = 6<<24 | 8
)

// elementTypeTraits maps DataType to the runtime's element-type identifier,
// the Go realization of Fusilli's IreeHalElementTypeTrait<T> template
// specializations in backend.h.
var elementTypeTraits = map[dtype.DataType]HALElementType{
	dtype.Boolean:  halBoolean,
	dtype.Int8:     halSInt8,
	dtype.Int16:    halSInt16,
	dtype.Int32:    halSInt32,
	dtype.Int64:    halSInt64,
	dtype.Uint8:    halUInt8,
	dtype.Half:     halFloat16,
	dtype.Float:    halFloat32,
	dtype.Double:   halFloat64,
	dtype.BFloat16: halBFloat16,
	dtype.FP8E5M2:  halFloat8E5M2,
}

// ElementTypeTrait returns the runtime's element-type identifier for dt.
func ElementTypeTrait(dt dtype.DataType) (HALElementType, error) {
	v, ok := elementTypeTraits[dt]
	if !ok {
		return halOpaque, ferrors.New(ferrors.InvalidAttribute, "no runtime element type registered for %s", dt)
	}
	return v, nil
}

func (e HALElementType) String() string {
	return fmt.Sprintf("HALElementType(0x%08x)", int32(e))
}
