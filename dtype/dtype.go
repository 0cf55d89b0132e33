// Package dtype defines the closed set of tensor element types used
// throughout fusilli-go, their textual spelling in the emitted MLIR
// dialect, and their mapping to the runtime ABI's element-type identifier
// used for buffer marshalling.
//
// See graph.TensorAttr's Type field for how DataType participates in a
// tensor record.
package dtype

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// DataType enumerates the element types a TensorAttr may hold. The member
// list and order mirror the original Fusilli frontend's DataType enum so a
// numeric value round-trips between implementations.
type DataType int32

const (
	NotSet DataType = iota
	Half
	BFloat16
	Float
	Double
	Uint8
	Int8
	Int16
	Int32
	Int64
	Boolean
	FP8E5M2
)

func (d DataType) String() string {
	switch d {
	case NotSet:
		return "NotSet"
	case Half:
		return "Half"
	case BFloat16:
		return "BFloat16"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case Uint8:
		return "Uint8"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Boolean:
		return "Boolean"
	case FP8E5M2:
		return "FP8E5M2"
	default:
		return fmt.Sprintf("DataType(%d)", int32(d))
	}
}

// AsmSpelling returns the canonical textual spelling of d in the emitted
// MLIR dialect, e.g. Half -> "f16", Float -> "f32".
func (d DataType) AsmSpelling() (string, bool) {
	spelling, ok := asmSpellings[d]
	return spelling, ok
}

var asmSpellings = map[DataType]string{
	Half:     "f16",
	BFloat16: "bf16",
	Float:    "f32",
	Double:   "f64",
	Uint8:    "ui8",
	Int8:     "i8",
	Int16:    "i16",
	Int32:    "i32",
	Int64:    "i64",
	Boolean:  "i1",
	FP8E5M2:  "f8E5M2",
}

// HALElementType identifies the runtime ABI's element-type identifier
// values a backend's buffer allocator expects. Values are opaque beyond
// equality. The runtime package declares its own HALElementType and assigns
// the concrete values in its element-type trait table (runtime.ElementTypeTrait);
// that table does not use this type.
type HALElementType int32

// ByteWidth returns the size in bytes of one element of the given type, or
// 0 for NotSet / types whose width is not fixed (none currently).
func (d DataType) ByteWidth() int {
	switch d {
	case Boolean, Uint8, Int8, FP8E5M2:
		return 1
	case Half, BFloat16, Int16:
		return 2
	case Float, Int32:
		return 4
	case Double, Int64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is one of the floating-point element types.
func (d DataType) IsFloat() bool {
	switch d {
	case Half, BFloat16, Float, Double, FP8E5M2:
		return true
	default:
		return false
	}
}

// IsInt reports whether d is one of the integer (non-boolean) element types.
func (d DataType) IsInt() bool {
	switch d {
	case Uint8, Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// Scalar holds a single host-side value tagged with its DataType, used for
// TensorAttr's optional scalar value (spec §3) and for constructing host
// buffers to feed a runtime.Buffer's allocate mode.
//
// Half and BFloat16 values are held in their compact IEEE754/brain-float
// bit representations via github.com/x448/float16 and
// github.com/gomlx/gopjrt/dtypes/bfloat16, the same libraries the wider
// ecosystem this module's dependencies come from uses for these types.
type Scalar struct {
	Type     DataType
	half     float16.Float16
	bfloat16 bfloat16.BFloat16
	f32      float32
	f64      float64
	i64      int64
	u8       uint8
	boolean  bool
}

// ScalarFromFloat64 builds a Scalar of the given type from a float64 host
// value, converting to the narrower representation the type requires.
func ScalarFromFloat64(t DataType, v float64) Scalar {
	switch t {
	case Half:
		return Scalar{Type: t, half: float16.Fromfloat32(float32(v))}
	case BFloat16:
		return Scalar{Type: t, bfloat16: bfloat16.FromFloat32(float32(v))}
	case Float:
		return Scalar{Type: t, f32: float32(v)}
	case Double:
		return Scalar{Type: t, f64: v}
	case Boolean:
		return Scalar{Type: t, boolean: v != 0}
	case Uint8:
		return Scalar{Type: t, u8: uint8(v)}
	default:
		return Scalar{Type: t, i64: int64(v)}
	}
}

// ScalarFromInt64 builds a Scalar of the given integer/boolean type.
func ScalarFromInt64(t DataType, v int64) Scalar {
	if t == Boolean {
		return Scalar{Type: t, boolean: v != 0}
	}
	if t == Uint8 {
		return Scalar{Type: t, u8: uint8(v)}
	}
	return Scalar{Type: t, i64: v}
}

// Float64 returns the scalar's value widened to float64, regardless of its
// underlying representation. Intended for emitting literal constants and
// for test assertions, not for numerically sensitive code.
func (s Scalar) Float64() float64 {
	switch s.Type {
	case Half:
		return float64(s.half.Float32())
	case BFloat16:
		return float64(s.bfloat16.Float32())
	case Float:
		return float64(s.f32)
	case Double:
		return s.f64
	case Boolean:
		if s.boolean {
			return 1
		}
		return 0
	case Uint8:
		return float64(s.u8)
	default:
		return float64(s.i64)
	}
}
