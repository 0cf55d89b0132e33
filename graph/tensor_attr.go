package graph

import (
	"fmt"
	"slices"

	"github.com/iree-org/fusilli-go/dtype"
	"github.com/iree-org/fusilli-go/ferrors"
)

// TensorAttr describes one value participating in a Graph: either a graph
// input registered via Graph.Tensor, a graph output produced by an op's
// result, or (if Virtual is true) an internal value never seen by the
// caller. See spec §3 for the field-level invariants.
type TensorAttr struct {
	Name        string
	Dim         []int64
	Stride      []int64
	Type        dtype.DataType
	Virtual     bool
	IsOutput    bool
	Scalar      *dtype.Scalar
}

// NewTensorAttr returns a zero-value TensorAttr ready for chainable setters.
func NewTensorAttr() *TensorAttr {
	return &TensorAttr{Type: dtype.NotSet}
}

// SetName is a chainable setter, matching the builder style every Fusilli
// attribute record (and every gomlx Graph/Node setter) uses.
func (t *TensorAttr) SetName(name string) *TensorAttr {
	t.Name = name
	return t
}

func (t *TensorAttr) SetDim(dim ...int64) *TensorAttr {
	t.Dim = slices.Clone(dim)
	return t
}

func (t *TensorAttr) SetStride(stride ...int64) *TensorAttr {
	t.Stride = slices.Clone(stride)
	return t
}

func (t *TensorAttr) SetDataType(dt dtype.DataType) *TensorAttr {
	t.Type = dt
	return t
}

func (t *TensorAttr) SetIsVirtual(v bool) *TensorAttr {
	t.Virtual = v
	return t
}

// SetOutput flags the tensor as consumed by the caller. An output is
// materialized, so flagging it also clears Virtual.
func (t *TensorAttr) SetOutput(v bool) *TensorAttr {
	t.IsOutput = v
	if v {
		t.Virtual = false
	}
	return t
}

// SetScalarValue marks this tensor as holding a compile-time scalar: dim and
// stride are forced to [1], per spec §3.
func (t *TensorAttr) SetScalarValue(s dtype.Scalar) *TensorAttr {
	t.Scalar = &s
	t.Dim = []int64{1}
	t.Stride = []int64{1}
	if t.Type == dtype.NotSet {
		t.Type = s.Type
	}
	return t
}

// Rank returns the number of axes of this tensor's logical shape.
func (t *TensorAttr) Rank() int { return len(t.Dim) }

// isResolved reports whether dim, stride and type have all been filled in,
// the post-validate invariant from spec §4.2.
func (t *TensorAttr) isResolved() bool {
	return t.Type != dtype.NotSet && len(t.Dim) > 0 && len(t.Dim) == len(t.Stride)
}

// contiguousStrides computes the row-major (C-contiguous) strides for dim,
// used as the default stride when a tensor's stride was never set (spec
// §4.2 "Stride defaults when missing").
func contiguousStrides(dim []int64) []int64 {
	stride := make([]int64, len(dim))
	acc := int64(1)
	for i := len(dim) - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= dim[i]
	}
	return stride
}

// layoutPermutation returns the permutation of axis indices, sorted by
// decreasing stride, that maps physical (channels-first) axis position to
// logical axis index. For example a rank-4 tensor with logical dims
// [N,C,H,W] and channels-last strides [H*W*C, 1, W*C, C] yields
// permutation [0,2,3,1] (physical positions N, H, W, C reference logical
// axes 0, 2, 3, 1).
//
// See spec §3 "physicalDim" and the GLOSSARY's "Layout permutation" entry.
func layoutPermutation(stride []int64) []int64 {
	perm := make([]int64, len(stride))
	for i := range perm {
		perm[i] = int64(i)
	}
	slices.SortStableFunc(perm, func(a, b int64) int {
		sa, sb := stride[a], stride[b]
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})
	return perm
}

// isDecreasing reports whether stride is already in decreasing order, i.e.
// the tensor is already in channels-first physical layout and the emitter
// needs no permute preamble/epilogue for it.
func isDecreasing(stride []int64) bool {
	for i := 1; i < len(stride); i++ {
		if stride[i] > stride[i-1] {
			return false
		}
	}
	return true
}

// PhysicalDim returns dim permuted into decreasing-stride (channels-first)
// order: the shape presented to the downstream dialect regardless of the
// tensor's logical layout. See spec §3.
func (t *TensorAttr) PhysicalDim() []int64 {
	perm := layoutPermutation(t.Stride)
	out := make([]int64, len(t.Dim))
	for i, axis := range perm {
		out[i] = t.Dim[axis]
	}
	return out
}

// PhysicalStride returns Stride permuted the same way as PhysicalDim, i.e.
// sorted into decreasing order.
func (t *TensorAttr) PhysicalStride() []int64 {
	perm := layoutPermutation(t.Stride)
	out := make([]int64, len(t.Stride))
	for i, axis := range perm {
		out[i] = t.Stride[axis]
	}
	return out
}

// validate enforces the tensor-level invariants of spec §3: matching rank,
// positive strides, and (implicitly, via layoutPermutation never failing on
// a well-formed stride set) a valid layout permutation.
func (t *TensorAttr) validate() error {
	if t.Name == "" {
		return ferrors.New(ferrors.AttributeNotSet, "tensor name not set")
	}
	if !t.isResolved() {
		return ferrors.New(ferrors.ShapeInferenceFailure,
			"tensor %q has unresolved dim/stride/type after inference", t.Name)
	}
	if len(t.Dim) != len(t.Stride) {
		return ferrors.New(ferrors.InvalidAttribute,
			"tensor %q: rank(dim)=%d != rank(stride)=%d", t.Name, len(t.Dim), len(t.Stride))
	}
	for i, d := range t.Dim {
		if d <= 0 {
			return ferrors.New(ferrors.InvalidAttribute,
				"tensor %q: dim[%d]=%d must be positive", t.Name, i, d)
		}
	}
	for i, s := range t.Stride {
		if s <= 0 {
			return ferrors.New(ferrors.InvalidAttribute,
				"tensor %q: stride[%d]=%d must be positive", t.Name, i, s)
		}
	}
	return nil
}

func (t *TensorAttr) String() string {
	return fmt.Sprintf("TensorAttr{%s, dim=%v, stride=%v, type=%s, virtual=%v, output=%v}",
		t.Name, t.Dim, t.Stride, t.Type, t.Virtual, t.IsOutput)
}
