package graph

// node is the per-operator virtual-hook triad from spec §4.2: pre-validate
// runs top-down before any inference, inferProperties runs bottom-up after
// children (operator nodes here are leaves, so "after children" reduces to
// "after their own inputs are resolved"), postValidate runs last. The root
// Graph runs its own checks inline in Graph.Validate and dispatches each
// hook to every subnode in insertion order, which doubles as topological order
// since every op's inputs must already exist when the op is built.
type node interface {
	// opName is the node's own symbol name (distinct from any tensor name).
	opName() string
	// inputs returns this node's input tensors in a stable, op-specific
	// order (the order the emitter writes operands in).
	inputs() []*TensorAttr
	// outputs returns this node's output tensors, in the same stable order.
	outputs() []*TensorAttr
	// preValidate checks structural invariants that don't require inferred
	// shapes (spec §4.2 "Per-op pre-validate invariants").
	preValidate() error
	// inferProperties fills in missing dim/stride/type on this node's
	// outputs from its inputs and the graph context (spec §4.2 "Infer").
	inferProperties(ctx *context) error
	// postValidate checks that inference fully resolved every tensor this
	// node touches (spec §4.2 "Post-validate").
	postValidate() error
	// Emission is not part of this interface: toOpSpec in emit_adapter.go
	// converts each node type into the emit package's OpSpec.
}

// fillDefaultDataType applies spec §4.2's "Element type defaults": if a
// tensor's type is unset, it inherits the graph's intermediate data type if
// virtual, else the graph's I/O data type.
func fillDefaultDataType(ctx *context, t *TensorAttr) {
	if t.Type == 0 {
		if t.Virtual {
			t.Type = ctx.intermediateDataType
		} else {
			t.Type = ctx.ioDataType
		}
	}
}

// fillDefaultStride applies spec §4.2's "Stride defaults when missing":
// compute contiguous (row-major) strides from dim.
func fillDefaultStride(t *TensorAttr) {
	if len(t.Stride) == 0 && len(t.Dim) > 0 {
		t.Stride = contiguousStrides(t.Dim)
	}
}

// commonLayoutPermutation returns the shared layout permutation of ts if
// every tensor whose rank equals wantRank agrees on one, for use when an
// output's stride should follow its inputs' layout rather than default to
// contiguous (spec §4.2 "strides derived from broadcasted dim with
// channels-first order unless the inputs dictate otherwise").
func commonLayoutPermutation(wantRank int, ts ...*TensorAttr) ([]int64, bool) {
	var perm []int64
	for _, t := range ts {
		if t == nil || len(t.Stride) != wantRank {
			continue
		}
		p := layoutPermutation(t.Stride)
		if isDecreasing(t.Stride) {
			// Contiguous inputs carry no layout preference of their own.
			continue
		}
		if perm == nil {
			perm = p
			continue
		}
		if !equalInt64(perm, p) {
			return nil, false
		}
	}
	return perm, perm != nil
}

func equalInt64(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stridesForLayout assigns strides over dim such that layoutPermutation of
// the result equals perm: perm[0] gets the largest stride, perm[len-1] the
// smallest (1), mirroring how a non-default physical layout (e.g.
// channels-last) is expressed as a stride permutation over a
// canonically-ordered logical shape.
func stridesForLayout(dim []int64, perm []int64) []int64 {
	n := len(dim)
	stride := make([]int64, n)
	acc := int64(1)
	for i := n - 1; i >= 0; i-- {
		axis := perm[i]
		stride[axis] = acc
		acc *= dim[axis]
	}
	return stride
}

// fillOutputStride applies the default-or-inherited-layout stride rule
// shared by every op's output inference step.
func fillOutputStride(out *TensorAttr, layoutSource ...*TensorAttr) {
	if len(out.Stride) != 0 {
		return
	}
	if perm, ok := commonLayoutPermutation(len(out.Dim), layoutSource...); ok {
		out.Stride = stridesForLayout(out.Dim, perm)
		return
	}
	fillDefaultStride(out)
}
