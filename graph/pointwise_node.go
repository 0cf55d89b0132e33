package graph

import "github.com/iree-org/fusilli-go/ferrors"

type pointwiseNode struct {
	attr PointwiseAttr
}

func (n *pointwiseNode) opName() string        { return n.attr.Name }
func (n *pointwiseNode) inputs() []*TensorAttr  { return []*TensorAttr{n.attr.IN0(), n.attr.IN1()} }
func (n *pointwiseNode) outputs() []*TensorAttr { return []*TensorAttr{n.attr.OUT()} }

// broadcastCompatible implements spec §4.2's "operand tensors have
// compatible shapes — either identical dim, or one of them is a broadcast
// prefix (ones in collapsed positions)": same rank, and per-axis either
// equal or one side is 1.
func broadcastCompatible(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && a[i] != 1 && b[i] != 1 {
			return false
		}
	}
	return true
}

func broadcastDim(a, b []int64) []int64 {
	out := make([]int64, len(a))
	for i := range a {
		if a[i] > b[i] {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}

func (n *pointwiseNode) preValidate() error {
	in0, in1 := n.attr.IN0(), n.attr.IN1()
	if in0 == nil || in1 == nil || n.attr.OUT() == nil {
		return ferrors.New(ferrors.AttributeNotSet, "pointwise %q: IN_0, IN_1 and OUT_0 must all be set", n.attr.Name)
	}
	if !n.attr.Mode.isValid() {
		return ferrors.New(ferrors.InvalidAttribute, "pointwise %q: unrecognized mode %v", n.attr.Name, n.attr.Mode)
	}
	if len(in0.Dim) > 0 && len(in1.Dim) > 0 && !broadcastCompatible(in0.Dim, in1.Dim) {
		return ferrors.New(ferrors.InvalidAttribute,
			"pointwise %q: operand shapes %v and %v are not broadcast-compatible", n.attr.Name, in0.Dim, in1.Dim)
	}
	return nil
}

func (n *pointwiseNode) inferProperties(ctx *context) error {
	in0, in1, out := n.attr.IN0(), n.attr.IN1(), n.attr.OUT()
	fillDefaultDataType(ctx, out)
	if len(out.Dim) == 0 {
		if len(in0.Dim) == 0 || len(in1.Dim) == 0 {
			return ferrors.New(ferrors.ShapeInferenceFailure,
				"pointwise %q: both operand shapes must be known before inferring the output shape", n.attr.Name)
		}
		out.Dim = broadcastDim(in0.Dim, in1.Dim)
	}
	fillOutputStride(out, in0, in1)
	return nil
}

func (n *pointwiseNode) postValidate() error {
	for _, t := range []*TensorAttr{n.attr.IN0(), n.attr.IN1(), n.attr.OUT()} {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}
