package graph

import "github.com/iree-org/fusilli-go/ferrors"

type matmulNode struct {
	attr MatmulAttr
}

func (n *matmulNode) opName() string        { return n.attr.Name }
func (n *matmulNode) inputs() []*TensorAttr  { return []*TensorAttr{n.attr.A(), n.attr.B()} }
func (n *matmulNode) outputs() []*TensorAttr { return []*TensorAttr{n.attr.C()} }

func (n *matmulNode) preValidate() error {
	a, b := n.attr.A(), n.attr.B()
	if a == nil || b == nil || n.attr.C() == nil {
		return ferrors.New(ferrors.AttributeNotSet, "matmul %q: A, B and C must all be set", n.attr.Name)
	}
	if len(a.Dim) > 0 && a.Rank() < 2 {
		return ferrors.New(ferrors.InvalidAttribute, "matmul %q: A must have rank >= 2, got %d", n.attr.Name, a.Rank())
	}
	if len(b.Dim) > 0 && b.Rank() < 2 {
		return ferrors.New(ferrors.InvalidAttribute, "matmul %q: B must have rank >= 2, got %d", n.attr.Name, b.Rank())
	}
	if len(a.Dim) > 0 && len(b.Dim) > 0 {
		aInner := a.Dim[a.Rank()-1]
		bInner := b.Dim[b.Rank()-2]
		if aInner != bInner {
			return ferrors.New(ferrors.InvalidAttribute,
				"matmul %q: inner dimensions must match, A's last dim %d != B's second-to-last dim %d",
				n.attr.Name, aInner, bInner)
		}
	}
	return nil
}

func (n *matmulNode) inferProperties(ctx *context) error {
	a, b, c := n.attr.A(), n.attr.B(), n.attr.C()
	fillDefaultDataType(ctx, c)
	if len(c.Dim) == 0 {
		if len(a.Dim) == 0 || len(b.Dim) == 0 {
			return ferrors.New(ferrors.ShapeInferenceFailure,
				"matmul %q: both operand shapes must be known before inferring the output shape", n.attr.Name)
		}
		rank := a.Rank()
		dim := make([]int64, rank)
		copy(dim, a.Dim[:rank-1])
		dim[rank-1] = b.Dim[b.Rank()-1]
		c.Dim = dim
	}
	fillOutputStride(c, a, b)
	return nil
}

func (n *matmulNode) postValidate() error {
	for _, t := range []*TensorAttr{n.attr.A(), n.attr.B(), n.attr.C()} {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}
