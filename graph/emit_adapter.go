package graph

import (
	"github.com/iree-org/fusilli-go/emit"
	"github.com/iree-org/fusilli-go/ferrors"
)

// EmitAsm renders the validated graph's textual MLIR module (spec §4.3),
// converting the graph's own TensorAttr/node records into emit's plain
// TensorSpec/OpSpec adapter types first since emit never imports graph
// (see emit/emit.go's package doc).
func (g *Graph) EmitAsm() (string, error) {
	if g.state < stateValidated {
		return "", ferrors.New(ferrors.NotValidated, "graph %q: EmitAsm called before Validate succeeded", g.name)
	}

	results := make([]emit.TensorSpec, len(g.sortedOutputs))
	for i, t := range g.sortedOutputs {
		results[i] = toTensorSpec(t)
	}
	args := make([]emit.TensorSpec, len(g.sortedInputs))
	for i, t := range g.sortedInputs {
		args[i] = toTensorSpec(t)
	}

	ops := make([]emit.OpSpec, len(g.nodes))
	for i, n := range g.nodes {
		spec, err := toOpSpec(n)
		if err != nil {
			return "", err
		}
		ops[i] = spec
	}

	return emit.Asm(results, args, ops)
}

func toTensorSpec(t *TensorAttr) emit.TensorSpec {
	spelling, _ := t.Type.AsmSpelling()
	return emit.TensorSpec{Name: t.Name, Dim: t.Dim, Stride: t.Stride, AsmType: spelling}
}

func operand(label string, t *TensorAttr) emit.Operand {
	return emit.Operand{Label: label, Tensor: toTensorSpec(t)}
}

// convGroups derives the group count the emitter needs from whichever pair
// of tensors carries the channel axis for this conv variant (spec §4.2
// "Group count (conv): derived as X[C]/W[C]"), defaulting to 1 for a
// not-yet-fully-resolved pair since this adapter only ever runs after
// Validate has already enforced that the division is exact.
func convGroups(xLike, wLike *TensorAttr) int64 {
	if xLike == nil || wLike == nil || len(xLike.Dim) < 2 || len(wLike.Dim) < 2 || wLike.Dim[1] == 0 {
		return 1
	}
	return xLike.Dim[1] / wLike.Dim[1]
}

func toOpSpec(n node) (emit.OpSpec, error) {
	switch v := n.(type) {
	case *convFPropNode:
		return emit.OpSpec{
			Name: v.attr.Name,
			Kind: emit.ConvFProp,
			Conv: &emit.ConvSpec{
				Padding:  v.attr.Padding,
				Stride:   v.attr.Stride,
				Dilation: v.attr.Dilation,
				Groups:   convGroups(v.attr.X(), v.attr.W()),
			},
			Inputs: []emit.Operand{operand(convInputX, v.attr.X()), operand(convInputW, v.attr.W())},
			Output: operand(convOutputY, v.attr.Y()),
		}, nil

	case *convDGradNode:
		return emit.OpSpec{
			Name: v.attr.Name,
			Kind: emit.ConvDGrad,
			Conv: &emit.ConvSpec{
				Padding:  v.attr.Padding,
				Stride:   v.attr.Stride,
				Dilation: v.attr.Dilation,
				Groups:   convGroups(v.attr.DX(), v.attr.W()),
			},
			Inputs: []emit.Operand{operand(convInputDY, v.attr.DY()), operand(convInputW, v.attr.W())},
			Output: operand(convOutputDX, v.attr.DX()),
		}, nil

	case *convWGradNode:
		return emit.OpSpec{
			Name: v.attr.Name,
			Kind: emit.ConvWGrad,
			Conv: &emit.ConvSpec{
				Padding:  v.attr.Padding,
				Stride:   v.attr.Stride,
				Dilation: v.attr.Dilation,
				Groups:   convGroups(v.attr.X(), v.attr.DW()),
			},
			Inputs: []emit.Operand{operand(convInputDY, v.attr.DY()), operand(convInputX, v.attr.X())},
			Output: operand(convOutputDW, v.attr.DW()),
		}, nil

	case *pointwiseNode:
		return emit.OpSpec{
			Name:   v.attr.Name,
			Kind:   emit.Pointwise,
			Mode:   v.attr.Mode.String(),
			Inputs: []emit.Operand{operand(pointwiseInput0, v.attr.IN0()), operand(pointwiseInput1, v.attr.IN1())},
			Output: operand(pointwiseOutput, v.attr.OUT()),
		}, nil

	case *matmulNode:
		return emit.OpSpec{
			Name:   v.attr.Name,
			Kind:   emit.Matmul,
			Inputs: []emit.Operand{operand(matmulInputA, v.attr.A()), operand(matmulInputB, v.attr.B())},
			Output: operand(matmulOutputC, v.attr.C()),
		}, nil

	default:
		return emit.OpSpec{}, ferrors.New(ferrors.InvalidAttribute, "emit: unrecognized node type %T", n)
	}
}
