package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iree-org/fusilli-go/dtype"
)

func buildPointwiseGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph("add_graph").SetIODataType(dtype.Float).SetIntermediateDataType(dtype.Float)

	a := g.Tensor(NewTensorAttr().SetName("a").SetDim(4, 8))
	b := g.Tensor(NewTensorAttr().SetName("b").SetDim(4, 8))

	y := g.Pointwise(a, b, NewPointwiseAttr().SetMode(ADD))
	y.SetOutput(true)

	return g
}

func TestValidateResolvesShapesAndStrides(t *testing.T) {
	g := buildPointwiseGraph(t)
	require.NoError(t, g.Validate())

	require.Len(t, g.sortedOutputs, 1)
	out := g.sortedOutputs[0]
	assert.Equal(t, []int64{4, 8}, out.Dim)
	assert.Equal(t, []int64{8, 1}, out.Stride)
	assert.Equal(t, dtype.Float, out.Type)
}

func TestValidateIsIdempotent(t *testing.T) {
	g := buildPointwiseGraph(t)
	require.NoError(t, g.Validate())
	first, err := g.EmitAsm()
	require.NoError(t, err)

	require.NoError(t, g.Validate())
	second, err := g.EmitAsm()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidateRejectsDuplicateTensorNames(t *testing.T) {
	g := NewGraph("dup").SetIODataType(dtype.Float)
	a := g.Tensor(NewTensorAttr().SetName("x").SetDim(2, 2))
	b := g.Tensor(NewTensorAttr().SetName("x").SetDim(2, 2)) // same name, different handle

	y := g.Pointwise(a, b, NewPointwiseAttr().SetMode(ADD))
	y.SetOutput(true)

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tensor name")
}

func TestValidateRejectsMissingGraphName(t *testing.T) {
	g := NewGraph("")
	err := g.Validate()
	require.Error(t, err)
}

func TestEmitAsmBeforeValidateFails(t *testing.T) {
	g := buildPointwiseGraph(t)
	_, err := g.EmitAsm()
	require.Error(t, err)
}

func TestEmitAsmChainedConvThenPointwise(t *testing.T) {
	g := NewGraph("conv_then_add").SetIODataType(dtype.Float).SetIntermediateDataType(dtype.Float)

	x := g.Tensor(NewTensorAttr().SetName("x").SetDim(1, 4, 8, 8))
	w := g.Tensor(NewTensorAttr().SetName("w").SetDim(8, 4, 3, 3))
	bias := g.Tensor(NewTensorAttr().SetName("bias").SetDim(1, 8, 6, 6))

	convAttr := NewConvFPropAttr().SetPadding(0, 0).SetStride(1, 1).SetDilation(1, 1)
	convY := g.ConvFProp(x, w, convAttr)

	sumY := g.Pointwise(convY, bias, NewPointwiseAttr().SetMode(ADD))
	sumY.SetOutput(true)

	require.NoError(t, g.Validate())
	asm, err := g.EmitAsm()
	require.NoError(t, err)

	assert.Contains(t, asm, "torch.aten.conv2d")
	assert.Contains(t, asm, "torch.aten.add.Tensor")
	assert.Equal(t, 1, strings.Count(asm, "torch.overwrite.tensor.contents"))
}

func TestConvDGradRequiresExplicitOutputShape(t *testing.T) {
	g := NewGraph("dgrad").SetIODataType(dtype.Float)

	dy := g.Tensor(NewTensorAttr().SetName("dy").SetDim(1, 8, 6, 6))
	w := g.Tensor(NewTensorAttr().SetName("w").SetDim(8, 4, 3, 3))

	dx := g.ConvDGrad(dy, w, NewConvDGradAttr().SetPadding(0, 0).SetStride(1, 1).SetDilation(1, 1))
	dx.SetOutput(true)

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DX shape must be set explicitly")
}

func TestMatmulInnerDimMismatchFailsPreValidate(t *testing.T) {
	g := NewGraph("mm").SetIODataType(dtype.Float)

	a := g.Tensor(NewTensorAttr().SetName("a").SetDim(4, 8))
	b := g.Tensor(NewTensorAttr().SetName("b").SetDim(5, 4))

	c := g.Matmul(a, b, NewMatmulAttr())
	c.SetOutput(true)

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inner dimensions must match")
}

func TestAutoNamingAssignsOpAndTensorNames(t *testing.T) {
	g := NewGraph("auto").SetIODataType(dtype.Float)

	a := NewTensorAttr().SetDim(2, 2) // no name: dangling input
	b := g.Tensor(NewTensorAttr().SetName("b").SetDim(2, 2))

	y := g.Pointwise(a, b, NewPointwiseAttr().SetMode(MUL))

	assert.Equal(t, "op_0", y.Name[:len("op_0")])
	assert.NotEmpty(t, a.Name)
}
