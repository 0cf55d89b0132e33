package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsmContiguousPointwiseAdd(t *testing.T) {
	x := TensorSpec{Name: "input", Dim: []int64{128, 256}, Stride: []int64{256, 1}, AsmType: "f32"}
	b := TensorSpec{Name: "bias", Dim: []int64{128, 256}, Stride: []int64{256, 1}, AsmType: "f32"}
	y := TensorSpec{Name: "result", Dim: []int64{128, 256}, Stride: []int64{256, 1}, AsmType: "f32"}

	op := OpSpec{
		Name: "pointwise_add",
		Kind: Pointwise,
		Mode: "ADD",
		Inputs: []Operand{
			{Label: "IN_0", Tensor: x},
			{Label: "IN_1", Tensor: b},
		},
		Output: Operand{Label: "OUT_0", Tensor: y},
	}

	asm, err := Asm([]TensorSpec{y}, []TensorSpec{x, b}, []OpSpec{op})
	require.NoError(t, err)

	assert.Contains(t, asm, "func.func @main(")
	assert.Contains(t, asm, "%result_result: !torch.tensor<[128,256],f32>")
	assert.Contains(t, asm, "%arg_bias: !torch.vtensor<[128,256],f32>")
	assert.Contains(t, asm, "%arg_input: !torch.vtensor<[128,256],f32>")
	assert.Contains(t, asm, "torch.aten.add.Tensor")
	assert.Contains(t, asm, "torch.overwrite.tensor.contents")
	assert.Contains(t, asm, "return")
	assert.NotContains(t, asm, "torch.aten.permute")
}

func TestAsmTransposedOperandEmitsPermutePreamble(t *testing.T) {
	x := TensorSpec{Name: "input", Dim: []int64{128, 256}, Stride: []int64{256, 1}, AsmType: "f32"}
	b := TensorSpec{Name: "add_transposed", Dim: []int64{128, 256}, Stride: []int64{1, 128}, AsmType: "f32"}
	y := TensorSpec{Name: "result", Dim: []int64{128, 256}, Stride: []int64{256, 1}, AsmType: "f32"}

	op := OpSpec{
		Name: "pointwise_add_transposed",
		Kind: Pointwise,
		Mode: "ADD",
		Inputs: []Operand{
			{Label: "IN_0", Tensor: x},
			{Label: "IN_1", Tensor: b},
		},
		Output: Operand{Label: "OUT_0", Tensor: y},
	}

	asm, err := Asm([]TensorSpec{y}, []TensorSpec{x, b}, []OpSpec{op})
	require.NoError(t, err)

	assert.Contains(t, asm, "torch.aten.permute")
	assert.Equal(t, 1, strings.Count(asm, "torch.aten.permute"))
}

func TestAsmEmptyOutputsIsNotValidatedError(t *testing.T) {
	_, err := Asm(nil, nil, nil)
	require.Error(t, err)
}

func TestAsmConvFPropGroupedGroupsConstant(t *testing.T) {
	x := TensorSpec{Name: "x", Dim: []int64{1, 4, 8, 8}, Stride: []int64{256, 64, 8, 1}, AsmType: "f32"}
	w := TensorSpec{Name: "w", Dim: []int64{8, 2, 3, 3}, Stride: []int64{18, 9, 3, 1}, AsmType: "f32"}
	y := TensorSpec{Name: "y", Dim: []int64{1, 8, 6, 6}, Stride: []int64{288, 36, 6, 1}, AsmType: "f32"}

	op := OpSpec{
		Name: "conv_fprop",
		Kind: ConvFProp,
		Conv: &ConvSpec{Padding: []int64{0, 0}, Stride: []int64{1, 1}, Dilation: []int64{1, 1}, Groups: 2},
		Inputs: []Operand{
			{Label: "X", Tensor: x},
			{Label: "W", Tensor: w},
		},
		Output: Operand{Label: "Y", Tensor: y},
	}

	asm, err := Asm([]TensorSpec{y}, []TensorSpec{x, w}, []OpSpec{op})
	require.NoError(t, err)
	assert.Contains(t, asm, "%groups_conv_fprop = torch.constant.int 2")
	assert.Contains(t, asm, "torch.aten.conv2d")
}

// TestAsmConvDGradGroupedOperandAndResultLayout pins the
// torch.aten.convolution_backward contract for a grouped DGrad: the real
// gradient lands in result slot 0 with operands (DY, empty, W), matching
// tests/lit/test_conv_dgrad_asm_emitter_nhwc_kcrs_grouped.cpp.
func TestAsmConvDGradGroupedOperandAndResultLayout(t *testing.T) {
	dy := TensorSpec{Name: "dy", Dim: []int64{1, 8, 6, 6}, Stride: []int64{288, 36, 6, 1}, AsmType: "f32"}
	w := TensorSpec{Name: "w", Dim: []int64{8, 2, 3, 3}, Stride: []int64{18, 9, 3, 1}, AsmType: "f32"}
	dx := TensorSpec{Name: "dx", Dim: []int64{1, 4, 8, 8}, Stride: []int64{256, 64, 8, 1}, AsmType: "f32"}

	op := OpSpec{
		Name: "dgrad",
		Kind: ConvDGrad,
		Conv: &ConvSpec{Padding: []int64{0, 0}, Stride: []int64{1, 1}, Dilation: []int64{1, 1}, Groups: 2},
		Inputs: []Operand{
			{Label: "DY", Tensor: dy},
			{Label: "W", Tensor: w},
		},
		Output: Operand{Label: "DX", Tensor: dx},
	}

	asm, err := Asm([]TensorSpec{dx}, []TensorSpec{dy, w}, []OpSpec{op})
	require.NoError(t, err)

	assert.Contains(t, asm, "%groups_dgrad = torch.constant.int 2")
	assert.Contains(t, asm,
		"%dgrad_conv, %grad_weight_dgrad, %grad_bias_dgrad = torch.aten.convolution_backward "+
			"%arg_dy, %empty_x_dgrad, %arg_w, %bias_dgrad,")
	assert.Contains(t, asm, "-> !torch.vtensor<[1,4,8,8],f32>, !torch.none, !torch.none")
	assert.Contains(t, asm, "torch.overwrite.tensor.contents %dgrad_conv overwrites")
}

// TestAsmConvWGradGroupedOperandAndResultLayout mirrors the DGrad test for
// WGrad: the real gradient lands in result slot 1 with operands (DY, X,
// empty).
func TestAsmConvWGradGroupedOperandAndResultLayout(t *testing.T) {
	dy := TensorSpec{Name: "dy", Dim: []int64{1, 8, 6, 6}, Stride: []int64{288, 36, 6, 1}, AsmType: "f32"}
	x := TensorSpec{Name: "x", Dim: []int64{1, 4, 8, 8}, Stride: []int64{256, 64, 8, 1}, AsmType: "f32"}
	dw := TensorSpec{Name: "dw", Dim: []int64{8, 2, 3, 3}, Stride: []int64{18, 9, 3, 1}, AsmType: "f32"}

	op := OpSpec{
		Name: "wgrad",
		Kind: ConvWGrad,
		Conv: &ConvSpec{Padding: []int64{0, 0}, Stride: []int64{1, 1}, Dilation: []int64{1, 1}, Groups: 2},
		Inputs: []Operand{
			{Label: "DY", Tensor: dy},
			{Label: "X", Tensor: x},
		},
		Output: Operand{Label: "DW", Tensor: dw},
	}

	asm, err := Asm([]TensorSpec{dw}, []TensorSpec{dy, x}, []OpSpec{op})
	require.NoError(t, err)

	assert.Contains(t, asm, "%groups_wgrad = torch.constant.int 2")
	assert.Contains(t, asm,
		"%grad_input_wgrad, %wgrad_conv, %grad_bias_wgrad = torch.aten.convolution_backward "+
			"%arg_dy, %arg_x, %empty_w_wgrad, %bias_wgrad,")
	assert.Contains(t, asm, "-> !torch.none, !torch.vtensor<[8,2,3,3],f32>, !torch.none")
	assert.Contains(t, asm, "torch.overwrite.tensor.contents %wgrad_conv overwrites")
}

func TestAsmDeterministicAcrossRepeatedCalls(t *testing.T) {
	x := TensorSpec{Name: "a", Dim: []int64{4, 4}, Stride: []int64{4, 1}, AsmType: "f32"}
	b := TensorSpec{Name: "b", Dim: []int64{4, 4}, Stride: []int64{4, 1}, AsmType: "f32"}
	y := TensorSpec{Name: "c", Dim: []int64{4, 4}, Stride: []int64{4, 1}, AsmType: "f32"}
	op := OpSpec{
		Name:   "mm",
		Kind:   Matmul,
		Inputs: []Operand{{Label: "A", Tensor: x}, {Label: "B", Tensor: b}},
		Output: Operand{Label: "C", Tensor: y},
	}

	first, err := Asm([]TensorSpec{y}, []TensorSpec{x, b}, []OpSpec{op})
	require.NoError(t, err)
	second, err := Asm([]TensorSpec{y}, []TensorSpec{x, b}, []OpSpec{op})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
