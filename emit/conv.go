package emit

import "fmt"

// emitConv writes a forward, data-gradient or weight-gradient convolution
// expression. For grouped convs (Groups > 1) the group count is passed
// through the %groups_<op> constant only; the filter is not reshape-expanded
// to a [G, K/G, fc, ...] form for any conv kind.
func (w *writer) emitConv(op OpSpec, ssaOf func(TensorSpec) string, resultSSA map[string]string) (string, error) {
	conv := op.Conv
	w.line("%%bias_%s = torch.constant.none", op.Name)
	w.line("%%transposed_%s = torch.constant.bool false", op.Name)
	w.intListConstant(fmt.Sprintf("output_padding_%s", op.Name), nil)
	w.line("%%groups_%s = torch.constant.int %d", op.Name, maxInt64(conv.Groups, 1))
	strideSSA := w.intListConstant(fmt.Sprintf("stride_%s", op.Name), conv.Stride)
	paddingSSA := w.intListConstant(fmt.Sprintf("padding_%s", op.Name), conv.Padding)
	dilationSSA := w.intListConstant(fmt.Sprintf("dilation_%s", op.Name), conv.Dilation)

	physOperands := make(map[string]string, len(op.Inputs))
	physDims := make(map[string][]int64, len(op.Inputs))
	for _, in := range op.Inputs {
		ssa, dim := w.permuteOperand(op.Name, in.Label, ssaOf(in.Tensor), in.Tensor)
		physOperands[in.Label] = ssa
		physDims[in.Label] = dim
	}

	switch op.Kind {
	case ConvFProp:
		return w.emitConvFProp(op, physOperands, physDims, strideSSA, paddingSSA, dilationSSA, resultSSA)
	case ConvDGrad:
		return w.emitConvBackward(op, physOperands, physDims, strideSSA, paddingSSA, dilationSSA, resultSSA, false)
	default: // ConvWGrad
		return w.emitConvBackward(op, physOperands, physDims, strideSSA, paddingSSA, dilationSSA, resultSSA, true)
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (w *writer) emitConvFProp(op OpSpec, operands map[string]string, dims map[string][]int64, strideSSA, paddingSSA, dilationSSA string, resultSSA map[string]string) (string, error) {
	out := op.Output.Tensor
	physOutDim := physicalDim(out)
	xSSA, wSSA := operands["X"], operands["W"]
	result := "%" + op.Name + "_conv"
	w.line("%s = torch.aten.conv2d %s, %s, %%bias_%s, %s, %s, %s, %%groups_%s : %s, %s, !torch.none, !torch.list<int>, !torch.list<int>, !torch.list<int>, !torch.int -> %s",
		result, xSSA, wSSA, op.Name, strideSSA, paddingSSA, dilationSSA, op.Name,
		vtensorType(dims["X"], out.AsmType), vtensorType(dims["W"], out.AsmType),
		vtensorType(physOutDim, out.AsmType))

	logical := w.permuteResult(op.Name, "Y", result, out)
	return w.finalizeOutput(out, logical, resultSSA)
}

// emitConvBackward writes the dialect's torch.aten.convolution_backward op
// with an output-mask selecting the requested gradient: [true,false,false]
// for DGrad (grad_input), [false,true,false] for WGrad (grad_weight) — spec
// §4.3's "backward lowers to convolution_backward with an output-mask
// selecting the requested gradient".
func (w *writer) emitConvBackward(op OpSpec, operands map[string]string, dims map[string][]int64, strideSSA, paddingSSA, dilationSSA string, resultSSA map[string]string, wantWeight bool) (string, error) {
	out := op.Output.Tensor
	physOutDim := physicalDim(out)

	emptyLabel := "DX"
	if wantWeight {
		emptyLabel = "DW"
	}
	emptyBase := fmt.Sprintf("empty_%s_%s", emptyLabel, op.Name)
	emptyListSSA := w.intListConstant(emptyBase, physOutDim)
	w.line("%%none_%s_%s = torch.constant.none", emptyLabel, op.Name)
	w.line("%%dtype_%s_%s = torch.constant.int 6", emptyLabel, op.Name)
	emptyVal := fmt.Sprintf("%%empty_%s_%s", boolLower(wantWeight), op.Name)
	w.line("%s = torch.aten.empty.memory_format %s, %%dtype_%s_%s, %%none_%s_%s, %%none_%s_%s, %%none_%s_%s, %%none_%s_%s : !torch.list<int>, !torch.int, !torch.none, !torch.none, !torch.none, !torch.none -> %s",
		emptyVal, emptyListSSA, emptyLabel, op.Name, emptyLabel, op.Name, emptyLabel, op.Name, emptyLabel, op.Name, emptyLabel, op.Name,
		vtensorType(physOutDim, out.AsmType))

	w.line("%%true_%s = torch.constant.bool true", op.Name)
	w.line("%%false_%s = torch.constant.bool false", op.Name)
	var maskVals []string
	if wantWeight {
		maskVals = []string{"false_" + op.Name, "true_" + op.Name, "false_" + op.Name}
	} else {
		maskVals = []string{"true_" + op.Name, "false_" + op.Name, "false_" + op.Name}
	}
	maskSSA := make([]string, len(maskVals))
	for i, v := range maskVals {
		maskSSA[i] = "%" + v
	}
	maskList := fmt.Sprintf("%%output_mask_%s", op.Name)
	w.line("%s = torch.prim.ListConstruct %s : (%s) -> !torch.list<bool>", maskList, joinSSA(maskSSA), joinTypes("!torch.bool", len(maskSSA)))

	dySSA := operands["DY"]
	otherLabel := "W"
	if wantWeight {
		otherLabel = "X"
	}
	otherSSA := operands[otherLabel]

	// convolution_backward's operand positions are fixed as (grad_output,
	// input, weight). DGrad has no real input tensor to offer — it's the
	// value being solved for — so the placeholder takes the input slot and
	// the real W stays in the weight slot; WGrad is the mirror image, with
	// the real X in the input slot and the placeholder in the weight slot
	// (tests/lit/test_conv_dgrad_asm_emitter_nhwc_kcrs_grouped.cpp).
	resultType := vtensorType(physOutDim, out.AsmType)
	var inputSSA, weightSSA, inputType, weightType string
	if wantWeight {
		inputSSA, weightSSA = otherSSA, emptyVal
		inputType, weightType = vtensorType(dims[otherLabel], out.AsmType), resultType
	} else {
		inputSSA, weightSSA = emptyVal, otherSSA
		inputType, weightType = resultType, vtensorType(dims[otherLabel], out.AsmType)
	}

	gradInput := fmt.Sprintf("%%grad_input_%s", op.Name)
	gradWeight := fmt.Sprintf("%%grad_weight_%s", op.Name)
	gradBias := fmt.Sprintf("%%grad_bias_%s", op.Name)
	physResult := fmt.Sprintf("%%%s_conv", op.Name)

	sharedType := fmt.Sprintf("%s, %s, %s, !torch.none, !torch.list<int>, !torch.list<int>, !torch.list<int>, !torch.bool, !torch.list<int>, !torch.int, !torch.list<bool>",
		vtensorType(dims["DY"], out.AsmType), inputType, weightType)

	// The requested gradient occupies result slot 0 (grad_input) for DGrad
	// and slot 1 (grad_weight) for WGrad; the other slot is unused and its
	// SSA name is never referenced again.
	var slot0Name, slot1Name, slot0Type, slot1Type string
	if wantWeight {
		slot0Name, slot0Type = gradInput, "!torch.none"
		slot1Name, slot1Type = physResult, resultType
	} else {
		slot0Name, slot0Type = physResult, resultType
		slot1Name, slot1Type = gradWeight, "!torch.none"
	}

	w.line("%s, %s, %s = torch.aten.convolution_backward %s, %s, %s, %%bias_%s, %s, %s, %s, %%transposed_%s, %%output_padding_%s, %%groups_%s, %s : %s -> %s, %s, !torch.none",
		slot0Name, slot1Name, gradBias,
		dySSA, inputSSA, weightSSA, op.Name, strideSSA, paddingSSA, dilationSSA, op.Name, op.Name, op.Name, maskList,
		sharedType, slot0Type, slot1Type)

	label := "DX"
	if wantWeight {
		label = "DW"
	}
	logical := w.permuteResult(op.Name, label, physResult, out)
	return w.finalizeOutput(out, logical, resultSSA)
}

func boolLower(v bool) string {
	if v {
		return "w"
	}
	return "x"
}
