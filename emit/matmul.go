package emit

import "github.com/iree-org/fusilli-go/ferrors"

func (w *writer) emitMatmul(op OpSpec, ssaOf func(TensorSpec) string, resultSSA map[string]string) (string, error) {
	if len(op.Inputs) != 2 {
		return "", ferrors.New(ferrors.InvalidAttribute, "emit: matmul %q requires exactly 2 inputs, got %d", op.Name, len(op.Inputs))
	}
	aSSA, aDim := w.permuteOperand(op.Name, op.Inputs[0].Label, ssaOf(op.Inputs[0].Tensor), op.Inputs[0].Tensor)
	bSSA, bDim := w.permuteOperand(op.Name, op.Inputs[1].Label, ssaOf(op.Inputs[1].Tensor), op.Inputs[1].Tensor)

	out := op.Output.Tensor
	physOutDim := physicalDim(out)

	result := "%" + op.Name + "_result"
	w.line("%s = torch.aten.matmul %s, %s : %s, %s -> %s",
		result, aSSA, bSSA, vtensorType(aDim, out.AsmType), vtensorType(bDim, out.AsmType), vtensorType(physOutDim, out.AsmType))

	logical := w.permuteResult(op.Name, "C", result, out)
	return w.finalizeOutput(out, logical, resultSSA)
}
