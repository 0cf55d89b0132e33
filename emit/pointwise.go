package emit

import "github.com/iree-org/fusilli-go/ferrors"

// pointwiseAten maps a graph.PointwiseMode spelling to the dialect op it
// lowers to, grounded on the original emitter's per-mode dispatch (spec
// §4.3 "pointwise lowers to the dialect op matching the mode").
var pointwiseAten = map[string]string{
	"ADD": "torch.aten.add.Tensor",
	"SUB": "torch.aten.sub.Tensor",
	"MUL": "torch.aten.mul.Tensor",
	"DIV": "torch.aten.div.Tensor",
}

func (w *writer) emitPointwise(op OpSpec, ssaOf func(TensorSpec) string, resultSSA map[string]string) (string, error) {
	aten, ok := pointwiseAten[op.Mode]
	if !ok {
		return "", ferrors.New(ferrors.InvalidAttribute, "emit: unrecognized pointwise mode %q for %q", op.Mode, op.Name)
	}
	if len(op.Inputs) != 2 {
		return "", ferrors.New(ferrors.InvalidAttribute, "emit: pointwise %q requires exactly 2 inputs, got %d", op.Name, len(op.Inputs))
	}

	in0SSA, in0Dim := w.permuteOperand(op.Name, op.Inputs[0].Label, ssaOf(op.Inputs[0].Tensor), op.Inputs[0].Tensor)
	in1SSA, in1Dim := w.permuteOperand(op.Name, op.Inputs[1].Label, ssaOf(op.Inputs[1].Tensor), op.Inputs[1].Tensor)

	out := op.Output.Tensor
	physOutDim := physicalDim(out)

	alphaSSA := "%alpha_" + op.Name
	needsAlpha := op.Mode == "ADD" || op.Mode == "SUB"
	if needsAlpha {
		w.line("%s = torch.constant.int 1", alphaSSA)
	}

	result := "%" + op.Name + "_result"
	if needsAlpha {
		w.line("%s = %s %s, %s, %s : %s, %s, !torch.int -> %s",
			result, aten, in0SSA, in1SSA, alphaSSA, vtensorType(in0Dim, out.AsmType), vtensorType(in1Dim, out.AsmType), vtensorType(physOutDim, out.AsmType))
	} else {
		w.line("%s = %s %s, %s : %s, %s -> %s",
			result, aten, in0SSA, in1SSA, vtensorType(in0Dim, out.AsmType), vtensorType(in1Dim, out.AsmType), vtensorType(physOutDim, out.AsmType))
	}

	logical := w.permuteResult(op.Name, "OUT_0", result, out)
	return w.finalizeOutput(out, logical, resultSSA)
}
