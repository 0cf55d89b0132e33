package emit

import (
	"fmt"

	"github.com/iree-org/fusilli-go/ferrors"
)

// intListConstant writes the torch.constant.int / torch.prim.ListConstruct
// pair for an []int64, in declaration order (spec §4.3 determinism rule),
// returning the SSA name of the resulting !torch.list<int>.
func (w *writer) intListConstant(baseName string, values []int64) string {
	if len(values) == 0 {
		listName := "%" + baseName
		w.line("%s = torch.prim.ListConstruct  : () -> !torch.list<int>", listName)
		return listName
	}
	var vals []string
	for i, v := range values {
		n := fmt.Sprintf("%%%s_val_%d", baseName, i)
		w.line("%s = torch.constant.int %d", n, v)
		vals = append(vals, n)
	}
	listName := "%" + baseName
	w.line("%s = torch.prim.ListConstruct %s : (%s) -> !torch.list<int>",
		listName, joinSSA(vals), joinTypes("!torch.int", len(vals)))
	return listName
}

func joinSSA(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func joinTypes(t string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}

// permuteOperand writes the preamble for one operand whose stride order is
// not channels-first: a permutation list constant followed by a permute op
// (spec §4.3 step 1). Returns the SSA name of the (now physically ordered)
// operand to use in the op expression, and the operand's physical dims.
func (w *writer) permuteOperand(opName, label string, ssa string, t TensorSpec) (string, []int64) {
	if isDecreasing(t.Stride) {
		return ssa, t.Dim
	}
	perm := layoutPermutation(t.Stride)
	listBase := fmt.Sprintf("permute_%s_%s", label, opName)
	listSSA := w.intListConstant(listBase, perm)
	physDim := physicalDim(t)
	out := fmt.Sprintf("%%%s_perm", ssaBase(ssa))
	w.line("%s = torch.aten.permute %s, %s : %s, !torch.list<int> -> %s",
		out, ssa, listSSA, vtensorType(t.Dim, t.AsmType), vtensorType(physDim, t.AsmType))
	return out, physDim
}

// permuteResult writes the epilogue for an op's result when its logical
// stride order is not channels-first (spec §4.3 step 3): permute the
// physical-order result back to the caller's declared layout. Returns the
// SSA name of the logically-ordered result.
func (w *writer) permuteResult(opName, label, physSSA string, out TensorSpec) string {
	if isDecreasing(out.Stride) {
		return physSSA
	}
	perm := layoutPermutation(out.Stride)
	inv := inversePermutation(perm)
	listBase := fmt.Sprintf("permute_%s_%s", label, opName)
	listSSA := w.intListConstant(listBase, inv)
	physDim := physicalDim(out)
	result := "%" + sanitize(out.Name)
	w.line("%s = torch.aten.permute %s, %s : %s, !torch.list<int> -> %s",
		result, physSSA, listSSA, vtensorType(physDim, out.AsmType), vtensorType(out.Dim, out.AsmType))
	return result
}

func ssaBase(ssa string) string {
	if len(ssa) > 0 && ssa[0] == '%' {
		return ssa[1:]
	}
	return ssa
}

func sanitize(name string) string {
	return name
}

func vtensorType(dim []int64, asmType string) string {
	return "!torch.vtensor<" + dimsSpelling(dim) + "," + asmType + ">"
}

func dimsSpelling(dim []int64) string {
	s := "["
	for i, d := range dim {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", d)
	}
	return s + "]"
}

// emitOp dispatches on op.Kind and writes one operator's full expression:
// permute preamble(s), the operator itself, and a permute epilogue if
// needed (spec §4.3 steps 1-3). Returns the logical-order SSA name bound to
// the op's output, for a downstream op (or finalizeOutput) to reference.
func (w *writer) emitOp(op OpSpec, ssaOf func(TensorSpec) string, resultSSA map[string]string) (string, error) {
	switch op.Kind {
	case ConvFProp, ConvDGrad, ConvWGrad:
		return w.emitConv(op, ssaOf, resultSSA)
	case Pointwise:
		return w.emitPointwise(op, ssaOf, resultSSA)
	case Matmul:
		return w.emitMatmul(op, ssaOf, resultSSA)
	default:
		return "", ferrors.New(ferrors.InvalidAttribute, "emit: unrecognized op kind %d for %q", op.Kind, op.Name)
	}
}

// finalizeOutput writes the overwrite op (spec §4.3 step 4) when out is a
// registered graph output; for an intermediate virtual tensor consumed only
// by a downstream op, it writes nothing and just returns logicalSSA as-is.
func (w *writer) finalizeOutput(out TensorSpec, logicalSSA string, resultSSA map[string]string) (string, error) {
	dst, ok := resultSSA[out.Name]
	if !ok {
		return logicalSSA, nil
	}
	w.line("torch.overwrite.tensor.contents %s overwrites %s : %s, !torch.tensor<%s>",
		logicalSSA, dst, vtensorType(out.Dim, out.AsmType), dimsSpelling(out.Dim)+","+out.AsmType)
	return logicalSSA, nil
}
