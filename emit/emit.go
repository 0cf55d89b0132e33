// Package emit turns a validated operator graph into the textual MLIR
// module consumed by the external compiler (spec §4.3, §6 "Emitted
// artifact format"). It knows nothing about graph.Graph: callers convert
// their own tensor/op records into this package's plain TensorSpec/OpSpec
// adapter types first, the same graph-agnostic boundary the runtime
// package keeps (see runtime/backend.go's package doc).
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iree-org/fusilli-go/ferrors"
)

// TensorSpec is the emitter's plain-data view of a tensor: enough to write
// its MLIR type and, when its stride is not already channels-first
// (decreasing), the permutation that makes it so.
type TensorSpec struct {
	Name    string
	Dim     []int64
	Stride  []int64
	AsmType string // e.g. "f32", "i32" — see dtype.AsmSpelling
}

// OpKind selects which operator expression an OpSpec lowers to.
type OpKind int

const (
	ConvFProp OpKind = iota
	ConvDGrad
	ConvWGrad
	Pointwise
	Matmul
)

// ConvSpec carries the spatial hyperparameters shared by all conv kinds.
type ConvSpec struct {
	Padding  []int64
	Stride   []int64
	Dilation []int64
	Groups   int64
}

// Operand pairs a tensor with the label the original attribute record used
// for it (X, W, DY, IN_0, A, ...), which seeds the emitter's SSA names so
// they read the same way the cuDNN-style API's accessor names do.
type Operand struct {
	Label  string
	Tensor TensorSpec
}

// OpSpec is the emitter's plain-data view of one graph node.
type OpSpec struct {
	Name    string
	Kind    OpKind
	Mode    string // pointwise mode spelling (ADD/SUB/MUL/DIV); unused otherwise
	Conv    *ConvSpec
	Inputs  []Operand
	Output  Operand
	ResultN int // index into the function's sorted result list; Asm names results %result_<name> and does not read this field
}

// writer accumulates module body lines and assigns deterministic temporary
// names, mirroring the single left-to-right pass the original emitter
// performs over a validated graph.
type writer struct {
	buf    strings.Builder
	indent string
}

func (w *writer) line(format string, args ...any) {
	w.buf.WriteString(w.indent)
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

// Asm renders the full module: `module @module { func.func @main(...) { ...
// } }`, with results (sorted mutable outputs) and args (sorted value
// inputs) forming the signature, and ops emitted in the order given —
// insertion order, which is already topological since an op's inputs must
// exist before it's built (spec §4.1).
func Asm(results, args []TensorSpec, ops []OpSpec) (string, error) {
	if len(results) == 0 {
		return "", ferrors.New(ferrors.NotValidated, "emit: no output tensors; was validate() run?")
	}

	w := &writer{indent: "    "}
	w.buf.WriteString("module @module {\n")
	w.buf.WriteString("  func.func @main(")
	w.buf.WriteString(signature(results, args))
	w.buf.WriteString(") attributes {torch.assume_strict_symbolic_shapes} {\n")

	resultSSA := make(map[string]string, len(results))
	for _, r := range results {
		resultSSA[r.Name] = "%result_" + r.Name
	}
	argSSA := make(map[string]string, len(args))
	for _, a := range args {
		argSSA[a.Name] = "%arg_" + a.Name
	}
	// produced tracks the logical SSA name bound to each intermediate
	// (virtual, non-output) tensor as its producing op is emitted, so a
	// downstream op in a multi-op graph can reference it as an operand.
	produced := make(map[string]string)

	ssaOf := func(t TensorSpec) string {
		if s, ok := argSSA[t.Name]; ok {
			return s
		}
		if s, ok := produced[t.Name]; ok {
			return s
		}
		return "%" + t.Name
	}

	for _, op := range ops {
		logical, err := w.emitOp(op, ssaOf, resultSSA)
		if err != nil {
			return "", err
		}
		if _, isFinalOutput := resultSSA[op.Output.Tensor.Name]; !isFinalOutput {
			produced[op.Output.Tensor.Name] = logical
		}
	}

	w.line("return")
	w.buf.WriteString("  }\n")
	w.buf.WriteString("}\n")
	return w.buf.String(), nil
}

// signature renders `%result_<name>: !torch.tensor<[dim],type>, %arg_<name>:
// !torch.vtensor<[dim],type>, ...` in sorted-by-name order for each group
// (spec §4.3's deterministic function signature).
func signature(results, args []TensorSpec) string {
	rs := append([]TensorSpec(nil), results...)
	as := append([]TensorSpec(nil), args...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
	sort.Slice(as, func(i, j int) bool { return as[i].Name < as[j].Name })

	var parts []string
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("%%result_%s: !torch.tensor<%s>", r.Name, typeSpelling(r)))
	}
	for _, a := range as {
		parts = append(parts, fmt.Sprintf("%%arg_%s: !torch.vtensor<%s>", a.Name, typeSpelling(a)))
	}
	return strings.Join(parts, ", ")
}

func typeSpelling(t TensorSpec) string {
	dims := make([]string, len(t.Dim))
	for i, d := range t.Dim {
		dims[i] = fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("[%s],%s", strings.Join(dims, ","), t.AsmType)
}

// isDecreasing reports whether stride is already channels-first physical
// order, i.e. no permute is needed.
func isDecreasing(stride []int64) bool {
	for i := 1; i < len(stride); i++ {
		if stride[i] > stride[i-1] {
			return false
		}
	}
	return true
}

// layoutPermutation returns, for a tensor with the given logical stride,
// the axis order (physical-to-logical) the permute preamble must apply —
// the same sort-by-decreasing-stride rule TensorAttr.PhysicalDim uses.
func layoutPermutation(stride []int64) []int64 {
	perm := make([]int64, len(stride))
	for i := range perm {
		perm[i] = int64(i)
	}
	sort.SliceStable(perm, func(i, j int) bool { return stride[perm[i]] > stride[perm[j]] })
	return perm
}

func physicalDim(t TensorSpec) []int64 {
	perm := layoutPermutation(t.Stride)
	out := make([]int64, len(t.Dim))
	for i, axis := range perm {
		out[i] = t.Dim[axis]
	}
	return out
}

// inversePermutation returns perm such that applying it to a
// physical-order shape recovers the logical-order shape (used for the
// epilogue, which permutes physical results back to logical order).
func inversePermutation(perm []int64) []int64 {
	inv := make([]int64, len(perm))
	for i, axis := range perm {
		inv[axis] = int64(i)
	}
	return inv
}
