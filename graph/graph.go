// Package graph implements the cuDNN-style graph-building frontend of spec
// §3/§4.1: a Graph accumulates TensorAttr records and operator nodes under a
// chainable builder API, then Validate/EmitAsm/Compile/Execute carry it
// through the lifecycle spec §3.4 describes (mutable build → validated →
// compiled). Unlike emit/cache/runtime, this package freely imports all
// three — it is the one place their concerns come together.
package graph

import (
	"fmt"
	"sort"

	"github.com/iree-org/fusilli-go/cache"
	"github.com/iree-org/fusilli-go/dtype"
	"github.com/iree-org/fusilli-go/ferrors"
	"github.com/iree-org/fusilli-go/runtime"
)

// buildState tracks the lifecycle spec §3 "Lifecycle" names: mutable build,
// validated, compiled. Edits after validated are not defined by the spec;
// this package does not attempt to detect or forbid them beyond what
// Validate/EmitAsm/Compile's own state checks catch.
type buildState int

const (
	stateMutable buildState = iota
	stateValidated
	stateCompiled
)

// Graph is the root composite (spec §3 "Graph"): name, the three default
// data types inherited via the embedded context, the ordered subnode list,
// and the input/output tensor sets every op builder maintains.
type Graph struct {
	context

	nodes   []node
	inputs  []*TensorAttr
	outputs []*TensorAttr

	state         buildState
	sortedInputs  []*TensorAttr
	sortedOutputs []*TensorAttr

	cache            *cache.Cache
	assets           cache.CachedAssets
	handle           *runtime.Handle
	session          *runtime.Session
	compilerPath     string
	lastCompileFresh bool
}

// CompiledArtifactPath returns the path of this graph's compiled artifact
// on disk, valid once Compile has succeeded.
func (g *Graph) CompiledArtifactPath() string { return g.assets.Output.Path }

// LastCompileWasFresh reports whether the most recent Compile call invoked
// the external compiler (a cache miss) rather than reusing a previously
// staged artifact from this same Graph instance.
func (g *Graph) LastCompileWasFresh() bool { return g.lastCompileFresh }

// NewGraph returns an empty Graph in the mutable-build state, named name.
func NewGraph(name string) *Graph {
	g := &Graph{context: newContext()}
	g.name = name
	return g
}

func (g *Graph) SetName(name string) *Graph { g.name = name; return g }

func (g *Graph) SetIODataType(dt dtype.DataType) *Graph {
	g.ioDataType = dt
	return g
}

func (g *Graph) SetComputeDataType(dt dtype.DataType) *Graph {
	g.computeDataType = dt
	return g
}

func (g *Graph) SetIntermediateDataType(dt dtype.DataType) *Graph {
	g.intermediateDataType = dt
	return g
}

// Tensor registers t as a graph input (spec §4.1 "tensor(TensorAttr) →
// tensor-handle which copies the record into the graph's input set").
// Unlike the original's by-value copy, this Go port shares t by pointer —
// the returned handle and the graph's own bookkeeping refer to the same
// record, the same sharing model every op builder already relies on for
// chaining one op's output into another's input.
func (g *Graph) Tensor(t *TensorAttr) *TensorAttr {
	g.inputs = append(g.inputs, t)
	return t
}

// nextOpName implements spec §4.1's "auto-assigns a unique name if missing
// (op_<N> where N is the current subnode count)".
func (g *Graph) nextOpName(name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("op_%d", len(g.nodes))
}

// autoNameOperand implements spec §4.1's "auto-names dangling input tensors
// after the op": an input handle with no name yet is named from the op it
// is first used in plus its accessor label (X, W, DY, IN_0, A, ...).
func autoNameOperand(t *TensorAttr, opName, label string) {
	if t != nil && t.Name == "" {
		t.Name = opName + "_" + label
	}
}

func newVirtualOutput(opName, suffix string) *TensorAttr {
	return NewTensorAttr().SetName(opName + "_" + suffix).SetIsVirtual(true)
}

func (g *Graph) appendNode(n node, output *TensorAttr) {
	g.nodes = append(g.nodes, n)
	g.outputs = append(g.outputs, output)
}

// ConvFProp builds a convolution forward-propagation node from x and w,
// returning its virtual output Y (spec §3 "ConvFProp").
func (g *Graph) ConvFProp(x, w *TensorAttr, attr *ConvFPropAttr) *TensorAttr {
	name := g.nextOpName(attr.Name)
	attr.Name = name
	autoNameOperand(x, name, convInputX)
	autoNameOperand(w, name, convInputW)
	attr.SetX(x).SetW(w)

	y := newVirtualOutput(name, convOutputY)
	attr.setY(y)

	g.appendNode(&convFPropNode{attr: *attr}, y)
	return y
}

// ConvDGrad builds a convolution data-gradient node from dy and w,
// returning its virtual output DX (spec §3 "ConvDGrad").
func (g *Graph) ConvDGrad(dy, w *TensorAttr, attr *ConvDGradAttr) *TensorAttr {
	name := g.nextOpName(attr.Name)
	attr.Name = name
	autoNameOperand(dy, name, convInputDY)
	autoNameOperand(w, name, convInputW)
	attr.SetDY(dy).SetW(w)

	dx := newVirtualOutput(name, convOutputDX)
	attr.setDX(dx)

	g.appendNode(&convDGradNode{attr: *attr}, dx)
	return dx
}

// ConvWGrad builds a convolution weight-gradient node from dy and x,
// returning its virtual output DW (spec §3 "ConvWGrad").
func (g *Graph) ConvWGrad(dy, x *TensorAttr, attr *ConvWGradAttr) *TensorAttr {
	name := g.nextOpName(attr.Name)
	attr.Name = name
	autoNameOperand(dy, name, convInputDY)
	autoNameOperand(x, name, convInputX)
	attr.SetDY(dy).SetX(x)

	dw := newVirtualOutput(name, convOutputDW)
	attr.setDW(dw)

	g.appendNode(&convWGradNode{attr: *attr}, dw)
	return dw
}

// Pointwise builds a binary element-wise node from in0 and in1, returning
// its virtual output OUT_0 (spec §3 "Pointwise").
func (g *Graph) Pointwise(in0, in1 *TensorAttr, attr *PointwiseAttr) *TensorAttr {
	name := g.nextOpName(attr.Name)
	attr.Name = name
	autoNameOperand(in0, name, pointwiseInput0)
	autoNameOperand(in1, name, pointwiseInput1)
	attr.SetIN0(in0).SetIN1(in1)

	out := newVirtualOutput(name, pointwiseOutput)
	attr.setOUT(out)

	g.appendNode(&pointwiseNode{attr: *attr}, out)
	return out
}

// Matmul builds a matrix-multiplication node from a and b, returning its
// virtual output C (spec §3 "Matmul").
func (g *Graph) Matmul(a, b *TensorAttr, attr *MatmulAttr) *TensorAttr {
	name := g.nextOpName(attr.Name)
	attr.Name = name
	autoNameOperand(a, name, matmulInputA)
	autoNameOperand(b, name, matmulInputB)
	attr.SetA(a).SetB(b)

	c := newVirtualOutput(name, matmulOutputC)
	attr.setC(c)

	g.appendNode(&matmulNode{attr: *attr}, c)
	return c
}

// Validate runs the three-pass traversal of spec §4.2: global root
// pre-validate invariants, per-node pre-validate, type/stride defaults for
// graph inputs followed by bottom-up inference
// (a flat forward pass suffices since operator nodes never nest, per
// node.go's doc comment), then per-node post-validate. On success it also
// builds the sorted input/output views the emitter and executor use for a
// deterministic argument order, and moves the graph to the validated state.
func (g *Graph) Validate() error {
	if g.name == "" {
		return ferrors.New(ferrors.AttributeNotSet, "graph name not set")
	}

	seen := make(map[string]*TensorAttr)
	remember := func(t *TensorAttr) error {
		if t == nil {
			return nil
		}
		if existing, ok := seen[t.Name]; ok && existing != t {
			return ferrors.New(ferrors.InvalidAttribute, "duplicate tensor name %q", t.Name)
		}
		seen[t.Name] = t
		return nil
	}

	seenNodeNames := make(map[string]bool)
	for _, n := range g.nodes {
		if seenNodeNames[n.opName()] {
			return ferrors.New(ferrors.InvalidAttribute, "duplicate op name %q", n.opName())
		}
		seenNodeNames[n.opName()] = true
		for _, t := range n.inputs() {
			if err := remember(t); err != nil {
				return err
			}
		}
		for _, t := range n.outputs() {
			if err := remember(t); err != nil {
				return err
			}
		}
	}
	for _, t := range g.inputs {
		if err := remember(t); err != nil {
			return err
		}
		if t.IsOutput {
			return ferrors.New(ferrors.InvalidAttribute,
				"tensor %q registered via Tensor cannot also be flagged as a user output", t.Name)
		}
	}

	for _, n := range g.nodes {
		if err := n.preValidate(); err != nil {
			return err
		}
	}
	// Graph inputs take the same type and stride defaults op outputs do.
	for _, t := range g.inputs {
		fillDefaultDataType(&g.context, t)
		fillDefaultStride(t)
	}
	for _, n := range g.nodes {
		if err := n.inferProperties(&g.context); err != nil {
			return err
		}
	}
	for _, n := range g.nodes {
		if err := n.postValidate(); err != nil {
			return err
		}
	}

	g.sortedInputs = sortedByName(g.inputs)
	g.sortedOutputs = sortedByName(promotedOutputs(g.outputs))
	g.state = stateValidated
	return nil
}

func promotedOutputs(outputs []*TensorAttr) []*TensorAttr {
	var out []*TensorAttr
	for _, t := range outputs {
		if t.IsOutput {
			out = append(out, t)
		}
	}
	return out
}

func sortedByName(ts []*TensorAttr) []*TensorAttr {
	out := append([]*TensorAttr(nil), ts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
