package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iree-org/fusilli-go/dtype"
	"github.com/iree-org/fusilli-go/ferrors"
	"github.com/iree-org/fusilli-go/graph"
)

// tensorDesc is the JSON shape of one graph input tensor. Tensors produced
// by an op are never listed here: they come into existence as that op's
// virtual output and are only referenced by name afterwards.
type tensorDesc struct {
	Name   string  `json:"name"`
	Dim    []int64 `json:"dim"`
	Stride []int64 `json:"stride,omitempty"`
	DType  string  `json:"dtype,omitempty"`
}

// opDesc is the JSON shape of one operator node. Inputs is keyed by the
// operator's role name (X/W, DY/W, DY/X, IN_0/IN_1, A/B), matching the
// accessor names graph's attribute records already use, so the descriptor
// vocabulary doesn't invent a second naming scheme.
type opDesc struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name,omitempty"`
	Inputs      map[string]string `json:"inputs"`
	Output      string            `json:"output,omitempty"`
	OutputDim   []int64           `json:"output_dim,omitempty"`
	GraphOutput bool              `json:"graph_output,omitempty"`
	Padding     []int64           `json:"padding,omitempty"`
	Stride      []int64           `json:"conv_stride,omitempty"`
	Dilation    []int64           `json:"dilation,omitempty"`
	Mode        string            `json:"mode,omitempty"`
}

// graphDescriptor is the JSON file format fusillictl reads: a graph-level
// header plus an input tensor list and an ordered op list, the textual
// analogue of the chained builder calls graph's Go API exposes natively.
type graphDescriptor struct {
	Name                 string       `json:"name"`
	IODataType           string       `json:"io_dtype"`
	ComputeDataType      string       `json:"compute_dtype,omitempty"`
	IntermediateDataType string       `json:"intermediate_dtype,omitempty"`
	Tensors              []tensorDesc `json:"tensors"`
	Ops                  []opDesc     `json:"ops"`
}

func loadDescriptor(path string) (*graphDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d graphDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &d, nil
}

var dataTypeNames = map[string]dtype.DataType{
	"half":     dtype.Half,
	"bfloat16": dtype.BFloat16,
	"float":    dtype.Float,
	"f32":      dtype.Float,
	"double":   dtype.Double,
	"f64":      dtype.Double,
	"uint8":    dtype.Uint8,
	"int8":     dtype.Int8,
	"int16":    dtype.Int16,
	"int32":    dtype.Int32,
	"int64":    dtype.Int64,
	"boolean":  dtype.Boolean,
	"bool":     dtype.Boolean,
	"fp8e5m2":  dtype.FP8E5M2,
}

func parseDataType(s string) (dtype.DataType, error) {
	if s == "" {
		return dtype.NotSet, nil
	}
	dt, ok := dataTypeNames[s]
	if !ok {
		return dtype.NotSet, ferrors.New(ferrors.InvalidAttribute, "unrecognized dtype %q", s)
	}
	return dt, nil
}

var pointwiseModeNames = map[string]graph.PointwiseMode{
	"add": graph.ADD,
	"sub": graph.SUB,
	"mul": graph.MUL,
	"div": graph.DIV,
}

// buildGraph walks a graphDescriptor's tensor and op lists and drives the
// real graph.Graph builder API, the way a hand-written Go program would:
// the descriptor exists only so fusillictl can accept graphs from a file
// instead of from Go source, it is never consulted again once the *Graph
// is built.
func buildGraph(d *graphDescriptor) (*graph.Graph, error) {
	ioDT, err := parseDataType(d.IODataType)
	if err != nil {
		return nil, err
	}
	computeDT, err := parseDataType(d.ComputeDataType)
	if err != nil {
		return nil, err
	}
	intermediateDT, err := parseDataType(d.IntermediateDataType)
	if err != nil {
		return nil, err
	}

	g := graph.NewGraph(d.Name).SetIODataType(ioDT)
	if computeDT != dtype.NotSet {
		g.SetComputeDataType(computeDT)
	}
	if intermediateDT != dtype.NotSet {
		g.SetIntermediateDataType(intermediateDT)
	}

	tensors := make(map[string]*graph.TensorAttr, len(d.Tensors)+len(d.Ops))
	for _, td := range d.Tensors {
		dt, err := parseDataType(td.DType)
		if err != nil {
			return nil, err
		}
		t := graph.NewTensorAttr().SetName(td.Name).SetDim(td.Dim...)
		if len(td.Stride) > 0 {
			t.SetStride(td.Stride...)
		}
		if dt != dtype.NotSet {
			t.SetDataType(dt)
		}
		tensors[td.Name] = g.Tensor(t)
	}

	lookup := func(opKind, role string, names map[string]string) (*graph.TensorAttr, error) {
		name, ok := names[role]
		if !ok {
			return nil, ferrors.New(ferrors.AttributeNotSet, "%s op: missing input %q", opKind, role)
		}
		t, ok := tensors[name]
		if !ok {
			return nil, ferrors.New(ferrors.AttributeNotSet, "%s op: undefined tensor %q referenced as %q", opKind, name, role)
		}
		return t, nil
	}

	for _, od := range d.Ops {
		var out *graph.TensorAttr
		switch od.Kind {
		case "conv_fprop":
			x, err := lookup(od.Kind, "X", od.Inputs)
			if err != nil {
				return nil, err
			}
			w, err := lookup(od.Kind, "W", od.Inputs)
			if err != nil {
				return nil, err
			}
			attr := graph.NewConvFPropAttr().SetName(od.Name).
				SetPadding(od.Padding...).SetStride(od.Stride...).SetDilation(od.Dilation...)
			out = g.ConvFProp(x, w, attr)
		case "conv_dgrad":
			dy, err := lookup(od.Kind, "DY", od.Inputs)
			if err != nil {
				return nil, err
			}
			w, err := lookup(od.Kind, "W", od.Inputs)
			if err != nil {
				return nil, err
			}
			attr := graph.NewConvDGradAttr().SetName(od.Name).
				SetPadding(od.Padding...).SetStride(od.Stride...).SetDilation(od.Dilation...)
			out = g.ConvDGrad(dy, w, attr)
		case "conv_wgrad":
			dy, err := lookup(od.Kind, "DY", od.Inputs)
			if err != nil {
				return nil, err
			}
			x, err := lookup(od.Kind, "X", od.Inputs)
			if err != nil {
				return nil, err
			}
			attr := graph.NewConvWGradAttr().SetName(od.Name).
				SetPadding(od.Padding...).SetStride(od.Stride...).SetDilation(od.Dilation...)
			out = g.ConvWGrad(dy, x, attr)
		case "pointwise":
			in0, err := lookup(od.Kind, "IN_0", od.Inputs)
			if err != nil {
				return nil, err
			}
			in1, err := lookup(od.Kind, "IN_1", od.Inputs)
			if err != nil {
				return nil, err
			}
			mode, ok := pointwiseModeNames[od.Mode]
			if !ok {
				return nil, ferrors.New(ferrors.InvalidAttribute, "pointwise op: unrecognized mode %q", od.Mode)
			}
			attr := graph.NewPointwiseAttr().SetName(od.Name).SetMode(mode)
			out = g.Pointwise(in0, in1, attr)
		case "matmul":
			a, err := lookup(od.Kind, "A", od.Inputs)
			if err != nil {
				return nil, err
			}
			b, err := lookup(od.Kind, "B", od.Inputs)
			if err != nil {
				return nil, err
			}
			out = g.Matmul(a, b, graph.NewMatmulAttr().SetName(od.Name))
		default:
			return nil, ferrors.New(ferrors.InvalidAttribute, "unrecognized op kind %q", od.Kind)
		}
		if od.Output != "" {
			out.SetName(od.Output)
		}
		// ConvDGrad/ConvWGrad cannot infer their output shape (the forward
		// arithmetic is not always invertible), so the descriptor must
		// supply it explicitly, the same requirement graph.Graph places on
		// hand-written Go callers.
		if len(od.OutputDim) > 0 {
			out.SetDim(od.OutputDim...)
		}
		if od.GraphOutput {
			out.SetOutput(true)
		}
		tensors[out.Name] = out
	}

	return g, nil
}
