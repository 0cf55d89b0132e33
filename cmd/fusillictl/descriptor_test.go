package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraphPointwise(t *testing.T) {
	desc := &graphDescriptor{
		Name:       "add_graph",
		IODataType: "float",
		Tensors: []tensorDesc{
			{Name: "a", Dim: []int64{4, 8}},
			{Name: "b", Dim: []int64{4, 8}},
		},
		Ops: []opDesc{
			{
				Kind:        "pointwise",
				Inputs:      map[string]string{"IN_0": "a", "IN_1": "b"},
				Mode:        "add",
				Output:      "y",
				GraphOutput: true,
			},
		},
	}

	g, err := buildGraph(desc)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	asm, err := g.EmitAsm()
	require.NoError(t, err)
	assert.Contains(t, asm, "torch.aten.add.Tensor")
}

func TestBuildGraphRejectsUnknownTensorReference(t *testing.T) {
	desc := &graphDescriptor{
		Name:       "bad",
		IODataType: "float",
		Tensors: []tensorDesc{
			{Name: "a", Dim: []int64{2, 2}},
		},
		Ops: []opDesc{
			{Kind: "pointwise", Inputs: map[string]string{"IN_0": "a", "IN_1": "missing"}, Mode: "add"},
		},
	}

	_, err := buildGraph(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined tensor")
}

func TestBuildGraphRejectsUnknownOpKind(t *testing.T) {
	desc := &graphDescriptor{
		Name:       "bad",
		IODataType: "float",
		Tensors:    []tensorDesc{{Name: "a", Dim: []int64{2, 2}}, {Name: "b", Dim: []int64{2, 2}}},
		Ops: []opDesc{
			{Kind: "transpose", Inputs: map[string]string{"IN_0": "a", "IN_1": "b"}},
		},
	}

	_, err := buildGraph(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized op kind")
}

func TestBuildGraphConvDGradRequiresOutputDim(t *testing.T) {
	desc := &graphDescriptor{
		Name:       "dgrad",
		IODataType: "float",
		Tensors: []tensorDesc{
			{Name: "dy", Dim: []int64{1, 8, 6, 6}},
			{Name: "w", Dim: []int64{8, 4, 3, 3}},
		},
		Ops: []opDesc{
			{
				Kind:        "conv_dgrad",
				Inputs:      map[string]string{"DY": "dy", "W": "w"},
				Padding:     []int64{0, 0},
				Stride:      []int64{1, 1},
				Dilation:    []int64{1, 1},
				Output:      "dx",
				GraphOutput: true,
			},
		},
	}

	g, err := buildGraph(desc)
	require.NoError(t, err)
	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DX shape must be set explicitly")
}

func TestBuildGraphConvDGradWithExplicitOutputDim(t *testing.T) {
	desc := &graphDescriptor{
		Name:       "dgrad",
		IODataType: "float",
		Tensors: []tensorDesc{
			{Name: "dy", Dim: []int64{1, 8, 6, 6}},
			{Name: "w", Dim: []int64{8, 4, 3, 3}},
		},
		Ops: []opDesc{
			{
				Kind:        "conv_dgrad",
				Inputs:      map[string]string{"DY": "dy", "W": "w"},
				Padding:     []int64{0, 0},
				Stride:      []int64{1, 1},
				Dilation:    []int64{1, 1},
				Output:      "dx",
				OutputDim:   []int64{1, 4, 8, 8},
				GraphOutput: true,
			},
		},
	}

	g, err := buildGraph(desc)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
}

func TestParseDataTypeRejectsUnknown(t *testing.T) {
	_, err := parseDataType("quaternion")
	require.Error(t, err)
}
