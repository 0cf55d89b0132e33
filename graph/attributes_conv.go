package graph

// convSpatialAttr holds the spatial hyperparameters shared by all three
// convolution variants (spec §3 "ConvFProp / ConvDGrad / ConvWGrad"): each
// is a rank-N sequence matching the spatial dimensionality of the operator.
type convSpatialAttr struct {
	Name     string
	Padding  []int64
	Stride   []int64
	Dilation []int64
}

func (a *convSpatialAttr) setName(name string)         { a.Name = name }
func (a *convSpatialAttr) setPadding(p ...int64)        { a.Padding = append([]int64(nil), p...) }
func (a *convSpatialAttr) setStride(s ...int64)         { a.Stride = append([]int64(nil), s...) }
func (a *convSpatialAttr) setDilation(d ...int64)       { a.Dilation = append([]int64(nil), d...) }

const (
	convInputX  = "X"
	convInputW  = "W"
	convInputDY = "DY"
	convOutputY  = "Y"
	convOutputDX = "DX"
	convOutputDW = "DW"
)

// ConvFPropAttr is the attribute record for convolution forward propagation:
// inputs X (activations), W (filter); output Y.
type ConvFPropAttr struct {
	convSpatialAttr
	inputs  ioSet
	outputs ioSet
}

func NewConvFPropAttr() *ConvFPropAttr {
	return &ConvFPropAttr{inputs: newIOSet(), outputs: newIOSet()}
}

func (a *ConvFPropAttr) SetName(name string) *ConvFPropAttr     { a.setName(name); return a }
func (a *ConvFPropAttr) SetPadding(p ...int64) *ConvFPropAttr   { a.setPadding(p...); return a }
func (a *ConvFPropAttr) SetStride(s ...int64) *ConvFPropAttr    { a.setStride(s...); return a }
func (a *ConvFPropAttr) SetDilation(d ...int64) *ConvFPropAttr  { a.setDilation(d...); return a }
func (a *ConvFPropAttr) SetX(t *TensorAttr) *ConvFPropAttr      { a.inputs.set(convInputX, t); return a }
func (a *ConvFPropAttr) SetW(t *TensorAttr) *ConvFPropAttr      { a.inputs.set(convInputW, t); return a }
func (a *ConvFPropAttr) setY(t *TensorAttr)                     { a.outputs.set(convOutputY, t) }

func (a *ConvFPropAttr) X() *TensorAttr { return a.inputs.get(convInputX) }
func (a *ConvFPropAttr) W() *TensorAttr { return a.inputs.get(convInputW) }
func (a *ConvFPropAttr) Y() *TensorAttr { return a.outputs.get(convOutputY) }

// ConvDGradAttr is the attribute record for convolution data-gradient
// (backward w.r.t. the input): inputs DY (output gradient), W (filter);
// output DX (input gradient).
type ConvDGradAttr struct {
	convSpatialAttr
	inputs  ioSet
	outputs ioSet
}

func NewConvDGradAttr() *ConvDGradAttr {
	return &ConvDGradAttr{inputs: newIOSet(), outputs: newIOSet()}
}

func (a *ConvDGradAttr) SetName(name string) *ConvDGradAttr    { a.setName(name); return a }
func (a *ConvDGradAttr) SetPadding(p ...int64) *ConvDGradAttr  { a.setPadding(p...); return a }
func (a *ConvDGradAttr) SetStride(s ...int64) *ConvDGradAttr   { a.setStride(s...); return a }
func (a *ConvDGradAttr) SetDilation(d ...int64) *ConvDGradAttr { a.setDilation(d...); return a }
func (a *ConvDGradAttr) SetDY(t *TensorAttr) *ConvDGradAttr    { a.inputs.set(convInputDY, t); return a }
func (a *ConvDGradAttr) SetW(t *TensorAttr) *ConvDGradAttr     { a.inputs.set(convInputW, t); return a }
func (a *ConvDGradAttr) setDX(t *TensorAttr)                   { a.outputs.set(convOutputDX, t) }

func (a *ConvDGradAttr) DY() *TensorAttr { return a.inputs.get(convInputDY) }
func (a *ConvDGradAttr) W() *TensorAttr  { return a.inputs.get(convInputW) }
func (a *ConvDGradAttr) DX() *TensorAttr { return a.outputs.get(convOutputDX) }

// ConvWGradAttr is the attribute record for convolution weight-gradient
// (backward w.r.t. the filter): inputs DY (output gradient), X
// (activations); output DW (filter gradient).
type ConvWGradAttr struct {
	convSpatialAttr
	inputs  ioSet
	outputs ioSet
}

func NewConvWGradAttr() *ConvWGradAttr {
	return &ConvWGradAttr{inputs: newIOSet(), outputs: newIOSet()}
}

func (a *ConvWGradAttr) SetName(name string) *ConvWGradAttr    { a.setName(name); return a }
func (a *ConvWGradAttr) SetPadding(p ...int64) *ConvWGradAttr  { a.setPadding(p...); return a }
func (a *ConvWGradAttr) SetStride(s ...int64) *ConvWGradAttr   { a.setStride(s...); return a }
func (a *ConvWGradAttr) SetDilation(d ...int64) *ConvWGradAttr { a.setDilation(d...); return a }
func (a *ConvWGradAttr) SetDY(t *TensorAttr) *ConvWGradAttr    { a.inputs.set(convInputDY, t); return a }
func (a *ConvWGradAttr) SetX(t *TensorAttr) *ConvWGradAttr     { a.inputs.set(convInputX, t); return a }
func (a *ConvWGradAttr) setDW(t *TensorAttr)                   { a.outputs.set(convOutputDW, t) }

func (a *ConvWGradAttr) DY() *TensorAttr { return a.inputs.get(convInputDY) }
func (a *ConvWGradAttr) X() *TensorAttr  { return a.inputs.get(convInputX) }
func (a *ConvWGradAttr) DW() *TensorAttr { return a.outputs.get(convOutputDW) }
