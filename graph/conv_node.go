package graph

import (
	"github.com/iree-org/fusilli-go/ferrors"
)

// spatialRank returns the spatial dimensionality implied by x's rank: 2 for
// a 4-D tensor (N,C,H,W), 3 for a 5-D tensor (N,C,D,H,W), per spec §4.2.
func spatialRank(x *TensorAttr) int { return x.Rank() - 2 }

func checkSpatialRanks(spatial int, padding, stride, dilation []int64) error {
	if len(stride) != spatial || len(dilation) != spatial {
		return ferrors.New(ferrors.InvalidAttribute,
			"rank(stride)=%d, rank(dilation)=%d must both equal spatial rank %d",
			len(stride), len(dilation), spatial)
	}
	if len(padding) != spatial {
		return ferrors.New(ferrors.InvalidAttribute,
			"rank(padding)=%d must equal spatial rank %d", len(padding), spatial)
	}
	for _, s := range stride {
		if s < 1 {
			return ferrors.New(ferrors.InvalidAttribute, "conv stride values must be >= 1, got %d", s)
		}
	}
	for _, d := range dilation {
		if d < 1 {
			return ferrors.New(ferrors.InvalidAttribute, "conv dilation values must be >= 1, got %d", d)
		}
	}
	for _, p := range padding {
		if p < 0 {
			return ferrors.New(ferrors.InvalidAttribute, "conv padding values must be >= 0, got %d", p)
		}
	}
	return nil
}

// convOutputSpatialDim applies spec §4.2's ConvFProp output-size formula:
// y_i = floor((x_i + 2*pad_i - dilation_i*(w_i-1) - 1) / stride_i) + 1.
func convOutputSpatialDim(x, w, pad, stride, dilation int64) int64 {
	return (x+2*pad-dilation*(w-1)-1)/stride + 1
}

// groupCount derives the conv group count: X[C] / W[C] (the filter's
// channel-per-group axis), per spec §4.2.
func groupCount(xC, wC int64) (int64, error) {
	if wC == 0 || xC%wC != 0 {
		return 0, ferrors.New(ferrors.InvalidAttribute,
			"conv channel count X[C]=%d does not divide evenly by filter channel count W[C]=%d", xC, wC)
	}
	return xC / wC, nil
}

// ---- ConvFProp ----

type convFPropNode struct {
	attr ConvFPropAttr
}

func (n *convFPropNode) opName() string            { return n.attr.Name }
func (n *convFPropNode) inputs() []*TensorAttr      { return []*TensorAttr{n.attr.X(), n.attr.W()} }
func (n *convFPropNode) outputs() []*TensorAttr     { return []*TensorAttr{n.attr.Y()} }

func (n *convFPropNode) preValidate() error {
	x, w := n.attr.X(), n.attr.W()
	if x == nil || w == nil || n.attr.Y() == nil {
		return ferrors.New(ferrors.AttributeNotSet, "convFProp %q: X, W and Y must all be set", n.attr.Name)
	}
	spatial := spatialRank(x)
	if spatial != 2 && spatial != 3 {
		return ferrors.New(ferrors.InvalidAttribute,
			"convFProp %q: X must be 4-D or 5-D, got rank %d", n.attr.Name, x.Rank())
	}
	return checkSpatialRanks(spatial, n.attr.Padding, n.attr.Stride, n.attr.Dilation)
}

func (n *convFPropNode) inferProperties(ctx *context) error {
	x, w, y := n.attr.X(), n.attr.W(), n.attr.Y()
	fillDefaultDataType(ctx, y)
	if len(y.Dim) == 0 {
		if len(x.Dim) == 0 || len(w.Dim) == 0 {
			return ferrors.New(ferrors.ShapeInferenceFailure,
				"convFProp %q: X and W shapes must be known before inferring Y", n.attr.Name)
		}
		spatial := spatialRank(x)
		dim := make([]int64, x.Rank())
		dim[0] = x.Dim[0] // N
		dim[1] = w.Dim[0] // K
		for i := 0; i < spatial; i++ {
			dim[2+i] = convOutputSpatialDim(x.Dim[2+i], w.Dim[2+i], n.attr.Padding[i], n.attr.Stride[i], n.attr.Dilation[i])
		}
		y.Dim = dim
	}
	if len(x.Dim) > 1 && len(w.Dim) > 1 {
		if _, err := groupCount(x.Dim[1], w.Dim[1]); err != nil {
			return err
		}
	}
	fillOutputStride(y, x)
	return nil
}

func (n *convFPropNode) postValidate() error {
	for _, t := range []*TensorAttr{n.attr.X(), n.attr.W(), n.attr.Y()} {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ---- ConvDGrad ----

type convDGradNode struct {
	attr ConvDGradAttr
}

func (n *convDGradNode) opName() string        { return n.attr.Name }
func (n *convDGradNode) inputs() []*TensorAttr  { return []*TensorAttr{n.attr.DY(), n.attr.W()} }
func (n *convDGradNode) outputs() []*TensorAttr { return []*TensorAttr{n.attr.DX()} }

func (n *convDGradNode) preValidate() error {
	dy, w := n.attr.DY(), n.attr.W()
	if dy == nil || w == nil || n.attr.DX() == nil {
		return ferrors.New(ferrors.AttributeNotSet, "convDGrad %q: DY, W and DX must all be set", n.attr.Name)
	}
	// DX's shape is supplied by the application and may still be unset here
	// (inferProperties reports that), so the spatial rank comes from DY.
	spatial := spatialRank(dy)
	if spatial != 2 && spatial != 3 {
		return ferrors.New(ferrors.InvalidAttribute,
			"convDGrad %q: DY must be 4-D or 5-D, got rank %d", n.attr.Name, dy.Rank())
	}
	return checkSpatialRanks(spatial, n.attr.Padding, n.attr.Stride, n.attr.Dilation)
}

func (n *convDGradNode) inferProperties(ctx *context) error {
	dx := n.attr.DX()
	// ConvDGrad output shape equals X's shape; the application sets it
	// explicitly (spec §4.2) since the forward arithmetic is not always
	// invertible under integer floor division. Only dtype/stride defaults
	// are filled here.
	if len(dx.Dim) == 0 {
		return ferrors.New(ferrors.ShapeInferenceFailure,
			"convDGrad %q: DX shape must be set explicitly by the application", n.attr.Name)
	}
	fillDefaultDataType(ctx, dx)
	w := n.attr.W()
	if len(dx.Dim) > 1 && len(w.Dim) > 1 {
		if _, err := groupCount(dx.Dim[1], w.Dim[1]); err != nil {
			return err
		}
	}
	fillOutputStride(dx, n.attr.DY())
	return nil
}

func (n *convDGradNode) postValidate() error {
	for _, t := range []*TensorAttr{n.attr.DY(), n.attr.W(), n.attr.DX()} {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ---- ConvWGrad ----

type convWGradNode struct {
	attr ConvWGradAttr
}

func (n *convWGradNode) opName() string        { return n.attr.Name }
func (n *convWGradNode) inputs() []*TensorAttr  { return []*TensorAttr{n.attr.DY(), n.attr.X()} }
func (n *convWGradNode) outputs() []*TensorAttr { return []*TensorAttr{n.attr.DW()} }

func (n *convWGradNode) preValidate() error {
	dy, x := n.attr.DY(), n.attr.X()
	if dy == nil || x == nil || n.attr.DW() == nil {
		return ferrors.New(ferrors.AttributeNotSet, "convWGrad %q: DY, X and DW must all be set", n.attr.Name)
	}
	spatial := spatialRank(x)
	if spatial != 2 && spatial != 3 {
		return ferrors.New(ferrors.InvalidAttribute,
			"convWGrad %q: X must be 4-D or 5-D, got rank %d", n.attr.Name, x.Rank())
	}
	return checkSpatialRanks(spatial, n.attr.Padding, n.attr.Stride, n.attr.Dilation)
}

func (n *convWGradNode) inferProperties(ctx *context) error {
	dw := n.attr.DW()
	// ConvWGrad output shape equals W's shape; set explicitly by the
	// application, same reasoning as ConvDGrad.
	if len(dw.Dim) == 0 {
		return ferrors.New(ferrors.ShapeInferenceFailure,
			"convWGrad %q: DW shape must be set explicitly by the application", n.attr.Name)
	}
	fillDefaultDataType(ctx, dw)
	x := n.attr.X()
	if len(x.Dim) > 1 && len(dw.Dim) > 1 {
		if _, err := groupCount(x.Dim[1], dw.Dim[1]); err != nil {
			return err
		}
	}
	fillDefaultStride(dw)
	return nil
}

func (n *convWGradNode) postValidate() error {
	for _, t := range []*TensorAttr{n.attr.DY(), n.attr.X(), n.attr.DW()} {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}
