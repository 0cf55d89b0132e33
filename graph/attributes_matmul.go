package graph

const (
	matmulInputA  = "A"
	matmulInputB  = "B"
	matmulOutputC = "C"
)

// MatmulAttr is the attribute record for matrix multiplication: inputs A, B;
// output C (spec §3 "Matmul").
type MatmulAttr struct {
	Name    string
	inputs  ioSet
	outputs ioSet
}

func NewMatmulAttr() *MatmulAttr {
	return &MatmulAttr{inputs: newIOSet(), outputs: newIOSet()}
}

func (a *MatmulAttr) SetName(name string) *MatmulAttr { a.Name = name; return a }
func (a *MatmulAttr) SetA(t *TensorAttr) *MatmulAttr   { a.inputs.set(matmulInputA, t); return a }
func (a *MatmulAttr) SetB(t *TensorAttr) *MatmulAttr   { a.inputs.set(matmulInputB, t); return a }
func (a *MatmulAttr) setC(t *TensorAttr)               { a.outputs.set(matmulOutputC, t) }

func (a *MatmulAttr) A() *TensorAttr { return a.inputs.get(matmulInputA) }
func (a *MatmulAttr) B() *TensorAttr { return a.inputs.get(matmulInputB) }
func (a *MatmulAttr) C() *TensorAttr { return a.outputs.get(matmulOutputC) }
