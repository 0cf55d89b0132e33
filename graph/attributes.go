package graph

// ioSet is the Go realization of Fusilli's FUSILLI_GENERIC_{INPUT,OUTPUT}_
// TENSOR_{SETTER,GETTER} macro pair (see matmul_attributes.h): rather than a
// bespoke field per named input/output, every operator attribute record
// keeps its tensor handles in a small name-keyed map and exposes typed
// accessor methods built on these two helpers.
type ioSet map[string]*TensorAttr

func (s ioSet) set(name string, t *TensorAttr) { s[name] = t }
func (s ioSet) get(name string) *TensorAttr    { return s[name] }

func newIOSet() ioSet { return make(ioSet) }
