package graph

import "github.com/iree-org/fusilli-go/dtype"

// context carries the graph-wide defaults every node's inference pass
// consults: the symbol name, and the three data types spec §4.2 refers to
// ("graph's intermediate data type", "graph's I/O data type").
//
// It is shared by value between the Graph and every node it owns, mirroring
// the Fusilli C++ frontend's Context object threaded through every INode.
type context struct {
	name                string
	ioDataType          dtype.DataType
	computeDataType     dtype.DataType
	intermediateDataType dtype.DataType
}

func newContext() context {
	return context{
		ioDataType:           dtype.NotSet,
		computeDataType:      dtype.NotSet,
		intermediateDataType: dtype.NotSet,
	}
}
