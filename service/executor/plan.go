package executor

import (
	"fmt"
	"sync"

	"github.com/viant/workgrid/model/graph"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/service/layer"
)

// Plan is a graph whose layers are configured and whose tensors are
// allocated. A plan can run repeatedly; nodes that only depend on constant
// inputs run once and keep their outputs.
type Plan struct {
	Graph    *graph.Graph
	Order    []*graph.Node
	layers   map[string]layer.Layer
	tensors  map[string]*tensor.Tensor
	constant map[string]bool
	prepared map[string]bool
	mux      sync.Mutex
}

// Tensor returns a tensor by name (graph input or node output).
func (p *Plan) Tensor(name string) (*tensor.Tensor, error) {
	if t, ok := p.tensors[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
}

// SetInput copies data into a non constant graph input.
func (p *Plan) SetInput(name string, data []float32) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	input := p.Graph.Input(name)
	if input == nil {
		return fmt.Errorf("%w: input %s", ErrTensorNotFound, name)
	}
	if input.Constant {
		return fmt.Errorf("input %s is constant", name)
	}
	t := p.tensors[name]
	if len(data) != t.Len() {
		return fmt.Errorf("input %s: %w: %d values for shape %v", name, tensor.ErrShapeMismatch, len(data), t.Shape)
	}
	copy(t.Data, data)
	return nil
}

// Constant reports whether the node only depends on constant inputs.
func (p *Plan) Constant(nodeID string) bool {
	return p.constant[nodeID]
}

// Outputs returns the declared graph outputs, or the outputs of nodes nobody
// consumes.
func (p *Plan) Outputs() map[string]*tensor.Tensor {
	ret := map[string]*tensor.Tensor{}
	if len(p.Graph.Outputs) > 0 {
		for _, name := range p.Graph.Outputs {
			ret[name] = p.tensors[name]
		}
		return ret
	}
	consumed := map[string]bool{}
	for _, node := range p.Graph.Nodes {
		for _, ref := range node.Inputs {
			consumed[ref] = true
		}
	}
	for name, t := range p.tensors {
		producer, _ := graph.Producer(name)
		if p.Graph.Node(producer) != nil && !consumed[name] {
			ret[name] = t
		}
	}
	return ret
}
