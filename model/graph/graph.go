// Package graph describes a computation graph: named input tensors and layer
// nodes wired to each other by name.
package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/workgrid/hint"
	"github.com/viant/workgrid/model/tensor"
)

// Graph is a layer graph definition.
type Graph struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Source      *Source  `json:"source,omitempty" yaml:"-"`
	Inputs      []*Input `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Nodes       []*Node  `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	// Outputs lists the tensors reported after execution; empty means the
	// outputs of nodes nobody consumes.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Source records where the graph was loaded from.
type Source struct {
	URL string `json:"url,omitempty"`
}

// Input declares a graph level tensor.
type Input struct {
	Name     string          `json:"name" yaml:"name"`
	Shape    []int           `json:"shape" yaml:"shape"`
	DataType tensor.DataType `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Data     []float32       `json:"data,omitempty" yaml:"data,omitempty"`
	// Value fills the tensor when Data is empty.
	Value float32 `json:"value,omitempty" yaml:"value,omitempty"`
	// Constant marks weights that layers may prepare once.
	Constant bool `json:"constant,omitempty" yaml:"constant,omitempty"`
}

// Tensor materializes the input.
func (i *Input) Tensor() (*tensor.Tensor, error) {
	dataType := i.DataType
	if dataType == tensor.Unknown {
		dataType = tensor.F32
	}
	ret := tensor.New(i.Name, dataType, i.Shape...)
	switch {
	case len(i.Data) == 0:
		for j := range ret.Data {
			ret.Data[j] = i.Value
		}
	case len(i.Data) != ret.Len():
		return nil, fmt.Errorf("input %v: %w: %d values for shape %v", i.Name, tensor.ErrShapeMismatch, len(i.Data), i.Shape)
	default:
		copy(ret.Data, i.Data)
	}
	return ret, nil
}

// Node is a layer instance.
type Node struct {
	ID     string                 `json:"id" yaml:"id"`
	Kind   string                 `json:"kind" yaml:"kind"`
	Inputs []string               `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	Hint   *hint.Config           `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// OutputName returns the tensor name of the index-th output of a node.
func OutputName(nodeID string, index int) string {
	if index == 0 {
		return nodeID
	}
	return nodeID + ":" + strconv.Itoa(index)
}

// Producer splits a tensor reference into the producing name and output index.
func Producer(ref string) (string, int) {
	if idx := strings.LastIndexByte(ref, ':'); idx != -1 {
		if index, err := strconv.Atoi(ref[idx+1:]); err == nil {
			return ref[:idx], index
		}
	}
	return ref, 0
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) *Node {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}
	return nil
}

// Input returns the graph input with the given name.
func (g *Graph) Input(name string) *Input {
	for _, input := range g.Inputs {
		if input.Name == name {
			return input
		}
	}
	return nil
}

// Dependencies returns IDs of nodes the supplied node consumes, deduplicated,
// in reference order.
func (g *Graph) Dependencies(node *Node) []string {
	var ret []string
	seen := map[string]bool{}
	for _, ref := range node.Inputs {
		producer, _ := Producer(ref)
		if g.Node(producer) == nil || seen[producer] {
			continue
		}
		seen[producer] = true
		ret = append(ret, producer)
	}
	return ret
}

// Validate performs a structural validation of the graph and returns every
// issue found; the slice is empty when the graph is sound.
func (g *Graph) Validate() []error {
	var issues []error
	if len(g.Nodes) == 0 {
		issues = append(issues, fmt.Errorf("graph %v has no nodes", g.Name))
	}

	seen := map[string]bool{}
	for _, input := range g.Inputs {
		if input.Name == "" {
			issues = append(issues, fmt.Errorf("input without name"))
			continue
		}
		if seen[input.Name] {
			issues = append(issues, fmt.Errorf("duplicate name %s", input.Name))
		}
		seen[input.Name] = true
		for _, extent := range input.Shape {
			if extent < 0 {
				issues = append(issues, fmt.Errorf("input %s has negative extent in shape %v", input.Name, input.Shape))
				break
			}
		}
	}
	for _, node := range g.Nodes {
		if node.ID == "" {
			issues = append(issues, fmt.Errorf("node of kind %s has no id", node.Kind))
			continue
		}
		if strings.Contains(node.ID, ":") {
			issues = append(issues, fmt.Errorf("node id %s must not contain ':'", node.ID))
		}
		if seen[node.ID] {
			issues = append(issues, fmt.Errorf("duplicate name %s", node.ID))
		}
		seen[node.ID] = true
		if node.Kind == "" {
			issues = append(issues, fmt.Errorf("node %s has no kind", node.ID))
		}
	}

	for _, node := range g.Nodes {
		for _, ref := range node.Inputs {
			producer, index := Producer(ref)
			switch {
			case g.Node(producer) != nil:
			case g.Input(ref) != nil && index == 0:
			default:
				issues = append(issues, fmt.Errorf("node %s references unknown input %s", node.ID, ref))
			}
			if producer == node.ID {
				issues = append(issues, fmt.Errorf("node %s consumes its own output", node.ID))
			}
		}
	}
	for _, ref := range g.Outputs {
		producer, _ := Producer(ref)
		if g.Node(producer) == nil && g.Input(ref) == nil {
			issues = append(issues, fmt.Errorf("graph output %s is unknown", ref))
		}
	}

	if cycle := g.cycle(); cycle != "" {
		issues = append(issues, fmt.Errorf("graph contains cyclic dependencies through %s", cycle))
	}
	return issues
}

// cycle returns a node on a dependency cycle, or "".
func (g *Graph) cycle() string {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := map[string]int{}
	var dfs func(string) bool
	dfs = func(id string) bool {
		switch state[id] {
		case grey:
			return true
		case black:
			return false
		}
		state[id] = grey
		if node := g.Node(id); node != nil {
			for _, dep := range g.Dependencies(node) {
				if dep != id && dfs(dep) {
					return true
				}
			}
		}
		state[id] = black
		return false
	}
	for _, node := range g.Nodes {
		if state[node.ID] == white && dfs(node.ID) {
			for id, colour := range state {
				if colour == grey {
					return id
				}
			}
		}
	}
	return ""
}
