package executor

import (
	"fmt"

	"github.com/viant/workgrid/model/graph"
)

// Order returns nodes in topological order using Kahn's algorithm; among
// ready nodes the one declared first runs first.
func Order(g *graph.Graph) ([]*graph.Node, error) {
	position := make(map[string]int, len(g.Nodes))
	for i, node := range g.Nodes {
		position[node.ID] = i
	}
	inDegree := make([]int, len(g.Nodes))
	dependents := make([][]int, len(g.Nodes))
	for i, node := range g.Nodes {
		for _, dep := range g.Dependencies(node) {
			inDegree[i]++
			dependents[position[dep]] = append(dependents[position[dep]], i)
		}
	}

	ready := make([]bool, len(g.Nodes))
	for i, degree := range inDegree {
		ready[i] = degree == 0
	}
	ret := make([]*graph.Node, 0, len(g.Nodes))
	for len(ret) < len(g.Nodes) {
		next := -1
		for i, ok := range ready {
			if ok {
				next = i
				break
			}
		}
		if next == -1 {
			return nil, fmt.Errorf("%w: graph %v contains a cycle", ErrInvalidGraph, g.Name)
		}
		ready[next] = false
		ret = append(ret, g.Nodes[next])
		for _, dependent := range dependents[next] {
			if inDegree[dependent]--; inDegree[dependent] == 0 {
				ready[dependent] = true
			}
		}
	}
	return ret, nil
}
