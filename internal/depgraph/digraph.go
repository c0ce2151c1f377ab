// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package depgraph orders elements that reference other elements of their
// own type. A directed edge points from the referencing element to the
// element it references; emitting a post-order traversal therefore yields
// every element after the elements it depends on have already appeared.
package depgraph

import (
	"errors"
	"fmt"

	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// ErrCycle reports a genuine reference cycle. Cycles cannot be uploaded in
// any order; they are reported, never silently broken.
var ErrCycle = errors.New("depgraph: reference cycle")

type edge struct {
	from, to model.ID
}

// Digraph is a directed graph over element ids. Node and edge insertion
// order is preserved so traversal output is deterministic for a given
// input document.
type Digraph struct {
	order     []model.ID
	neighbors map[model.ID][]model.ID
	incidence map[model.ID]int
	edges     map[edge]struct{}
}

// New creates an empty Digraph.
func New() *Digraph {
	return &Digraph{
		neighbors: make(map[model.ID][]model.ID),
		incidence: make(map[model.ID]int),
		edges:     make(map[edge]struct{}),
	}
}

// AddNode adds a node; re-adding an existing node is a no-op.
func (g *Digraph) AddNode(id model.ID) {
	if _, ok := g.neighbors[id]; ok {
		return
	}

	g.order = append(g.order, id)
	g.neighbors[id] = nil
	g.incidence[id] = 0
}

// Has reports whether the node has been added.
func (g *Digraph) Has(id model.ID) bool {
	_, ok := g.neighbors[id]

	return ok
}

// Len returns the number of nodes.
func (g *Digraph) Len() int { return len(g.order) }

// AddEdge adds the directed edge from → to. Both nodes must already have
// been added; duplicate edges are ignored.
func (g *Digraph) AddEdge(from, to model.ID) error {
	if !g.Has(from) || !g.Has(to) {
		return fmt.Errorf("depgraph: edge %d->%d references an unknown node", from, to)
	}

	e := edge{from, to}
	if _, ok := g.edges[e]; ok {
		return nil
	}

	g.edges[e] = struct{}{}
	g.neighbors[from] = append(g.neighbors[from], to)
	g.incidence[to]++

	return nil
}

// PostOrder emits every node after all nodes reachable from it. Nodes with
// no incoming edge act as the children of a synthetic root, so one
// traversal covers the whole forest. The traversal keeps an explicit work
// stack; reference chains of any depth do not recurse.
//
// Nodes left unreached belong to a cycle, reported as ErrCycle together
// with the ids involved.
func (g *Digraph) PostOrder() ([]model.ID, error) {
	type frame struct {
		id   model.ID
		next int
	}

	visited := make(map[model.ID]struct{}, len(g.order))
	out := make([]model.ID, 0, len(g.order))

	for _, root := range g.order {
		if g.incidence[root] != 0 {
			continue
		}

		if _, ok := visited[root]; ok {
			continue
		}

		visited[root] = struct{}{}
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.neighbors[top.id]

			if top.next < len(children) {
				child := children[top.next]
				top.next++

				if _, ok := visited[child]; !ok {
					visited[child] = struct{}{}
					stack = append(stack, frame{id: child})
				}

				continue
			}

			out = append(out, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	if len(out) != len(g.order) {
		var cyclic []model.ID
		for _, id := range g.order {
			if _, ok := visited[id]; !ok {
				cyclic = append(cyclic, id)
			}
		}

		return nil, fmt.Errorf("%w involving %v", ErrCycle, cyclic)
	}

	return out, nil
}
