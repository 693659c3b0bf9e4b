package service

import (
	"errors"

	"holder-risk-engine/internal/domain/entity"
)

// ErrNoGraphData is returned when the fund graph declares no nodes.
// It is distinct from a graph whose holders simply hold nothing.
var ErrNoGraphData = errors.New("no fund graph data")

// Partition is the split of a fund graph into connected components
type Partition struct {
	// ComponentOf maps every node address to the index of its component in Components
	ComponentOf map[string]int
	// Components lists members per component, ordered by the position of
	// each component's first node in the declared node list
	Components [][]string
	Isolated   []string
	Clusters   [][]string
}

// NodeCount returns the number of distinct nodes in the partition
func (p *Partition) NodeCount() int {
	return len(p.ComponentOf)
}

// disjointSet is a union-find over dense node indices
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range ds.parent {
		ds.parent[i] = i
		ds.size[i] = 1
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]] // path halving
		x = ds.parent[x]
	}
	return x
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	if ds.size[ra] < ds.size[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	ds.size[ra] += ds.size[rb]
}

// PartitionGraph computes the connected components of the undirected fund graph.
// Degree-0 nodes form their own component. Links naming an undeclared node are
// ignored; duplicate nodes collapse to their first occurrence.
func PartitionGraph(graph entity.FundGraph) (*Partition, error) {
	if graph.IsEmpty() {
		return nil, ErrNoGraphData
	}

	index := make(map[string]int, len(graph.Nodes))
	addresses := make([]string, 0, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if _, exists := index[node.ID]; exists {
			continue
		}
		index[node.ID] = len(addresses)
		addresses = append(addresses, node.ID)
	}

	ds := newDisjointSet(len(addresses))
	for _, link := range graph.Links {
		source, ok := index[link.Source]
		if !ok {
			continue
		}
		target, ok := index[link.Target]
		if !ok {
			continue
		}
		ds.union(source, target)
	}

	partition := &Partition{
		ComponentOf: make(map[string]int, len(addresses)),
	}
	componentOfRoot := make(map[int]int)

	for i, addr := range addresses {
		root := ds.find(i)
		component, seen := componentOfRoot[root]
		if !seen {
			component = len(partition.Components)
			componentOfRoot[root] = component
			partition.Components = append(partition.Components, nil)
		}
		partition.Components[component] = append(partition.Components[component], addr)
		partition.ComponentOf[addr] = component
	}

	for _, members := range partition.Components {
		if len(members) == 1 {
			partition.Isolated = append(partition.Isolated, members[0])
		} else {
			partition.Clusters = append(partition.Clusters, members)
		}
	}

	return partition, nil
}
