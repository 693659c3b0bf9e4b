package service

import (
	"testing"

	"holder-risk-engine/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []entity.GraphNode {
	out := make([]entity.GraphNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.GraphNode{ID: id})
	}
	return out
}

func link(source, target string) entity.GraphLink {
	return entity.GraphLink{Source: source, Target: target}
}

func TestPartitionGraph_ComponentsInDiscoveryOrder(t *testing.T) {
	graph := entity.FundGraph{
		Nodes: nodes("F", "A", "B", "C", "D", "E"),
		Links: []entity.GraphLink{
			link("A", "B"),
			link("C", "B"),
			link("D", "E"),
			link("A", "B"), // duplicate
			link("A", "A"), // self loop
		},
	}

	partition, err := PartitionGraph(graph)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"F"}, {"A", "B", "C"}, {"D", "E"}}, partition.Components)
	assert.Equal(t, []string{"F"}, partition.Isolated)
	assert.Equal(t, [][]string{{"A", "B", "C"}, {"D", "E"}}, partition.Clusters)
	assert.Equal(t, partition.ComponentOf["A"], partition.ComponentOf["C"])
	assert.NotEqual(t, partition.ComponentOf["A"], partition.ComponentOf["D"])
}

func TestPartitionGraph_IgnoresLinksToUnknownNodes(t *testing.T) {
	graph := entity.FundGraph{
		Nodes: nodes("A", "B"),
		Links: []entity.GraphLink{
			link("A", "X"),
			link("Y", "B"),
		},
	}

	partition, err := PartitionGraph(graph)
	require.NoError(t, err)

	assert.Equal(t, 2, partition.NodeCount())
	assert.Equal(t, []string{"A", "B"}, partition.Isolated)
	assert.Empty(t, partition.Clusters)
	_, exists := partition.ComponentOf["X"]
	assert.False(t, exists, "links must not create implicit nodes")
}

func TestPartitionGraph_DuplicateNodesCollapse(t *testing.T) {
	graph := entity.FundGraph{
		Nodes: nodes("A", "B", "A"),
		Links: []entity.GraphLink{link("A", "B")},
	}

	partition, err := PartitionGraph(graph)
	require.NoError(t, err)

	assert.Equal(t, 2, partition.NodeCount())
	assert.Equal(t, [][]string{{"A", "B"}}, partition.Clusters)
}

func TestPartitionGraph_EveryNodeInExactlyOneComponent(t *testing.T) {
	ids := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7", "n8", "n9"}
	graph := entity.FundGraph{
		Nodes: nodes(ids...),
		Links: []entity.GraphLink{
			link("n0", "n1"), link("n1", "n2"), link("n4", "n5"),
			link("n7", "n9"), link("n9", "n8"), link("n2", "n0"),
		},
	}

	partition, err := PartitionGraph(graph)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, members := range partition.Components {
		for _, m := range members {
			seen[m]++
		}
	}
	for _, id := range ids {
		assert.Equal(t, 1, seen[id], "node %s", id)
	}

	clustered := 0
	for _, c := range partition.Clusters {
		clustered += len(c)
	}
	assert.Equal(t, len(ids), len(partition.Isolated)+clustered)
}

func TestPartitionGraph_EmptyGraph(t *testing.T) {
	partition, err := PartitionGraph(entity.FundGraph{Links: []entity.GraphLink{link("A", "B")}})

	assert.ErrorIs(t, err, ErrNoGraphData)
	assert.Nil(t, partition)
}
