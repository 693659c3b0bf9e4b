package entity

// GraphNode is a wallet in the fund graph
type GraphNode struct {
	ID string `json:"id"`
}

// GraphLink is an undirected, unweighted relation between two wallets,
// e.g. a shared funding source
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FundGraph represents declared relationships between wallet addresses
type FundGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// IsEmpty reports whether the graph declares no nodes
func (g FundGraph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// Cluster is a maximal group of two or more transitively linked wallets
type Cluster struct {
	Wallets         []string `json:"cluster_wallets"`
	MemberCount     int      `json:"member_count"`
	TotalPercentage float64  `json:"total_percentage"`
}

// Summary strips the member list from a cluster for presentation
func (c Cluster) Summary() ClusterSummary {
	return ClusterSummary{
		MemberCount:     c.MemberCount,
		TotalPercentage: c.TotalPercentage,
	}
}

// ClusterSummary is the public view of a cluster in a risk report
type ClusterSummary struct {
	MemberCount     int     `json:"member_count"`
	TotalPercentage float64 `json:"total_percentage"`
}
