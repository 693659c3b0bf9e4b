package service

import (
	"math"
	"sort"

	"holder-risk-engine/internal/domain/entity"
)

const (
	// TopNCentralization is the number of largest holder positions summed
	// into the centralization score. It is a count, not a percentage.
	TopNCentralization = 70

	// MaxReportedClusters caps the clusters exposed in a report
	MaxReportedClusters = 3
)

// sortedDescending returns a copy of values sorted from largest to smallest
func sortedDescending(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return sorted
}

// GiniCoefficient returns the Gini coefficient in [0,1] using
// |Σ (2·rank − n − 1)·v| / (n·Σv) over values sorted descending with 1-based
// rank. Empty input and all-zero input yield 0.
func GiniCoefficient(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := sortedDescending(values)
	n := float64(len(sorted))

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	indexSum := 0.0
	for i, v := range sorted {
		rank := float64(i + 1)
		indexSum += (2*rank - n - 1) * v
	}

	return math.Abs(indexSum) / (n * sum)
}

// TopNConcentration sums the n largest fractions and returns the result in percent.
// Fewer than n values are summed as they are, without padding.
func TopNConcentration(values []float64, n int) float64 {
	sorted := sortedDescending(values)
	if n > len(sorted) {
		n = len(sorted)
	}

	total := 0.0
	for _, v := range sorted[:n] {
		total += v
	}
	return total * 100
}

// percentageOf sums the holdings of the given addresses in percent.
// Addresses missing from holdings contribute 0.
func percentageOf(addresses []string, holdings map[string]float64) float64 {
	total := 0.0
	for _, addr := range addresses {
		total += holdings[addr]
	}
	return total * 100
}

// LargestClusters orders clusters by total percentage, then member count,
// keeping discovery order on ties, and returns at most limit summaries.
func LargestClusters(clusters []entity.Cluster, limit int) []entity.ClusterSummary {
	ranked := make([]entity.Cluster, len(clusters))
	copy(ranked, clusters)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalPercentage != ranked[j].TotalPercentage {
			return ranked[i].TotalPercentage > ranked[j].TotalPercentage
		}
		return ranked[i].MemberCount > ranked[j].MemberCount
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}

	summaries := make([]entity.ClusterSummary, 0, limit)
	for _, c := range ranked[:limit] {
		summaries = append(summaries, c.Summary())
	}
	return summaries
}

// ComputeMetrics derives concentration metrics from the holdings map and the
// graph partition. The risk level is left unset.
func ComputeMetrics(holdings map[string]float64, partition *Partition) *entity.HolderRisk {
	values := make([]float64, 0, len(holdings))
	for _, fraction := range holdings {
		values = append(values, fraction)
	}

	clusters := make([]entity.Cluster, 0, len(partition.Clusters))
	linkedTotal := 0.0
	for _, members := range partition.Clusters {
		cluster := entity.Cluster{
			Wallets:         members,
			MemberCount:     len(members),
			TotalPercentage: percentageOf(members, holdings),
		}
		linkedTotal += cluster.TotalPercentage
		clusters = append(clusters, cluster)
	}

	return &entity.HolderRisk{
		Isolated: entity.IsolatedHolders{
			Count:               len(partition.Isolated),
			Wallets:             partition.Isolated,
			TotalPercentage:     percentageOf(partition.Isolated, holdings),
			Top70Centralization: TopNConcentration(values, TopNCentralization),
		},
		Linked: entity.LinkedHolders{
			ClusterCount:    len(clusters),
			TotalPercentage: linkedTotal,
			Clusters:        clusters,
			LargestClusters: LargestClusters(clusters, MaxReportedClusters),
		},
		GiniIndex: GiniCoefficient(values) * 100,
	}
}
