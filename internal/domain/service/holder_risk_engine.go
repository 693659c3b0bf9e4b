package service

import (
	"holder-risk-engine/internal/domain/entity"
)

// ComputeHolderRisk runs the full wallet-concentration analysis for one
// snapshot: holdings map, graph partition, metrics and classification.
// It performs no I/O and keeps no state, so it is safe to call concurrently.
// ErrNoGraphData is returned when the graph has no nodes.
func ComputeHolderRisk(holders []entity.Holder, graph entity.FundGraph) (*entity.HolderRisk, error) {
	partition, err := PartitionGraph(graph)
	if err != nil {
		return nil, err
	}

	risk := ComputeMetrics(HoldingsMap(holders), partition)
	risk.RiskLevel = ClassifyRisk(risk.GiniIndex, risk.Isolated.Top70Centralization)

	return risk, nil
}
