package service

import (
	"holder-risk-engine/internal/domain/entity"
)

// riskThreshold maps a gini/centralization pair to a level. Either metric
// strictly above its bound selects the level.
type riskThreshold struct {
	gini           float64
	centralization float64
	level          entity.RiskLevel
}

// riskThresholds is ordered from the highest level down; first match wins
var riskThresholds = []riskThreshold{
	{gini: 80, centralization: 90, level: entity.RiskLevelExtremelyHigh},
	{gini: 70, centralization: 80, level: entity.RiskLevelVeryHigh},
	{gini: 60, centralization: 70, level: entity.RiskLevelHigh},
	{gini: 50, centralization: 60, level: entity.RiskLevelModerate},
	{gini: 40, centralization: 50, level: entity.RiskLevelLow},
}

// ClassifyRisk maps a Gini index and a top-70 centralization, both in percent,
// to a risk level. Every input maps to exactly one level.
func ClassifyRisk(gini, centralization float64) entity.RiskLevel {
	for _, t := range riskThresholds {
		if gini > t.gini || centralization > t.centralization {
			return t.level
		}
	}
	return entity.RiskLevelVeryLow
}
