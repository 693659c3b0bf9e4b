package service

import (
	"context"

	"holder-risk-engine/internal/domain/entity"
)

// HolderRiskService defines the interface for holder-risk analysis operations
type HolderRiskService interface {
	// AnalyzeToken fetches a token's holders and fund graph and produces a risk report
	AnalyzeToken(ctx context.Context, tokenAddress string) (*entity.RiskReport, error)

	// GetLatestReport retrieves the most recent stored report for a token
	GetLatestReport(ctx context.Context, tokenAddress string) (*entity.RiskReport, error)
}
