package repository

import (
	"context"
	"errors"

	"holder-risk-engine/internal/domain/entity"
)

// ErrReportNotFound is returned when no report was stored for a token
var ErrReportNotFound = errors.New("risk report not found")

// HolderRiskRepository defines the interface for risk report persistence
type HolderRiskRepository interface {
	// SaveReport stores a report together with the wallet graph it was computed from
	SaveReport(ctx context.Context, snapshot *entity.HolderSnapshot, report *entity.RiskReport) error

	// GetLatestReport retrieves the most recent report for a token
	GetLatestReport(ctx context.Context, tokenAddress string) (*entity.RiskReport, error)
}
