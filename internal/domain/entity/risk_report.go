package entity

import (
	"time"
)

// ReportStatus tells callers whether a report carries metrics
type ReportStatus string

const (
	ReportStatusSuccess ReportStatus = "success"
	ReportStatusError   ReportStatus = "error"
)

// RiskReport is the envelope returned to the HTTP and NATS surfaces.
// HolderRisk is only set when Status is success; otherwise Message explains
// why the risk could not be assessed.
type RiskReport struct {
	AnalysisID   string        `json:"analysis_id"`
	Status       ReportStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	TokenAddress string        `json:"token_address"`
	UpdatedAt    string        `json:"updated_at,omitempty"`
	AnalyzedAt   time.Time     `json:"analyzed_at"`
	HolderCount  int           `json:"holder_count,omitempty"`
	MaxHolder    *HolderShare  `json:"max_holder,omitempty"`
	TopHolders   []HolderShare `json:"top_holders,omitempty"`
	HolderRisk   *HolderRisk   `json:"holder_risk,omitempty"`
}

// IsAvailable reports whether the report carries risk metrics
func (r *RiskReport) IsAvailable() bool {
	return r.Status == ReportStatusSuccess && r.HolderRisk != nil
}
