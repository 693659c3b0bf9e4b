package entity

// RiskLevel represents the concentration risk of a token's holder distribution
type RiskLevel string

const (
	RiskLevelExtremelyHigh RiskLevel = "EXTREMELY_HIGH"
	RiskLevelVeryHigh      RiskLevel = "VERY_HIGH"
	RiskLevelHigh          RiskLevel = "HIGH"
	RiskLevelModerate      RiskLevel = "MODERATE"
	RiskLevelLow           RiskLevel = "LOW"
	RiskLevelVeryLow       RiskLevel = "VERY_LOW"
)

// Severity returns the ordinal of the level, 0 for VERY_LOW up to 5 for
// EXTREMELY_HIGH. Unknown levels return -1.
func (l RiskLevel) Severity() int {
	switch l {
	case RiskLevelVeryLow:
		return 0
	case RiskLevelLow:
		return 1
	case RiskLevelModerate:
		return 2
	case RiskLevelHigh:
		return 3
	case RiskLevelVeryHigh:
		return 4
	case RiskLevelExtremelyHigh:
		return 5
	default:
		return -1
	}
}

// Label returns a human readable name for the level
func (l RiskLevel) Label() string {
	switch l {
	case RiskLevelExtremelyHigh:
		return "Extremely High"
	case RiskLevelVeryHigh:
		return "Very High"
	case RiskLevelHigh:
		return "High"
	case RiskLevelModerate:
		return "Moderate"
	case RiskLevelLow:
		return "Low"
	case RiskLevelVeryLow:
		return "Very Low"
	default:
		return "Unknown"
	}
}

// IsolatedHolders aggregates wallets with no declared link to another wallet
type IsolatedHolders struct {
	Count               int      `json:"count"`
	Wallets             []string `json:"-"`
	TotalPercentage     float64  `json:"total_percentage"`
	Top70Centralization float64  `json:"top70_centralization"`
}

// LinkedHolders aggregates all linked clusters. Clusters holds every cluster
// in discovery order; LargestClusters is the truncated public view.
type LinkedHolders struct {
	ClusterCount    int              `json:"cluster_count"`
	TotalPercentage float64          `json:"total_percentage"`
	Clusters        []Cluster        `json:"-"`
	LargestClusters []ClusterSummary `json:"largest_clusters"`
}

// HolderRisk is the result of one wallet-concentration analysis
type HolderRisk struct {
	Isolated  IsolatedHolders `json:"isolated"`
	Linked    LinkedHolders   `json:"linked"`
	GiniIndex float64         `json:"gini_index"` // 0 - 100
	RiskLevel RiskLevel       `json:"risk_level"`
}
