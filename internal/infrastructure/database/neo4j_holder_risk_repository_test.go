package database

import (
	"testing"

	"holder-risk-engine/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderParams_TagsClusterMembership(t *testing.T) {
	snapshot := &entity.HolderSnapshot{
		Holders: []entity.Holder{
			{Address: "A", Fraction: 0.5},
			{Address: "B", Fraction: 0.3},
			{Address: "C", Fraction: 0.2},
		},
	}
	report := &entity.RiskReport{
		HolderRisk: &entity.HolderRisk{
			Linked: entity.LinkedHolders{
				Clusters: []entity.Cluster{{Wallets: []string{"A", "B"}, MemberCount: 2}},
			},
		},
	}

	params := holderParams(snapshot, report)

	require.Len(t, params, 3)
	assert.Equal(t, "A", params[0]["address"])
	assert.Equal(t, 0.5, params[0]["fraction"])
	assert.Equal(t, 0, params[0]["cluster"])
	assert.Equal(t, 0, params[1]["cluster"])
	assert.Equal(t, -1, params[2]["cluster"])
}

func TestHolderParams_ErrorReportHasNoClusters(t *testing.T) {
	snapshot := &entity.HolderSnapshot{Holders: []entity.Holder{{Address: "A", Fraction: 1}}}

	params := holderParams(snapshot, &entity.RiskReport{Status: entity.ReportStatusError})

	require.Len(t, params, 1)
	assert.Equal(t, -1, params[0]["cluster"])
}

func TestLinkParams_SkipsDegenerateLinks(t *testing.T) {
	snapshot := &entity.HolderSnapshot{
		Graph: entity.FundGraph{
			Links: []entity.GraphLink{
				{Source: "A", Target: "B"},
				{Source: "A", Target: "A"},
				{Source: "", Target: "B"},
			},
		},
	}

	params := linkParams(snapshot)

	require.Len(t, params, 1)
	assert.Equal(t, "A", params[0]["source"])
	assert.Equal(t, "B", params[0]["target"])
}
