package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/domain/repository"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4JHolderRiskRepository implements HolderRiskRepository interface.
// Each report is stored as a RiskReport node attached to its Token, and the
// snapshot's holders and fund links are merged into the wallet graph.
type Neo4JHolderRiskRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JHolderRiskRepository creates a new Neo4J holder risk repository
func NewNeo4JHolderRiskRepository(client *Neo4JClient, logger *logger.Logger) repository.HolderRiskRepository {
	return &Neo4JHolderRiskRepository{
		client: client,
		logger: logger.WithComponent("neo4j-holder-risk-repo"),
	}
}

// SaveReport stores a report together with the wallet graph it was computed from
func (r *Neo4JHolderRiskRepository) SaveReport(ctx context.Context, snapshot *entity.HolderSnapshot, report *entity.RiskReport) error {
	session := r.client.NewSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	analyzedAt := report.AnalyzedAt.UTC().Format(time.RFC3339Nano)

	reportParams := map[string]interface{}{
		"token":       report.TokenAddress,
		"analysis_id": report.AnalysisID,
		"status":      string(report.Status),
		"message":     report.Message,
		"analyzed_at": analyzedAt,
		"payload":     string(payload),
	}
	if risk := report.HolderRisk; risk != nil {
		reportParams["risk_level"] = string(risk.RiskLevel)
		reportParams["gini_index"] = risk.GiniIndex
		reportParams["top70_centralization"] = risk.Isolated.Top70Centralization
		reportParams["isolated_count"] = risk.Isolated.Count
		reportParams["cluster_count"] = risk.Linked.ClusterCount
	} else {
		reportParams["risk_level"] = nil
		reportParams["gini_index"] = nil
		reportParams["top70_centralization"] = nil
		reportParams["isolated_count"] = nil
		reportParams["cluster_count"] = nil
	}

	reportQuery := `
		MERGE (t:Token {address: $token})
		SET t.last_analyzed_at = datetime($analyzed_at)
		CREATE (r:RiskReport {
			analysis_id: $analysis_id,
			status: $status,
			message: $message,
			risk_level: $risk_level,
			gini_index: $gini_index,
			top70_centralization: $top70_centralization,
			isolated_count: $isolated_count,
			cluster_count: $cluster_count,
			analyzed_at: datetime($analyzed_at),
			payload: $payload
		})
		CREATE (t)-[:HAS_REPORT]->(r)
	`

	holdersQuery := `
		UNWIND $holders AS h
		MATCH (t:Token {address: $token})
		MERGE (w:Wallet {address: h.address})
		MERGE (w)-[rel:HOLDS]->(t)
		SET rel.fraction = h.fraction,
			rel.cluster = h.cluster,
			rel.updated_at = datetime($analyzed_at)
	`

	linksQuery := `
		UNWIND $links AS l
		MERGE (a:Wallet {address: l.source})
		MERGE (b:Wallet {address: l.target})
		MERGE (a)-[rel:FUND_LINKED {token: $token}]-(b)
		SET rel.updated_at = datetime($analyzed_at)
	`

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := runAndConsume(ctx, tx, reportQuery, reportParams); err != nil {
			return nil, err
		}

		if snapshot == nil {
			return nil, nil
		}

		holders := holderParams(snapshot, report)
		if len(holders) > 0 {
			params := map[string]interface{}{
				"token":       report.TokenAddress,
				"analyzed_at": analyzedAt,
				"holders":     holders,
			}
			if err := runAndConsume(ctx, tx, holdersQuery, params); err != nil {
				return nil, err
			}
		}

		links := linkParams(snapshot)
		if len(links) > 0 {
			params := map[string]interface{}{
				"token":       report.TokenAddress,
				"analyzed_at": analyzedAt,
				"links":       links,
			}
			if err := runAndConsume(ctx, tx, linksQuery, params); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("failed to save risk report: %w", err)
	}

	r.logger.Debug("Stored risk report",
		zap.String("token_address", report.TokenAddress),
		zap.String("analysis_id", report.AnalysisID))

	return nil
}

// GetLatestReport retrieves the most recent report for a token
func (r *Neo4JHolderRiskRepository) GetLatestReport(ctx context.Context, tokenAddress string) (*entity.RiskReport, error) {
	session := r.client.NewSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (:Token {address: $token})-[:HAS_REPORT]->(r:RiskReport)
		RETURN r.payload
		ORDER BY r.analyzed_at DESC
		LIMIT 1
	`

	payload, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]interface{}{"token": tokenAddress})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, result.Err()
		}
		return result.Record().Values[0], nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	raw, ok := payload.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrReportNotFound, tokenAddress)
	}

	var report entity.RiskReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to decode stored report: %w", err)
	}

	return &report, nil
}

func runAndConsume(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]interface{}) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// holderParams flattens holders and tags each with the index of its linked
// cluster, or -1 when the wallet is isolated or outside the graph
func holderParams(snapshot *entity.HolderSnapshot, report *entity.RiskReport) []map[string]interface{} {
	clusterOf := make(map[string]int)
	if report.HolderRisk != nil {
		for i, cluster := range report.HolderRisk.Linked.Clusters {
			for _, wallet := range cluster.Wallets {
				clusterOf[wallet] = i
			}
		}
	}

	params := make([]map[string]interface{}, 0, len(snapshot.Holders))
	for _, h := range snapshot.Holders {
		cluster, ok := clusterOf[h.Address]
		if !ok {
			cluster = -1
		}
		params = append(params, map[string]interface{}{
			"address":  h.Address,
			"fraction": h.Fraction,
			"cluster":  cluster,
		})
	}
	return params
}

func linkParams(snapshot *entity.HolderSnapshot) []map[string]interface{} {
	params := make([]map[string]interface{}, 0, len(snapshot.Graph.Links))
	for _, l := range snapshot.Graph.Links {
		if l.Source == "" || l.Target == "" || l.Source == l.Target {
			continue
		}
		params = append(params, map[string]interface{}{
			"source": l.Source,
			"target": l.Target,
		})
	}
	return params
}
