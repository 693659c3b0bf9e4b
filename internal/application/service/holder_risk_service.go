package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/domain/repository"
	"holder-risk-engine/internal/domain/service"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"
	"holder-risk-engine/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxTopHolders is the number of largest holders listed in a report
const MaxTopHolders = 10

// analysisFailed labels analyses aborted by a transport failure
const analysisFailed = "failed"

// Fetch outcomes recorded in metrics
const (
	fetchOutcomeSuccess     = "success"
	fetchOutcomeUnavailable = "unavailable"
	fetchOutcomeError       = "error"
)

// HolderRiskAppService implements HolderRiskService interface
type HolderRiskAppService struct {
	fetcher   service.HolderDataFetcher
	repo      repository.HolderRiskRepository
	cache     repository.SnapshotCache
	collector *metrics.Collector
	config    *config.Faster100xConfig
	logger    *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewHolderRiskAppService creates a new holder risk application service.
// repo, cache and collector are optional and may be nil.
func NewHolderRiskAppService(
	fetcher service.HolderDataFetcher,
	repo repository.HolderRiskRepository,
	cache repository.SnapshotCache,
	collector *metrics.Collector,
	cfg *config.Faster100xConfig,
	logger *logger.Logger,
) service.HolderRiskService {
	return &HolderRiskAppService{
		fetcher:   fetcher,
		repo:      repo,
		cache:     cache,
		collector: collector,
		config:    cfg,
		logger:    logger.WithComponent("holder-risk-service"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// AnalyzeToken fetches a token's holders and fund graph and produces a risk report.
// Unavailable data yields a report with error status; only transport
// failures are returned as errors.
func (s *HolderRiskAppService) AnalyzeToken(ctx context.Context, tokenAddress string) (*entity.RiskReport, error) {
	start := s.now()
	log := s.logger.WithToken(tokenAddress)
	log.Info("Analyzing holder risk")

	snapshot, err := s.loadSnapshot(ctx, tokenAddress, log)
	if err != nil {
		if errors.Is(err, service.ErrDataUnavailable) {
			log.Warn("Holder data unavailable", zap.Error(err))
			report := s.errorReport(tokenAddress, nil, unavailableMessage(err))
			s.collector.RecordAnalysis(string(report.Status), "", s.now().Sub(start))
			return report, nil
		}
		log.Error("Failed to fetch holder data", zap.Error(err))
		s.collector.RecordAnalysis(analysisFailed, "", s.now().Sub(start))
		return nil, err
	}

	risk, err := service.ComputeHolderRisk(snapshot.Holders, snapshot.Graph)
	var report *entity.RiskReport
	switch {
	case errors.Is(err, service.ErrNoGraphData):
		log.Warn("Fund graph has no nodes, risk cannot be assessed")
		report = s.errorReport(tokenAddress, snapshot, "unable to compute risk metrics: fund graph has no nodes")
	case err != nil:
		s.collector.RecordAnalysis(analysisFailed, "", s.now().Sub(start))
		return nil, fmt.Errorf("failed to compute holder risk: %w", err)
	default:
		report = s.successReport(snapshot, risk)
		log.Info("Holder risk computed",
			zap.String("analysis_id", report.AnalysisID),
			zap.String("risk_level", string(risk.RiskLevel)),
			zap.String("risk_label", risk.RiskLevel.Label()),
			zap.Float64("gini_index", risk.GiniIndex),
			zap.Float64("top70_centralization", risk.Isolated.Top70Centralization),
			zap.Int("clusters", risk.Linked.ClusterCount))
	}

	s.persist(ctx, snapshot, report, log)

	level := ""
	if report.HolderRisk != nil {
		level = string(report.HolderRisk.RiskLevel)
	}
	s.collector.RecordAnalysis(string(report.Status), level, s.now().Sub(start))

	return report, nil
}

// GetLatestReport retrieves the most recent stored report for a token
func (s *HolderRiskAppService) GetLatestReport(ctx context.Context, tokenAddress string) (*entity.RiskReport, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: report storage is disabled", repository.ErrReportNotFound)
	}
	return s.repo.GetLatestReport(ctx, tokenAddress)
}

// loadSnapshot serves the snapshot from cache or fetches it, retrying while
// the provider rate limits us
func (s *HolderRiskAppService) loadSnapshot(ctx context.Context, tokenAddress string, log *logger.Logger) (*entity.HolderSnapshot, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tokenAddress)
		if err != nil {
			log.Warn("Snapshot cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			log.Debug("Serving holder snapshot from cache")
			s.collector.RecordCacheHit()
			return cached, nil
		}
		s.collector.RecordCacheMiss()
	}

	attempts := s.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		snapshot *entity.HolderSnapshot
		err      error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		fetchStart := s.now()
		snapshot, err = s.fetcher.FetchSnapshot(ctx, tokenAddress)
		s.collector.RecordFetch(fetchOutcome(err), s.now().Sub(fetchStart))

		if !errors.Is(err, service.ErrRateLimited) {
			break
		}
		log.Warn("Holder data provider rate limited the request",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts))
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshot); err != nil {
			log.Warn("Failed to cache holder snapshot", zap.Error(err))
		}
	}

	return snapshot, nil
}

func (s *HolderRiskAppService) persist(ctx context.Context, snapshot *entity.HolderSnapshot, report *entity.RiskReport, log *logger.Logger) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveReport(ctx, snapshot, report); err != nil {
		log.Error("Failed to store risk report",
			zap.String("analysis_id", report.AnalysisID),
			zap.Error(err))
	}
}

func (s *HolderRiskAppService) successReport(snapshot *entity.HolderSnapshot, risk *entity.HolderRisk) *entity.RiskReport {
	report := &entity.RiskReport{
		AnalysisID:   s.newID(),
		Status:       entity.ReportStatusSuccess,
		TokenAddress: snapshot.TokenAddress,
		UpdatedAt:    snapshot.UpdatedAt,
		AnalyzedAt:   s.now().UTC(),
		HolderCount:  len(snapshot.Holders),
		TopHolders:   topHolders(snapshot.Holders, MaxTopHolders),
		HolderRisk:   risk,
	}
	if largest, ok := snapshot.LargestHolder(); ok {
		report.MaxHolder = &entity.HolderShare{Address: largest.Address, Percentage: largest.Percentage()}
	}
	return report
}

func (s *HolderRiskAppService) errorReport(tokenAddress string, snapshot *entity.HolderSnapshot, message string) *entity.RiskReport {
	report := &entity.RiskReport{
		AnalysisID:   s.newID(),
		Status:       entity.ReportStatusError,
		Message:      message,
		TokenAddress: tokenAddress,
		AnalyzedAt:   s.now().UTC(),
	}
	if snapshot != nil {
		report.TokenAddress = snapshot.TokenAddress
		report.UpdatedAt = snapshot.UpdatedAt
		report.HolderCount = len(snapshot.Holders)
	}
	return report
}

// topHolders returns up to limit holders ordered by holding, largest first
func topHolders(holders []entity.Holder, limit int) []entity.HolderShare {
	sorted := make([]entity.Holder, len(holders))
	copy(sorted, holders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fraction > sorted[j].Fraction
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	shares := make([]entity.HolderShare, 0, len(sorted))
	for _, h := range sorted {
		shares = append(shares, entity.HolderShare{Address: h.Address, Percentage: h.Percentage()})
	}
	return shares
}

func unavailableMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrConcentrationTooHigh):
		return "holder concentration too high to analyze"
	case errors.Is(err, service.ErrRateLimited):
		return "holder data provider is rate limiting requests, try again later"
	default:
		return "no holder data available for this token"
	}
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return fetchOutcomeSuccess
	case errors.Is(err, service.ErrDataUnavailable):
		return fetchOutcomeUnavailable
	default:
		return fetchOutcomeError
	}
}
