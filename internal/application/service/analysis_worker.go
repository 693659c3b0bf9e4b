package service

import (
	"context"
	"sync"
	"time"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/domain/service"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportPublisher delivers finished reports to interested parties
type ReportPublisher interface {
	PublishReport(ctx context.Context, replySubject string, report *entity.RiskReport) error
}

// AnalysisWorkerPool runs queued analysis requests on a fixed number of workers
type AnalysisWorkerPool struct {
	service   service.HolderRiskService
	publisher ReportPublisher
	size      int
	timeout   time.Duration
	logger    *logger.Logger
}

// NewAnalysisWorkerPool creates a new worker pool. timeout bounds each
// analysis; zero disables it.
func NewAnalysisWorkerPool(
	svc service.HolderRiskService,
	publisher ReportPublisher,
	size int,
	timeout time.Duration,
	logger *logger.Logger,
) *AnalysisWorkerPool {
	if size < 1 {
		size = 1
	}
	return &AnalysisWorkerPool{
		service:   svc,
		publisher: publisher,
		size:      size,
		timeout:   timeout,
		logger:    logger.WithComponent("analysis-worker"),
	}
}

// Run consumes jobs until the channel is closed or ctx is done, then waits
// for in-flight analyses to finish
func (p *AnalysisWorkerPool) Run(ctx context.Context, jobs <-chan *entity.AnalysisJob) {
	var wg sync.WaitGroup

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.logger.Info("Starting analysis worker", zap.Int("worker_id", workerID))

			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					p.process(ctx, workerID, job)
				}
			}
		}(i)
	}

	wg.Wait()
	p.logger.Info("Analysis workers stopped")
}

func (p *AnalysisWorkerPool) process(ctx context.Context, workerID int, job *entity.AnalysisJob) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req := job.Request
	report, err := p.service.AnalyzeToken(ctx, req.TokenAddress)
	if err != nil {
		p.logger.Error("Failed to analyze token",
			zap.Int("worker_id", workerID),
			zap.String("request_id", req.RequestID),
			zap.String("token_address", req.TokenAddress),
			zap.Error(err))
		report = &entity.RiskReport{
			AnalysisID:   uuid.NewString(),
			Status:       entity.ReportStatusError,
			Message:      "failed to retrieve holder data",
			TokenAddress: req.TokenAddress,
			AnalyzedAt:   time.Now().UTC(),
		}
	}

	if err := p.publisher.PublishReport(ctx, job.ReplySubject, report); err != nil {
		p.logger.Error("Failed to publish risk report",
			zap.Int("worker_id", workerID),
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return
	}

	p.logger.Info("Analysis request completed",
		zap.Int("worker_id", workerID),
		zap.String("request_id", req.RequestID),
		zap.String("token_address", req.TokenAddress),
		zap.String("status", string(report.Status)))
}
