package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// NATSPublisher publishes finished risk reports over the consumer's connection
type NATSPublisher struct {
	consumer *NATSConsumer
	config   *config.NATSConfig
	logger   *logger.Logger
}

// NewNATSPublisher creates a new NATS report publisher
func NewNATSPublisher(consumer *NATSConsumer, cfg *config.NATSConfig, logger *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		consumer: consumer,
		config:   cfg,
		logger:   logger.WithComponent("nats-publisher"),
	}
}

// PublishReport publishes a report on the report subject and, when
// replySubject is set, answers the requester as well
func (p *NATSPublisher) PublishReport(ctx context.Context, replySubject string, report *entity.RiskReport) error {
	conn := p.consumer.Conn()
	if conn == nil {
		p.logger.Debug("NATS not connected, skipping report publish",
			zap.String("token_address", report.TokenAddress))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	subject := p.config.ReportSubject()
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish report to %s: %w", subject, err)
	}

	if replySubject != "" {
		if err := conn.Publish(replySubject, data); err != nil {
			return fmt.Errorf("failed to reply to %s: %w", replySubject, err)
		}
	}

	p.logger.Debug("Published risk report",
		zap.String("subject", subject),
		zap.String("analysis_id", report.AnalysisID),
		zap.String("token_address", report.TokenAddress))

	return nil
}
