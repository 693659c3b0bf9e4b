package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ReplyToHeader carries the reply subject on JetStream messages, whose own
// reply subject is the ack subject
const ReplyToHeader = "Reply-To"

var errEmptyTokenAddress = errors.New("token_address is required")

// NATSConsumer handles NATS JetStream consumption of analysis requests
type NATSConsumer struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	sub       *nats.Subscription
	config    *config.NATSConfig
	logger    *logger.Logger
	jobChan   chan *entity.AnalysisJob
	isRunning atomic.Bool

	// mu guards conn, sub and jobChan against use after Disconnect
	mu     sync.RWMutex
	closed bool
}

// NewNATSConsumer creates a new NATS consumer
func NewNATSConsumer(cfg *config.NATSConfig, logger *logger.Logger) *NATSConsumer {
	return &NATSConsumer{
		config:  cfg,
		logger:  logger.WithComponent("nats-consumer"),
		jobChan: make(chan *entity.AnalysisJob, cfg.MaxPendingMessages),
	}
}

// Connect connects to NATS server and sets up consumer
func (n *NATSConsumer) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	opts := []nats.Option{
		nats.Name("holder-risk-engine"),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()

	// Try JetStream first, if not available fall back to core NATS
	js, err := conn.JetStream()
	if err != nil {
		n.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.js = js
	return n.setupJetStreamSubscription()
}

// setupJetStreamSubscription sets up JetStream subscription
func (n *NATSConsumer) setupJetStreamSubscription() error {
	subject := n.config.RequestSubject()
	durable := n.config.DurableName

	n.logger.Info("Setting up JetStream subscription",
		zap.String("subject", subject),
		zap.String("consumer", durable),
		zap.String("stream", n.config.StreamName))

	sub, err := n.js.PullSubscribe(subject, durable, nats.BindStream(n.config.StreamName))
	if err != nil {
		n.logger.Warn("Failed to create JetStream pull consumer, falling back to core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.mu.Lock()
	n.sub = sub
	n.mu.Unlock()
	n.isRunning.Store(true)

	go n.processJetStreamMessages(sub)

	n.logger.Info("Successfully connected to NATS JetStream",
		zap.String("subject", subject),
		zap.String("consumer", durable))

	return nil
}

// processJetStreamMessages processes messages from JetStream pull subscription
func (n *NATSConsumer) processJetStreamMessages(sub *nats.Subscription) {
	n.logger.Info("Starting JetStream message processing")

	for n.isRunning.Load() {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if !n.isRunning.Load() {
				break
			}
			n.logger.Error("Failed to fetch messages", zap.Error(err))
			continue
		}

		n.logger.Debug("Fetched messages from JetStream", zap.Int("count", len(msgs)))

		for _, msg := range msgs {
			n.handleJetStreamMessage(msg)
		}
	}

	n.logger.Info("Stopped JetStream message processing")
}

// setupCoreNATSSubscription sets up core NATS subscription
func (n *NATSConsumer) setupCoreNATSSubscription() error {
	subject := n.config.RequestSubject()
	queueGroup := n.config.ConsumerGroup

	n.logger.Info("Setting up core NATS subscription",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	sub, err := n.conn.QueueSubscribe(subject, queueGroup, n.handleCoreMessage)
	if err != nil {
		n.logger.Error("Failed to subscribe to subject", zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.mu.Lock()
	n.sub = sub
	n.mu.Unlock()
	n.isRunning.Store(true)

	n.logger.Info("Successfully connected to core NATS",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	return nil
}

// handleJetStreamMessage queues a JetStream message and acks it once queued
func (n *NATSConsumer) handleJetStreamMessage(msg *nats.Msg) {
	req, err := decodeAnalysisRequest(msg.Data)
	if err != nil {
		n.logger.Error("Dropping undecodable analysis request", zap.Error(err))
		msg.Term()
		return
	}

	job := &entity.AnalysisJob{Request: req, ReplySubject: msg.Header.Get(ReplyToHeader)}
	if n.enqueue(job) {
		msg.Ack()
		return
	}
	msg.Nak()
}

// handleCoreMessage queues a core NATS message
func (n *NATSConsumer) handleCoreMessage(msg *nats.Msg) {
	req, err := decodeAnalysisRequest(msg.Data)
	if err != nil {
		n.logger.Error("Dropping undecodable analysis request", zap.Error(err))
		if msg.Reply != "" {
			msg.Respond(errorReply(err))
		}
		return
	}

	job := &entity.AnalysisJob{Request: req, ReplySubject: msg.Reply}
	if !n.enqueue(job) && msg.Reply != "" {
		msg.Respond(errorReply(errors.New("analysis queue is full")))
	}
}

// enqueue hands a job to the worker pool without blocking
func (n *NATSConsumer) enqueue(job *entity.AnalysisJob) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return false
	}

	select {
	case n.jobChan <- job:
		n.logger.Debug("Queued analysis request",
			zap.String("request_id", job.Request.RequestID),
			zap.String("token_address", job.Request.TokenAddress))
		return true
	default:
		n.logger.Warn("Job channel is full, rejecting request",
			zap.String("token_address", job.Request.TokenAddress))
		return false
	}
}

// Disconnect disconnects from NATS server
func (n *NATSConsumer) Disconnect() error {
	n.isRunning.Store(false)

	n.mu.Lock()
	sub, conn := n.sub, n.conn
	n.sub, n.conn = nil, nil
	if !n.closed {
		n.closed = true
		close(n.jobChan)
	}
	n.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if conn != nil {
		conn.Drain()
	}

	n.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (n *NATSConsumer) IsConnected() bool {
	conn := n.Conn()
	return n.isRunning.Load() && conn != nil && conn.IsConnected()
}

// GetJobChannel returns the channel analysis jobs are delivered on
func (n *NATSConsumer) GetJobChannel() <-chan *entity.AnalysisJob {
	return n.jobChan
}

// Conn returns the underlying connection, nil when NATS is disabled
func (n *NATSConsumer) Conn() *nats.Conn {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn
}

func decodeAnalysisRequest(data []byte) (entity.AnalysisRequest, error) {
	var req entity.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to unmarshal analysis request: %w", err)
	}

	req.TokenAddress = strings.TrimSpace(req.TokenAddress)
	if req.TokenAddress == "" {
		return req, errEmptyTokenAddress
	}

	return req, nil
}

func errorReply(err error) []byte {
	data, _ := json.Marshal(map[string]string{
		"status":  string(entity.ReportStatusError),
		"message": err.Error(),
	})
	return data
}
