package faster100x

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"holder-risk-engine/internal/domain/entity"
	"holder-risk-engine/internal/domain/service"
	"holder-risk-engine/internal/infrastructure/config"
	"holder-risk-engine/internal/infrastructure/logger"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client fetches holder lists and fund graphs from Faster100x
type Client struct {
	config     *config.Faster100xConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient creates a new Faster100x client
func NewClient(cfg *config.Faster100xConfig, logger *logger.Logger) *Client {
	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.WithComponent("faster100x-client"),
		now:    time.Now,
	}
	c.breaker = newBreaker(cfg.Breaker, c.logger)
	return c
}

// newBreaker creates the circuit breaker guarding upstream calls.
// Data-unavailable answers are healthy responses and never trip it.
func newBreaker(cfg config.BreakerConfig, log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "faster100x",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, service.ErrDataUnavailable) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// FetchSnapshot fetches the holder snapshot of a token. Conditions in which no
// data can be analyzed return errors wrapping service.ErrDataUnavailable.
func (c *Client) FetchSnapshot(ctx context.Context, tokenAddress string) (*entity.HolderSnapshot, error) {
	log := c.logger.WithToken(tokenAddress)
	log.Info("Requesting holder data")

	// Throttle every request to stay under the provider's rate limit
	if err := sleepContext(ctx, c.config.RequestDelay); err != nil {
		return nil, err
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.fetchAnalyzeResult(ctx, tokenAddress)
	})
	if errors.Is(err, service.ErrRateLimited) {
		// The backoff runs on the caller's context, outside the request timeout
		log.Warn("Rate limited by holder data provider, backing off",
			zap.Duration("delay", c.config.RateLimitDelay))
		if sleepErr := sleepContext(ctx, c.config.RateLimitDelay); sleepErr != nil {
			return nil, sleepErr
		}
		return nil, err
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn("Holder data provider unavailable", zap.Error(err))
			return nil, fmt.Errorf("holder data provider circuit open: %w", err)
		}
		return nil, err
	}
	result := out.(*analyzeResult)

	snapshot := c.toSnapshot(tokenAddress, result, log)
	// Checked before the graph is inspected, so tokens with an empty fund
	// graph are filtered too
	if err := c.checkConcentration(snapshot, log); err != nil {
		return nil, err
	}

	log.Info("Holder data retrieved",
		zap.Int("holders", len(snapshot.Holders)),
		zap.Int("graph_nodes", len(snapshot.Graph.Nodes)),
		zap.Int("graph_links", len(snapshot.Graph.Links)))

	return snapshot, nil
}

// fetchAnalyzeResult performs one upstream round trip
func (c *Client) fetchAnalyzeResult(ctx context.Context, tokenAddress string) (*analyzeResult, error) {
	reqURL, err := c.requestURL(tokenAddress)
	if err != nil {
		return nil, err
	}

	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", zap.String("token_address", tokenAddress), zap.Error(err))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, service.ErrRateLimited
	}

	body, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Holder data provider returned an error status",
			zap.String("token_address", tokenAddress),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(body)))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	c.logger.Debug("Raw holder data response", zap.String("token_address", tokenAddress), zap.String("body", body))

	var batch []batchResponse
	if err := json.Unmarshal([]byte(body), &batch); err != nil {
		c.logger.Error("Failed to decode holder data response", zap.String("token_address", tokenAddress), zap.Error(err))
		return nil, &DeserializeError{Body: body, Err: err}
	}

	if len(batch) == 0 {
		c.logger.Warn("Empty batch response", zap.String("token_address", tokenAddress))
		return nil, service.ErrNoData
	}

	result := batch[0].Result.Data.JSON
	if result.Status != statusSuccess {
		message := ""
		if result.Message != nil {
			message = *result.Message
		}
		c.logger.Warn("Holder data provider reported failure",
			zap.String("token_address", tokenAddress),
			zap.String("status", result.Status),
			zap.String("message", message))
		return nil, fmt.Errorf("provider status %q: %w", result.Status, service.ErrNoData)
	}

	if result.Data == nil {
		return nil, fmt.Errorf("provider returned no holder payload: %w", service.ErrNoData)
	}

	return &result, nil
}

// requestURL builds the batched tRPC query for a token
func (c *Client) requestURL(tokenAddress string) (string, error) {
	input, err := json.Marshal(batchInput(tokenAddress))
	if err != nil {
		return "", fmt.Errorf("failed to encode request input: %w", err)
	}

	params := url.Values{}
	params.Set("batch", "1")
	params.Set("input", string(input))

	return strings.TrimRight(c.config.BaseURL, "/") + analyzeEndpoint + "?" + params.Encode(), nil
}

func (c *Client) readBody(r io.Reader) (string, error) {
	if c.config.MaxResponseBytes > 0 {
		r = io.LimitReader(r, c.config.MaxResponseBytes)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// toSnapshot normalizes a provider result into a holder snapshot
func (c *Client) toSnapshot(tokenAddress string, result *analyzeResult, log *logger.Logger) *entity.HolderSnapshot {
	response := result.Data.Response

	holders, malformed := service.NormalizeHolders(response.Data)
	if malformed > 0 {
		log.Warn("Holder records with unparsable percentage defaulted to zero", zap.Int("count", malformed))
	}

	snapshot := &entity.HolderSnapshot{
		TokenAddress: tokenAddress,
		Holders:      holders,
		Graph:        response.FundGraphData,
		TopNodes:     response.TopNodes,
		FetchedAt:    c.now().UTC(),
	}
	if result.TokenAddress != nil && *result.TokenAddress != "" {
		snapshot.TokenAddress = *result.TokenAddress
	}
	if result.UpdatedAt != nil {
		snapshot.UpdatedAt = *result.UpdatedAt
	}

	return snapshot
}

// checkConcentration withholds tokens whose largest single holder exceeds the
// configured share of supply
func (c *Client) checkConcentration(snapshot *entity.HolderSnapshot, log *logger.Logger) error {
	if c.config.ConcentrationThreshold <= 0 {
		return nil
	}

	largest, ok := snapshot.LargestHolder()
	if !ok {
		return nil
	}

	log.Info("Largest holder",
		zap.String("address", largest.Address),
		zap.Float64("percentage", largest.Percentage()),
		zap.Float64("threshold", c.config.ConcentrationThreshold))

	if largest.Percentage() > c.config.ConcentrationThreshold {
		log.Warn("Holder concentration above threshold, withholding data",
			zap.String("address", largest.Address),
			zap.Float64("percentage", largest.Percentage()))
		return fmt.Errorf("largest holder %s owns %.2f%% (threshold %.2f%%): %w",
			largest.Address, largest.Percentage(), c.config.ConcentrationThreshold, service.ErrConcentrationTooHigh)
	}

	return nil
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
