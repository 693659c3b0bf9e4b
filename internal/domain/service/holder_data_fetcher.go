package service

import (
	"context"
	"errors"
	"fmt"

	"holder-risk-engine/internal/domain/entity"
)

// ErrDataUnavailable is the parent of every condition in which the holder data
// provider answered but no analyzable data could be obtained
var ErrDataUnavailable = errors.New("holder data unavailable")

var (
	// ErrRateLimited means the provider throttled the request; the caller may retry
	ErrRateLimited = fmt.Errorf("rate limited by holder data provider: %w", ErrDataUnavailable)

	// ErrNoData means the provider returned no usable holder data for the token
	ErrNoData = fmt.Errorf("no holder data for token: %w", ErrDataUnavailable)

	// ErrConcentrationTooHigh means the largest single holder exceeds the
	// configured threshold and the token is withheld from analysis
	ErrConcentrationTooHigh = fmt.Errorf("holder concentration too high to analyze: %w", ErrDataUnavailable)
)

// HolderDataFetcher retrieves holder and fund graph data for a token
type HolderDataFetcher interface {
	// FetchSnapshot fetches the current holder snapshot of a token.
	// Errors wrapping ErrDataUnavailable mean "no data" rather than a failure.
	FetchSnapshot(ctx context.Context, tokenAddress string) (*entity.HolderSnapshot, error)
}
