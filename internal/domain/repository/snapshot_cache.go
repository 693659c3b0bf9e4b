package repository

import (
	"context"

	"holder-risk-engine/internal/domain/entity"
)

// SnapshotCache keeps recently fetched holder snapshots to spare the upstream provider
type SnapshotCache interface {
	// Get returns the cached snapshot, or nil without error on a miss
	Get(ctx context.Context, tokenAddress string) (*entity.HolderSnapshot, error)

	// Set stores a snapshot under its token address
	Set(ctx context.Context, snapshot *entity.HolderSnapshot) error
}
