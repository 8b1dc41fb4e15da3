package service

import (
	"context"

	"stellar-wallet-network-explorer/internal/domain/entity"
)

// ExplorerService defines the interface for network build operations
type ExplorerService interface {
	// BuildNetwork explores the transaction graph outward from the request's
	// seed wallet and returns a self-contained snapshot. Only configuration
	// validation fails the call; per-address fetch failures degrade to a
	// partial result recorded in the snapshot diagnostics.
	BuildNetwork(ctx context.Context, req *entity.BuildRequest) (*entity.NetworkSnapshot, error)
}
