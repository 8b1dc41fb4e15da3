package repository

import (
	"context"

	"stellar-wallet-network-explorer/internal/domain/entity"
)

// SnapshotRepository defines the interface for persisting built network
// snapshots into the graph store
type SnapshotRepository interface {
	// PersistSnapshot merges the snapshot's wallets and flow edges into the store
	PersistSnapshot(ctx context.Context, snapshot *entity.NetworkSnapshot) error

	// GetWallet retrieves a persisted wallet by address. A wallet the store
	// has never seen returns (nil, nil).
	GetWallet(ctx context.Context, address string) (*entity.Wallet, error)

	// GetTopWallets retrieves persisted wallets ordered by transaction count
	GetTopWallets(ctx context.Context, limit int) ([]*entity.Wallet, error)

	// GetTransactionPath finds the shortest flow path between two wallets
	GetTransactionPath(ctx context.Context, fromAddress, toAddress string, maxHops int) ([]string, error)
}
