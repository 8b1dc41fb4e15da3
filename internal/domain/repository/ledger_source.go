package repository

import (
	"context"

	"stellar-wallet-network-explorer/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// FetchResult represents the outcome of one paginated transaction fetch
type FetchResult struct {
	Records []*entity.TransactionRecord
	// Pages is how many pages were actually requested
	Pages int
	// Truncated is set when the page ceiling stopped the fetch before the
	// source reported the end of its data
	Truncated bool
}

// Account represents the separately fetched account state for a wallet
type Account struct {
	Address       string
	NativeBalance decimal.Decimal
	SubentryCount int
}

// LedgerSource defines the interface to the remote transaction source.
// Implementations must distinguish "address not found" (nil error, empty
// result via ErrAddressNotFound sentinel) from transport failures.
type LedgerSource interface {
	// FetchTransactions fetches payment operations for an address, following
	// pagination cursors up to maxPages pages. A not-found address surfaces
	// as ErrAddressNotFound; transport failures are retried internally and
	// returned only once retries are exhausted.
	FetchTransactions(ctx context.Context, address string, maxPages int, includeFailed bool) (*FetchResult, error)

	// GetAccount fetches current account state. A not-found account returns
	// (nil, nil); absence of a balance must not block graph construction.
	GetAccount(ctx context.Context, address string) (*Account, error)
}
