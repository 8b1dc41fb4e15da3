package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet represents one discovered wallet in a network build.
// A single Wallet exists per address per build; the depth of first discovery
// wins, while volume and count stats accumulate from every filtered
// transaction that touches the address.
type Wallet struct {
	Address          string           `json:"address"`
	Balance          *decimal.Decimal `json:"balance,omitempty"`
	AccountNotFound  bool             `json:"account_not_found,omitempty"`
	Depth            int              `json:"depth"`
	TransactionCount int64            `json:"transaction_count"`
	SentVolume       decimal.Decimal  `json:"sent_volume"`
	ReceivedVolume   decimal.Decimal  `json:"received_volume"`
	FirstSeen        time.Time        `json:"first_seen"`
	LastSeen         time.Time        `json:"last_seen"`
}

// NewWallet creates a wallet discovered at the given depth with zeroed stats
func NewWallet(address string, depth int) *Wallet {
	return &Wallet{
		Address:        address,
		Depth:          depth,
		SentVolume:     decimal.Zero,
		ReceivedVolume: decimal.Zero,
	}
}

// TotalVolume returns sent plus received volume
func (w *Wallet) TotalVolume() decimal.Decimal {
	return w.SentVolume.Add(w.ReceivedVolume)
}

// NetFlow returns received volume minus sent volume
func (w *Wallet) NetFlow() decimal.Decimal {
	return w.ReceivedVolume.Sub(w.SentVolume)
}

// WalletActivity represents the running activity score of a discovery candidate
type WalletActivity struct {
	Address          string          `json:"address"`
	TransactionCount int64           `json:"transaction_count"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
}

const addressLength = 56

const addressAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// IsValidAddress reports whether s looks like a Stellar public account address:
// 56 characters, 'G' prefix, base32 alphabet. Checked before any network call.
func IsValidAddress(s string) bool {
	if len(s) != addressLength || !strings.HasPrefix(s, "G") {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(addressAlphabet, c) {
			return false
		}
	}
	return true
}
