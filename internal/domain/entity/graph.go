package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EdgeSampleLimit bounds how many constituent transaction IDs an edge retains
const EdgeSampleLimit = 100

// FlowEdge represents the aggregated flow between an ordered wallet pair.
// Opposite directions are distinct edges; direction is a first-class
// analytical dimension and is never merged away.
type FlowEdge struct {
	From             string                     `json:"from"`
	To               string                     `json:"to"`
	AssetVolumes     map[string]decimal.Decimal `json:"asset_volumes"`
	TransactionCount int64                      `json:"transaction_count"`
	TransactionIDs   []string                   `json:"transaction_ids"`
	FirstSeen        time.Time                  `json:"first_seen"`
	LastSeen         time.Time                  `json:"last_seen"`
}

// EdgeKey returns the map key for an ordered wallet pair
func EdgeKey(from, to string) string {
	return fmt.Sprintf("%s->%s", from, to)
}

// NewFlowEdge creates an empty edge for the ordered pair (from, to)
func NewFlowEdge(from, to string) *FlowEdge {
	return &FlowEdge{
		From:         from,
		To:           to,
		AssetVolumes: make(map[string]decimal.Decimal),
	}
}

// TotalVolume returns the sum across all asset breakdowns
func (e *FlowEdge) TotalVolume() decimal.Decimal {
	total := decimal.Zero
	for _, v := range e.AssetVolumes {
		total = total.Add(v)
	}
	return total
}

// Accumulate folds one transaction into the edge totals
func (e *FlowEdge) Accumulate(tx *TransactionRecord) {
	e.AssetVolumes[tx.Asset.Code] = e.AssetVolumes[tx.Asset.Code].Add(tx.Amount)
	e.TransactionCount++
	if len(e.TransactionIDs) < EdgeSampleLimit {
		e.TransactionIDs = append(e.TransactionIDs, tx.ID)
	}
	if e.FirstSeen.IsZero() || tx.CreatedAt.Before(e.FirstSeen) {
		e.FirstSeen = tx.CreatedAt
	}
	if tx.CreatedAt.After(e.LastSeen) {
		e.LastSeen = tx.CreatedAt
	}
}

// FetchFailure represents a tolerated per-address fetch failure recorded in diagnostics
type FetchFailure struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// NetworkSnapshot represents the complete, self-contained result of one
// network build. A fresh snapshot is produced per request and is immutable
// once returned to the caller.
type NetworkSnapshot struct {
	Seed          string               `json:"seed"`
	DepthReached  int                  `json:"depth_reached"`
	Wallets       map[string]*Wallet   `json:"wallets"`
	Edges         map[string]*FlowEdge `json:"edges"`
	StageReports  []StageReport        `json:"stage_reports"`
	FetchFailures []FetchFailure       `json:"fetch_failures"`
	Partial       bool                 `json:"partial"`
	RawFetched    int                  `json:"raw_fetched"`
	Filtered      int                  `json:"filtered"`
	APICalls      int                  `json:"api_calls"`
	PagesFetched  int                  `json:"pages_fetched"`
	BuiltAt       time.Time            `json:"built_at"`
}
