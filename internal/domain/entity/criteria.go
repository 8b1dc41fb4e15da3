package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the side of a transaction relative to a reference wallet
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// FilterCriteria represents the configurable predicates applied to fetched
// transactions. Empty slices and nil pointers mean "unset" and never exclude
// a record; no in-band sentinel values are used.
type FilterCriteria struct {
	Assets     []string         `json:"assets,omitempty"`
	Types      []OperationType  `json:"types,omitempty"`
	DateFrom   *time.Time       `json:"date_from,omitempty"`
	DateTo     *time.Time       `json:"date_to,omitempty"`
	Directions []Direction      `json:"directions,omitempty"`
	MinAmount  *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount  *decimal.Decimal `json:"max_amount,omitempty"`
}

// DateRangeValid reports whether the configured date range is usable.
// An unset bound is always valid; an inverted range is not.
func (c *FilterCriteria) DateRangeValid() bool {
	if c.DateFrom == nil || c.DateTo == nil {
		return true
	}
	return !c.DateFrom.After(*c.DateTo)
}

// StageReport represents before/after record counts for one filter stage
type StageReport struct {
	Stage  string `json:"stage"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// RankMetric represents the activity metric used for top-N neighbor selection
type RankMetric string

const (
	RankByCount  RankMetric = "count"
	RankByVolume RankMetric = "volume"
	RankRandom   RankMetric = "random"
)

// PageBudget represents a named per-wallet page-count ceiling tier
type PageBudget string

const (
	PageBudgetFast      PageBudget = "fast"
	PageBudgetNormal    PageBudget = "normal"
	PageBudgetExtended  PageBudget = "extended"
	PageBudgetFull      PageBudget = "full"
	PageBudgetUnlimited PageBudget = "unlimited"
)

// MaxPages returns the page ceiling for the tier. Unknown tiers fall back to
// the normal budget.
func (b PageBudget) MaxPages() int {
	switch b {
	case PageBudgetFast:
		return 10
	case PageBudgetExtended:
		return 50
	case PageBudgetFull:
		return 100
	case PageBudgetUnlimited:
		return 1000
	default:
		return 25
	}
}

// MaxNetworkDepth bounds how many hops from the seed a build may explore
const MaxNetworkDepth = 5

// BuildRequest represents the full configuration surface for one network build
type BuildRequest struct {
	Seed          string         `json:"seed"`
	MaxDepth      int            `json:"max_depth"`
	MaxWallets    int            `json:"max_wallets"`
	Metric        RankMetric     `json:"metric"`
	PageBudget    PageBudget     `json:"page_budget"`
	Criteria      FilterCriteria `json:"criteria"`
	IncludeFailed bool           `json:"include_failed"`
	FetchBalances bool           `json:"fetch_balances"`
}

// ValidationError represents a configuration error rejected before any
// network call is made
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate rejects malformed build configuration synchronously. This is the
// only error class surfaced directly to the caller; everything downstream
// degrades to a partial result instead.
func (r *BuildRequest) Validate() error {
	if !IsValidAddress(r.Seed) {
		return &ValidationError{Field: "seed", Reason: "not a valid account address"}
	}
	if r.MaxDepth < 0 || r.MaxDepth > MaxNetworkDepth {
		return &ValidationError{Field: "max_depth", Reason: fmt.Sprintf("must be between 0 and %d", MaxNetworkDepth)}
	}
	if r.MaxWallets <= 0 {
		return &ValidationError{Field: "max_wallets", Reason: "must be positive"}
	}
	switch r.Metric {
	case RankByCount, RankByVolume, RankRandom, "":
	default:
		return &ValidationError{Field: "metric", Reason: fmt.Sprintf("unknown ranking metric %q", r.Metric)}
	}
	if !r.Criteria.DateRangeValid() {
		return &ValidationError{Field: "criteria.date_from", Reason: "date range is inverted"}
	}
	if r.Criteria.MinAmount != nil && r.Criteria.MinAmount.IsNegative() {
		return &ValidationError{Field: "criteria.min_amount", Reason: "must not be negative"}
	}
	if r.Criteria.MinAmount != nil && r.Criteria.MaxAmount != nil && r.Criteria.MinAmount.GreaterThan(*r.Criteria.MaxAmount) {
		return &ValidationError{Field: "criteria.min_amount", Reason: "amount range is inverted"}
	}
	return nil
}
