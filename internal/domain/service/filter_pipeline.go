package service

import (
	"stellar-wallet-network-explorer/internal/domain/entity"
)

// Filter stage names, in pipeline order. The order is fixed: cheap,
// high-selectivity predicates run first.
const (
	StageAsset     = "asset"
	StageType      = "type"
	StageDate      = "date"
	StageDirection = "direction"
	StageAmount    = "amount"
)

// filterStage is one named pure predicate over a single record
type filterStage struct {
	name string
	keep func(tx *entity.TransactionRecord) bool
}

// ApplyFilters runs the fixed filter chain over records and reports
// before/after counts for every stage. A record survives a stage iff the
// predicate holds or the corresponding criterion is unset. Direction is
// computed relative to referenceWallet. The reports are a required
// observable: the caller uses them to diagnose over-aggressive filtering.
func ApplyFilters(records []*entity.TransactionRecord, criteria *entity.FilterCriteria, referenceWallet string) ([]*entity.TransactionRecord, []entity.StageReport) {
	stages := buildStages(criteria, referenceWallet)

	result := records
	reports := make([]entity.StageReport, 0, len(stages))

	for _, stage := range stages {
		before := len(result)
		kept := result[:0:0]
		for _, tx := range result {
			if stage.keep(tx) {
				kept = append(kept, tx)
			}
		}
		result = kept
		reports = append(reports, entity.StageReport{
			Stage:  stage.name,
			Before: before,
			After:  len(result),
		})
	}

	return result, reports
}

// buildStages assembles the stage chain for the given criteria. Every stage
// is always present so reports stay uniform; unset criteria become
// pass-through predicates.
func buildStages(criteria *entity.FilterCriteria, referenceWallet string) []filterStage {
	return []filterStage{
		{StageAsset, assetPredicate(criteria.Assets)},
		{StageType, typePredicate(criteria.Types)},
		{StageDate, datePredicate(criteria)},
		{StageDirection, directionPredicate(criteria.Directions, referenceWallet)},
		{StageAmount, amountPredicate(criteria)},
	}
}

func assetPredicate(assets []string) func(*entity.TransactionRecord) bool {
	if len(assets) == 0 {
		return keepAll
	}
	allowed := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		allowed[a] = struct{}{}
	}
	return func(tx *entity.TransactionRecord) bool {
		_, ok := allowed[tx.Asset.Code]
		return ok
	}
}

func typePredicate(types []entity.OperationType) func(*entity.TransactionRecord) bool {
	if len(types) == 0 {
		return keepAll
	}
	allowed := make(map[entity.OperationType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return func(tx *entity.TransactionRecord) bool {
		_, ok := allowed[tx.Type]
		return ok
	}
}

// datePredicate treats an inverted range as unusable and skips the stage
// rather than excluding everything. Bounds are inclusive.
func datePredicate(criteria *entity.FilterCriteria) func(*entity.TransactionRecord) bool {
	if (criteria.DateFrom == nil && criteria.DateTo == nil) || !criteria.DateRangeValid() {
		return keepAll
	}
	from, to := criteria.DateFrom, criteria.DateTo
	return func(tx *entity.TransactionRecord) bool {
		if from != nil && tx.CreatedAt.Before(*from) {
			return false
		}
		if to != nil && tx.CreatedAt.After(*to) {
			return false
		}
		return true
	}
}

// directionPredicate keeps records whose side relative to referenceWallet is
// in the requested set. A record touching neither side of the reference
// wallet is excluded while direction filtering is active.
func directionPredicate(directions []entity.Direction, referenceWallet string) func(*entity.TransactionRecord) bool {
	if len(directions) == 0 {
		return keepAll
	}
	var wantSent, wantReceived bool
	for _, d := range directions {
		switch d {
		case entity.DirectionSent:
			wantSent = true
		case entity.DirectionReceived:
			wantReceived = true
		}
	}
	return func(tx *entity.TransactionRecord) bool {
		if wantSent && tx.From == referenceWallet {
			return true
		}
		if wantReceived && tx.To == referenceWallet {
			return true
		}
		return false
	}
}

func amountPredicate(criteria *entity.FilterCriteria) func(*entity.TransactionRecord) bool {
	min, max := criteria.MinAmount, criteria.MaxAmount
	if min == nil && max == nil {
		return keepAll
	}
	return func(tx *entity.TransactionRecord) bool {
		if min != nil && tx.Amount.LessThan(*min) {
			return false
		}
		if max != nil && tx.Amount.GreaterThan(*max) {
			return false
		}
		return true
	}
}

func keepAll(*entity.TransactionRecord) bool { return true }
