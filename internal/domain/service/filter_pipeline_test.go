package service

import (
	"strings"
	"testing"
	"time"

	"stellar-wallet-network-explorer/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(tag string) string {
	return "G" + tag + strings.Repeat("A", 55-len(tag))
}

func record(id, from, to, asset string, amount int64, opType entity.OperationType, createdAt time.Time) *entity.TransactionRecord {
	return &entity.TransactionRecord{
		ID:         id,
		From:       from,
		To:         to,
		Asset:      entity.Asset{Code: asset},
		Amount:     decimal.NewFromInt(amount),
		Type:       opType,
		CreatedAt:  createdAt,
		Successful: true,
	}
}

func TestApplyFiltersNoCriteriaIsIdentity(t *testing.T) {
	reference := testAddress("SEED")
	now := time.Now().UTC()
	records := []*entity.TransactionRecord{
		record("1", reference, testAddress("B"), "XLM", 100, entity.OperationPayment, now),
		record("2", testAddress("B"), reference, "USDC", 200, entity.OperationCreateAccount, now),
		record("3", testAddress("C"), testAddress("D"), "XLM", 300, entity.OperationPayment, now),
	}

	filtered, reports := ApplyFilters(records, &entity.FilterCriteria{}, reference)

	require.Len(t, filtered, 3)
	for i, tx := range filtered {
		assert.Equal(t, records[i].ID, tx.ID, "order must be preserved")
	}
	require.Len(t, reports, 5)
	for _, report := range reports {
		assert.Equal(t, 3, report.Before)
		assert.Equal(t, 3, report.After)
	}
}

func TestApplyFiltersStageOrderAndChainInvariant(t *testing.T) {
	reference := testAddress("SEED")
	now := time.Now().UTC()
	records := []*entity.TransactionRecord{
		record("1", reference, testAddress("B"), "XLM", 100, entity.OperationPayment, now),
		record("2", reference, testAddress("B"), "USDC", 200, entity.OperationPayment, now),
		record("3", testAddress("B"), reference, "XLM", 50, entity.OperationPayment, now),
		record("4", testAddress("C"), testAddress("D"), "XLM", 500, entity.OperationCreateAccount, now),
	}

	min := decimal.NewFromInt(60)
	criteria := &entity.FilterCriteria{
		Assets:     []string{"XLM"},
		Directions: []entity.Direction{entity.DirectionSent},
		MinAmount:  &min,
	}

	filtered, reports := ApplyFilters(records, criteria, reference)

	require.Len(t, reports, 5)
	assert.Equal(t, []string{StageAsset, StageType, StageDate, StageDirection, StageAmount},
		[]string{reports[0].Stage, reports[1].Stage, reports[2].Stage, reports[3].Stage, reports[4].Stage})

	assert.Equal(t, len(records), reports[0].Before)
	for i := 0; i < len(reports)-1; i++ {
		assert.Equal(t, reports[i].After, reports[i+1].Before,
			"after of stage %s must equal before of stage %s", reports[i].Stage, reports[i+1].Stage)
	}
	assert.Equal(t, len(filtered), reports[len(reports)-1].After)

	// XLM keeps 1,3,4; direction sent keeps 1; amount >= 60 keeps 1.
	require.Len(t, filtered, 1)
	assert.Equal(t, "1", filtered[0].ID)
}

func TestApplyFiltersDateBoundsInclusive(t *testing.T) {
	reference := testAddress("SEED")
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	records := []*entity.TransactionRecord{
		record("before", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, from.Add(-time.Second)),
		record("lower", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, from),
		record("inside", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, from.AddDate(0, 0, 10)),
		record("upper", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, to),
		record("after", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, to.Add(time.Second)),
	}

	criteria := &entity.FilterCriteria{DateFrom: &from, DateTo: &to}
	filtered, _ := ApplyFilters(records, criteria, reference)

	require.Len(t, filtered, 3)
	for _, tx := range filtered {
		assert.False(t, tx.CreatedAt.Before(from))
		assert.False(t, tx.CreatedAt.After(to))
	}
}

func TestApplyFiltersInvertedDateRangeSkipsStage(t *testing.T) {
	reference := testAddress("SEED")
	now := time.Now().UTC()
	from := now
	to := now.AddDate(0, -1, 0)

	records := []*entity.TransactionRecord{
		record("1", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, now.AddDate(-1, 0, 0)),
	}

	criteria := &entity.FilterCriteria{DateFrom: &from, DateTo: &to}
	filtered, reports := ApplyFilters(records, criteria, reference)

	assert.Len(t, filtered, 1, "inverted range must not exclude anything")
	assert.Equal(t, 1, reports[2].After)
}

func TestApplyFiltersAmountBoundsInclusive(t *testing.T) {
	reference := testAddress("SEED")
	now := time.Now().UTC()
	records := []*entity.TransactionRecord{
		record("low", reference, testAddress("B"), "XLM", 99, entity.OperationPayment, now),
		record("min", reference, testAddress("B"), "XLM", 100, entity.OperationPayment, now),
		record("mid", reference, testAddress("B"), "XLM", 250, entity.OperationPayment, now),
		record("max", reference, testAddress("B"), "XLM", 500, entity.OperationPayment, now),
		record("high", reference, testAddress("B"), "XLM", 501, entity.OperationPayment, now),
	}

	min := decimal.NewFromInt(100)
	max := decimal.NewFromInt(500)
	criteria := &entity.FilterCriteria{MinAmount: &min, MaxAmount: &max}

	filtered, _ := ApplyFilters(records, criteria, reference)

	require.Len(t, filtered, 3)
	for _, tx := range filtered {
		assert.True(t, tx.Amount.GreaterThanOrEqual(min))
		assert.True(t, tx.Amount.LessThanOrEqual(max))
	}
}

func TestApplyFiltersZeroMinAmountIsNotUnset(t *testing.T) {
	reference := testAddress("SEED")
	now := time.Now().UTC()
	records := []*entity.TransactionRecord{
		record("zero", reference, testAddress("B"), "XLM", 0, entity.OperationPayment, now),
		record("one", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, now),
	}

	zero := decimal.Zero
	filtered, _ := ApplyFilters(records, &entity.FilterCriteria{MinAmount: &zero}, reference)
	assert.Len(t, filtered, 2, "a zero bound is a real bound, not an unset marker")

	one := decimal.NewFromInt(1)
	filtered, _ = ApplyFilters(records, &entity.FilterCriteria{MinAmount: &one}, reference)
	assert.Len(t, filtered, 1)
}

func TestApplyFiltersDirectionRelativeToReference(t *testing.T) {
	reference := testAddress("SEED")
	other := testAddress("B")
	stranger := testAddress("C")
	now := time.Now().UTC()

	records := []*entity.TransactionRecord{
		record("s1", reference, other, "XLM", 1, entity.OperationPayment, now),
		record("s2", reference, stranger, "XLM", 1, entity.OperationPayment, now),
		record("r1", other, reference, "XLM", 1, entity.OperationPayment, now),
		record("r2", stranger, reference, "XLM", 1, entity.OperationPayment, now),
		record("r3", other, reference, "XLM", 1, entity.OperationPayment, now),
		// Touches neither side of the reference wallet.
		record("x1", other, stranger, "XLM", 1, entity.OperationPayment, now),
	}

	criteria := &entity.FilterCriteria{Directions: []entity.Direction{entity.DirectionSent}}
	filtered, _ := ApplyFilters(records, criteria, reference)

	require.Len(t, filtered, 2)
	for _, tx := range filtered {
		assert.Equal(t, reference, tx.From)
	}

	criteria = &entity.FilterCriteria{Directions: []entity.Direction{entity.DirectionReceived}}
	filtered, _ = ApplyFilters(records, criteria, reference)
	require.Len(t, filtered, 3)
	for _, tx := range filtered {
		assert.Equal(t, reference, tx.To)
	}

	criteria = &entity.FilterCriteria{Directions: []entity.Direction{entity.DirectionSent, entity.DirectionReceived}}
	filtered, _ = ApplyFilters(records, criteria, reference)
	assert.Len(t, filtered, 5, "third-party records are excluded while direction filtering is active")
}

func TestApplyFiltersTypeFilter(t *testing.T) {
	reference := testAddress("SEED")
	now := time.Now().UTC()
	records := []*entity.TransactionRecord{
		record("1", reference, testAddress("B"), "XLM", 1, entity.OperationPayment, now),
		record("2", reference, testAddress("B"), "XLM", 1, entity.OperationCreateAccount, now),
		record("3", reference, testAddress("B"), "XLM", 1, entity.OperationPathPaymentStrictSend, now),
	}

	criteria := &entity.FilterCriteria{
		Types: []entity.OperationType{entity.OperationCreateAccount, entity.OperationPathPaymentStrictSend},
	}
	filtered, reports := ApplyFilters(records, criteria, reference)

	require.Len(t, filtered, 2)
	assert.Equal(t, 3, reports[1].Before)
	assert.Equal(t, 2, reports[1].After)
}

func TestApplyFiltersEmptyInput(t *testing.T) {
	filtered, reports := ApplyFilters(nil, &entity.FilterCriteria{}, testAddress("SEED"))
	assert.Empty(t, filtered)
	require.Len(t, reports, 5)
	for _, report := range reports {
		assert.Zero(t, report.Before)
		assert.Zero(t, report.After)
	}
}
