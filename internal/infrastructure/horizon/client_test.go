package horizon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stellar-wallet-network-explorer/internal/domain/entity"
	"stellar-wallet-network-explorer/internal/infrastructure/config"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAddress(tag string) string {
	return "G" + tag + strings.Repeat("A", 55-len(tag))
}

func newTestClient(t *testing.T, baseURL string, pageSize int) *Client {
	t.Helper()
	cfg := &config.HorizonConfig{
		URL:               baseURL,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
		PageSize:          pageSize,
	}
	log := &logger.Logger{Logger: zap.NewNop()}
	return NewClient(cfg, log).(*Client)
}

func paymentJSON(id, token, from, to, amount string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"paging_token": %q,
		"type": "payment",
		"transaction_hash": "hash-%s",
		"transaction_successful": true,
		"created_at": "2024-05-01T12:00:00Z",
		"from": %q,
		"to": %q,
		"amount": %q,
		"asset_type": "native"
	}`, id, token, id, from, to, amount)
}

func pageJSON(records ...string) string {
	return `{"_embedded":{"records":[` + strings.Join(records, ",") + `]}}`
}

func TestFetchTransactionsFollowsCursor(t *testing.T) {
	address := testAddress("SEED")
	other := testAddress("B")
	var cursors []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/"+address+"/payments", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("limit"))
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)

		switch cursor {
		case "":
			fmt.Fprint(w, pageJSON(
				paymentJSON("1", "t1", address, other, "100"),
				paymentJSON("2", "t2", other, address, "200"),
			))
		case "t2":
			// Short page: end of data.
			fmt.Fprint(w, pageJSON(paymentJSON("3", "t3", address, other, "300")))
		default:
			t.Fatalf("unexpected cursor %q", cursor)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	result, err := client.FetchTransactions(context.Background(), address, 10, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"", "t2"}, cursors)
	assert.Equal(t, 2, result.Pages)
	assert.False(t, result.Truncated)
	require.Len(t, result.Records, 3)
	assert.Equal(t, "1", result.Records[0].ID)
	assert.True(t, result.Records[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, entity.NativeAssetCode, result.Records[0].Asset.Code)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), result.Records[0].CreatedAt)
}

func TestFetchTransactionsStopsAtPageCeiling(t *testing.T) {
	address := testAddress("SEED")
	other := testAddress("B")
	var requests int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Always a full page: the wallet never runs out of data.
		fmt.Fprint(w, pageJSON(
			paymentJSON(fmt.Sprintf("%d-1", requests), fmt.Sprintf("t%d-1", requests), address, other, "1"),
			paymentJSON(fmt.Sprintf("%d-2", requests), fmt.Sprintf("t%d-2", requests), address, other, "1"),
		))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	result, err := client.FetchTransactions(context.Background(), address, 3, false)

	require.NoError(t, err)
	assert.Equal(t, 3, requests)
	assert.Equal(t, 3, result.Pages)
	assert.True(t, result.Truncated)
	assert.Len(t, result.Records, 6)
}

func TestFetchTransactionsEmptyPageEndsFetch(t *testing.T) {
	address := testAddress("SEED")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageJSON())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	result, err := client.FetchTransactions(context.Background(), address, 10, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pages)
	assert.Empty(t, result.Records)
	assert.False(t, result.Truncated)
}

func TestFetchTransactionsNotFound(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, err := client.FetchTransactions(context.Background(), testAddress("GONE"), 10, false)

	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.Equal(t, 1, requests, "not-found is never retried")
}

func TestFetchTransactionsRetriesServerErrors(t *testing.T) {
	address := testAddress("SEED")
	other := testAddress("B")
	var requests int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, pageJSON(paymentJSON("1", "t1", address, other, "5")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	result, err := client.FetchTransactions(context.Background(), address, 10, false)

	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	require.Len(t, result.Records, 1)
}

func TestFetchTransactionsExhaustsRetries(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, err := client.FetchTransactions(context.Background(), testAddress("SEED"), 10, false)

	require.Error(t, err)
	assert.Equal(t, 3, requests, "MaxRetries=2 means three attempts in total")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestFetchTransactionsIncludeFailedFlag(t *testing.T) {
	var includeFailed string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		includeFailed = r.URL.Query().Get("include_failed")
		fmt.Fprint(w, pageJSON())
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, err := client.FetchTransactions(context.Background(), testAddress("SEED"), 1, true)

	require.NoError(t, err)
	assert.Equal(t, "true", includeFailed)
}

func TestGetAccountParsesNativeBalance(t *testing.T) {
	address := testAddress("SEED")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/"+address, r.URL.Path)
		fmt.Fprintf(w, `{
			"account_id": %q,
			"subentry_count": 3,
			"balances": [
				{"balance": "12.0000000", "asset_type": "credit_alphanum4"},
				{"balance": "250.5000000", "asset_type": "native"}
			]
		}`, address)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	account, err := client.GetAccount(context.Background(), address)

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, address, account.Address)
	assert.Equal(t, 3, account.SubentryCount)
	assert.True(t, account.NativeBalance.Equal(decimal.RequireFromString("250.5")))
}

func TestGetAccountNotFoundReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	account, err := client.GetAccount(context.Background(), testAddress("GONE"))

	assert.NoError(t, err)
	assert.Nil(t, account)
}

func TestNormalizePaymentCreateAccount(t *testing.T) {
	funder := testAddress("FUNDER")
	created := testAddress("NEW")

	record := normalizePayment(&paymentRecord{
		ID:              "op1",
		Type:            "create_account",
		CreatedAt:       "2024-01-15T08:30:00Z",
		Funder:          funder,
		Account:         created,
		StartingBalance: "100.0000000",
	})

	require.NotNil(t, record)
	assert.Equal(t, entity.OperationCreateAccount, record.Type)
	assert.Equal(t, funder, record.From)
	assert.Equal(t, created, record.To)
	assert.Equal(t, entity.NativeAssetCode, record.Asset.Code)
	assert.True(t, record.Amount.Equal(decimal.NewFromInt(100)))
}

func TestNormalizePaymentCreateAccountFallsBackToSourceAccount(t *testing.T) {
	source := testAddress("SRC")
	created := testAddress("NEW")

	record := normalizePayment(&paymentRecord{
		ID:              "op1",
		Type:            "create_account",
		SourceAccount:   source,
		Account:         created,
		StartingBalance: "1",
	})

	require.NotNil(t, record)
	assert.Equal(t, source, record.From)
}

func TestNormalizePaymentPathPaymentDestinationAssetFallback(t *testing.T) {
	from := testAddress("FROM")
	to := testAddress("TO")

	record := normalizePayment(&paymentRecord{
		ID:                   "op1",
		Type:                 "path_payment_strict_send",
		From:                 from,
		To:                   to,
		DestinationAssetType: "credit_alphanum4",
		DestinationAssetCode: "USDC",
		DestinationAmount:    "42",
	})

	require.NotNil(t, record)
	assert.Equal(t, entity.OperationPathPaymentStrictSend, record.Type)
	assert.Equal(t, "USDC", record.Asset.Code)
	assert.True(t, record.Amount.Equal(decimal.NewFromInt(42)))
}

func TestNormalizePaymentSkipsUnknownTypes(t *testing.T) {
	record := normalizePayment(&paymentRecord{
		ID:   "op1",
		Type: "manage_sell_offer",
		From: testAddress("A"),
		To:   testAddress("B"),
	})
	assert.Nil(t, record)
}

func TestNormalizePaymentSkipsRecordsWithoutEndpoints(t *testing.T) {
	record := normalizePayment(&paymentRecord{
		ID:     "op1",
		Type:   "payment",
		From:   testAddress("A"),
		Amount: "5",
	})
	assert.Nil(t, record)
}
