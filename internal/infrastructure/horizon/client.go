package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stellar-wallet-network-explorer/internal/domain/entity"
	"stellar-wallet-network-explorer/internal/domain/repository"
	"stellar-wallet-network-explorer/internal/infrastructure/config"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// ErrAddressNotFound indicates the address has no ledger presence. Unfunded
// and merged accounts are routinely referenced by other wallets'
// transactions, so callers treat this as zero transactions, not a failure.
var ErrAddressNotFound = errors.New("address not found on ledger")

// Client implements repository.LedgerSource against a Horizon-style API.
// All requests, across all concurrent fetches, pass through one shared rate
// limiter so the external per-second ceiling is never exceeded.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	config     *config.HorizonConfig
	logger     *logger.Logger
}

// NewClient creates a new Horizon client
func NewClient(cfg *config.HorizonConfig, logger *logger.Logger) repository.LedgerSource {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.New(rps),
		config:     cfg,
		logger:     logger.WithComponent("horizon-client"),
	}
}

// paymentsPage mirrors the Horizon payments collection envelope
type paymentsPage struct {
	Embedded struct {
		Records []paymentRecord `json:"records"`
	} `json:"_embedded"`
}

// paymentRecord mirrors the union of fields across the payment operation
// kinds Horizon returns
type paymentRecord struct {
	ID                    string `json:"id"`
	PagingToken           string `json:"paging_token"`
	Type                  string `json:"type"`
	TransactionHash       string `json:"transaction_hash"`
	TransactionSuccessful bool   `json:"transaction_successful"`
	CreatedAt             string `json:"created_at"`
	SourceAccount         string `json:"source_account"`

	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`

	// create_account
	Account         string `json:"account"`
	Funder          string `json:"funder"`
	StartingBalance string `json:"starting_balance"`

	// path payments
	DestinationAssetType   string `json:"destination_asset_type"`
	DestinationAssetCode   string `json:"destination_asset_code"`
	DestinationAssetIssuer string `json:"destination_asset_issuer"`
	DestinationAmount      string `json:"destination_amount"`
}

// accountResponse mirrors the Horizon account endpoint
type accountResponse struct {
	AccountID     string `json:"account_id"`
	SubentryCount int    `json:"subentry_count"`
	Balances      []struct {
		Balance   string `json:"balance"`
		AssetType string `json:"asset_type"`
	} `json:"balances"`
}

// FetchTransactions fetches payment operations for an address, following the
// pagination cursor up to maxPages pages. It stops early on an empty or
// short page (end of data). The returned result carries whatever was fetched
// before any truncation.
func (c *Client) FetchTransactions(ctx context.Context, address string, maxPages int, includeFailed bool) (*repository.FetchResult, error) {
	pageSize := c.config.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 200
	}

	result := &repository.FetchResult{}
	cursor := ""

	for result.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := c.fetchPaymentsPage(ctx, address, cursor, pageSize, includeFailed)
		if err != nil {
			return result, err
		}
		result.Pages++

		records := page.Embedded.Records
		if len(records) == 0 {
			return result, nil
		}

		for i := range records {
			record := normalizePayment(&records[i])
			if record != nil {
				result.Records = append(result.Records, record)
			}
		}
		cursor = records[len(records)-1].PagingToken

		// A short page means the source has no more data.
		if len(records) < pageSize {
			return result, nil
		}
	}

	result.Truncated = true
	c.logger.Warn("Page ceiling reached, wallet may have more data",
		zap.String("address", address),
		zap.Int("pages", result.Pages),
		zap.Int("records", len(result.Records)))
	return result, nil
}

// GetAccount fetches current account state. Not-found accounts return
// (nil, nil) so balance absence never blocks graph construction.
func (c *Client) GetAccount(ctx context.Context, address string) (*repository.Account, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s", c.baseURL, url.PathEscape(address))

	body, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", address, err)
	}

	account := &repository.Account{
		Address:       resp.AccountID,
		NativeBalance: decimal.Zero,
		SubentryCount: resp.SubentryCount,
	}
	for _, balance := range resp.Balances {
		if balance.AssetType == "native" {
			if value, err := decimal.NewFromString(balance.Balance); err == nil {
				account.NativeBalance = value
			}
			break
		}
	}
	return account, nil
}

// fetchPaymentsPage fetches one page of the payments collection
func (c *Client) fetchPaymentsPage(ctx context.Context, address, cursor string, pageSize int, includeFailed bool) (*paymentsPage, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/payments", c.baseURL, url.PathEscape(address))

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", pageSize))
	query.Set("order", "desc")
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if includeFailed {
		query.Set("include_failed", "true")
	}

	body, err := c.getWithRetry(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var page paymentsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode payments page for %s: %w", address, err)
	}
	return &page, nil
}

// getWithRetry issues a rate-limited GET with bounded retry. Transport
// failures, 5xx and 429 responses are retried with a delay that doubles per
// attempt; 404 maps to ErrAddressNotFound and is never retried.
func (c *Client) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	delay := c.config.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	attempts := c.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying request",
				zap.String("url", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		// Take blocks until a request slot is available.
		c.limiter.Take()

		body, retryable, err := c.doGet(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// doGet performs one GET and classifies the outcome
func (c *Client) doGet(ctx context.Context, endpoint string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("transport failure: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrAddressNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("server responded %d", resp.StatusCode)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	return data, false, nil
}

// normalizePayment converts one raw payment operation into a
// TransactionRecord. Operation kinds outside the indexed set return nil.
// All loose typing is resolved here so downstream stages only ever see the
// fixed field set.
func normalizePayment(raw *paymentRecord) *entity.TransactionRecord {
	opType := entity.OperationType(raw.Type)
	if !entity.IsKnownOperationType(opType) {
		return nil
	}

	record := &entity.TransactionRecord{
		ID:          raw.ID,
		Hash:        raw.TransactionHash,
		Type:        opType,
		Successful:  raw.TransactionSuccessful,
		PagingToken: raw.PagingToken,
	}

	if ts, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
		record.CreatedAt = ts.UTC()
	}

	switch opType {
	case entity.OperationCreateAccount:
		record.From = raw.Funder
		if record.From == "" {
			record.From = raw.SourceAccount
		}
		record.To = raw.Account
		record.Asset = entity.NativeAsset()
		record.Amount = parseAmount(raw.StartingBalance)
	case entity.OperationPathPaymentStrictSend, entity.OperationPathPaymentStrictRecv:
		record.From = raw.From
		if record.From == "" {
			record.From = raw.SourceAccount
		}
		record.To = raw.To
		record.Asset = pathPaymentAsset(raw)
		amount := raw.Amount
		if amount == "" {
			amount = raw.DestinationAmount
		}
		record.Amount = parseAmount(amount)
	default:
		record.From = raw.From
		record.To = raw.To
		record.Asset = paymentAsset(raw.AssetType, raw.AssetCode, raw.AssetIssuer)
		record.Amount = parseAmount(raw.Amount)
	}

	if record.From == "" || record.To == "" {
		return nil
	}
	return record
}

// pathPaymentAsset resolves the destination asset of a path payment
func pathPaymentAsset(raw *paymentRecord) entity.Asset {
	if raw.AssetCode != "" || raw.AssetType == "native" {
		return paymentAsset(raw.AssetType, raw.AssetCode, raw.AssetIssuer)
	}
	return paymentAsset(raw.DestinationAssetType, raw.DestinationAssetCode, raw.DestinationAssetIssuer)
}

func paymentAsset(assetType, code, issuer string) entity.Asset {
	if assetType == "native" || code == "" {
		return entity.NativeAsset()
	}
	return entity.Asset{Code: code, Issuer: issuer}
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return value
}
