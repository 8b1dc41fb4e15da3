package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType represents the kind of ledger operation a record was built from
type OperationType string

const (
	OperationPayment               OperationType = "payment"
	OperationCreateAccount         OperationType = "create_account"
	OperationPathPaymentStrictSend OperationType = "path_payment_strict_send"
	OperationPathPaymentStrictRecv OperationType = "path_payment_strict_receive"
)

// KnownOperationTypes lists the operation kinds the explorer indexes
var KnownOperationTypes = []OperationType{
	OperationPayment,
	OperationCreateAccount,
	OperationPathPaymentStrictSend,
	OperationPathPaymentStrictRecv,
}

// IsKnownOperationType reports whether t is one of the indexed operation kinds
func IsKnownOperationType(t OperationType) bool {
	for _, known := range KnownOperationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NativeAssetCode is the ledger's native asset code
const NativeAssetCode = "XLM"

// Asset identifies an asset by code plus optional issuer account
type Asset struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer,omitempty"`
}

// NativeAsset returns the native asset descriptor
func NativeAsset() Asset {
	return Asset{Code: NativeAssetCode}
}

// TransactionRecord represents one normalized payment operation fetched from Horizon.
// Records are immutable once built by the fetcher; downstream stages only read them.
type TransactionRecord struct {
	ID          string          `json:"id"`
	Hash        string          `json:"transaction_hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Asset       Asset           `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Type        OperationType   `json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
	Successful  bool            `json:"successful"`
	PagingToken string          `json:"paging_token"`
}
