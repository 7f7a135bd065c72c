package domain

import "time"

// TxType categorizes a wallet ledger movement.
type TxType string

const (
	TxDeposit    TxType = "DEPOSIT"     // External funding into a wallet
	TxEscrowLock TxType = "ESCROW_LOCK" // Poster → custody at post time
	TxPayout     TxType = "PAYOUT"      // Custody → freelancer at completion
	TxRefund     TxType = "REFUND"      // Custody → poster at cancellation
)

// EntryType marks the side of a double-entry pair.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Reserved wallet accounts. Everything else is an opaque user address.
const (
	AccountCustody    = "escrow_custody"
	AccountSystemPool = "system_pool"
)

// WalletEntry is one side of a double-entry wallet ledger pair.
// Every value movement writes matched DEBIT/CREDIT entries;
// SUM(debits) == SUM(credits) is an invariant.
type WalletEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      TxType    `json:"type"`
	EntryType EntryType `json:"entry_type"`
	Account   string    `json:"account"`
	Amount    int64     `json:"amount"`
	TaskRef   string    `json:"task_ref,omitempty"` // "task-<id>", empty for deposits
	Memo      string    `json:"memo,omitempty"`
	Balance   int64     `json:"balance"` // Running balance of Account after this entry
}
