// Package wallet implements the double-entry wallet ledger.
// Every value movement creates matched DEBIT/CREDIT entries.
// SUM(debits) == SUM(credits) is an invariant.
package wallet

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskbay-network/taskbay/internal/domain"
	"github.com/taskbay-network/taskbay/internal/infra/sqlite"
)

// Service manages wallet balances.
type Service struct {
	db *sqlite.DB
}

// NewService creates a wallet service.
func NewService(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// Balance returns the current balance of an account.
func (s *Service) Balance(account string) (int64, error) {
	return sqlite.WalletBalance(s.db.Querier(), account)
}

// CustodyBalance returns the value currently held in ledger custody.
func (s *Service) CustodyBalance() (int64, error) {
	return sqlite.WalletBalance(s.db.Querier(), domain.AccountCustody)
}

// History returns recent ledger entries for an account.
func (s *Service) History(account string, limit int) ([]domain.WalletEntry, error) {
	return s.db.WalletEntries(account, limit)
}

// Deposit funds a wallet from the system pool.
// Creates matched DEBIT (system_pool) and CREDIT (account) entries.
func (s *Service) Deposit(account string, amount int64) error {
	if account == "" {
		return fmt.Errorf("deposit: %w", domain.ErrNoCaller)
	}
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}
	return s.db.Transact(func(tx *sql.Tx) error {
		return Transfer(tx, domain.AccountSystemPool, account, amount,
			domain.TxDeposit, "", "wallet deposit")
	})
}

// Transfer moves amount from one account to another inside an open
// transaction, writing matched DEBIT/CREDIT entries. The source balance
// is re-read inside the transaction; overdrawing a user account fails
// with ErrInsufficientFunds and writes nothing.
//
// The system pool is the external faucet and may go negative.
func Transfer(tx *sql.Tx, from, to string, amount int64, txType domain.TxType, taskRef, memo string) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if to == "" {
		return domain.ErrTransferFailed
	}

	fromBal, err := sqlite.WalletBalance(tx, from)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", from, err)
	}
	if from != domain.AccountSystemPool && fromBal < amount {
		return fmt.Errorf("%w: %s has %d, need %d", domain.ErrInsufficientFunds, from, fromBal, amount)
	}
	toBal, err := sqlite.WalletBalance(tx, to)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", to, err)
	}

	now := time.Now()

	// DEBIT source
	_, err = sqlite.InsertWalletEntry(tx, domain.WalletEntry{
		Timestamp: now,
		Type:      txType,
		EntryType: domain.EntryDebit,
		Account:   from,
		Amount:    amount,
		TaskRef:   taskRef,
		Memo:      memo,
		Balance:   fromBal - amount,
	})
	if err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}

	// CREDIT destination
	_, err = sqlite.InsertWalletEntry(tx, domain.WalletEntry{
		Timestamp: now,
		Type:      txType,
		EntryType: domain.EntryCredit,
		Account:   to,
		Amount:    amount,
		TaskRef:   taskRef,
		Memo:      memo,
		Balance:   toBal + amount,
	})
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}

	return nil
}
