package sqlite

import (
	"database/sql"
	"time"

	"github.com/taskbay-network/taskbay/internal/domain"
)

// ─── Wallet Ledger ──────────────────────────────────────────────────────────

// InsertWalletEntry adds one side of a double-entry pair.
func InsertWalletEntry(q querier, entry domain.WalletEntry) (int64, error) {
	result, err := q.Exec(
		`INSERT INTO wallet_ledger (timestamp, type, entry_type, account, amount, task_ref, memo, balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Unix(), string(entry.Type), string(entry.EntryType),
		entry.Account, entry.Amount, nullStr(entry.TaskRef), nullStr(entry.Memo), entry.Balance,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// WalletBalance returns the current balance for an account.
// Works on *sql.DB or an open *sql.Tx so transfers can read balances
// inside the transaction that moves the value.
func WalletBalance(q querier, account string) (int64, error) {
	var balance sql.NullInt64
	err := q.QueryRow(
		`SELECT balance FROM wallet_ledger WHERE account = ? ORDER BY id DESC LIMIT 1`,
		account,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Int64, nil
}

// Querier exposes the raw connection for balance reads outside a transaction.
func (d *DB) Querier() *sql.DB { return d.db }

// WalletEntries returns recent ledger entries for an account, newest first.
func (d *DB) WalletEntries(account string, limit int) ([]domain.WalletEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, timestamp, type, entry_type, account, amount, task_ref, memo, balance
		 FROM wallet_ledger WHERE account = ? ORDER BY id DESC LIMIT ?`,
		account, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.WalletEntry
	for rows.Next() {
		var e domain.WalletEntry
		var ts int64
		var taskRef, memo sql.NullString
		err := rows.Scan(&e.ID, &ts, &e.Type, &e.EntryType, &e.Account,
			&e.Amount, &taskRef, &memo, &e.Balance)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		if taskRef.Valid {
			e.TaskRef = taskRef.String
		}
		if memo.Valid {
			e.Memo = memo.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
