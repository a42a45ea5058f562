package repository

import (
	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id     TEXT PRIMARY KEY,
		credit_balance INTEGER NOT NULL CHECK (credit_balance >= 0),
		debit_seq      INTEGER NOT NULL DEFAULT 0 CHECK (debit_seq >= 0),
		created_at     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		item_id           TEXT PRIMARY KEY,
		title             TEXT NOT NULL DEFAULT '',
		bid_count         INTEGER NOT NULL DEFAULT 0 CHECK (bid_count >= 0),
		threshold         INTEGER NOT NULL CHECK (threshold > 0),
		status            TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
		winner_account_id TEXT,
		created_at        INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		bid_id        TEXT PRIMARY KEY,
		item_id       TEXT NOT NULL REFERENCES items (item_id),
		account_id    TEXT NOT NULL REFERENCES accounts (account_id),
		cost          INTEGER NOT NULL CHECK (cost > 0),
		seq           INTEGER NOT NULL,
		account_seq   INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		created_at    INTEGER NOT NULL,
		UNIQUE (item_id, seq),
		UNIQUE (account_id, account_seq)
	)`,
}

// SQLiteRepo persists the ledger in SQLite. All access goes through one
// connection, so every bid transaction is serialized against every other.
type SQLiteRepo struct {
	db   *sql.DB
	opts options
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (or creates) a SQLite ledger and applies the schema
func OpenSQLite(path string, opts ...Option) (*SQLiteRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &SQLiteRepo{db: db, opts: buildOptions(opts)}, nil
}

// Close closes the SQLite handle
func (r *SQLiteRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// ReadAccount returns one account
func (r *SQLiteRepo) ReadAccount(ctx context.Context, accountID string) (model.Account, error) {
	var (
		account   model.Account
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, credit_balance, debit_seq, created_at FROM accounts WHERE account_id = ?`,
		accountID,
	).Scan(&account.AccountID, &account.CreditBalance, &account.DebitSeq, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("read account %s: %w", accountID, biddingerrors.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("read account %s: %w: %w", accountID, biddingerrors.ErrInternalStore, err)
	}
	account.CreatedAt = fromMillis(createdAt)
	return account, nil
}

// ReadItem returns one item
func (r *SQLiteRepo) ReadItem(ctx context.Context, itemID string) (model.Item, error) {
	var (
		item      model.Item
		status    string
		winner    sql.NullString
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT item_id, title, bid_count, threshold, status, winner_account_id, created_at
		   FROM items WHERE item_id = ?`,
		itemID,
	).Scan(&item.ItemID, &item.Title, &item.BidCount, &item.Threshold, &status, &winner, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("read item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("read item %s: %w: %w", itemID, biddingerrors.ErrInternalStore, err)
	}
	item.Status = model.ItemStatus(status)
	item.WinnerAccountID = winner.String
	item.CreatedAt = fromMillis(createdAt)
	return item, nil
}

// ListBids returns the bids of an item committed after afterSeq
func (r *SQLiteRepo) ListBids(ctx context.Context, itemID string, afterSeq int64) ([]model.BidRecord, error) {
	if _, err := r.ReadItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}

	bids, err := r.queryBids(ctx,
		`SELECT bid_id, account_id, item_id, cost, seq, account_seq, balance_after, created_at
		   FROM bids WHERE item_id = ? AND seq > ? ORDER BY seq`,
		itemID, afterSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids for item %s: %w", itemID, err)
	}
	return bids, nil
}

// ListAccountBids returns the bids an account paid for after afterSeq
func (r *SQLiteRepo) ListAccountBids(ctx context.Context, accountID string, afterSeq int64) ([]model.BidRecord, error) {
	if _, err := r.ReadAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}

	bids, err := r.queryBids(ctx,
		`SELECT bid_id, account_id, item_id, cost, seq, account_seq, balance_after, created_at
		   FROM bids WHERE account_id = ? AND account_seq > ? ORDER BY account_seq`,
		accountID, afterSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids for account %s: %w", accountID, err)
	}
	return bids, nil
}

func (r *SQLiteRepo) queryBids(ctx context.Context, query string, args ...any) ([]model.BidRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", biddingerrors.ErrInternalStore, err)
	}
	defer rows.Close()

	bids := []model.BidRecord{}
	for rows.Next() {
		var (
			bid       model.BidRecord
			createdAt int64
		)
		if err := rows.Scan(&bid.BidID, &bid.AccountID, &bid.ItemID, &bid.Cost, &bid.Seq,
			&bid.AccountSeq, &bid.BalanceAfter, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w: %w", biddingerrors.ErrInternalStore, err)
		}
		bid.CreatedAt = fromMillis(createdAt)
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w: %w", biddingerrors.ErrInternalStore, err)
	}
	return bids, nil
}

// AppendBidAtomic runs the bid as one transaction. Any failure after the
// precondition checks rolls the whole transaction back.
func (r *SQLiteRepo) AppendBidAtomic(ctx context.Context, req model.BidRequest) (model.BidOutcome, error) {
	if err := validateBidRequest(req); err != nil {
		return model.BidOutcome{}, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, r.opts.lockTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(lockCtx, nil)
	if err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "begin bid transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		bidCount, threshold int64
		status              string
	)
	err = tx.QueryRowContext(lockCtx,
		`SELECT bid_count, threshold, status FROM items WHERE item_id = ?`, req.ItemID,
	).Scan(&bidCount, &threshold, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BidOutcome{}, fmt.Errorf("append bid on item %s: %w", req.ItemID, biddingerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "read item", err)
	}
	if model.ItemStatus(status) == model.ItemClosed {
		return model.BidOutcome{}, fmt.Errorf("append bid on item %s: %w", req.ItemID, biddingerrors.ErrItemClosed)
	}

	var balance, debitSeq int64
	err = tx.QueryRowContext(lockCtx,
		`SELECT credit_balance, debit_seq FROM accounts WHERE account_id = ?`, req.AccountID,
	).Scan(&balance, &debitSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BidOutcome{}, fmt.Errorf("append bid by account %s: %w", req.AccountID, biddingerrors.ErrAccountNotFound)
	}
	if err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "read account", err)
	}
	if balance < req.Cost {
		return model.BidOutcome{}, fmt.Errorf("append bid by account %s (balance %d, cost %d): %w",
			req.AccountID, balance, req.Cost, biddingerrors.ErrInsufficientCredits)
	}

	newCount := bidCount + 1
	accountSeq := debitSeq + 1
	balanceAfter := balance - req.Cost
	closed := newCount >= threshold
	newStatus := model.ItemOpen
	var winner sql.NullString
	if closed {
		newStatus = model.ItemClosed
		winner = sql.NullString{String: req.AccountID, Valid: true}
	}

	if _, err := tx.ExecContext(lockCtx,
		`UPDATE accounts SET credit_balance = credit_balance - ?, debit_seq = ? WHERE account_id = ?`,
		req.Cost, accountSeq, req.AccountID,
	); err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "debit account", err)
	}
	if _, err := tx.ExecContext(lockCtx,
		`INSERT INTO bids (bid_id, item_id, account_id, cost, seq, account_seq, balance_after, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.BidID, req.ItemID, req.AccountID, req.Cost, newCount, accountSeq, balanceAfter, toMillis(req.CreatedAt),
	); err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "append bid record", err)
	}
	res, err := tx.ExecContext(lockCtx,
		`UPDATE items SET bid_count = ?, status = ?, winner_account_id = ?
		  WHERE item_id = ? AND status = 'open' AND bid_count = ?`,
		newCount, string(newStatus), winner, req.ItemID, bidCount,
	)
	if err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "advance item", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return model.BidOutcome{}, fmt.Errorf("advance item %s: %w - item changed during transaction", req.ItemID, biddingerrors.ErrInternalStore)
	}

	if err := tx.Commit(); err != nil {
		return model.BidOutcome{}, r.txError(lockCtx, "commit bid", err)
	}

	return model.BidOutcome{
		Record: model.BidRecord{
			BidID:        req.BidID,
			AccountID:    req.AccountID,
			ItemID:       req.ItemID,
			Cost:         req.Cost,
			Seq:          newCount,
			AccountSeq:   accountSeq,
			BalanceAfter: balanceAfter,
			CreatedAt:    fromMillis(toMillis(req.CreatedAt)),
		},
		NewBidCount:     newCount,
		Threshold:       threshold,
		Closed:          closed,
		WinnerAccountID: winner.String,
		NewBalance:      balanceAfter,
	}, nil
}

// txError classifies a failure inside the bid transaction. A lapsed deadline
// or cancellation is a retryable timeout, everything else is internal.
func (r *SQLiteRepo) txError(lockCtx context.Context, op string, err error) error {
	if ctxErr := lockCtx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrLockTimeout, ctxErr)
	}
	return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrInternalStore, err)
}

// CreateAccount onboards an account with its starting balance
func (r *SQLiteRepo) CreateAccount(ctx context.Context, account model.Account) error {
	account, err := normalizeAccount(account)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (account_id, credit_balance, created_at) VALUES (?, ?, ?)`,
		account.AccountID, account.CreditBalance, toMillis(account.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create account %s: %w: %w", account.AccountID, biddingerrors.ErrInternalStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("create account %s: %w", account.AccountID, biddingerrors.ErrAlreadyExists)
	}
	return nil
}

// CreateItem adds an open item with no bids
func (r *SQLiteRepo) CreateItem(ctx context.Context, item model.Item) error {
	item, err := normalizeItem(item)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO items (item_id, title, bid_count, threshold, status, created_at)
		 VALUES (?, ?, 0, ?, ?, ?)`,
		item.ItemID, item.Title, item.Threshold, string(model.ItemOpen), toMillis(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create item %s: %w: %w", item.ItemID, biddingerrors.ErrInternalStore, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("create item %s: %w", item.ItemID, biddingerrors.ErrAlreadyExists)
	}
	return nil
}
