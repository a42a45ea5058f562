package repository

import (
	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// DefaultLockTimeout bounds how long a bid waits for an item or account
const DefaultLockTimeout = 2 * time.Second

// LedgerStore is the durable record of accounts, items and the bid log
type LedgerStore interface {
	ReadAccount(ctx context.Context, accountID string) (model.Account, error)
	ReadItem(ctx context.Context, itemID string) (model.Item, error)
	// ListBids returns the item's bids with Seq > afterSeq in commit order
	ListBids(ctx context.Context, itemID string, afterSeq int64) ([]model.BidRecord, error)
	// ListAccountBids returns the bids the account paid for with
	// AccountSeq > afterSeq in commit order
	ListAccountBids(ctx context.Context, accountID string, afterSeq int64) ([]model.BidRecord, error)
	// AppendBidAtomic checks the item is open and the account can pay, then
	// debits, appends the record and advances the item as one unit
	AppendBidAtomic(ctx context.Context, req model.BidRequest) (model.BidOutcome, error)
	CreateAccount(ctx context.Context, account model.Account) error
	CreateItem(ctx context.Context, item model.Item) error
}

// Option configures a ledger store
type Option func(*options)

type options struct {
	lockTimeout time.Duration
}

// WithLockTimeout bounds serialization point acquisition for AppendBidAtomic
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// rowLock is a one-slot semaphore, so acquisition can give up on a deadline
type rowLock chan struct{}

func newRowLock() rowLock { return make(rowLock, 1) }

func (l rowLock) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l rowLock) release() { <-l }

type accountRow struct {
	lock    rowLock // serializes bids paid by this account
	mu      sync.RWMutex
	account model.Account
	debits  []model.BidRecord // debits[i].AccountSeq == i+1
}

type itemRow struct {
	lock rowLock // serializes bids on this item
	mu   sync.RWMutex
	item model.Item
	bids []model.BidRecord // bids[i].Seq == i+1
}

// MemoryRepo is a concurrency-safe in-memory implementation of LedgerStore.
// Bids on disjoint (account, item) pairs never wait on each other.
type MemoryRepo struct {
	mu       sync.RWMutex // guards the maps, not the rows
	accounts map[string]*accountRow
	items    map[string]*itemRow
	bidIDs   sync.Map // every committed BidID
	opts     options
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo(opts ...Option) *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[string]*accountRow),
		items:    make(map[string]*itemRow),
		opts:     buildOptions(opts),
	}
}

func (r *MemoryRepo) itemRow(itemID string) *itemRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[itemID]
}

func (r *MemoryRepo) accountRow(accountID string) *accountRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts[accountID]
}

// ReadAccount returns a point-in-time copy of an account
func (r *MemoryRepo) ReadAccount(ctx context.Context, accountID string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}
	row := r.accountRow(accountID)
	if row == nil {
		return model.Account{}, fmt.Errorf("read account %s: %w", accountID, biddingerrors.ErrAccountNotFound)
	}
	row.mu.RLock()
	defer row.mu.RUnlock()
	return row.account, nil
}

// ReadItem returns a point-in-time copy of an item
func (r *MemoryRepo) ReadItem(ctx context.Context, itemID string) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return model.Item{}, err
	}
	row := r.itemRow(itemID)
	if row == nil {
		return model.Item{}, fmt.Errorf("read item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	row.mu.RLock()
	defer row.mu.RUnlock()
	return row.item, nil
}

// ListBids returns the bids of an item committed after afterSeq
func (r *MemoryRepo) ListBids(ctx context.Context, itemID string, afterSeq int64) ([]model.BidRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.itemRow(itemID)
	if row == nil {
		return nil, fmt.Errorf("list bids for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	row.mu.RLock()
	defer row.mu.RUnlock()

	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(row.bids)) {
		return []model.BidRecord{}, nil
	}
	return append([]model.BidRecord(nil), row.bids[afterSeq:]...), nil
}

// ListAccountBids returns the bids an account paid for after afterSeq
func (r *MemoryRepo) ListAccountBids(ctx context.Context, accountID string, afterSeq int64) ([]model.BidRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.accountRow(accountID)
	if row == nil {
		return nil, fmt.Errorf("list bids for account %s: %w", accountID, biddingerrors.ErrAccountNotFound)
	}
	row.mu.RLock()
	defer row.mu.RUnlock()

	if afterSeq < 0 {
		afterSeq = 0
	}
	if afterSeq >= int64(len(row.debits)) {
		return []model.BidRecord{}, nil
	}
	return append([]model.BidRecord(nil), row.debits[afterSeq:]...), nil
}

// AppendBidAtomic runs the whole bid under the item's and then the account's
// row lock. Locks are always taken in that order.
func (r *MemoryRepo) AppendBidAtomic(ctx context.Context, req model.BidRequest) (model.BidOutcome, error) {
	if err := validateBidRequest(req); err != nil {
		return model.BidOutcome{}, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, r.opts.lockTimeout)
	defer cancel()

	iRow := r.itemRow(req.ItemID)
	if iRow == nil {
		return model.BidOutcome{}, fmt.Errorf("append bid on item %s: %w", req.ItemID, biddingerrors.ErrItemNotFound)
	}
	if err := iRow.lock.acquire(lockCtx); err != nil {
		return model.BidOutcome{}, fmt.Errorf("append bid: acquire item %s: %w: %w", req.ItemID, biddingerrors.ErrLockTimeout, err)
	}
	defer iRow.lock.release()

	iRow.mu.RLock()
	item := iRow.item
	iRow.mu.RUnlock()
	if item.Closed() {
		return model.BidOutcome{}, fmt.Errorf("append bid on item %s: %w", req.ItemID, biddingerrors.ErrItemClosed)
	}

	aRow := r.accountRow(req.AccountID)
	if aRow == nil {
		return model.BidOutcome{}, fmt.Errorf("append bid by account %s: %w", req.AccountID, biddingerrors.ErrAccountNotFound)
	}
	if err := aRow.lock.acquire(lockCtx); err != nil {
		return model.BidOutcome{}, fmt.Errorf("append bid: acquire account %s: %w: %w", req.AccountID, biddingerrors.ErrLockTimeout, err)
	}
	defer aRow.lock.release()

	aRow.mu.RLock()
	balance := aRow.account.CreditBalance
	aRow.mu.RUnlock()
	if balance < req.Cost {
		return model.BidOutcome{}, fmt.Errorf("append bid by account %s (balance %d, cost %d): %w",
			req.AccountID, balance, req.Cost, biddingerrors.ErrInsufficientCredits)
	}

	// last point at which the caller can still walk away
	if err := ctx.Err(); err != nil {
		return model.BidOutcome{}, fmt.Errorf("append bid: %w: %w", biddingerrors.ErrLockTimeout, err)
	}

	// bid IDs are unique across the ledger, like the bids table's key
	if _, taken := r.bidIDs.LoadOrStore(req.BidID, struct{}{}); taken {
		return model.BidOutcome{}, fmt.Errorf("append bid record: %w: duplicate bid id %s", biddingerrors.ErrInternalStore, req.BidID)
	}

	iRow.mu.Lock()
	aRow.mu.Lock()
	defer iRow.mu.Unlock()
	defer aRow.mu.Unlock()

	aRow.account.CreditBalance -= req.Cost
	aRow.account.DebitSeq++

	record := model.BidRecord{
		BidID:        req.BidID,
		AccountID:    req.AccountID,
		ItemID:       req.ItemID,
		Cost:         req.Cost,
		Seq:          iRow.item.BidCount + 1,
		AccountSeq:   aRow.account.DebitSeq,
		BalanceAfter: aRow.account.CreditBalance,
		CreatedAt:    req.CreatedAt,
	}
	iRow.bids = append(iRow.bids, record)
	aRow.debits = append(aRow.debits, record)
	iRow.item.BidCount = record.Seq
	if iRow.item.BidCount >= iRow.item.Threshold {
		iRow.item.Status = model.ItemClosed
		iRow.item.WinnerAccountID = req.AccountID
	}

	return model.BidOutcome{
		Record:          record,
		NewBidCount:     iRow.item.BidCount,
		Threshold:       iRow.item.Threshold,
		Closed:          iRow.item.Closed(),
		WinnerAccountID: iRow.item.WinnerAccountID,
		NewBalance:      aRow.account.CreditBalance,
	}, nil
}

// CreateAccount onboards an account with its starting balance
func (r *MemoryRepo) CreateAccount(ctx context.Context, account model.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	account, err := normalizeAccount(account)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.AccountID]; ok {
		return fmt.Errorf("create account %s: %w", account.AccountID, biddingerrors.ErrAlreadyExists)
	}
	r.accounts[account.AccountID] = &accountRow{lock: newRowLock(), account: account}
	return nil
}

// CreateItem adds an open item with no bids
func (r *MemoryRepo) CreateItem(ctx context.Context, item model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item, err := normalizeItem(item)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ItemID]; ok {
		return fmt.Errorf("create item %s: %w", item.ItemID, biddingerrors.ErrAlreadyExists)
	}
	r.items[item.ItemID] = &itemRow{lock: newRowLock(), item: item}
	return nil
}

func validateBidRequest(req model.BidRequest) error {
	if strings.TrimSpace(req.ItemID) == "" || strings.TrimSpace(req.AccountID) == "" {
		return fmt.Errorf("append bid: %w - missing item or account id", biddingerrors.ErrInvalidBid)
	}
	if req.Cost <= 0 {
		return fmt.Errorf("append bid: %w - non-positive cost %d", biddingerrors.ErrInvalidBid, req.Cost)
	}
	if req.BidID == "" {
		return fmt.Errorf("append bid: %w - missing bid id", biddingerrors.ErrInvalidBid)
	}
	return nil
}

func normalizeAccount(account model.Account) (model.Account, error) {
	account.AccountID = strings.TrimSpace(account.AccountID)
	if account.AccountID == "" {
		return model.Account{}, fmt.Errorf("create account: %w - missing account id", biddingerrors.ErrInvalidAccount)
	}
	if account.CreditBalance < 0 {
		return model.Account{}, fmt.Errorf("create account %s: %w - negative balance", account.AccountID, biddingerrors.ErrInvalidAccount)
	}
	account.DebitSeq = 0
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	return account, nil
}

func normalizeItem(item model.Item) (model.Item, error) {
	item.ItemID = strings.TrimSpace(item.ItemID)
	if item.ItemID == "" {
		return model.Item{}, fmt.Errorf("create item: %w - missing item id", biddingerrors.ErrInvalidItem)
	}
	if item.Threshold <= 0 {
		return model.Item{}, fmt.Errorf("create item %s: %w - threshold must be positive", item.ItemID, biddingerrors.ErrInvalidItem)
	}
	item.BidCount = 0
	item.Status = model.ItemOpen
	item.WinnerAccountID = ""
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return item, nil
}
