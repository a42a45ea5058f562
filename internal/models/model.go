package models

import "time"

// ItemStatus is the bidding state of an item
type ItemStatus string

const (
	ItemOpen   ItemStatus = "open"
	ItemClosed ItemStatus = "closed"
)

// Account holds a spendable credit balance. DebitSeq counts the bids the
// account has paid for.
type Account struct {
	AccountID     string    `json:"account_id"`
	CreditBalance int64     `json:"credit_balance"`
	DebitSeq      int64     `json:"debit_seq"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item accumulates bids until BidCount reaches Threshold
type Item struct {
	ItemID          string     `json:"item_id"`
	Title           string     `json:"title"`
	BidCount        int64      `json:"bid_count"`
	Threshold       int64      `json:"threshold"`
	Status          ItemStatus `json:"status"`
	WinnerAccountID string     `json:"winner_account_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Closed reports whether the item stopped accepting bids
func (i Item) Closed() bool {
	return i.Status == ItemClosed
}

// BidRecord is an immutable log entry for one accepted bid.
// Seq is the item's bid count right after the bid committed, AccountSeq the
// account's debit count and BalanceAfter its balance at the same point.
type BidRecord struct {
	BidID        string    `json:"bid_id"`
	AccountID    string    `json:"account_id"`
	ItemID       string    `json:"item_id"`
	Cost         int64     `json:"cost"`
	Seq          int64     `json:"seq"`
	AccountSeq   int64     `json:"account_seq"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// BidRequest is the input of the ledger's atomic bid primitive
type BidRequest struct {
	BidID     string
	AccountID string
	ItemID    string
	Cost      int64
	CreatedAt time.Time
}

// BidOutcome describes a committed bid
type BidOutcome struct {
	Record          BidRecord `json:"record"`
	NewBidCount     int64     `json:"new_bid_count"`
	Threshold       int64     `json:"threshold"`
	Closed          bool      `json:"closed"`
	WinnerAccountID string    `json:"winner_account_id,omitempty"`
	NewBalance      int64     `json:"new_balance"`
}

// ItemDelta is the change event of one accepted bid on an item
type ItemDelta struct {
	ItemID          string `json:"item_id"`
	Seq             int64  `json:"sequence_number"`
	BidCount        int64  `json:"bid_count"`
	Closed          bool   `json:"closed"`
	WinnerAccountID string `json:"winner_account_id,omitempty"`
}

// ItemSnapshot is the full state a late subscriber starts from
type ItemSnapshot struct {
	ItemID          string     `json:"item_id"`
	Seq             int64      `json:"sequence_number"`
	BidCount        int64      `json:"bid_count"`
	Status          ItemStatus `json:"status"`
	WinnerAccountID string     `json:"winner_account_id,omitempty"`
}

// BalanceDelta is the change event of one debit on an account. Seq is the
// account's debit count after it.
type BalanceDelta struct {
	AccountID  string `json:"account_id"`
	Seq        int64  `json:"sequence_number"`
	ItemID     string `json:"item_id"`
	BidID      string `json:"bid_id"`
	Delta      int64  `json:"delta"`
	NewBalance int64  `json:"new_balance"`
}

// AccountSnapshot is the balance a late account subscriber starts from
type AccountSnapshot struct {
	AccountID     string `json:"account_id"`
	Seq           int64  `json:"sequence_number"`
	CreditBalance int64  `json:"credit_balance"`
}

// SnapshotOf builds the subscription snapshot of an item
func SnapshotOf(item Item) ItemSnapshot {
	return ItemSnapshot{
		ItemID:          item.ItemID,
		Seq:             item.BidCount,
		BidCount:        item.BidCount,
		Status:          item.Status,
		WinnerAccountID: item.WinnerAccountID,
	}
}

// DeltaOf builds the item change event of a committed bid
func DeltaOf(outcome BidOutcome) ItemDelta {
	return ItemDelta{
		ItemID:          outcome.Record.ItemID,
		Seq:             outcome.NewBidCount,
		BidCount:        outcome.NewBidCount,
		Closed:          outcome.Closed,
		WinnerAccountID: outcome.WinnerAccountID,
	}
}

// AccountSnapshotOf builds the subscription snapshot of an account
func AccountSnapshotOf(account Account) AccountSnapshot {
	return AccountSnapshot{
		AccountID:     account.AccountID,
		Seq:           account.DebitSeq,
		CreditBalance: account.CreditBalance,
	}
}

// BalanceDeltaOf builds the account change event of a committed bid
func BalanceDeltaOf(record BidRecord) BalanceDelta {
	return BalanceDelta{
		AccountID:  record.AccountID,
		Seq:        record.AccountSeq,
		ItemID:     record.ItemID,
		BidID:      record.BidID,
		Delta:      -record.Cost,
		NewBalance: record.BalanceAfter,
	}
}

// EventType tells subscribers whether an event is a full snapshot or an increment
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventDelta    EventType = "delta"
)

// ItemEvent is one message on an item subscription stream
type ItemEvent struct {
	Type            EventType  `json:"type"`
	ItemID          string     `json:"item_id"`
	Seq             int64      `json:"sequence_number"`
	BidCount        int64      `json:"bid_count"`
	Status          ItemStatus `json:"status"`
	Closed          bool       `json:"closed"`
	WinnerAccountID string     `json:"winner_account_id,omitempty"`
}

// AccountEvent is one message on an account subscription stream
type AccountEvent struct {
	Type          EventType `json:"type"`
	AccountID     string    `json:"account_id"`
	Seq           int64     `json:"sequence_number"`
	ItemID        string    `json:"item_id,omitempty"`
	BidID         string    `json:"bid_id,omitempty"`
	Delta         int64     `json:"delta"`
	CreditBalance int64     `json:"credit_balance"`
}
