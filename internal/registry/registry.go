// Package registry tracks who is watching which item or account and fans
// change events out to them. It knows nothing about bidding rules.
package registry

import (
	"sync"
	"sync/atomic"

	model "bidding-ledger/internal/models"
)

// DefaultBuffer is the per-subscriber event buffer
const DefaultBuffer = 64

// Option configures a Registry
type Option func(*Registry)

// WithBuffer sets the per-subscriber event buffer size
func WithBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// Registry holds the live item and account subscriptions
type Registry struct {
	mu       sync.RWMutex
	items    map[string]map[uint64]*ItemSubscription
	accounts map[string]map[uint64]*AccountSubscription
	nextID   atomic.Uint64
	buffer   int

	gapMu        sync.RWMutex
	onGap        func(itemID string)
	onAccountGap func(accountID string)
}

// New creates an empty Registry
func New(opts ...Option) *Registry {
	r := &Registry{
		items:    make(map[string]map[uint64]*ItemSubscription),
		accounts: make(map[string]map[uint64]*AccountSubscription),
		buffer:   DefaultBuffer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnGap registers a callback run when an item subscription starts waiting on
// a missing sequence number
func (r *Registry) OnGap(fn func(itemID string)) {
	r.gapMu.Lock()
	defer r.gapMu.Unlock()
	r.onGap = fn
}

func (r *Registry) reportGap(itemID string) {
	r.gapMu.RLock()
	fn := r.onGap
	r.gapMu.RUnlock()
	if fn != nil {
		fn(itemID)
	}
}

// OnAccountGap registers a callback run when an account subscription starts
// waiting on a missing debit
func (r *Registry) OnAccountGap(fn func(accountID string)) {
	r.gapMu.Lock()
	defer r.gapMu.Unlock()
	r.onAccountGap = fn
}

func (r *Registry) reportAccountGap(accountID string) {
	r.gapMu.RLock()
	fn := r.onAccountGap
	r.gapMu.RUnlock()
	if fn != nil {
		fn(accountID)
	}
}

// SubscribeItem registers interest in an item. Deltas are held until Start
// provides the snapshot the subscription begins from.
func (r *Registry) SubscribeItem(itemID string) *ItemSubscription {
	sub := &ItemSubscription{
		id:      r.nextID.Add(1),
		itemID:  itemID,
		reg:     r,
		pending: make(map[int64]model.ItemDelta),
		events:  make(chan model.ItemEvent, r.buffer),
		limit:   r.buffer,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.items[itemID]
	if !ok {
		subs = make(map[uint64]*ItemSubscription)
		r.items[itemID] = subs
	}
	subs[sub.id] = sub
	return sub
}

// SubscribeAccount registers interest in an account's balance
func (r *Registry) SubscribeAccount(accountID string) *AccountSubscription {
	sub := &AccountSubscription{
		id:        r.nextID.Add(1),
		accountID: accountID,
		reg:       r,
		pending:   make(map[int64]model.BalanceDelta),
		events:    make(chan model.AccountEvent, r.buffer),
		limit:     r.buffer,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.accounts[accountID]
	if !ok {
		subs = make(map[uint64]*AccountSubscription)
		r.accounts[accountID] = subs
	}
	subs[sub.id] = sub
	return sub
}

// PublishItem delivers a delta to every subscriber of its item and returns
// how many subscribers it was handed to
func (r *Registry) PublishItem(delta model.ItemDelta) int {
	r.mu.RLock()
	subs := make([]*ItemSubscription, 0, len(r.items[delta.ItemID]))
	for _, sub := range r.items[delta.ItemID] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(delta)
	}
	return len(subs)
}

// PublishAccount delivers a balance delta to every subscriber of its account
func (r *Registry) PublishAccount(delta model.BalanceDelta) int {
	r.mu.RLock()
	subs := make([]*AccountSubscription, 0, len(r.accounts[delta.AccountID]))
	for _, sub := range r.accounts[delta.AccountID] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(delta)
	}
	return len(subs)
}

// ResumePoint returns the lowest sequence number any started subscriber of
// the item has seen while it waits on a later one
func (r *Registry) ResumePoint(itemID string) (int64, bool) {
	r.mu.RLock()
	subs := make([]*ItemSubscription, 0, len(r.items[itemID]))
	for _, sub := range r.items[itemID] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	var (
		lowest int64
		found  bool
	)
	for _, sub := range subs {
		seq, waiting := sub.waitingAfter()
		if !waiting {
			continue
		}
		if !found || seq < lowest {
			lowest, found = seq, true
		}
	}
	return lowest, found
}

// AccountResumePoint is ResumePoint for account subscriptions
func (r *Registry) AccountResumePoint(accountID string) (int64, bool) {
	r.mu.RLock()
	subs := make([]*AccountSubscription, 0, len(r.accounts[accountID]))
	for _, sub := range r.accounts[accountID] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	var (
		lowest int64
		found  bool
	)
	for _, sub := range subs {
		seq, waiting := sub.waitingAfter()
		if !waiting {
			continue
		}
		if !found || seq < lowest {
			lowest, found = seq, true
		}
	}
	return lowest, found
}

// ItemPositions returns, per watched item, the lowest sequence number any
// started subscriber has been handed
func (r *Registry) ItemPositions() map[string]int64 {
	r.mu.RLock()
	subs := make([]*ItemSubscription, 0, len(r.items))
	for _, byID := range r.items {
		for _, sub := range byID {
			subs = append(subs, sub)
		}
	}
	r.mu.RUnlock()

	positions := make(map[string]int64)
	for _, sub := range subs {
		seq, live := sub.position()
		if !live {
			continue
		}
		if lowest, ok := positions[sub.itemID]; !ok || seq < lowest {
			positions[sub.itemID] = seq
		}
	}
	return positions
}

// AccountPositions is ItemPositions for account subscriptions
func (r *Registry) AccountPositions() map[string]int64 {
	r.mu.RLock()
	subs := make([]*AccountSubscription, 0, len(r.accounts))
	for _, byID := range r.accounts {
		for _, sub := range byID {
			subs = append(subs, sub)
		}
	}
	r.mu.RUnlock()

	positions := make(map[string]int64)
	for _, sub := range subs {
		seq, live := sub.position()
		if !live {
			continue
		}
		if lowest, ok := positions[sub.accountID]; !ok || seq < lowest {
			positions[sub.accountID] = seq
		}
	}
	return positions
}

// ItemSubscribers returns the number of live subscribers of an item
func (r *Registry) ItemSubscribers(itemID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items[itemID])
}

// AccountSubscribers returns the number of live subscribers of an account
func (r *Registry) AccountSubscribers(accountID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts[accountID])
}

// Close ends every subscription
func (r *Registry) Close() {
	r.mu.RLock()
	var (
		items    []*ItemSubscription
		accounts []*AccountSubscription
	)
	for _, subs := range r.items {
		for _, sub := range subs {
			items = append(items, sub)
		}
	}
	for _, subs := range r.accounts {
		for _, sub := range subs {
			accounts = append(accounts, sub)
		}
	}
	r.mu.RUnlock()

	for _, sub := range items {
		sub.Close()
	}
	for _, sub := range accounts {
		sub.Close()
	}
}

func (r *Registry) removeItem(sub *ItemSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.items[sub.itemID]
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(r.items, sub.itemID)
	}
}

func (r *Registry) removeAccount(sub *AccountSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.accounts[sub.accountID]
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(r.accounts, sub.accountID)
	}
}
