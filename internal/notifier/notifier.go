package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	model "bidding-ledger/internal/models"
	"bidding-ledger/internal/registry"
	"bidding-ledger/internal/repository"
	"bidding-ledger/utils"
)

// DefaultGapTimeout is how long a subscriber may wait on a missing delta
// before the notifier replays it from the bid log
const DefaultGapTimeout = 500 * time.Millisecond

// DefaultCatchUpInterval is how often idle subscribers are compared against
// the ledger, which finds a lost delta that no later delta exposes
const DefaultCatchUpInterval = 2 * time.Second

// Option configures a Notifier
type Option func(*Notifier)

// WithGapTimeout sets the delay before missing deltas are replayed
func WithGapTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.gapTimeout = d
		}
	}
}

// WithCatchUpInterval sets how often subscribers are checked against the
// ledger. Zero or less turns the check off.
func WithCatchUpInterval(d time.Duration) Option {
	return func(n *Notifier) {
		n.catchUpInterval = d
	}
}

type recoveryKey struct {
	account bool
	id      string
}

// Notifier turns committed bids into per-item and per-account change events
type Notifier struct {
	store           repository.LedgerStore
	reg             *registry.Registry
	gapTimeout      time.Duration
	catchUpInterval time.Duration

	mu         sync.Mutex
	closed     bool
	recoveries map[recoveryKey]*time.Timer
	stop       chan struct{}
	done       chan struct{}
}

// New creates a Notifier publishing into reg and reading snapshots from store
func New(store repository.LedgerStore, reg *registry.Registry, opts ...Option) *Notifier {
	n := &Notifier{
		store:           store,
		reg:             reg,
		gapTimeout:      DefaultGapTimeout,
		catchUpInterval: DefaultCatchUpInterval,
		recoveries:      make(map[recoveryKey]*time.Timer),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	reg.OnGap(func(itemID string) { n.scheduleRecovery(recoveryKey{id: itemID}) })
	reg.OnAccountGap(func(accountID string) { n.scheduleRecovery(recoveryKey{account: true, id: accountID}) })

	if n.catchUpInterval > 0 {
		go n.catchUpLoop()
	} else {
		close(n.done)
	}
	return n
}

// Publish fans a committed bid out to item and account subscribers.
// Delivery is best effort and never fails the bid.
func (n *Notifier) Publish(outcome model.BidOutcome) {
	delta := model.DeltaOf(outcome)
	itemSubs := n.reg.PublishItem(delta)
	accountSubs := n.reg.PublishAccount(model.BalanceDeltaOf(outcome.Record))

	utils.Debug("notifier: bid published", map[string]any{
		"item_id":          delta.ItemID,
		"seq":              delta.Seq,
		"account_seq":      outcome.Record.AccountSeq,
		"closed":           delta.Closed,
		"item_subscribers": itemSubs,
		"account_subs":     accountSubs,
	})
}

// SubscribeItem registers before reading the snapshot, so every delta
// committed after the snapshot reaches the new subscriber
func (n *Notifier) SubscribeItem(ctx context.Context, itemID string) (*registry.ItemSubscription, error) {
	sub := n.reg.SubscribeItem(itemID)
	item, err := n.store.ReadItem(ctx, itemID)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("notifier: subscribe to item %s: %w", itemID, err)
	}
	sub.Start(model.SnapshotOf(item))
	return sub, nil
}

// SubscribeAccount streams an account's balance, starting from a snapshot
func (n *Notifier) SubscribeAccount(ctx context.Context, accountID string) (*registry.AccountSubscription, error) {
	sub := n.reg.SubscribeAccount(accountID)
	account, err := n.store.ReadAccount(ctx, accountID)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("notifier: subscribe to account %s: %w", accountID, err)
	}
	sub.Start(model.AccountSnapshotOf(account))
	return sub, nil
}

// Recover republishes, from the ledger's bid log, every delta after the
// lowest sequence number a waiting subscriber has seen. Subscribers drop
// the ones they already have.
func (n *Notifier) Recover(ctx context.Context, itemID string) (int, error) {
	after, waiting := n.reg.ResumePoint(itemID)
	if !waiting {
		return 0, nil
	}
	return n.replayItem(ctx, itemID, after)
}

// RecoverAccount is Recover for an account's balance deltas
func (n *Notifier) RecoverAccount(ctx context.Context, accountID string) (int, error) {
	after, waiting := n.reg.AccountResumePoint(accountID)
	if !waiting {
		return 0, nil
	}
	return n.replayAccount(ctx, accountID, after)
}

// CatchUp compares every watched item and account with the ledger and
// replays whatever some subscriber has not been handed yet
func (n *Notifier) CatchUp(ctx context.Context) (int, error) {
	var replayed int

	for itemID, seen := range n.reg.ItemPositions() {
		item, err := n.store.ReadItem(ctx, itemID)
		if err != nil {
			return replayed, fmt.Errorf("notifier: catch up item %s: %w", itemID, err)
		}
		if item.BidCount <= seen {
			continue
		}
		count, err := n.replayItem(ctx, itemID, seen)
		replayed += count
		if err != nil {
			return replayed, err
		}
	}

	for accountID, seen := range n.reg.AccountPositions() {
		account, err := n.store.ReadAccount(ctx, accountID)
		if err != nil {
			return replayed, fmt.Errorf("notifier: catch up account %s: %w", accountID, err)
		}
		if account.DebitSeq <= seen {
			continue
		}
		count, err := n.replayAccount(ctx, accountID, seen)
		replayed += count
		if err != nil {
			return replayed, err
		}
	}
	return replayed, nil
}

func (n *Notifier) replayItem(ctx context.Context, itemID string, after int64) (int, error) {
	item, err := n.store.ReadItem(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("notifier: recover item %s: %w", itemID, err)
	}
	bids, err := n.store.ListBids(ctx, itemID, after)
	if err != nil {
		return 0, fmt.Errorf("notifier: recover item %s: %w", itemID, err)
	}
	for _, bid := range bids {
		n.reg.PublishItem(deltaFromRecord(item, bid))
	}
	return len(bids), nil
}

func (n *Notifier) replayAccount(ctx context.Context, accountID string, after int64) (int, error) {
	bids, err := n.store.ListAccountBids(ctx, accountID, after)
	if err != nil {
		return 0, fmt.Errorf("notifier: recover account %s: %w", accountID, err)
	}
	for _, bid := range bids {
		n.reg.PublishAccount(model.BalanceDeltaOf(bid))
	}
	return len(bids), nil
}

// deltaFromRecord rebuilds the delta a bid produced. The bid whose Seq
// reaches the threshold is the closing one.
func deltaFromRecord(item model.Item, bid model.BidRecord) model.ItemDelta {
	delta := model.ItemDelta{
		ItemID:   bid.ItemID,
		Seq:      bid.Seq,
		BidCount: bid.Seq,
		Closed:   bid.Seq >= item.Threshold,
	}
	if delta.Closed {
		delta.WinnerAccountID = bid.AccountID
	}
	return delta
}

func (n *Notifier) scheduleRecovery(key recoveryKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if _, ok := n.recoveries[key]; ok {
		return
	}
	n.recoveries[key] = time.AfterFunc(n.gapTimeout, func() { n.runRecovery(key) })
}

func (n *Notifier) runRecovery(key recoveryKey) {
	n.mu.Lock()
	delete(n.recoveries, key)
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), n.gapTimeout*4)
	defer cancel()

	var (
		replayed int
		err      error
		waiting  bool
	)
	if key.account {
		replayed, err = n.RecoverAccount(ctx, key.id)
		_, waiting = n.reg.AccountResumePoint(key.id)
	} else {
		replayed, err = n.Recover(ctx, key.id)
		_, waiting = n.reg.ResumePoint(key.id)
	}

	fields := map[string]any{"id": key.id, "account": key.account}
	if err != nil {
		fields["error"] = err.Error()
		utils.Warn("notifier: gap recovery failed", fields)
	} else if replayed > 0 {
		fields["replayed"] = replayed
		utils.Info("notifier: replayed deltas from bid log", fields)
	}

	// a gap that is still open gets another attempt
	if waiting {
		n.scheduleRecovery(key)
	}
}

func (n *Notifier) catchUpLoop() {
	defer close(n.done)
	ticker := time.NewTicker(n.catchUpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), n.catchUpInterval)
			replayed, err := n.CatchUp(ctx)
			cancel()
			if err != nil {
				utils.Warn("notifier: catch-up failed", map[string]any{"error": err.Error()})
			} else if replayed > 0 {
				utils.Info("notifier: caught up idle subscribers", map[string]any{"replayed": replayed})
			}
		}
	}
}

// Close stops pending recoveries and ends every subscription
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.stop)
	}
	for key, timer := range n.recoveries {
		timer.Stop()
		delete(n.recoveries, key)
	}
	n.mu.Unlock()

	<-n.done
	n.reg.Close()
}
