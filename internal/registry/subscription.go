package registry

import (
	"sync"

	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
)

// ItemSubscription is one observer of an item. It emits a snapshot first and
// then deltas in strictly increasing sequence order, never skipping one.
type ItemSubscription struct {
	id     uint64
	itemID string
	reg    *Registry
	limit  int

	mu      sync.Mutex
	started bool
	closed  bool
	err     error
	lastSeq int64
	pending map[int64]model.ItemDelta // arrived ahead of lastSeq+1
	gapping bool
	events  chan model.ItemEvent
}

// ItemID returns the watched item
func (s *ItemSubscription) ItemID() string {
	return s.itemID
}

// Events is closed when the subscription ends
func (s *ItemSubscription) Events() <-chan model.ItemEvent {
	return s.events
}

// Err reports why the subscription ended; nil if the subscriber closed it
func (s *ItemSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastSeq returns the sequence number of the last event handed to the stream
func (s *ItemSubscription) LastSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// Start emits the snapshot, then every held delta newer than it
func (s *ItemSubscription) Start(snapshot model.ItemSnapshot) {
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastSeq = snapshot.Seq
	for seq := range s.pending {
		if seq <= snapshot.Seq {
			delete(s.pending, seq)
		}
	}

	ok := s.send(model.ItemEvent{
		Type:            model.EventSnapshot,
		ItemID:          snapshot.ItemID,
		Seq:             snapshot.Seq,
		BidCount:        snapshot.BidCount,
		Status:          snapshot.Status,
		Closed:          snapshot.Status == model.ItemClosed,
		WinnerAccountID: snapshot.WinnerAccountID,
	})
	s.settle(ok)
}

func (s *ItemSubscription) deliver(delta model.ItemDelta) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.started && delta.Seq <= s.lastSeq {
		s.mu.Unlock()
		return
	}
	if _, dup := s.pending[delta.Seq]; dup {
		s.mu.Unlock()
		return
	}
	s.pending[delta.Seq] = delta
	s.settle(true)
}

// settle flushes what it can and releases s.mu. A full buffer or an
// unbounded backlog ends the subscription instead of skipping events.
func (s *ItemSubscription) settle(ok bool) {
	newGap := false
	if ok && s.started {
		ok = s.flushLocked()
		waiting := len(s.pending) > 0
		newGap = ok && waiting && !s.gapping
		s.gapping = waiting
	}
	if len(s.pending) > s.limit {
		ok = false
	}
	if !ok {
		s.closeLocked(biddingerrors.ErrSlowConsumer)
	}
	s.mu.Unlock()

	if !ok {
		s.reg.removeItem(s)
		return
	}
	if newGap {
		s.reg.reportGap(s.itemID)
	}
}

func (s *ItemSubscription) flushLocked() bool {
	for {
		next, found := s.pending[s.lastSeq+1]
		if !found {
			return true
		}
		status := model.ItemOpen
		if next.Closed {
			status = model.ItemClosed
		}
		if !s.send(model.ItemEvent{
			Type:            model.EventDelta,
			ItemID:          next.ItemID,
			Seq:             next.Seq,
			BidCount:        next.BidCount,
			Status:          status,
			Closed:          next.Closed,
			WinnerAccountID: next.WinnerAccountID,
		}) {
			return false
		}
		delete(s.pending, next.Seq)
		s.lastSeq = next.Seq
	}
}

func (s *ItemSubscription) send(ev model.ItemEvent) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *ItemSubscription) waitingAfter() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq, s.started && !s.closed && len(s.pending) > 0
}

func (s *ItemSubscription) position() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq, s.started && !s.closed
}

// Close unsubscribes. It is safe to call at any time and more than once.
func (s *ItemSubscription) Close() {
	s.mu.Lock()
	wasOpen := s.closeLocked(nil)
	s.mu.Unlock()
	if wasOpen {
		s.reg.removeItem(s)
	}
}

func (s *ItemSubscription) closeLocked(err error) bool {
	if s.closed {
		return false
	}
	s.closed = true
	s.err = err
	s.pending = nil
	close(s.events)
	return true
}

// AccountSubscription is one observer of an account's balance. It emits a
// snapshot first and then one delta per debit in the account's sequence order.
type AccountSubscription struct {
	id        uint64
	accountID string
	reg       *Registry
	limit     int

	mu      sync.Mutex
	started bool
	closed  bool
	err     error
	lastSeq int64
	pending map[int64]model.BalanceDelta // arrived ahead of lastSeq+1
	gapping bool
	events  chan model.AccountEvent
}

// AccountID returns the watched account
func (s *AccountSubscription) AccountID() string {
	return s.accountID
}

// Events is closed when the subscription ends
func (s *AccountSubscription) Events() <-chan model.AccountEvent {
	return s.events
}

// Err reports why the subscription ended; nil if the subscriber closed it
func (s *AccountSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastSeq returns the debit sequence number of the last event handed to the stream
func (s *AccountSubscription) LastSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// Start emits the balance snapshot, then every held delta newer than it
func (s *AccountSubscription) Start(snapshot model.AccountSnapshot) {
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastSeq = snapshot.Seq
	for seq := range s.pending {
		if seq <= snapshot.Seq {
			delete(s.pending, seq)
		}
	}

	ok := s.send(model.AccountEvent{
		Type:          model.EventSnapshot,
		AccountID:     snapshot.AccountID,
		Seq:           snapshot.Seq,
		CreditBalance: snapshot.CreditBalance,
	})
	s.settle(ok)
}

func (s *AccountSubscription) deliver(delta model.BalanceDelta) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.started && delta.Seq <= s.lastSeq {
		s.mu.Unlock()
		return
	}
	if _, dup := s.pending[delta.Seq]; dup {
		s.mu.Unlock()
		return
	}
	s.pending[delta.Seq] = delta
	s.settle(true)
}

// settle flushes what it can and releases s.mu
func (s *AccountSubscription) settle(ok bool) {
	newGap := false
	if ok && s.started {
		ok = s.flushLocked()
		waiting := len(s.pending) > 0
		newGap = ok && waiting && !s.gapping
		s.gapping = waiting
	}
	if len(s.pending) > s.limit {
		ok = false
	}
	if !ok {
		s.closeLocked(biddingerrors.ErrSlowConsumer)
	}
	s.mu.Unlock()

	if !ok {
		s.reg.removeAccount(s)
		return
	}
	if newGap {
		s.reg.reportAccountGap(s.accountID)
	}
}

func (s *AccountSubscription) flushLocked() bool {
	for {
		next, found := s.pending[s.lastSeq+1]
		if !found {
			return true
		}
		if !s.send(model.AccountEvent{
			Type:          model.EventDelta,
			AccountID:     next.AccountID,
			Seq:           next.Seq,
			ItemID:        next.ItemID,
			BidID:         next.BidID,
			Delta:         next.Delta,
			CreditBalance: next.NewBalance,
		}) {
			return false
		}
		delete(s.pending, next.Seq)
		s.lastSeq = next.Seq
	}
}

func (s *AccountSubscription) send(ev model.AccountEvent) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *AccountSubscription) waitingAfter() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq, s.started && !s.closed && len(s.pending) > 0
}

func (s *AccountSubscription) position() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq, s.started && !s.closed
}

// Close unsubscribes. It is safe to call at any time and more than once.
func (s *AccountSubscription) Close() {
	s.mu.Lock()
	wasOpen := s.closeLocked(nil)
	s.mu.Unlock()
	if wasOpen {
		s.reg.removeAccount(s)
	}
}

func (s *AccountSubscription) closeLocked(err error) bool {
	if s.closed {
		return false
	}
	s.closed = true
	s.err = err
	s.pending = nil
	close(s.events)
	return true
}
