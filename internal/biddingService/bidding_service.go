package bidding

import (
	"bidding-ledger/internal/biddingerrors"
	"bidding-ledger/internal/models"
	"bidding-ledger/internal/repository"
	"bidding-ledger/utils"
	"context"
	"fmt"
	"strings"
	"time"
)

// Defaults for the system-wide bidding constants
const (
	DefaultBidCost         int64 = 1
	DefaultStartingBalance int64 = 10
)

// Option configures a BiddingService
type Option func(*BiddingService)

// WithBidCost sets the credit cost of every bid
func WithBidCost(cost int64) Option {
	return func(s *BiddingService) {
		if cost > 0 {
			s.cost = cost
		}
	}
}

// WithStartingBalance sets the balance new accounts are onboarded with
func WithStartingBalance(balance int64) Option {
	return func(s *BiddingService) {
		if balance >= 0 {
			s.startingBalance = balance
		}
	}
}

// WithPublisher sets where committed bids are announced
func WithPublisher(p Publisher) Option {
	return func(s *BiddingService) {
		s.publisher = p
	}
}

// BiddingService is the only writer of bid outcomes
type BiddingService struct {
	repo            repository.LedgerStore
	publisher       Publisher
	cost            int64
	startingBalance int64
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.LedgerStore, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:            repo,
		cost:            DefaultBidCost,
		startingBalance: DefaultStartingBalance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BidCost returns the credit cost of one bid
func (s *BiddingService) BidCost() int64 {
	return s.cost
}

// PlaceBid spends one bid's cost from the account on the item. Once the
// ledger has committed, the outcome stands and is published even if ctx is
// cancelled meanwhile.
func (s *BiddingService) PlaceBid(ctx context.Context, accountID, itemID string) (models.BidOutcome, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(itemID) == "" {
		return models.BidOutcome{}, fmt.Errorf("service: %w - missing accountID or itemID", biddingerrors.ErrInvalidBid)
	}
	if err := ctx.Err(); err != nil {
		return models.BidOutcome{}, fmt.Errorf("service: bid abandoned before submission: %w: %w", biddingerrors.ErrLockTimeout, err)
	}

	req := models.BidRequest{
		BidID:     utils.GenerateID(),
		AccountID: accountID,
		ItemID:    itemID,
		Cost:      s.cost,
		CreatedAt: time.Now().UTC(),
	}

	outcome, err := s.repo.AppendBidAtomic(ctx, req)
	if err != nil {
		if biddingerrors.Code(err) == biddingerrors.CodeInternalError {
			utils.Error("service: bid failed in ledger", map[string]any{
				"item_id":    itemID,
				"account_id": accountID,
				"bid_id":     req.BidID,
				"error":      err.Error(),
			})
		}
		return models.BidOutcome{}, fmt.Errorf("service: failed to place bid on item %s by account %s: %w", itemID, accountID, err)
	}

	s.publish(outcome)

	fields := map[string]any{
		"item_id":    itemID,
		"account_id": accountID,
		"bid_id":     outcome.Record.BidID,
		"bid_count":  outcome.NewBidCount,
		"threshold":  outcome.Threshold,
	}
	if outcome.Closed {
		utils.Info("service: item closed, winner assigned", fields)
	} else {
		utils.Debug("service: bid accepted", fields)
	}
	return outcome, nil
}

// publish hands the outcome to the notifier. A failing notifier only costs
// real-time visibility, never the committed bid.
func (s *BiddingService) publish(outcome models.BidOutcome) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			utils.Error("service: publishing bid outcome panicked", map[string]any{
				"item_id": outcome.Record.ItemID,
				"seq":     outcome.Record.Seq,
				"panic":   fmt.Sprint(r),
			})
		}
	}()
	s.publisher.Publish(outcome)
}

// OpenAccount onboards an account with the starting balance
func (s *BiddingService) OpenAccount(ctx context.Context, accountID string) (models.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return models.Account{}, fmt.Errorf("service: %w - empty account ID", biddingerrors.ErrInvalidAccount)
	}

	account := models.Account{
		AccountID:     accountID,
		CreditBalance: s.startingBalance,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return models.Account{}, fmt.Errorf("service: failed to open account %s: %w", accountID, err)
	}
	return account, nil
}

// GetAccount returns the current state of an account
func (s *BiddingService) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	if accountID == "" {
		return models.Account{}, fmt.Errorf("service: %w - empty account ID", biddingerrors.ErrInvalidAccount)
	}

	account, err := s.repo.ReadAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("service: failed to get account %s: %w", accountID, err)
	}
	return account, nil
}

// GetItem returns the current bidding state of an item
func (s *BiddingService) GetItem(ctx context.Context, itemID string) (models.Item, error) {
	if itemID == "" {
		return models.Item{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidItem)
	}

	item, err := s.repo.ReadItem(ctx, itemID)
	if err != nil {
		return models.Item{}, fmt.Errorf("service: failed to get item %s: %w", itemID, err)
	}
	return item, nil
}

// GetBidsForItem returns the bid log of an item in commit order
func (s *BiddingService) GetBidsForItem(ctx context.Context, itemID string) ([]models.BidRecord, error) {
	if itemID == "" {
		return nil, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidItem)
	}

	bids, err := s.repo.ListBids(ctx, itemID, 0)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for item %s: %w", itemID, err)
	}
	return bids, nil
}
