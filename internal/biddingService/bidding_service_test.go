package bidding

import (
	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
	"bidding-ledger/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Tests PlaceBid against a mocked ledger
func TestBiddingService_PlaceBid(t *testing.T) {
	now := time.Now().UTC()

	committed := func(req model.BidRequest, count int64, closed bool) model.BidOutcome {
		out := model.BidOutcome{
			Record: model.BidRecord{
				BidID: req.BidID, AccountID: req.AccountID, ItemID: req.ItemID,
				Cost: req.Cost, Seq: count, CreatedAt: req.CreatedAt,
			},
			NewBidCount: count,
			Threshold:   3,
			Closed:      closed,
			NewBalance:  4,
		}
		if closed {
			out.WinnerAccountID = req.AccountID
		}
		return out
	}

	// Table-driven test cases
	tests := []struct {
		name          string
		accountID     string
		itemID        string
		mockSetup     func(repo *repository.MockLedgerStore, pub *MockPublisher)
		expectError   bool
		expectedError error
		expectClosed  bool
	}{
		{
			name:      "valid_bid",
			accountID: "acct1",
			itemID:    "item1",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req model.BidRequest) (model.BidOutcome, error) {
						return committed(req, 1, false), nil
					})
				pub.EXPECT().Publish(gomock.Any()).Times(1)
			},
		},
		{
			name:      "closing_bid",
			accountID: "acct1",
			itemID:    "item1",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req model.BidRequest) (model.BidOutcome, error) {
						return committed(req, 3, true), nil
					})
				pub.EXPECT().Publish(gomock.Any()).Times(1)
			},
			expectClosed: true,
		},
		{
			name:          "empty_accountID",
			accountID:     "",
			itemID:        "item1",
			mockSetup:     func(*repository.MockLedgerStore, *MockPublisher) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "empty_itemID",
			accountID:     "acct1",
			itemID:        " ",
			mockSetup:     func(*repository.MockLedgerStore, *MockPublisher) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:      "insufficient_credits",
			accountID: "acct1",
			itemID:    "item1",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					Return(model.BidOutcome{}, biddingerrors.ErrInsufficientCredits)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrInsufficientCredits,
		},
		{
			name:      "item_closed",
			accountID: "acct1",
			itemID:    "item1",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					Return(model.BidOutcome{}, biddingerrors.ErrItemClosed)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrItemClosed,
		},
		{
			name:      "item_not_found",
			accountID: "acct1",
			itemID:    "itemX",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					Return(model.BidOutcome{}, fmt.Errorf("append: %w", biddingerrors.ErrItemNotFound))
			},
			expectError:   true,
			expectedError: biddingerrors.ErrNotFound,
		},
		{
			name:      "lock_timeout",
			accountID: "acct1",
			itemID:    "item1",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					Return(model.BidOutcome{}, biddingerrors.ErrLockTimeout)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrLockTimeout,
		},
		{
			name:      "repo_fails",
			accountID: "acct1",
			itemID:    "item1",
			mockSetup: func(repo *repository.MockLedgerStore, pub *MockPublisher) {
				repo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
					Return(model.BidOutcome{}, fmt.Errorf("commit: %w: %w", biddingerrors.ErrInternalStore, errors.New("disk full")))
			},
			expectError:   true,
			expectedError: biddingerrors.ErrInternalStore,
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Run tests concurrently

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := repository.NewMockLedgerStore(ctrl)
			mockPub := NewMockPublisher(ctrl)
			service := NewBiddingService(mockRepo, WithPublisher(mockPub), WithBidCost(2))

			tc.mockSetup(mockRepo, mockPub)

			outcome, err := service.PlaceBid(context.Background(), tc.accountID, tc.itemID)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				return
			}
			require.NoError(t, err)

			// Validate generated BidID
			_, parseErr := uuid.Parse(outcome.Record.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")

			require.Equal(t, tc.itemID, outcome.Record.ItemID)
			require.Equal(t, tc.accountID, outcome.Record.AccountID)
			require.EqualValues(t, 2, outcome.Record.Cost, "cost is the configured constant")
			require.WithinDuration(t, now, outcome.Record.CreatedAt, 2*time.Second)
			require.Equal(t, tc.expectClosed, outcome.Closed)
			if tc.expectClosed {
				require.Equal(t, tc.accountID, outcome.WinnerAccountID)
			}
		})
	}
}

func TestBiddingService_PlaceBid_CancelledBeforeSubmit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no ledger call is expected
	mockRepo := repository.NewMockLedgerStore(ctrl)
	service := NewBiddingService(mockRepo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.PlaceBid(ctx, "acct1", "item1")
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, biddingerrors.Retryable(err))
}

func TestBiddingService_PlaceBid_CommitSurvivesCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockLedgerStore(ctrl)
	mockPub := NewMockPublisher(ctrl)
	service := NewBiddingService(mockRepo, WithPublisher(mockPub))

	ctx, cancel := context.WithCancel(context.Background())

	// the caller goes away right as the ledger commits
	mockRepo.EXPECT().AppendBidAtomic(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req model.BidRequest) (model.BidOutcome, error) {
			cancel()
			return model.BidOutcome{Record: model.BidRecord{BidID: req.BidID, ItemID: req.ItemID, AccountID: req.AccountID, Seq: 1}, NewBidCount: 1}, nil
		})
	mockPub.EXPECT().Publish(gomock.Any()).Times(1)

	outcome, err := service.PlaceBid(ctx, "acct1", "item1")
	require.NoError(t, err)
	require.EqualValues(t, 1, outcome.NewBidCount)
}

// panicPublisher stands in for a broken notifier
type panicPublisher struct{}

func (panicPublisher) Publish(model.BidOutcome) { panic("subscriber exploded") }

func TestBiddingService_PlaceBid_PublisherFailureKeepsBid(t *testing.T) {
	repo := repository.NewMemoryRepo()
	require.NoError(t, repository.Seed(context.Background(), repo,
		[]model.Account{{AccountID: "acct1", CreditBalance: 1}},
		[]model.Item{{ItemID: "item1", Threshold: 5}},
	))
	service := NewBiddingService(repo, WithPublisher(panicPublisher{}))

	outcome, err := service.PlaceBid(context.Background(), "acct1", "item1")
	require.NoError(t, err)
	require.EqualValues(t, 1, outcome.NewBidCount)

	item, err := repo.ReadItem(context.Background(), "item1")
	require.NoError(t, err)
	require.EqualValues(t, 1, item.BidCount)
}

// Scenario tests against the in-memory ledger
func newSeededService(t *testing.T, accounts []model.Account, items []model.Item) (*BiddingService, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repository.Seed(context.Background(), repo, accounts, items))
	return NewBiddingService(repo), repo
}

func TestBiddingService_ThreeBiddersCloseItem(t *testing.T) {
	t.Parallel()

	service, repo := newSeededService(t,
		[]model.Account{{AccountID: "a", CreditBalance: 5}, {AccountID: "b", CreditBalance: 5}, {AccountID: "c", CreditBalance: 5}},
		[]model.Item{{ItemID: "item1", Threshold: 3}},
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []model.BidOutcome
	)
	for _, acct := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(acct string) {
			defer wg.Done()
			out, err := service.PlaceBid(context.Background(), acct, "item1")
			require.NoError(t, err)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
		}(acct)
	}
	wg.Wait()

	counts := map[int64]bool{}
	closedCount := 0
	var closer string
	for _, out := range outcomes {
		counts[out.NewBidCount] = true
		if out.Closed {
			closedCount++
			closer = out.Record.AccountID
			require.EqualValues(t, 3, out.NewBidCount)
		}
	}
	require.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, counts)
	require.Equal(t, 1, closedCount, "exactly one closing response")

	item, err := repo.ReadItem(context.Background(), "item1")
	require.NoError(t, err)
	require.EqualValues(t, 3, item.BidCount)
	require.Equal(t, model.ItemClosed, item.Status)
	require.Equal(t, closer, item.WinnerAccountID)
}

func TestBiddingService_ZeroBalanceRejected(t *testing.T) {
	t.Parallel()

	service, repo := newSeededService(t,
		[]model.Account{{AccountID: "broke", CreditBalance: 0}},
		[]model.Item{{ItemID: "item1", Threshold: 3}},
	)

	_, err := service.PlaceBid(context.Background(), "broke", "item1")
	require.ErrorIs(t, err, biddingerrors.ErrInsufficientCredits)
	require.Equal(t, biddingerrors.CodeInsufficientCredits, biddingerrors.Code(err))

	acct, _ := repo.ReadAccount(context.Background(), "broke")
	require.Zero(t, acct.CreditBalance)
	item, _ := repo.ReadItem(context.Background(), "item1")
	require.Zero(t, item.BidCount)
	require.Equal(t, model.ItemOpen, item.Status)
}

func TestBiddingService_ClosedItemRejected(t *testing.T) {
	t.Parallel()

	service, repo := newSeededService(t,
		[]model.Account{{AccountID: "winner", CreditBalance: 5}, {AccountID: "late", CreditBalance: 5}},
		[]model.Item{{ItemID: "item1", Threshold: 1}},
	)

	out, err := service.PlaceBid(context.Background(), "winner", "item1")
	require.NoError(t, err)
	require.True(t, out.Closed)

	_, err = service.PlaceBid(context.Background(), "late", "item1")
	require.ErrorIs(t, err, biddingerrors.ErrItemClosed)

	acct, _ := repo.ReadAccount(context.Background(), "late")
	require.EqualValues(t, 5, acct.CreditBalance, "no debit on a closed item")
	bids, err := service.GetBidsForItem(context.Background(), "item1")
	require.NoError(t, err)
	require.Len(t, bids, 1, "no bid record appended")
	require.Equal(t, "winner", bids[0].AccountID)
}

func TestBiddingService_ManyConcurrentBidders(t *testing.T) {
	t.Parallel()

	const (
		bidders   = 100
		threshold = 25
	)
	accounts := make([]model.Account, 0, bidders)
	for i := 0; i < bidders; i++ {
		accounts = append(accounts, model.Account{AccountID: fmt.Sprintf("acct-%d", i), CreditBalance: 1})
	}
	service, repo := newSeededService(t, accounts, []model.Item{{ItemID: "hot", Threshold: threshold}})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		closing  int
		rejected int
	)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := PlaceBidWithRetry(context.Background(), service, fmt.Sprintf("acct-%d", i), "hot", DefaultRetryPolicy())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				require.ErrorIs(t, err, biddingerrors.ErrItemClosed)
				rejected++
				return
			}
			accepted++
			if out.Closed {
				closing++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, threshold, accepted)
	require.Equal(t, 1, closing)
	require.Equal(t, bidders-threshold, rejected)

	item, err := repo.ReadItem(context.Background(), "hot")
	require.NoError(t, err)
	require.EqualValues(t, threshold, item.BidCount)
	require.Equal(t, model.ItemClosed, item.Status)
}

// Tests OpenAccount
func TestBiddingService_OpenAccount(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	service := NewBiddingService(repo, WithStartingBalance(25))

	acct, err := service.OpenAccount(context.Background(), "newbie")
	require.NoError(t, err)
	require.EqualValues(t, 25, acct.CreditBalance)

	stored, err := service.GetAccount(context.Background(), "newbie")
	require.NoError(t, err)
	require.EqualValues(t, 25, stored.CreditBalance)

	_, err = service.OpenAccount(context.Background(), "newbie")
	require.ErrorIs(t, err, biddingerrors.ErrAlreadyExists)

	_, err = service.OpenAccount(context.Background(), "")
	require.ErrorIs(t, err, biddingerrors.ErrInvalidAccount)
}

// Tests the read paths
func TestBiddingService_Reads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockLedgerStore(ctrl)
	service := NewBiddingService(mockRepo)
	ctx := context.Background()

	tests := []struct {
		name          string
		call          func() error
		mockSetup     func()
		expectedError error
	}{
		{
			name: "get_item",
			mockSetup: func() {
				mockRepo.EXPECT().ReadItem(gomock.Any(), "item1").Return(model.Item{ItemID: "item1", Threshold: 3}, nil)
			},
			call: func() error {
				item, err := service.GetItem(ctx, "item1")
				if err == nil && item.ItemID != "item1" {
					return errors.New("wrong item")
				}
				return err
			},
		},
		{
			name:          "get_item_empty_id",
			mockSetup:     func() {},
			call:          func() error { _, err := service.GetItem(ctx, ""); return err },
			expectedError: biddingerrors.ErrInvalidItem,
		},
		{
			name: "get_item_not_found",
			mockSetup: func() {
				mockRepo.EXPECT().ReadItem(gomock.Any(), "nope").Return(model.Item{}, biddingerrors.ErrItemNotFound)
			},
			call:          func() error { _, err := service.GetItem(ctx, "nope"); return err },
			expectedError: biddingerrors.ErrNotFound,
		},
		{
			name: "get_account_not_found",
			mockSetup: func() {
				mockRepo.EXPECT().ReadAccount(gomock.Any(), "nope").Return(model.Account{}, biddingerrors.ErrAccountNotFound)
			},
			call:          func() error { _, err := service.GetAccount(ctx, "nope"); return err },
			expectedError: biddingerrors.ErrAccountNotFound,
		},
		{
			name:          "get_account_empty_id",
			mockSetup:     func() {},
			call:          func() error { _, err := service.GetAccount(ctx, ""); return err },
			expectedError: biddingerrors.ErrInvalidAccount,
		},
		{
			name: "get_bids",
			mockSetup: func() {
				mockRepo.EXPECT().ListBids(gomock.Any(), "item1", int64(0)).Return([]model.BidRecord{{Seq: 1}}, nil)
			},
			call: func() error { _, err := service.GetBidsForItem(ctx, "item1"); return err },
		},
		{
			name:          "get_bids_empty_id",
			mockSetup:     func() {},
			call:          func() error { _, err := service.GetBidsForItem(ctx, ""); return err },
			expectedError: biddingerrors.ErrInvalidItem,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()
			err := tc.call()
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}
