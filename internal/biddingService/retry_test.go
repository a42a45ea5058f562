package bidding

import (
	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestPlaceBidWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	timeout := fmt.Errorf("ledger: %w", biddingerrors.ErrLockTimeout)

	tests := []struct {
		name          string
		mockSetup     func(m *MockBidPlacer)
		expectedError error
	}{
		{
			name: "first_try_succeeds",
			mockSetup: func(m *MockBidPlacer) {
				m.EXPECT().PlaceBid(gomock.Any(), "acct1", "item1").Return(model.BidOutcome{NewBidCount: 1}, nil).Times(1)
			},
		},
		{
			name: "succeeds_after_contention",
			mockSetup: func(m *MockBidPlacer) {
				gomock.InOrder(
					m.EXPECT().PlaceBid(gomock.Any(), "acct1", "item1").Return(model.BidOutcome{}, timeout),
					m.EXPECT().PlaceBid(gomock.Any(), "acct1", "item1").Return(model.BidOutcome{NewBidCount: 1}, nil),
				)
			},
		},
		{
			name: "gives_up_after_max_tries",
			mockSetup: func(m *MockBidPlacer) {
				m.EXPECT().PlaceBid(gomock.Any(), "acct1", "item1").Return(model.BidOutcome{}, timeout).Times(3)
			},
			expectedError: biddingerrors.ErrLockTimeout,
		},
		{
			name: "rejection_is_not_retried",
			mockSetup: func(m *MockBidPlacer) {
				m.EXPECT().PlaceBid(gomock.Any(), "acct1", "item1").Return(model.BidOutcome{}, biddingerrors.ErrItemClosed).Times(1)
			},
			expectedError: biddingerrors.ErrItemClosed,
		},
		{
			name: "internal_error_is_not_retried",
			mockSetup: func(m *MockBidPlacer) {
				m.EXPECT().PlaceBid(gomock.Any(), "acct1", "item1").Return(model.BidOutcome{}, biddingerrors.ErrInternalStore).Times(1)
			},
			expectedError: biddingerrors.ErrInternalStore,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			placer := NewMockBidPlacer(ctrl)
			tc.mockSetup(placer)

			out, err := PlaceBidWithRetry(context.Background(), placer, "acct1", "item1", policy)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.EqualValues(t, 1, out.NewBidCount)
		})
	}
}
