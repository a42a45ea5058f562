package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"bidding-ledger/internal/biddingerrors"

	"github.com/stretchr/testify/require"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"item_not_found", fmt.Errorf("service: %w", biddingerrors.ErrItemNotFound), http.StatusNotFound, "item not found"},
		{"account_not_found", biddingerrors.ErrAccountNotFound, http.StatusNotFound, "account not found"},
		{"invalid_bid", biddingerrors.ErrInvalidBid, http.StatusBadRequest, "invalid request details"},
		{"insufficient_credits", biddingerrors.ErrInsufficientCredits, http.StatusConflict, "insufficient credits"},
		{"item_closed", biddingerrors.ErrItemClosed, http.StatusConflict, "item closed"},
		{"already_exists", biddingerrors.ErrAlreadyExists, http.StatusConflict, "already exists"},
		{"lock_timeout", fmt.Errorf("ledger: %w", biddingerrors.ErrLockTimeout), http.StatusServiceUnavailable, "bid contention, retry later"},
		{"internal", biddingerrors.ErrInternalStore, http.StatusInternalServerError, "internal server error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, msg := MapErrorToHTTP(tc.err)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantMsg, msg)
		})
	}
}
