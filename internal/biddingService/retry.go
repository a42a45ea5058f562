package bidding

import (
	"bidding-ledger/internal/biddingerrors"
	"bidding-ledger/internal/models"
	"bidding-ledger/utils"
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how a caller resubmits a bid that hit contention
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used by the HTTP layer
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// PlaceBidWithRetry resubmits a bid only while it fails with a lock timeout,
// which guarantees nothing was applied. Every other error is final.
func PlaceBidWithRetry(ctx context.Context, placer BidPlacer, accountID, itemID string, policy RetryPolicy) (models.BidOutcome, error) {
	if policy.MaxTries == 0 {
		policy.MaxTries = 1
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	attempt := 0
	operation := func() (models.BidOutcome, error) {
		attempt++
		outcome, err := placer.PlaceBid(ctx, accountID, itemID)
		if err == nil {
			return outcome, nil
		}
		if !biddingerrors.Retryable(err) || ctx.Err() != nil {
			return models.BidOutcome{}, backoff.Permanent(err)
		}
		utils.Warn("bid hit contention, retrying", map[string]any{
			"item_id":    itemID,
			"account_id": accountID,
			"attempt":    attempt,
			"error":      err.Error(),
		})
		return models.BidOutcome{}, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxTries),
	)
}
