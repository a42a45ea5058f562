package bidding

import (
	"bidding-ledger/internal/models"
	"context"
)

//go:generate mockgen -source=interfaces.go -destination=mock_interfaces.go -package=bidding

// Publisher receives every committed bid for fan-out to subscribers
type Publisher interface {
	Publish(outcome models.BidOutcome)
}

// BidPlacer submits a single bid
type BidPlacer interface {
	PlaceBid(ctx context.Context, accountID, itemID string) (models.BidOutcome, error)
}
