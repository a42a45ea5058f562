package helpers

// Request/Response DTOs
type PlaceBidRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	ItemID    string `json:"item_id" binding:"required"`
}

type OpenAccountRequest struct {
	AccountID string `json:"account_id" binding:"required"`
}

// BidResultResponse is the structured outcome of a bid submission
type BidResultResponse struct {
	Success         bool   `json:"success"`
	ErrorCode       string `json:"error_code,omitempty"`
	BidID           string `json:"bid_id,omitempty"`
	NewBidCount     *int64 `json:"new_bid_count,omitempty"`
	Closed          *bool  `json:"closed,omitempty"`
	WinnerAccountID string `json:"winner_account_id,omitempty"`
	CreditBalance   *int64 `json:"credit_balance,omitempty"`
}

type AccountResponse struct {
	AccountID     string `json:"account_id"`
	CreditBalance int64  `json:"credit_balance"`
	CreatedAt     string `json:"created_at"`
}

type ItemResponse struct {
	ItemID          string `json:"item_id"`
	Title           string `json:"title"`
	BidCount        int64  `json:"bid_count"`
	Threshold       int64  `json:"threshold"`
	Status          string `json:"status"`
	WinnerAccountID string `json:"winner_account_id,omitempty"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AccountID string `json:"account_id"`
	ItemID    string `json:"item_id"`
	Cost      int64  `json:"cost"`
	Seq       int64  `json:"sequence_number"`
	CreatedAt string `json:"created_at"`
}
