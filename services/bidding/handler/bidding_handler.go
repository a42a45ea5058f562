package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	bidding "bidding-ledger/internal/biddingService"
	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
	"bidding-ledger/internal/registry"
	"bidding-ledger/services/bidding/helpers"
	"bidding-ledger/utils"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, accountID, itemID string) (model.BidOutcome, error)
	OpenAccount(ctx context.Context, accountID string) (model.Account, error)
	GetAccount(ctx context.Context, accountID string) (model.Account, error)
	GetItem(ctx context.Context, itemID string) (model.Item, error)
	GetBidsForItem(ctx context.Context, itemID string) ([]model.BidRecord, error)
}

// SubscriptionInterface opens change streams that start with a snapshot
type SubscriptionInterface interface {
	SubscribeItem(ctx context.Context, itemID string) (*registry.ItemSubscription, error)
	SubscribeAccount(ctx context.Context, accountID string) (*registry.AccountSubscription, error)
}

type Option func(*BiddingHandler)

// WithRetryPolicy sets how bids that hit lock contention are resubmitted
func WithRetryPolicy(policy bidding.RetryPolicy) Option {
	return func(h *BiddingHandler) {
		h.retry = policy
	}
}

type BiddingHandler struct {
	service BiddingServiceInterface
	subs    SubscriptionInterface
	retry   bidding.RetryPolicy
}

func NewBiddingHandler(service BiddingServiceInterface, subs SubscriptionInterface, opts ...Option) *BiddingHandler {
	h := &BiddingHandler{
		service: service,
		subs:    subs,
		retry:   bidding.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	outcome, err := bidding.PlaceBidWithRetry(c.Request.Context(), h.service, req.AccountID, req.ItemID, h.retry)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		rejected := helpers.BidResultResponse{Success: false, ErrorCode: biddingerrors.Code(err)}
		utils.JSONErrorWithData(c, status, fmt.Errorf("%s: %w", message, err), rejected, message)

		fields := map[string]any{
			"handler":    "RecordBidHandler",
			"item_id":    req.ItemID,
			"account_id": req.AccountID,
			"error_code": rejected.ErrorCode,
			"error":      err.Error(),
		}
		if status >= http.StatusInternalServerError {
			utils.Error("RecordBidHandler: failed to record bid", fields)
		} else {
			utils.Info("RecordBidHandler: bid rejected", fields)
		}
		return
	}

	resp := helpers.BidResultResponse{
		Success:         true,
		BidID:           outcome.Record.BidID,
		NewBidCount:     &outcome.NewBidCount,
		Closed:          &outcome.Closed,
		WinnerAccountID: outcome.WinnerAccountID,
		CreditBalance:   &outcome.NewBalance,
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid accepted")
	helpers.LogSuccess("RecordBidHandler", "bid accepted", map[string]any{
		"bid_id":        outcome.Record.BidID,
		"item_id":       req.ItemID,
		"account_id":    req.AccountID,
		"new_bid_count": outcome.NewBidCount,
		"closed":        outcome.Closed,
	})
}

// OpenAccountHandler handles POST /accounts
func (h *BiddingHandler) OpenAccountHandler(c *gin.Context) {
	var req helpers.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "OpenAccountHandler", err)
		return
	}

	account, err := h.service.OpenAccount(c.Request.Context(), req.AccountID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("OpenAccountHandler: failed to open account", map[string]any{"account_id": req.AccountID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, accountResponse(account), "account opened successfully")
	helpers.LogSuccess("OpenAccountHandler", "account opened successfully", map[string]any{
		"account_id":     account.AccountID,
		"credit_balance": account.CreditBalance,
	})
}

// GetAccountHandler handles GET /accounts/:account_id
func (h *BiddingHandler) GetAccountHandler(c *gin.Context) {
	accountID := c.Param("account_id")
	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAccountHandler: error retrieving account", map[string]any{"account_id": accountID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, accountResponse(account), "account retrieved successfully")
}

// GetItemHandler handles GET /items/:item_id
func (h *BiddingHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetItemHandler: error retrieving item", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	resp := helpers.ItemResponse{
		ItemID:          item.ItemID,
		Title:           item.Title,
		BidCount:        item.BidCount,
		Threshold:       item.Threshold,
		Status:          string(item.Status),
		WinnerAccountID: item.WinnerAccountID,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "item retrieved successfully")
}

// GetBidsByItemHandler handles GET /items/:item_id/bids
func (h *BiddingHandler) GetBidsByItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bids, err := h.service.GetBidsForItem(c.Request.Context(), itemID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsByItemHandler: error retrieving bids", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, bid := range bids {
		resp = append(resp, helpers.BidResponse{
			BidID:     bid.BidID,
			AccountID: bid.AccountID,
			ItemID:    bid.ItemID,
			Cost:      bid.Cost,
			Seq:       bid.Seq,
			CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByItemHandler", "bids retrieved successfully", map[string]any{
		"item_id": itemID,
		"count":   len(resp),
	})
}

// StreamItemHandler handles GET /items/:item_id/stream
func (h *BiddingHandler) StreamItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	sub, err := h.subs.SubscribeItem(c.Request.Context(), itemID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("StreamItemHandler: subscribe failed", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}
	defer sub.Close()

	utils.Debug("StreamItemHandler: subscriber attached", map[string]any{"item_id": itemID})
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				endStream(c, sub.Err())
				return false
			}
			c.Render(-1, sse.Event{
				Id:    strconv.FormatInt(ev.Seq, 10),
				Event: string(ev.Type),
				Data:  ev,
			})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
	utils.Debug("StreamItemHandler: subscriber detached", map[string]any{"item_id": itemID})
}

// StreamAccountHandler handles GET /accounts/:account_id/stream
func (h *BiddingHandler) StreamAccountHandler(c *gin.Context) {
	accountID := c.Param("account_id")
	sub, err := h.subs.SubscribeAccount(c.Request.Context(), accountID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("StreamAccountHandler: subscribe failed", map[string]any{"account_id": accountID, "error": err.Error()})
		return
	}
	defer sub.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				endStream(c, sub.Err())
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// endStream tells the client why the server stopped sending
func endStream(c *gin.Context, err error) {
	if err == nil {
		return
	}
	c.SSEvent("error", gin.H{"error_code": biddingerrors.Code(err), "error": err.Error()})
	utils.Warn("stream ended by server", map[string]any{"path": c.Request.URL.Path, "error": err.Error()})
}

func accountResponse(account model.Account) helpers.AccountResponse {
	return helpers.AccountResponse{
		AccountID:     account.AccountID,
		CreditBalance: account.CreditBalance,
		CreatedAt:     account.CreatedAt.UTC().Format(time.RFC3339),
	}
}
