package server

import (
	bidding "bidding-ledger/internal/biddingService"
	"bidding-ledger/internal/notifier"
	handler "bidding-ledger/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService *bidding.BiddingService, changes *notifier.Notifier, retry bidding.RetryPolicy) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestIDMiddleware)     // correlate logs per request
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService, changes, handler.WithRetryPolicy(retry))

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
	}

	accounts := router.Group("/accounts")
	{
		accounts.POST("", biddingHandler.OpenAccountHandler)
		accounts.GET("/:account_id", biddingHandler.GetAccountHandler)
		accounts.GET("/:account_id/stream", biddingHandler.StreamAccountHandler)
	}

	items := router.Group("/items")
	{
		items.GET("/:item_id", biddingHandler.GetItemHandler)
		items.GET("/:item_id/bids", biddingHandler.GetBidsByItemHandler)
		items.GET("/:item_id/stream", biddingHandler.StreamItemHandler)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}
