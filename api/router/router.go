package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"etsy-edge/api/handlers"
	"etsy-edge/api/middleware"
	"etsy-edge/config"
	"etsy-edge/db"
	"etsy-edge/services"
)

// New wires the HTTP surface. Marketplace proxy routes share the generous
// etsy rate bucket; AI routes sit behind the tight ai bucket.
func New(listingSvc *services.ListingService, optSvc *services.OptimizationService) *gin.Engine {
	cfg := config.GetConfig()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestTrace())

	limiter := middleware.NewRateLimiter(
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		map[string]int{
			middleware.BucketEtsy: cfg.RateLimit.EtsyPerMinute,
			middleware.BucketAI:   cfg.RateLimit.AIPerMinute,
		},
	)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if db.Database() == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "mongo": "disabled"})
			return
		}
		if err := db.Database().RunCommand(context.Background(), bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// v1 routes
	api := r.Group("/api/v1")
	{
		proxied := api.Group("", limiter.Limit(middleware.BucketEtsy))
		{
			proxied.GET("/listings/search", handlers.SearchListingsHandler(listingSvc))
			proxied.GET("/listings/:id", handlers.GetListingHandler(listingSvc))
			proxied.GET("/listings/:id/tags", handlers.GetListingTagsHandler(listingSvc))
			proxied.POST("/competitors/analyze", handlers.AnalyzeCompetitorsHandler(listingSvc))
			proxied.POST("/score", handlers.ScoreHandler(listingSvc))
			proxied.GET("/usage", handlers.UsageHandler(optSvc))
		}

		ai := api.Group("/ai", limiter.Limit(middleware.BucketAI))
		{
			ai.POST("/optimize-listing", handlers.OptimizeListingHandler(optSvc))
			ai.POST("/suggest-tags", handlers.SuggestTagsHandler(optSvc))
		}
	}

	return r
}
