package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"etsy-edge/analyzer"
	"etsy-edge/etsy"
	"etsy-edge/models"
	"etsy-edge/optimizer"
	"etsy-edge/parser"
	"etsy-edge/services"
	"etsy-edge/usage"
)

const (
	headerInstallID = "X-Install-Id"
	headerTier      = "X-Tier"
)

// installID identifies the calling extension install. Installs without the
// header (old clients) fall back to the user query param, then the client IP.
func installID(c *gin.Context) string {
	if id := c.GetHeader(headerInstallID); id != "" {
		return id
	}
	if id := c.Query("user"); id != "" {
		return id
	}
	return c.ClientIP()
}

// tier is client-asserted; the paid flag only widens the silent safety cap,
// so a spoofed header buys nothing that costs us money beyond that cap.
func tier(c *gin.Context) usage.Tier {
	if c.GetHeader(headerTier) == string(usage.TierPaid) || c.Query("tier") == string(usage.TierPaid) {
		return usage.TierPaid
	}
	return usage.TierFree
}

// ScoreRequest is the scoring input scraped from a listing page. Callers
// either send the structured fields or raw page HTML; when HTML is present
// the fields are extracted server-side.
type ScoreRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	RelatedSearches []string `json:"relatedSearches"`
	URL             string   `json:"url"`
	HTML            string   `json:"html"`
}

// ScoreHandler runs the local SEO scorer. No upstream calls, no metering.
func ScoreHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		in := analyzer.ScoringInput{
			Title:           req.Title,
			Description:     req.Description,
			RelatedSearches: req.RelatedSearches,
		}
		if req.HTML != "" {
			page, err := parser.ParseListingPage(req.URL, req.HTML)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not parse listing HTML"})
				return
			}
			in.Title = page.Title
			in.Description = page.Description
			in.RelatedSearches = page.RelatedSearches
		}

		c.JSON(http.StatusOK, svc.Score(in))
	}
}

// UsageHandler reports the caller's current usage decision without charging.
func UsageHandler(svc *services.OptimizationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.CheckUsage(c.Request.Context(), installID(c), tier(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// SearchListingsHandler proxies an active-listing keyword search.
func SearchListingsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		keywords := c.Query("keyword")
		if keywords == "" {
			keywords = c.Query("q")
		}
		if keywords == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keyword query parameter is required"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

		result, err := svc.Search(c.Request.Context(), keywords, limit)
		if err != nil {
			writeEtsyError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetListingHandler proxies a single listing lookup.
func GetListingHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, err := svc.GetListing(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeEtsyError(c, err)
			return
		}
		c.JSON(http.StatusOK, listing)
	}
}

// GetListingTagsHandler returns a listing's tags, cache-first.
func GetListingTagsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tags, err := svc.GetListingTags(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeEtsyError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"listing_id": c.Param("id"), "tags": tags})
	}
}

// CompetitorAnalyzeRequest names the keyword to analyze and how many top
// results to sample.
type CompetitorAnalyzeRequest struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit"`
}

func AnalyzeCompetitorsHandler(svc *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CompetitorAnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Keyword == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
			return
		}
		analysis, err := svc.AnalyzeCompetitors(c.Request.Context(), req.Keyword, req.Limit)
		if err != nil {
			writeEtsyError(c, err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

// OptimizeListingRequest is the full-optimization payload: the listing plus
// the locally computed score so the model sees what is weak.
type OptimizeListingRequest struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Category       string                `json:"category"`
	CurrentTags    []string              `json:"currentTags"`
	ScoreBreakdown models.ScoreBreakdown `json:"scoreBreakdown"`
	CurrentGrade   string                `json:"currentGrade"`
	CurrentScore   int                   `json:"currentScore"`
}

func OptimizeListingHandler(svc *services.OptimizationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OptimizeListingRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		result, decision, err := svc.Optimize(c.Request.Context(), installID(c), tier(c), optimizer.OptimizeRequest{
			Title:        req.Title,
			Description:  req.Description,
			Category:     req.Category,
			CurrentTags:  req.CurrentTags,
			Breakdown:    req.ScoreBreakdown,
			CurrentGrade: req.CurrentGrade,
			CurrentScore: req.CurrentScore,
		})
		if err != nil {
			writeOptimizationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result, "usage": decision})
	}
}

// SuggestTagsRequest is the tag-only payload.
type SuggestTagsRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	CurrentTags    []string `json:"currentTags"`
	CompetitorTags []string `json:"competitorTags"`
}

func SuggestTagsHandler(svc *services.OptimizationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SuggestTagsRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		tags, decision, err := svc.SuggestTags(c.Request.Context(), installID(c), tier(c), optimizer.SuggestTagsRequest{
			Title:          req.Title,
			Description:    req.Description,
			Category:       req.Category,
			CurrentTags:    req.CurrentTags,
			CompetitorTags: req.CompetitorTags,
		})
		if err != nil {
			writeOptimizationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tags": tags, "usage": decision})
	}
}

func writeEtsyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, etsy.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	case errors.Is(err, etsy.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Etsy API rate limit reached. Try again shortly."})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func writeOptimizationError(c *gin.Context, err error) {
	var uerr *services.UsageExceededError
	var perr *parser.ParseError
	switch {
	case errors.As(err, &uerr):
		body := gin.H{"error": "usage limit reached", "usage": uerr.Decision}
		if uerr.Tier == usage.TierFree {
			body["upgrade"] = true
		}
		c.JSON(http.StatusForbidden, body)
	case errors.Is(err, services.ErrRequestInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &perr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI response could not be understood. Please try again."})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
