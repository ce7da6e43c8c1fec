package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"etsy-edge/api/router"
	"etsy-edge/config"
	"etsy-edge/db"
	"etsy-edge/etsy"
	"etsy-edge/logger"
	"etsy-edge/optimizer"
	"etsy-edge/repositories"
	"etsy-edge/services"
	"etsy-edge/usage"
)

func main() {
	config.InitApp()
	logger.InitFromEnv("LOG_LEVEL")
	cfg := config.GetConfig()

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		log.Fatal("failed to initialize MongoDB:", err)
	}

	etsyClient := etsy.New(cfg.Etsy.BaseURL, cfg.RateLimit.EtsyPerMinute)
	tagCache := repositories.NewTagCacheRepository(
		db.Database(),
		time.Duration(cfg.TagCache.TTLMinutes)*time.Minute,
		cfg.TagCache.MaxEntries,
	)
	listingSvc := services.NewListingService(etsyClient, tagCache)

	provider, err := optimizer.New(ctx, cfg.AI.GeminiModel, cfg.AI.RequestsPerMinute)
	if err != nil {
		log.Fatal("failed to initialize AI provider:", err)
	}

	tracker := usage.NewTracker(
		repositories.NewUsageRecordRepository(db.Database()),
		usage.Limits{
			FreeInitial:    cfg.Usage.FreeInitialAudits,
			FreeMonthly:    cfg.Usage.FreeMonthlyAudits,
			PaidMonthlyCap: cfg.Usage.PaidMonthlyCap,
			WarningSteps:   warningSteps(cfg.Usage.WarningSteps),
		},
	)
	optSvc := services.NewOptimizationService(
		tracker,
		provider,
		repositories.NewAILogRepository(db.Database()),
	)

	r := router.New(listingSvc, optSvc)

	corsWrapper := cors.New(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg.Server.AllowedOriginPrefixes),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Install-Id", "X-Tier", "X-Request-Id"},
		MaxAge:           300,
		AllowCredentials: false,
	})

	logger.InfoWithFields("starting server", logger.Fields{"addr": cfg.Server.Addr})
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: corsWrapper.Handler(r),
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// allowOrigin admits the extension origins and any configured dev prefixes.
// An empty prefix list admits everything, matching the open worker the
// extension previously talked to.
func allowOrigin(prefixes []string) func(origin string) bool {
	return func(origin string) bool {
		if len(prefixes) == 0 {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	}
}

func warningSteps(steps []config.WarningStep) []usage.WarningStep {
	out := make([]usage.WarningStep, 0, len(steps))
	for _, s := range steps {
		out = append(out, usage.WarningStep{
			Fraction:     s.Fraction,
			Message:      s.Message,
			RevealsLimit: s.RevealsLimit,
		})
	}
	if len(out) == 0 {
		out = usage.DefaultLimits().WarningSteps
	}
	return out
}
