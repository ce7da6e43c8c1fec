package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"etsy-edge/logger"
	"etsy-edge/models"
	"etsy-edge/optimizer"
	"etsy-edge/parser"
	"etsy-edge/usage"
)

// ErrRequestInFlight is returned when an install already has a metered AI
// call running; the client should wait for it instead of racing a second one.
var ErrRequestInFlight = errors.New("an optimization request is already in flight for this install")

// UsageExceededError carries the decision so handlers can render the
// "X of Y used" state alongside the refusal.
type UsageExceededError struct {
	Decision usage.Decision
	Tier     usage.Tier
}

func (e *UsageExceededError) Error() string {
	return "usage limit reached"
}

// Provider is the AI backend the service calls. Satisfied by
// optimizer.Optimizer.
type Provider interface {
	OptimizeListing(ctx context.Context, req optimizer.OptimizeRequest) (*optimizer.CallResult, error)
	SuggestTags(ctx context.Context, req optimizer.SuggestTagsRequest) (*optimizer.CallResult, error)
}

// AILogSink records provider calls for monitoring. Satisfied by
// repositories.AILogRepository; nil disables logging.
type AILogSink interface {
	Insert(ctx context.Context, log models.AILog) (*mongo.InsertOneResult, error)
}

// OptimizationService gates AI calls behind the usage policy, parses
// provider output into typed results and charges usage only after the whole
// pipeline succeeded. One metered call per install may be in flight at a
// time, which keeps the policy's read-modify-write free of same-install
// races.
type OptimizationService struct {
	tracker  *usage.Tracker
	provider Provider
	logs     AILogSink
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewOptimizationService(tracker *usage.Tracker, provider Provider, logs AILogSink) *OptimizationService {
	return &OptimizationService{
		tracker:  tracker,
		provider: provider,
		logs:     logs,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// CheckUsage reports the current decision without charging anything.
func (s *OptimizationService) CheckUsage(ctx context.Context, installID string, tier usage.Tier) (usage.Decision, error) {
	return s.tracker.Check(ctx, installID, tier, s.now())
}

// Optimize runs the full metered pipeline: usage gate, provider call, parse,
// then record. A provider or parse failure never charges the user.
func (s *OptimizationService) Optimize(ctx context.Context, installID string, tier usage.Tier, req optimizer.OptimizeRequest) (*models.AiOptimization, usage.Decision, error) {
	var out *models.AiOptimization
	decision, err := s.metered(ctx, installID, tier, "optimize-listing", func(ctx context.Context) (*optimizer.CallResult, error) {
		call, err := s.provider.OptimizeListing(ctx, req)
		if err != nil {
			return call, err
		}
		parsed, err := parser.ParseOptimization(call.Content)
		if err != nil {
			return call, err
		}
		out = parsed
		return call, nil
	})
	return out, decision, err
}

// SuggestTags runs the tag-only metered pipeline.
func (s *OptimizationService) SuggestTags(ctx context.Context, installID string, tier usage.Tier, req optimizer.SuggestTagsRequest) ([]models.TagSuggestion, usage.Decision, error) {
	var out []models.TagSuggestion
	decision, err := s.metered(ctx, installID, tier, "suggest-tags", func(ctx context.Context) (*optimizer.CallResult, error) {
		call, err := s.provider.SuggestTags(ctx, req)
		if err != nil {
			return call, err
		}
		parsed, err := parser.ParseTagSuggestions(call.Content)
		if err != nil {
			return call, err
		}
		out = parsed
		return call, nil
	})
	return out, decision, err
}

// metered wraps one provider call with the single-flight guard, the usage
// gate and post-success accounting. The returned decision reflects the state
// after the call, so callers can render the updated counter.
func (s *OptimizationService) metered(ctx context.Context, installID string, tier usage.Tier, endpoint string, call func(context.Context) (*optimizer.CallResult, error)) (usage.Decision, error) {
	if !s.acquire(installID) {
		return usage.Decision{}, ErrRequestInFlight
	}
	defer s.release(installID)

	decision, err := s.tracker.Check(ctx, installID, tier, s.now())
	if err != nil {
		return usage.Decision{}, err
	}
	if !decision.Allowed {
		return decision, &UsageExceededError{Decision: decision, Tier: tier}
	}

	requestedAt := s.now()
	result, callErr := call(ctx)
	s.logCall(ctx, installID, endpoint, requestedAt, result, callErr)
	if callErr != nil {
		return decision, callErr
	}

	if err := s.tracker.Record(ctx, installID, tier, s.now()); err != nil {
		// The user got their result; a failed charge is logged, not surfaced.
		logger.ErrorWithFields("failed to record usage", logger.Fields{
			"install_id": installID,
			"error":      err.Error(),
		})
	}

	after, err := s.tracker.Check(ctx, installID, tier, s.now())
	if err != nil {
		return decision, nil
	}
	return after, nil
}

func (s *OptimizationService) acquire(installID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[installID]; busy {
		return false
	}
	s.inflight[installID] = struct{}{}
	return true
}

func (s *OptimizationService) release(installID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, installID)
}

const maxResponseExcerpt = 500

func (s *OptimizationService) logCall(ctx context.Context, installID, endpoint string, requestedAt time.Time, result *optimizer.CallResult, callErr error) {
	if s.logs == nil {
		return
	}

	entry := models.AILog{
		EventID:     uuid.NewString(),
		InstallID:   installID,
		Endpoint:    endpoint,
		Success:     callErr == nil,
		RequestedAt: requestedAt,
		CompletedAt: s.now(),
	}
	if result != nil {
		entry.ModelName = result.ModelName
		entry.ModelVersion = result.ModelVersion
		entry.InputTokens = result.InputTokens
		entry.OutputTokens = result.OutputTokens
		entry.TotalTokens = result.TotalTokens
		entry.DurationMs = result.DurationMs
		entry.ResponseExcerpt = truncateExcerpt(result.Content)
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}

	if _, err := s.logs.Insert(ctx, entry); err != nil {
		logger.WarnWithFields("failed to insert ai log", logger.Fields{
			"install_id": installID,
			"endpoint":   endpoint,
			"error":      err.Error(),
		})
	}
}

func truncateExcerpt(s string) string {
	if len(s) <= maxResponseExcerpt {
		return s
	}
	return s[:maxResponseExcerpt]
}
