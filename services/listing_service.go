package services

import (
	"context"
	"sort"
	"strings"

	"etsy-edge/analyzer"
	"etsy-edge/models"
)

// EtsyAPI is the marketplace surface ListingService depends on.
type EtsyAPI interface {
	GetListing(ctx context.Context, listingID string) (*models.EtsyListing, error)
	SearchListings(ctx context.Context, keywords string, limit int) (*models.EtsySearchResult, error)
}

// TagCache stores listing tags between lookups. Nil-safe via the noop below.
type TagCache interface {
	Get(ctx context.Context, listingID string) ([]string, bool, error)
	Put(ctx context.Context, listingID string, tags []string) error
}

// ListingService encapsulates listing lookups, tag caching, local SEO
// scoring and competitor tag analysis.
type ListingService struct {
	api   EtsyAPI
	cache TagCache
}

func NewListingService(api EtsyAPI, cache TagCache) *ListingService {
	if cache == nil {
		cache = noopTagCache{}
	}
	return &ListingService{api: api, cache: cache}
}

func (s *ListingService) GetListing(ctx context.Context, listingID string) (*models.EtsyListing, error) {
	return s.api.GetListing(ctx, listingID)
}

func (s *ListingService) Search(ctx context.Context, keywords string, limit int) (*models.EtsySearchResult, error) {
	return s.api.SearchListings(ctx, keywords, limit)
}

// GetListingTags returns a listing's tags, serving from cache when a fresh
// entry exists. Cache write failures are swallowed; the tags themselves are
// already in hand.
func (s *ListingService) GetListingTags(ctx context.Context, listingID string) ([]string, error) {
	if tags, ok, err := s.cache.Get(ctx, listingID); err == nil && ok {
		return tags, nil
	}

	listing, err := s.api.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Put(ctx, listingID, listing.Tags)
	return listing.Tags, nil
}

// Score runs the local SEO scorer. Pure computation, no upstream calls.
func (s *ListingService) Score(in analyzer.ScoringInput) models.SeoScore {
	return analyzer.Score(in)
}

const (
	defaultCompetitorSample = 10
	maxCompetitorTags       = 20
)

// AnalyzeCompetitors searches a keyword and aggregates how often each tag
// appears across the top results. Search results already carry tags, so this
// costs one API call regardless of sample size.
func (s *ListingService) AnalyzeCompetitors(ctx context.Context, keyword string, sample int) (*models.CompetitorAnalysis, error) {
	if sample <= 0 {
		sample = defaultCompetitorSample
	}
	result, err := s.api.SearchListings(ctx, keyword, sample)
	if err != nil {
		return nil, err
	}

	listings := result.Results
	if len(listings) > sample {
		listings = listings[:sample]
	}

	counts := make(map[string]int)
	for _, l := range listings {
		seen := make(map[string]struct{}, len(l.Tags))
		for _, tag := range l.Tags {
			key := strings.ToLower(strings.TrimSpace(tag))
			if key == "" {
				continue
			}
			// Count each tag once per listing.
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counts[key]++
		}
	}

	analyzed := len(listings)
	tags := make([]models.TagFrequency, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, models.TagFrequency{
			Tag:        tag,
			Count:      count,
			Percentage: count * 100 / analyzed,
		})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if len(tags) > maxCompetitorTags {
		tags = tags[:maxCompetitorTags]
	}

	return &models.CompetitorAnalysis{
		Keyword:          keyword,
		ListingsAnalyzed: analyzed,
		Tags:             tags,
	}, nil
}

type noopTagCache struct{}

func (noopTagCache) Get(context.Context, string) ([]string, bool, error) { return nil, false, nil }
func (noopTagCache) Put(context.Context, string, []string) error        { return nil }
