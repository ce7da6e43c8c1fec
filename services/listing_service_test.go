package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etsy-edge/analyzer"
	"etsy-edge/models"
	"etsy-edge/services"
)

type fakeEtsyAPI struct {
	listings     map[string]*models.EtsyListing
	searchResult *models.EtsySearchResult
	getCalls     int
	searchCalls  int
}

func (f *fakeEtsyAPI) GetListing(_ context.Context, listingID string) (*models.EtsyListing, error) {
	f.getCalls++
	l, ok := f.listings[listingID]
	if !ok {
		return nil, errors.New("not found")
	}
	return l, nil
}

func (f *fakeEtsyAPI) SearchListings(_ context.Context, _ string, _ int) (*models.EtsySearchResult, error) {
	f.searchCalls++
	return f.searchResult, nil
}

type memTagCache struct {
	entries map[string][]string
}

func (c *memTagCache) Get(_ context.Context, listingID string) ([]string, bool, error) {
	tags, ok := c.entries[listingID]
	return tags, ok, nil
}

func (c *memTagCache) Put(_ context.Context, listingID string, tags []string) error {
	c.entries[listingID] = tags
	return nil
}

func TestGetListingTagsServesFromCache(t *testing.T) {
	api := &fakeEtsyAPI{listings: map[string]*models.EtsyListing{
		"42": {ListingID: 42, Tags: []string{"walnut board", "wedding gift"}},
	}}
	cache := &memTagCache{entries: map[string][]string{}}
	svc := services.NewListingService(api, cache)
	ctx := context.Background()

	tags, err := svc.GetListingTags(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"walnut board", "wedding gift"}, tags)
	assert.Equal(t, 1, api.getCalls)

	// Second lookup hits the cache.
	tags, err = svc.GetListingTags(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"walnut board", "wedding gift"}, tags)
	assert.Equal(t, 1, api.getCalls)
}

func TestGetListingTagsNilCache(t *testing.T) {
	api := &fakeEtsyAPI{listings: map[string]*models.EtsyListing{
		"7": {ListingID: 7, Tags: []string{"ceramic mug"}},
	}}
	svc := services.NewListingService(api, nil)

	tags, err := svc.GetListingTags(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"ceramic mug"}, tags)
}

func TestAnalyzeCompetitors(t *testing.T) {
	api := &fakeEtsyAPI{searchResult: &models.EtsySearchResult{
		Count: 4,
		Results: []models.EtsyListing{
			{ListingID: 1, Tags: []string{"Walnut Board", "wedding gift", "walnut board"}},
			{ListingID: 2, Tags: []string{"walnut board", "charcuterie"}},
			{ListingID: 3, Tags: []string{"wedding gift"}},
			{ListingID: 4, Tags: []string{"walnut board", ""}},
		},
	}}
	svc := services.NewListingService(api, nil)

	got, err := svc.AnalyzeCompetitors(context.Background(), "cutting board", 10)
	require.NoError(t, err)

	assert.Equal(t, "cutting board", got.Keyword)
	assert.Equal(t, 4, got.ListingsAnalyzed)
	require.NotEmpty(t, got.Tags)
	// Tags counted once per listing, normalized case-insensitively, sorted by
	// frequency.
	assert.Equal(t, models.TagFrequency{Tag: "walnut board", Count: 3, Percentage: 75}, got.Tags[0])
	assert.Equal(t, models.TagFrequency{Tag: "wedding gift", Count: 2, Percentage: 50}, got.Tags[1])
	assert.Equal(t, models.TagFrequency{Tag: "charcuterie", Count: 1, Percentage: 25}, got.Tags[2])
	assert.Len(t, got.Tags, 3)
}

func TestAnalyzeCompetitorsClampsSample(t *testing.T) {
	var results []models.EtsyListing
	for i := 0; i < 30; i++ {
		results = append(results, models.EtsyListing{ListingID: int64(i), Tags: []string{"common tag"}})
	}
	api := &fakeEtsyAPI{searchResult: &models.EtsySearchResult{Count: 30, Results: results}}
	svc := services.NewListingService(api, nil)

	got, err := svc.AnalyzeCompetitors(context.Background(), "mug", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ListingsAnalyzed)
	assert.Equal(t, 5, got.Tags[0].Count)
	assert.Equal(t, 100, got.Tags[0].Percentage)
}

func TestScoreIsPurePassThrough(t *testing.T) {
	svc := services.NewListingService(&fakeEtsyAPI{}, nil)
	got := svc.Score(analyzer.ScoringInput{Title: "Beautiful Handmade Wooden Box"})
	assert.Contains(t, []string{"D", "F"}, got.Grade)
}
