package models

// EtsyListing mirrors the fields we read from the Etsy Open API v3 listing
// resource.
type EtsyListing struct {
	ListingID   int64    `json:"listing_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Views       int64    `json:"views"`
	NumFavorers int64    `json:"num_favorers"`
	TaxonomyID  int64    `json:"taxonomy_id"`
	State       string   `json:"state"`
	URL         string   `json:"url"`
	ShopID      int64    `json:"shop_id"`
	Quantity    int64    `json:"quantity"`
}

// EtsySearchResult is the Etsy active-listing search response.
type EtsySearchResult struct {
	Count   int64         `json:"count"`
	Results []EtsyListing `json:"results"`
}

// PageListing is listing data extracted from a listing page itself
// (JSON-LD Product block plus scraped related searches), the server-side
// counterpart of what the extension content script collects.
type PageListing struct {
	ListingID       string   `json:"listing_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Price           string   `json:"price"`
	Currency        string   `json:"currency"`
	Rating          string   `json:"rating,omitempty"`
	ReviewCount     string   `json:"review_count,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	RelatedSearches []string `json:"related_searches"`
	Breadcrumbs     []string `json:"breadcrumbs"`
}

// TagFrequency is one row of a competitor tag analysis.
type TagFrequency struct {
	Tag        string `json:"tag"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// CompetitorAnalysis aggregates tag usage across search results for a keyword.
type CompetitorAnalysis struct {
	Keyword          string         `json:"keyword"`
	ListingsAnalyzed int            `json:"listings_analyzed"`
	Tags             []TagFrequency `json:"tags"`
}
