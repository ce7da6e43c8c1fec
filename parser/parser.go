package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"etsy-edge/models"
)

var (
	listingIDRe  = regexp.MustCompile(`/listing/(\d+)`)
	listingURLRe = regexp.MustCompile(`^https://(www\.)?etsy\.com/listing/\d+`)
)

// ExtractListingID pulls the numeric listing ID out of an Etsy listing URL
// such as /listing/1234567890/some-title. Returns "" when the URL does not
// reference a listing.
func ExtractListingID(url string) string {
	m := listingIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsListingURL reports whether url points at an Etsy listing page.
func IsListingURL(url string) bool {
	return listingURLRe.MatchString(url)
}

// ParseListingPage extracts listing data from raw listing-page HTML: the
// JSON-LD Product block for title, description and offer data, the JSON-LD
// BreadcrumbList for category context, and the related-search links Etsy
// renders at the bottom of the page.
func ParseListingPage(pageURL, htmlStr string) (*models.PageListing, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	out := &models.PageListing{
		ListingID:       ExtractListingID(pageURL),
		RelatedSearches: []string{},
		Breadcrumbs:     []string{},
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				if attr(n, "type") == "application/ld+json" {
					applyJSONLD(out, textContent(n))
				}
			case "a":
				if phrase, ok := relatedSearchPhrase(n); ok {
					out.RelatedSearches = append(out.RelatedSearches, phrase)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out.RelatedSearches = dedupe(out.RelatedSearches)
	return out, nil
}

// jsonLDItem is the loose shape shared by the Product and BreadcrumbList
// blocks; anything unexpected decodes to zero values and is ignored.
type jsonLDItem struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
	Rating      struct {
		RatingValue json.RawMessage `json:"ratingValue"`
		ReviewCount json.RawMessage `json:"reviewCount"`
	} `json:"aggregateRating"`
	ItemList []struct {
		Item struct {
			Name string `json:"name"`
		} `json:"item"`
		Name string `json:"name"`
	} `json:"itemListElement"`
}

func applyJSONLD(out *models.PageListing, payload string) {
	for _, item := range decodeJSONLD(payload) {
		switch item.Type {
		case "Product":
			out.Title = item.Name
			out.Description = item.Description
			out.ImageURL = firstString(item.Image)
			out.Rating = rawNumberString(item.Rating.RatingValue)
			out.ReviewCount = rawNumberString(item.Rating.ReviewCount)
			out.Price, out.Currency = offerPrice(item.Offers)
			if out.Currency == "" {
				out.Currency = "USD"
			}
		case "BreadcrumbList":
			for _, el := range item.ItemList {
				name := el.Item.Name
				if name == "" {
					name = el.Name
				}
				if name != "" {
					out.Breadcrumbs = append(out.Breadcrumbs, name)
				}
			}
		}
	}
}

// decodeJSONLD tolerates both a single object and an array of objects, and
// skips blocks that are not valid JSON at all.
func decodeJSONLD(payload string) []jsonLDItem {
	payload = strings.TrimSpace(payload)
	var one jsonLDItem
	if err := json.Unmarshal([]byte(payload), &one); err == nil && one.Type != "" {
		return []jsonLDItem{one}
	}
	var many []jsonLDItem
	if err := json.Unmarshal([]byte(payload), &many); err == nil {
		return many
	}
	return nil
}

type offer struct {
	Price         json.RawMessage `json:"price"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
}

func offerPrice(raw json.RawMessage) (price, currency string) {
	if raw == nil {
		return "", ""
	}
	var one offer
	if err := json.Unmarshal(raw, &one); err == nil {
		return pickPrice(one), one.PriceCurrency
	}
	var many []offer
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return pickPrice(many[0]), many[0].PriceCurrency
	}
	return "", ""
}

func pickPrice(o offer) string {
	if p := rawNumberString(o.Price); p != "" {
		return p
	}
	return rawNumberString(o.LowPrice)
}

// relatedSearchPhrase recognizes Etsy's related-search links, which point at
// either /search?q=... or /market/... slugs, and returns the visible phrase.
func relatedSearchPhrase(n *html.Node) (string, bool) {
	href := attr(n, "href")
	if !strings.Contains(href, "/search?q=") && !strings.Contains(href, "/market/") {
		return "", false
	}
	phrase := strings.Join(strings.Fields(textContent(n)), " ")
	if phrase == "" {
		return "", false
	}
	return phrase, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.TrimSpace(b.String())
}

// rawNumberString renders a JSON number or string value as plain text, so
// `"4.8"` and `4.8` both come out as "4.8".
func rawNumberString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

func firstString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
