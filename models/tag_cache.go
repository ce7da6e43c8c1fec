package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CachedTags stores fetched listing tags to keep Etsy API usage down.
// Entries expire by TTL and the collection is bounded by an eviction sweep.
// Collection: tag_cache
type CachedTags struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ListingID string             `bson:"listing_id" json:"listing_id"`
	Tags      []string           `bson:"tags" json:"tags"`
	CachedAt  time.Time          `bson:"cached_at" json:"cached_at"`
}
