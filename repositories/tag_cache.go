package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"etsy-edge/models"
)

// TagCacheRepository caches fetched listing tags so repeat lookups don't
// burn Etsy API quota. Entries older than the TTL read as misses; the
// collection is bounded by evicting the oldest entries past MaxEntries.
type TagCacheRepository struct {
	col        *mongo.Collection
	ttl        time.Duration
	maxEntries int64
}

func NewTagCacheRepository(db *mongo.Database, ttl time.Duration, maxEntries int) *TagCacheRepository {
	return &TagCacheRepository{
		col:        db.Collection("tag_cache"),
		ttl:        ttl,
		maxEntries: int64(maxEntries),
	}
}

// Get returns cached tags for a listing. A stale entry is a miss; it stays
// in place until the next Put overwrites it.
func (r *TagCacheRepository) Get(ctx context.Context, listingID string) ([]string, bool, error) {
	var entry models.CachedTags
	err := r.col.FindOne(ctx, bson.M{"listing_id": listingID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Since(entry.CachedAt) > r.ttl {
		return nil, false, nil
	}
	return entry.Tags, true, nil
}

// Put stores tags for a listing and evicts the oldest entries when the
// collection grows past its bound.
func (r *TagCacheRepository) Put(ctx context.Context, listingID string, tags []string) error {
	filter := bson.M{"listing_id": listingID}
	update := bson.M{
		"$set": bson.M{
			"listing_id": listingID,
			"tags":       tags,
			"cached_at":  time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.col.UpdateOne(ctx, filter, update, opts); err != nil {
		return err
	}
	return r.evict(ctx)
}

func (r *TagCacheRepository) evict(ctx context.Context) error {
	count, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	excess := count - r.maxEntries
	if excess <= 0 {
		return nil
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "cached_at", Value: 1}}).
		SetLimit(excess).
		SetProjection(bson.M{"_id": 1})
	cur, err := r.col.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var ids []interface{}
	for cur.Next(ctx) {
		var doc struct {
			ID interface{} `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	_, err = r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}
