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

// UsageRecordRepository persists per-install usage counters. It satisfies
// usage.Store.
type UsageRecordRepository struct {
	col *mongo.Collection
}

func NewUsageRecordRepository(db *mongo.Database) *UsageRecordRepository {
	return &UsageRecordRepository{col: db.Collection("usage_records")}
}

// Get returns the record for an install, or (nil, nil) when none exists yet.
func (r *UsageRecordRepository) Get(ctx context.Context, installID string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := r.col.FindOne(ctx, bson.M{"install_id": installID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put upserts the record keyed by install_id.
func (r *UsageRecordRepository) Put(ctx context.Context, rec *models.UsageRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	filter := bson.M{"install_id": rec.InstallID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": rec.CreatedAt,
		},
		"$set": bson.M{
			"install_id":         rec.InstallID,
			"period_key":         rec.PeriodKey,
			"count_this_period":  rec.CountThisPeriod,
			"lifetime_free_used": rec.LifetimeFreeUsed,
			"first_seen_period":  rec.FirstSeenPeriod,
			"updated_at":         rec.UpdatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, filter, update, opts)
	return err
}
