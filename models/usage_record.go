package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UsageRecord tracks metered AI optimization usage for one extension install.
// Counters are append-only: CountThisPeriod resets only by lazy period
// rollover, LifetimeFreeUsed never resets.
// Collection: usage_records
type UsageRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InstallID string             `bson:"install_id" json:"install_id"`

	// PeriodKey is the "YYYY-MM" UTC calendar month CountThisPeriod belongs to.
	PeriodKey       string `bson:"period_key" json:"period_key"`
	CountThisPeriod int    `bson:"count_this_period" json:"count_this_period"`

	// LifetimeFreeUsed is consulted only while PeriodKey == FirstSeenPeriod.
	LifetimeFreeUsed int    `bson:"lifetime_free_used" json:"lifetime_free_used"`
	FirstSeenPeriod  string `bson:"first_seen_period" json:"first_seen_period"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
