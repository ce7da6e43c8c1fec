package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"etsy-edge/models"
)

// Tier is the entitlement level of an install.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// WarningStep is one row of the progressive paid-tier warning table.
// Steps must be sorted by ascending Fraction; the last crossed step wins.
// Messages of RevealsLimit steps may carry two %d verbs (used, limit);
// earlier steps must not leak the numeric cap.
type WarningStep struct {
	Fraction     float64
	Message      string
	RevealsLimit bool
}

// Limits holds the per-tier allotments. FreeInitial applies only during the
// calendar month the extension was installed in; FreeMonthly afterwards.
// PaidMonthlyCap is a silent abuse guard, not an advertised quota.
type Limits struct {
	FreeInitial    int
	FreeMonthly    int
	PaidMonthlyCap int
	WarningSteps   []WarningStep
}

// DefaultLimits mirrors the shipped config defaults.
func DefaultLimits() Limits {
	return Limits{
		FreeInitial:    3,
		FreeMonthly:    5,
		PaidMonthlyCap: 200,
		WarningSteps: []WarningStep{
			{Fraction: 0.5, Message: "You've been running a lot of optimizations this month."},
			{Fraction: 0.75, Message: "Heads up: you're well into this month's optimization allowance."},
			{Fraction: 0.875, Message: "You're approaching this month's optimization allowance."},
			{Fraction: 0.95, Message: "Almost at this month's cap: %d of %d optimizations used.", RevealsLimit: true},
			{Fraction: 0.975, Message: "Final stretch: %d of %d optimizations used. Further requests may be declined until next month.", RevealsLimit: true},
		},
	}
}

// Decision is the outcome of a usage check. Used/Limit are always populated
// so callers can render "X of Y used" even when Allowed is false.
type Decision struct {
	Allowed               bool   `json:"allowed"`
	Used                  int    `json:"used"`
	Limit                 int    `json:"limit"`
	Warning               string `json:"warning,omitempty"`
	ShowPersistentCounter bool   `json:"show_persistent_counter"`
}

// PeriodKey derives the UTC calendar-month key counters are bucketed by.
func PeriodKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// Tracker applies the entitlement policy over a Store. Check is read-only
// and idempotent; Record mutates and must be called only after the metered
// operation succeeded. The mutex serializes read-modify-write against other
// in-process requests so two racing metered calls can't lose an update.
type Tracker struct {
	mu     sync.Mutex
	store  Store
	limits Limits
}

func NewTracker(store Store, limits Limits) *Tracker {
	return &Tracker{store: store, limits: limits}
}

// Check evaluates whether one more metered call is allowed right now.
// Exhaustion is a normal decision, never an error; errors are reserved for
// store failures.
func (t *Tracker) Check(ctx context.Context, installID string, tier Tier, now time.Time) (Decision, error) {
	rec, err := t.store.Get(ctx, installID)
	if err != nil {
		return Decision{}, err
	}
	period := PeriodKey(now)
	if rec == nil {
		rec = t.freshRecord(installID, period)
	}
	return t.decide(rec, tier, period), nil
}

// Record charges one metered call. Rollover is applied lazily here as well,
// so a record parked in an old month resets before incrementing.
func (t *Tracker) Record(ctx context.Context, installID string, tier Tier, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.store.Get(ctx, installID)
	if err != nil {
		return err
	}
	period := PeriodKey(now)
	if rec == nil {
		rec = t.freshRecord(installID, period)
		rec.CreatedAt = now.UTC()
	}
	if rec.PeriodKey != period {
		rec.PeriodKey = period
		rec.CountThisPeriod = 0
	}

	rec.CountThisPeriod++
	if tier == TierFree && rec.PeriodKey == rec.FirstSeenPeriod {
		rec.LifetimeFreeUsed++
	}
	rec.UpdatedAt = now.UTC()

	return t.store.Put(ctx, rec)
}

func (t *Tracker) freshRecord(installID, period string) *models.UsageRecord {
	return &models.UsageRecord{
		InstallID:       installID,
		PeriodKey:       period,
		FirstSeenPeriod: period,
	}
}

func (t *Tracker) decide(rec *models.UsageRecord, tier Tier, period string) Decision {
	// Lazy rollover: a stored record from a previous month reads as zero.
	count := rec.CountThisPeriod
	if rec.PeriodKey != period {
		count = 0
	}

	if tier == TierPaid {
		limit := t.limits.PaidMonthlyCap
		d := Decision{
			Allowed: count < limit,
			Used:    count,
			Limit:   limit,
		}
		for _, step := range t.limits.WarningSteps {
			if float64(count) >= step.Fraction*float64(limit) {
				if step.RevealsLimit {
					d.Warning = fmt.Sprintf(step.Message, count, limit)
					d.ShowPersistentCounter = true
				} else {
					d.Warning = step.Message
				}
			}
		}
		return d
	}

	// Free tier: the install month draws from the one-time allotment,
	// every later month from the steady-state monthly one.
	if period == rec.FirstSeenPeriod {
		return Decision{
			Allowed:               rec.LifetimeFreeUsed < t.limits.FreeInitial,
			Used:                  rec.LifetimeFreeUsed,
			Limit:                 t.limits.FreeInitial,
			ShowPersistentCounter: true,
		}
	}
	return Decision{
		Allowed:               count < t.limits.FreeMonthly,
		Used:                  count,
		Limit:                 t.limits.FreeMonthly,
		ShowPersistentCounter: true,
	}
}
