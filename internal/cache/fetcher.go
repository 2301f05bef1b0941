package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
)

// Upstream is the source of today's record, normally *api.Client.
type Upstream interface {
	TodayPrayerTime(ctx context.Context, city string) (*api.PrayerTime, error)
}

// Fetcher serves today's record from a Store and falls back to Upstream,
// caching what it fetched. Cache failures are logged and never fatal.
type Fetcher struct {
	up    Upstream
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewFetcher wraps up with store. A nil store disables caching and a nil now
// selects time.Now.
func NewFetcher(up Upstream, store Store, now func() time.Time, log zerolog.Logger) *Fetcher {
	if now == nil {
		now = time.Now
	}
	return &Fetcher{up: up, store: store, now: now, log: log}
}

// TodayPrayerTime implements the controller's fetcher.
func (f *Fetcher) TodayPrayerTime(ctx context.Context, city string) (*api.PrayerTime, error) {
	today := f.now()

	if f.store != nil {
		if rec := f.store.LoadRecord(ctx, city, today); rec != nil {
			f.log.Debug().Str("city", city).Msg("prayer times served from cache")
			return rec, nil
		}
	}

	rec, err := f.up.TodayPrayerTime(ctx, city)
	if err != nil {
		return nil, err
	}

	if f.store != nil {
		if err := f.store.SaveRecord(ctx, city, today, rec); err != nil {
			f.log.Warn().Err(err).Str("city", city).Msg("failed to cache prayer times")
		}
	}
	return rec, nil
}
