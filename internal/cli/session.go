package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/cache"
	"github.com/smokyabdulrahman/mawaqit/internal/config"
	"github.com/smokyabdulrahman/mawaqit/internal/controller"
)

// errNoCity is returned when no city is given, configured or selected.
var errNoCity = errors.New("no city selected: pass --city, run `mawaqit select <city>` or `mawaqit config set city <name>`")

// errNoStore is returned by commands that need persisted state when neither
// Redis nor the cache directory is usable.
var errNoStore = errors.New("no state store available: check cache_dir or redis_addr")

// session bundles what a command needs to talk to the backend.
type session struct {
	cfg    config.Config
	store  cache.Store
	files  *cache.FileStore
	client *api.Client
	log    zerolog.Logger
}

// openSession merges the config and opens the state store. A store that
// cannot be opened is logged and skipped; only commands that need it fail.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: logger}

	files, err := cache.New(cfg.CacheDir)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache disabled")
	} else {
		s.files = files
		s.store = files
	}

	if cfg.RedisAddr != "" {
		rs, err := cache.NewRedis(cmd.Context(), cfg.RedisAddr, cfg.RedisPassword, s.log)
		if err != nil {
			s.log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using local cache")
		} else {
			s.store = rs
		}
	}

	opts := []api.Option{api.WithLogger(s.log)}
	if s.store != nil {
		opts = append(opts, api.WithTokenStore(s.store))
	}
	s.client = api.NewClient(cfg.BaseURL, opts...)
	return s, nil
}

// Close releases the store.
func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Debug().Err(err).Msg("closing state store")
		}
	}
}

// fetcher serves today's record through the store.
func (s *session) fetcher() *cache.Fetcher {
	return cache.NewFetcher(s.client, s.store, clock, s.log)
}

// requireStore returns the store or errNoStore.
func (s *session) requireStore() (cache.Store, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	return s.store, nil
}

// resolveCity picks the city: --city or config first, then the persisted
// selection.
func (s *session) resolveCity(ctx context.Context) (string, error) {
	if s.cfg.City != "" {
		return s.cfg.City, nil
	}
	if s.store != nil {
		city, err := s.store.SelectedCity(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to read selected city")
		}
		if city != "" {
			return city, nil
		}
	}
	return "", errNoCity
}

// explain rewrites backend errors into the messages users act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrNoPrayerTimes):
		return fmt.Errorf("%s (%w)", controller.MsgNotFound, err)
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("session expired: run `mawaqit login` (%w)", err)
	case errors.Is(err, api.ErrNotLoggedIn):
		return fmt.Errorf("not logged in: run `mawaqit login` first")
	}
	return err
}
