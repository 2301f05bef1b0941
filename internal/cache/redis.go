package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
)

const (
	redisPrefix    = "mawaqit:"
	recordTTL      = 48 * time.Hour
	redisOpTimeout = 3 * time.Second
)

// RedisStore shares state between several displays through one Redis server.
type RedisStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedis connects to addr and verifies the server answers.
func NewRedis(ctx context.Context, addr, password string, log zerolog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", addr, err)
	}

	return &RedisStore{rdb: rdb, log: log}, nil
}

func redisKey(parts ...string) string {
	return redisPrefix + strings.Join(parts, ":")
}

// LoadRecord returns the cached record for city if it was saved for day's date.
func (s *RedisStore) LoadRecord(ctx context.Context, city string, day time.Time) *api.PrayerTime {
	data, err := s.rdb.Get(ctx, redisKey("record", cityKey(city))).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("city", city).Msg("redis record lookup failed")
		}
		return nil
	}
	return decodeRecord(data, day)
}

// SaveRecord stores rec as city's record for day. Entries expire after two days.
func (s *RedisStore) SaveRecord(ctx context.Context, city string, day time.Time, rec *api.PrayerTime) error {
	data, err := encodeRecord(city, day, rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey("record", cityKey(city)), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache record for %q: %w", city, err)
	}
	return nil
}

// SelectedCity returns the shared city, or "" when none was chosen.
func (s *RedisStore) SelectedCity(ctx context.Context) (string, error) {
	return s.get(ctx, redisKey("city"))
}

// SetSelectedCity stores city. An empty city clears the selection.
func (s *RedisStore) SetSelectedCity(ctx context.Context, city string) error {
	return s.set(ctx, redisKey("city"), city)
}

// Token returns the stored bearer token, or "" when logged out.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	return s.get(ctx, redisKey("token"))
}

// SetToken stores the bearer token.
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, redisKey("token"), token)
}

// ClearToken removes the stored token.
func (s *RedisStore) ClearToken(ctx context.Context) error {
	return s.set(ctx, redisKey("token"), "")
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) set(ctx context.Context, key, value string) error {
	var err error
	if value == "" {
		err = s.rdb.Del(ctx, key).Err()
	} else {
		err = s.rdb.Set(ctx, key, value, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
