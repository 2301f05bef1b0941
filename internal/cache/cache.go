// Package cache persists client-side state: the selected city, the admin
// bearer token, today's prayer record per city and the last geolocation.
//
// Two backends share the Store interface: a directory of JSON files for a
// single machine and Redis for several displays sharing one state.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/geo"
)

const (
	recordFile   = "record_%s.json" // keyed by hash of city
	cityFile     = "selected_city"
	tokenFile    = "token"
	geoCacheFile = "geolocation.json"
	geoTTL       = 24 * time.Hour
	dateLayout   = "2006-01-02"
)

// Store is the persisted state shared by the CLI and the live displays.
// Record lookups return nil on a miss, a stale day or an unreadable entry.
type Store interface {
	api.TokenStore

	LoadRecord(ctx context.Context, city string, day time.Time) *api.PrayerTime
	SaveRecord(ctx context.Context, city string, day time.Time, rec *api.PrayerTime) error

	SelectedCity(ctx context.Context) (string, error)
	SetSelectedCity(ctx context.Context, city string) error

	Close() error
}

// RecordEntry is a cached record stamped with the local date it was fetched for.
type RecordEntry struct {
	Date   string         `json:"date"` // YYYY-MM-DD
	City   string         `json:"city"`
	Record api.PrayerTime `json:"record"`
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// FileStore keeps each piece of state in its own file under dir.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// DefaultDir returns ~/.cache/mawaqit.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "mawaqit"), nil
}

// New creates a FileStore rooted at dir, or at DefaultDir when dir is empty.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (c *FileStore) Dir() string {
	return c.dir
}

// cityKey hashes the normalized city name so Arabic names and spaces make
// safe file names.
func cityKey(city string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(city))))
	return fmt.Sprintf("%x", h[:8])
}

func (c *FileStore) recordPath(city string) string {
	return filepath.Join(c.dir, fmt.Sprintf(recordFile, cityKey(city)))
}

// LoadRecord returns the cached record for city if it was saved for day's date.
func (c *FileStore) LoadRecord(ctx context.Context, city string, day time.Time) *api.PrayerTime {
	data, err := os.ReadFile(c.recordPath(city))
	if err != nil {
		return nil
	}
	return decodeRecord(data, day)
}

// SaveRecord writes rec as city's record for day.
func (c *FileStore) SaveRecord(ctx context.Context, city string, day time.Time, rec *api.PrayerTime) error {
	data, err := encodeRecord(city, day, rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.recordPath(city), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// SelectedCity returns the persisted city, or "" when none was chosen.
func (c *FileStore) SelectedCity(ctx context.Context) (string, error) {
	return c.readValue(cityFile)
}

// SetSelectedCity persists city. An empty city clears the selection.
func (c *FileStore) SetSelectedCity(ctx context.Context, city string) error {
	return c.writeValue(cityFile, strings.TrimSpace(city), 0o644)
}

// Token returns the stored bearer token, or "" when logged out.
func (c *FileStore) Token(ctx context.Context) (string, error) {
	return c.readValue(tokenFile)
}

// SetToken stores the bearer token readable by the owner only.
func (c *FileStore) SetToken(ctx context.Context, token string) error {
	return c.writeValue(tokenFile, token, 0o600)
}

// ClearToken removes the stored token.
func (c *FileStore) ClearToken(ctx context.Context) error {
	return c.writeValue(tokenFile, "", 0o600)
}

// Close is a no-op for files.
func (c *FileStore) Close() error { return nil }

func (c *FileStore) readValue(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *FileStore) writeValue(name, value string, perm os.FileMode) error {
	path := filepath.Join(c.dir, name)
	if value == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(value+"\n"), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (c *FileStore) LoadGeo() *geo.Location {
	data, err := os.ReadFile(filepath.Join(c.dir, geoCacheFile))
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	if time.Since(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a geolocation result to the cache.
func (c *FileStore) SaveGeo(loc *geo.Location) error {
	entry := GeoCacheEntry{
		Location: *loc,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}

	if err := os.WriteFile(filepath.Join(c.dir, geoCacheFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}

	return nil
}

func encodeRecord(city string, day time.Time, rec *api.PrayerTime) ([]byte, error) {
	entry := RecordEntry{
		Date:   day.Format(dateLayout),
		City:   city,
		Record: *rec,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return data, nil
}

// decodeRecord returns nil unless data holds a record saved for day's date;
// yesterday's record is useless after midnight.
func decodeRecord(data []byte, day time.Time) *api.PrayerTime {
	var entry RecordEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if entry.Date != day.Format(dateLayout) {
		return nil
	}
	return &entry.Record
}
