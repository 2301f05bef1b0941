// Command mawaqit-status prints one line about the next prayer, for tmux,
// polybar, waybar and similar status bars.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/cache"
	"github.com/smokyabdulrahman/mawaqit/internal/config"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, now func() time.Time) error {
	fs := pflag.NewFlagSet("mawaqit-status", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	city := fs.String("city", "", "City name (default: configured or selected city)")
	baseURL := fs.String("base-url", "", "Backend base URL")
	format := fs.String("format", prayer.FormatNameAndTime, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, arabic, full, or a custom Go template (e.g. '{{.Name}} in {{.Remaining}}'). Template fields: .Name, .ArabicName, .ShortName, .Time, .Remaining, .Hours, .Minutes, .Progress")
	timeFormat := fs.String("time-format", "", "Time format: 12h or 24h")
	cacheDir := fs.String("cache-dir", "", "Cache directory (default: ~/.cache/mawaqit/)")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(out, "mawaqit-status %s\n", version)
		return nil
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if err := loaded.ApplyEnv(); err != nil {
		return err
	}
	for key, val := range map[string]string{
		"city":        *city,
		"base_url":    *baseURL,
		"time_format": *timeFormat,
		"cache_dir":   *cacheDir,
	} {
		if val == "" {
			continue
		}
		if err := loaded.Set(key, val); err != nil {
			return fmt.Errorf("--%s: %w", key, err)
		}
	}
	cfg := loaded.WithDefaults()

	var store cache.Store
	if fstore, err := cache.New(cfg.CacheDir); err == nil {
		store = fstore
	}

	name := cfg.City
	if name == "" && store != nil {
		name, _ = store.SelectedCity(ctx)
	}
	if name == "" {
		return errors.New("no city: pass --city or run `mawaqit select <city>`")
	}

	client := api.NewClient(cfg.BaseURL)
	rec, err := cache.NewFetcher(client, store, now, zerolog.Nop()).TodayPrayerTime(ctx, name)
	if err != nil {
		return err
	}

	t := now()
	next := prayer.Next(*rec, t)
	last := prayer.Last(*rec, t)
	fmt.Fprint(out, prayer.FormatOutput(next, t, prayer.Progress(t, last.Time, next.Time), *format, cfg.TimeLayout()))
	return nil
}
