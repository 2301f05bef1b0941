package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/mawaqit/internal/config"
	"github.com/smokyabdulrahman/mawaqit/internal/display"
	"github.com/smokyabdulrahman/mawaqit/internal/logging"
)

// Global flags shared across all subcommands.
var (
	FlagCity       string
	FlagBaseURL    string
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagNumerals   string
	FlagLogLevel   string
	FlagLogJSON    bool
)

// loadedConfig holds the config loaded during PersistentPreRunE.
// Available to all subcommand handlers.
var loadedConfig *config.Config

// logger is configured in PersistentPreRunE.
var logger = zerolog.Nop()

// clock is replaced in tests.
var clock = time.Now

// NewRootCmd creates the root command for the mawaqit CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "mawaqit",
		Short:   "Prayer times, live periods and Qibla from the terminal",
		Long:    "mawaqit shows today's prayer times for a city, tracks the current prayer period\nand the countdown to the next prayer, and can feed that state to displays over HTTP and MQTT.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ApplyEnv(); err != nil {
				return fmt.Errorf("invalid environment: %w", err)
			}
			loadedConfig = cfg

			l, err := logging.Setup(FlagLogLevel, !FlagLogJSON)
			if err != nil {
				return err
			}
			logger = l
			if FlagJSON {
				display.SetEnabled(false)
			}
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", "City to show (overrides config and the selected city)")
	pf.StringVar(&FlagBaseURL, "base-url", "", "Backend base URL (overrides config)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/mawaqit/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagNumerals, "numerals", "", "Digits: latin or arabic (overrides config)")
	pf.StringVar(&FlagLogLevel, "log-level", "warn", "Log level: trace, debug, info, warn, error or disabled")
	pf.BoolVar(&FlagLogJSON, "log-json", false, "Write logs as JSON lines instead of console text")

	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCitiesCmd())
	rootCmd.AddCommand(newSelectCmd())
	rootCmd.AddCommand(newQiblaCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAdhkarCmd())
	rootCmd.AddCommand(newHadithsCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newSubscribeCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// PrintVersion prints the version string in the expected format.
func PrintVersion(version string) string {
	return fmt.Sprintf("mawaqit %s\n", version)
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > environment > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set, and
// validates flag values exactly like `config set`.
func effectiveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if loadedConfig != nil {
		cfg = *loadedConfig
	}

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	overrides := []struct {
		flag, key string
		value     *string
	}{
		{"city", "city", &FlagCity},
		{"base-url", "base_url", &FlagBaseURL},
		{"cache-dir", "cache_dir", &FlagCacheDir},
		{"time-format", "time_format", &FlagTimeFormat},
		{"numerals", "numerals", &FlagNumerals},
	}
	for _, o := range overrides {
		if !flagWasSet(flags, root, o.flag) {
			continue
		}
		if err := cfg.Set(o.key, *o.value); err != nil {
			return config.Config{}, fmt.Errorf("--%s: %w", o.flag, err)
		}
	}

	return cfg.WithDefaults(), nil
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}
