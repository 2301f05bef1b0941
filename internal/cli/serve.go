package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/notify"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
	"github.com/smokyabdulrahman/mawaqit/internal/server"
)

var (
	flagListen  string
	flagOrigins []string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live view model to displays over HTTP and MQTT",
		Long: "Run the period controller and expose it on a local HTTP API\n" +
			"(/api/view, /api/events, /api/theme, /api/schedule, /api/qibla, POST /api/city).\n" +
			"When mqtt_broker is configured, period changes are also published there.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (overrides listen_addr)")
	cmd.Flags().StringSliceVar(&flagOrigins, "allow-origin", nil, "CORS origins allowed to call the API (none by default)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, stop, err := startController(ctx, s)
	if err != nil {
		return err
	}
	defer stop()

	unwatch := ctrl.OnThemeChange(func(n prayer.Name) {
		s.log.Info().Str("period", string(n)).Msg("period changed")
	})
	defer unwatch()

	if s.cfg.MQTTBroker != "" {
		host, _ := os.Hostname()
		pub, err := notify.Connect(s.cfg.MQTTBroker, fmt.Sprintf("mawaqit-%s-%d", host, os.Getpid()), s.cfg.MQTTTopic, s.log)
		if err != nil {
			return err
		}
		defer pub.Close()
		detach := pub.Attach(ctrl)
		defer detach()
	}

	addr := s.cfg.ListenAddr
	if flagListen != "" {
		addr = flagListen
	}

	opts := []server.Option{
		server.WithLogger(s.log),
		server.WithClock(clock),
		server.WithAllowedOrigins(flagOrigins...),
	}
	if s.store != nil {
		opts = append(opts, server.WithCitySaver(s.store))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
	return server.New(addr, ctrl, opts...).Run(ctx)
}
