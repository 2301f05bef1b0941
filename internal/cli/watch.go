package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/controller"
	"github.com/smokyabdulrahman/mawaqit/internal/schedule"
	"github.com/smokyabdulrahman/mawaqit/internal/tui"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the current period and countdown",
		Long: "Open a full-screen view that follows the current prayer period, the\n" +
			"countdown to the next prayer and the period progress. Press s to pick\n" +
			"another city, a to switch to Arabic and q to quit.",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl, stop, err := startController(cmd.Context(), s)
	if err != nil {
		return err
	}
	defer stop()

	return tui.Run(cmd.Context(), ctrl,
		tui.WithClock(clock),
		tui.WithTimeLayout(s.cfg.TimeLayout()),
		tui.WithArabic(s.cfg.Arabic()),
		tui.WithCitySelected(func(city string) { s.saveCity(city) }),
	)
}

// startController builds a controller over the session's cached fetcher,
// selects the resolved city (if any) and schedules the midnight reload.
// The returned stop func releases both.
func startController(ctx context.Context, s *session) (*controller.Controller, func(), error) {
	ctrl := controller.New(s.fetcher(),
		controller.WithClock(clock),
		controller.WithInterval(s.cfg.Interval()),
		controller.WithLogger(s.log),
	)

	city, err := s.resolveCity(ctx)
	switch {
	case err == nil:
		ctrl.Select(city)
	case errors.Is(err, errNoCity):
		s.log.Info().Msg("no city selected yet")
	default:
		ctrl.Close()
		return nil, nil, err
	}

	sched, err := schedule.New(ctrl, schedule.WithLogger(s.log))
	if err != nil {
		ctrl.Close()
		return nil, nil, err
	}
	sched.Start()

	return ctrl, func() {
		sched.Stop()
		ctrl.Close()
	}, nil
}

// saveCity persists a city picked in a live view. Failures are logged only;
// the view already switched.
func (s *session) saveCity(city string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SetSelectedCity(ctx, city); err != nil {
		s.log.Warn().Err(err).Str("city", city).Msg("failed to save selected city")
	}
}
