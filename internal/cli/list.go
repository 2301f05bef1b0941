package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/config"
	"github.com/smokyabdulrahman/mawaqit/internal/display"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

var flagMonth int

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every day published for the city",
		Long:  "Print the full calendar the backend holds for the city, one day per row.\nToday's row is highlighted.",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.Flags().IntVar(&flagMonth, "month", 0, "Only show this month (1-12)")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	if flagMonth < 0 || flagMonth > 12 {
		return fmt.Errorf("invalid month %d: must be between 1 and 12", flagMonth)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	city, err := s.resolveCity(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.ListPrayerTimes(ctx, city)
	if err != nil {
		return explain(err)
	}

	records := make([]api.PrayerTime, 0, len(resp.PrayerTimes))
	for _, rec := range resp.PrayerTimes {
		if flagMonth == 0 || rec.Month == flagMonth {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return explain(api.ErrNoPrayerTimes)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Month != records[j].Month {
			return records[i].Month < records[j].Month
		}
		return records[i].Day < records[j].Day
	})

	if FlagJSON {
		return printJSON(cmd.OutOrStdout(), records)
	}
	printList(cmd.OutOrStdout(), city, records, s.cfg)
	return nil
}

func printList(w io.Writer, city string, records []api.PrayerTime, cfg config.Config) {
	now := clock()

	headers := []string{"Date"}
	for _, n := range prayer.Order {
		headers = append(headers, n.Title())
	}
	tbl := display.NewTable(headers)

	for i, rec := range records {
		row := []string{fmt.Sprintf("%02d/%02d", rec.Day, rec.Month)}
		for _, p := range prayer.Schedule(rec, now) {
			row = append(row, clockText(p.Time, cfg))
		}
		tbl.AddRow(row)
		if rec.Day == now.Day() && rec.Month == int(now.Month()) {
			tbl.SetHighlightRow(i, prayer.Period(rec, now))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times · "+city))
	fmt.Fprintln(w)
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)
}
