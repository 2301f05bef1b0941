package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

var (
	flagFormat   string
	flagUpcoming bool
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown on one line,\nsuitable for status bars.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, arabic, full, or a custom Go template")
	cmd.Flags().BoolVar(&flagUpcoming, "upcoming", false, "List all six periods, starting with the next one")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	d, cfg, err := loadDay(cmd)
	if err != nil {
		return err
	}

	if FlagJSON {
		j := todayJSONFrom(d, cfg.TimeLayout())
		return printJSON(cmd.OutOrStdout(), j.Next)
	}

	out := cmd.OutOrStdout()
	if flagUpcoming {
		for _, p := range prayer.StartingFrom(d.Prayers, d.Next.Name) {
			fmt.Fprintf(out, "%-8s %s\n", p.Name.Title(), clockText(p.Time, cfg))
		}
		return nil
	}

	mode := flagFormat
	if !cmd.Flags().Changed("format") && cfg.Arabic() {
		mode = prayer.FormatArabic
	}
	fmt.Fprint(out, prayer.FormatOutput(d.Next, d.Now, d.Progress, mode, cfg.TimeLayout()))
	return nil
}
