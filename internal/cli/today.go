package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/config"
	"github.com/smokyabdulrahman/mawaqit/internal/display"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// day is today's schedule with the derived values at one instant.
type day struct {
	City     string
	Now      time.Time
	Record   api.PrayerTime
	Prayers  []prayer.Prayer
	Period   prayer.Name
	Next     prayer.Prayer
	Last     prayer.Prayer
	Progress float64
}

func newDay(city string, rec api.PrayerTime, now time.Time) day {
	next := prayer.Next(rec, now)
	last := prayer.Last(rec, now)
	return day{
		City:     city,
		Now:      now,
		Record:   rec,
		Prayers:  prayer.Schedule(rec, now),
		Period:   prayer.Period(rec, now),
		Next:     next,
		Last:     last,
		Progress: prayer.Progress(now, last.Time, next.Time),
	}
}

// loadDay resolves the city and fetches its record through the cache.
func loadDay(cmd *cobra.Command) (day, config.Config, error) {
	s, err := openSession(cmd)
	if err != nil {
		return day{}, config.Config{}, err
	}
	defer s.Close()

	ctx := cmd.Context()
	city, err := s.resolveCity(ctx)
	if err != nil {
		return day{}, s.cfg, err
	}
	rec, err := s.fetcher().TodayPrayerTime(ctx, city)
	if err != nil {
		return day{}, s.cfg, explain(err)
	}
	return newDay(city, *rec, clock()), s.cfg, nil
}

func runToday(cmd *cobra.Command, args []string) error {
	d, cfg, err := loadDay(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printJSON(out, todayJSONFrom(d, cfg.TimeLayout()))
	}
	printTodayRich(out, d, cfg)
	return nil
}

// clockText formats t per the configured layout and numerals.
func clockText(t time.Time, cfg config.Config) string {
	if cfg.Arabic() {
		return prayer.FormatClockArabic(t)
	}
	return t.Format(cfg.TimeLayout())
}

// remainingText phrases a countdown per the configured numerals.
func remainingText(r prayer.Remaining, cfg config.Config) string {
	if cfg.Arabic() {
		return prayer.FormatRemainingArabic(r)
	}
	return prayer.FormatRemaining(r.Duration())
}

// printTodayRich renders the colored terminal output for today's schedule.
func printTodayRich(w io.Writer, d day, cfg config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Boldf("Prayer Times · %s", d.City))
	fmt.Fprintf(w, "  %s\n", d.Now.Format("Mon 02 Jan 2006"))
	fmt.Fprintln(w)

	tbl := display.NewTable([]string{"Prayer", "الصلاة", "Time", ""})
	for i, p := range d.Prayers {
		note := ""
		if p.Name == prayer.Fajr && d.Record.FajrSecondTime != "" {
			note = "iqama " + clockText(prayer.Iqama(d.Record, d.Now), cfg)
		}
		if p.Name == d.Next.Name {
			if note != "" {
				note += " · "
			}
			note += "← next"
		}
		tbl.AddRow([]string{p.Name.Title(), p.Name.Arabic(), clockText(p.Time, cfg), note})
		if p.Name == d.Period {
			tbl.SetHighlightRow(i, p.Name)
		}
	}
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)

	r := prayer.RemainingUntil(d.Now, d.Next.Time)
	fmt.Fprintf(w, "  Now %s · %s in %s\n",
		display.Themed(d.Period, d.Period.Title()), d.Next.Name.Title(), remainingText(r, cfg))
	fmt.Fprintf(w, "  %s\n", display.Bar(d.Progress, 30, d.Period))
	fmt.Fprintln(w)
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	City     string            `json:"city"`
	Date     string            `json:"date"`
	Timings  map[string]string `json:"timings"`
	Iqama    string            `json:"fajr_iqama,omitempty"`
	Period   prayer.Name       `json:"period"`
	Next     todayJSONNext     `json:"next"`
	Progress float64           `json:"progress"`
}

type todayJSONNext struct {
	Prayer    prayer.Name      `json:"prayer"`
	Time      string           `json:"time"`
	Remaining prayer.Remaining `json:"remaining"`
	Text      string           `json:"text"`
}

func todayJSONFrom(d day, layout string) todayJSON {
	timings := make(map[string]string, len(d.Prayers))
	for _, p := range d.Prayers {
		timings[string(p.Name)] = p.Time.Format(layout)
	}
	r := prayer.RemainingUntil(d.Now, d.Next.Time)
	out := todayJSON{
		City:    d.City,
		Date:    d.Now.Format("2006-01-02"),
		Timings: timings,
		Period:  d.Period,
		Next: todayJSONNext{
			Prayer:    d.Next.Name,
			Time:      d.Next.Time.Format(layout),
			Remaining: r,
			Text:      prayer.FormatRemaining(r.Duration()),
		},
		Progress: d.Progress,
	}
	if d.Record.FajrSecondTime != "" {
		out.Iqama = prayer.Iqama(d.Record, d.Now).Format(layout)
	}
	return out
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
