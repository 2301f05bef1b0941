package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long: "Print today's time for one prayer. Names may be English (fajr, dhuhr, ...)\n" +
			"or Arabic (الفجر, الظهر, ...). \"iqama\" prints the Fajr iqama.",
		Args: cobra.ExactArgs(1),
		RunE: runQuery,
	}
}

type queryJSON struct {
	Prayer prayer.Name `json:"prayer"`
	Arabic string      `json:"arabic"`
	Time   string      `json:"time"`
	Passed bool        `json:"passed"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	arg := strings.TrimSpace(args[0])
	iqama := strings.EqualFold(arg, "iqama") || arg == "الإقامة"

	name := prayer.Fajr
	if !iqama {
		n, ok := prayer.ParseName(arg)
		if !ok {
			names := make([]string, len(prayer.Order))
			for i, n := range prayer.Order {
				names[i] = string(n)
			}
			return fmt.Errorf("unknown prayer %q; valid prayers: %s, iqama", arg, strings.Join(names, ", "))
		}
		name = n
	}

	d, cfg, err := loadDay(cmd)
	if err != nil {
		return err
	}

	var p prayer.Prayer
	for _, sp := range d.Prayers {
		if sp.Name == name {
			p = sp
		}
	}
	if iqama {
		p.Time = prayer.Iqama(d.Record, d.Now)
	}

	if FlagJSON {
		return printJSON(cmd.OutOrStdout(), queryJSON{
			Prayer: p.Name,
			Arabic: p.Name.Arabic(),
			Time:   p.Time.Format(cfg.TimeLayout()),
			Passed: !p.Time.After(d.Now),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), clockText(p.Time, cfg))
	return nil
}
