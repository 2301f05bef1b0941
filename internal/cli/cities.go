package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/display"
)

var flagPage int

func newCitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List the cities the backend publishes times for",
		Args:  cobra.NoArgs,
		RunE:  runCities,
	}
	cmd.Flags().IntVar(&flagPage, "page", 1, "Page of results to show")
	return cmd
}

func runCities(cmd *cobra.Command, args []string) error {
	if flagPage < 1 {
		return fmt.Errorf("invalid page %d: must be 1 or more", flagPage)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.client.ListSections(cmd.Context(), flagPage)
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printJSON(out, resp)
	}

	selected, _ := s.resolveCity(cmd.Context())
	tbl := display.NewTable([]string{"ID", "City"})
	for _, sec := range resp.Sections {
		name := sec.Name
		if name == selected {
			name += " " + display.Green("✓")
		}
		tbl.AddRow([]string{fmt.Sprint(sec.ID), name})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, tbl.Render())
	if m := resp.Meta; m.LastPage > 1 {
		fmt.Fprintf(out, "\n  %s\n", display.Dim(fmt.Sprintf("page %d of %d · --page to see more", m.CurrentPage, m.LastPage)))
	}
	fmt.Fprintln(out)
	return nil
}

func newSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <city>",
		Short: "Choose the city used when --city is not given",
		Long:  "Check that the backend has today's times for the city, then remember it\nfor later commands and for watch/serve.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSelect,
	}
}

func runSelect(cmd *cobra.Command, args []string) error {
	city := strings.TrimSpace(args[0])
	if city == "" {
		return errNoCity
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := s.requireStore()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := s.fetcher().TodayPrayerTime(ctx, city); err != nil {
		return explain(err)
	}
	if err := store.SetSelectedCity(ctx, city); err != nil {
		return fmt.Errorf("failed to save selected city: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", city)
	return nil
}
