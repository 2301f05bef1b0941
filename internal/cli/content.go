package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/display"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

var (
	flagCategory int
	flagTopic    string
)

func newAdhkarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adhkar",
		Short: "Show remembrances, optionally for one category",
		Long:  "Without --category, list the adhkar categories. With it, print that\ncategory's remembrances.",
		Args:  cobra.NoArgs,
		RunE:  runAdhkar,
	}
	cmd.Flags().IntVar(&flagCategory, "category", 0, "Category ID (see `mawaqit adhkar`)")
	return cmd
}

func runAdhkar(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if flagCategory == 0 {
		resp, err := s.client.ListAdhkarCategories(ctx)
		if err != nil {
			return explain(err)
		}
		if FlagJSON {
			return printJSON(out, resp.Categories)
		}
		tbl := display.NewTable([]string{"ID", "Category"})
		for _, c := range resp.Categories {
			tbl.AddRow([]string{fmt.Sprint(c.ID), c.Name})
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, tbl.Render())
		fmt.Fprintln(out)
		return nil
	}

	resp, err := s.client.ListAdhkar(ctx, flagCategory)
	if err != nil {
		return explain(err)
	}
	if FlagJSON {
		return printJSON(out, resp.Adhkar)
	}
	for _, d := range resp.Adhkar {
		note := d.Source
		if d.Repeat > 1 {
			times := fmt.Sprintf("×%d", d.Repeat)
			if s.cfg.Arabic() {
				times = "×" + prayer.ArabicNumber(d.Repeat)
			}
			note = strings.TrimSpace(times + " " + note)
		}
		printText(out, d.Text, note)
	}
	return nil
}

func newHadithsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hadiths",
		Short: "Show hadiths, optionally for one topic",
		Args:  cobra.NoArgs,
		RunE:  runHadiths,
	}
	cmd.Flags().StringVar(&flagTopic, "topic", "", "Only hadiths under this topic")
	return cmd
}

func runHadiths(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.client.ListHadiths(cmd.Context(), strings.TrimSpace(flagTopic))
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printJSON(out, resp.Hadiths)
	}
	for _, h := range resp.Hadiths {
		printText(out, h.Text, strings.TrimSpace(h.Topic+" · "+h.Source))
	}
	return nil
}

// printText prints a block of text with a dimmed attribution line.
func printText(w io.Writer, text, note string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", strings.TrimSpace(text))
	note = strings.Trim(note, " ·")
	if note != "" {
		fmt.Fprintf(w, "  %s\n", display.Dim(note))
	}
}
