package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
)

var (
	flagFields []string
	flagQuery  []string
)

func newAdminCmd() *cobra.Command {
	names := make([]string, len(api.Resources))
	for i, r := range api.Resources {
		names[i] = string(r)
	}

	cmd := &cobra.Command{
		Use:   "admin <resource> <list|create|update|delete>",
		Short: "Manage backend content (requires login)",
		Long: fmt.Sprintf("Create, update, delete or list backend records. Resources: %s\n\n"+
			"Examples:\n"+
			"  mawaqit admin sections create --field name=طرابلس\n"+
			"  mawaqit admin prayer-times update --query day=1 --query month=3 --query section_id=1 --field isha_time=19:20\n"+
			"  mawaqit admin hadiths delete --query id=12\n"+
			"  mawaqit admin adhkar list --query category_id=2",
			strings.Join(names, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: runAdmin,
	}
	cmd.Flags().StringArrayVar(&flagFields, "field", nil, "Form field key=value (repeatable)")
	cmd.Flags().StringArrayVar(&flagQuery, "query", nil, "Record selector or filter key=value (repeatable)")
	return cmd
}

func runAdmin(cmd *cobra.Command, args []string) error {
	res, err := api.ParseResource(args[0])
	if err != nil {
		return err
	}
	fields, err := parsePairs(flagFields)
	if err != nil {
		return fmt.Errorf("--field: %w", err)
	}
	pairs, err := parsePairs(flagQuery)
	if err != nil {
		return fmt.Errorf("--query: %w", err)
	}
	q := url.Values{}
	for k, v := range pairs {
		q.Set(k, v)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var resp *api.MutationResponse
	switch action := args[1]; action {
	case "list":
		raw, err := s.client.AdminList(ctx, res, q)
		if err != nil {
			return explain(err)
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			out.Write(raw)
			fmt.Fprintln(out)
			return nil
		}
		fmt.Fprintln(out, buf.String())
		return nil
	case "create":
		if len(fields) == 0 {
			return fmt.Errorf("create needs at least one --field")
		}
		resp, err = s.client.Create(ctx, res, fields)
	case "update":
		if len(q) == 0 || len(fields) == 0 {
			return fmt.Errorf("update needs --query to select the record and at least one --field")
		}
		resp, err = s.client.Update(ctx, res, q, fields)
	case "delete":
		if len(q) == 0 {
			return fmt.Errorf("delete needs --query to select the record")
		}
		resp, err = s.client.Delete(ctx, res, q)
	default:
		return fmt.Errorf("unknown action %q; valid actions: list, create, update, delete", action)
	}
	if err != nil {
		return explain(err)
	}

	if FlagJSON {
		return printJSON(out, resp)
	}
	msg := resp.Message
	if msg == "" {
		msg = "done"
	}
	fmt.Fprintln(out, msg)
	return nil
}

// parsePairs splits key=value arguments.
func parsePairs(args []string) (map[string]string, error) {
	m := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		m[k] = v
	}
	return m, nil
}
