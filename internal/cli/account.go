package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/display"
)

var (
	flagPhone     string
	flagPassword  string
	flagSectionID int
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an administrator",
		Long: "Exchange a phone number and password for a bearer token and store it for\n" +
			"admin commands. Without --password the password is read from\n" +
			"MAWAQIT_PASSWORD or, failing that, one line of standard input.",
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
	cmd.Flags().StringVar(&flagPhone, "phone", "", "Account phone number")
	cmd.Flags().StringVar(&flagPassword, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := flagPassword
	if password == "" {
		password = os.Getenv("MAWAQIT_PASSWORD")
	}
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password given")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.requireStore(); err != nil {
		return err
	}

	resp, err := s.client.Login(cmd.Context(), strings.TrimSpace(flagPhone), password)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exp, ok := api.TokenExpiry(resp.Token); ok {
		fmt.Fprintf(out, "Logged in %s (session valid until %s)\n", display.Green("✓"), exp.Local().Format(time.DateTime))
		return nil
	}
	fmt.Fprintf(out, "Logged in %s\n", display.Green("✓"))
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			store, err := s.requireStore()
			if err != nil {
				return err
			}
			if err := store.ClearToken(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

type whoamiJSON struct {
	api.User
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in administrator",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if s.store != nil {
		if tok, _ := s.store.Token(ctx); tok != "" && api.TokenExpired(tok, clock()) {
			if err := s.store.ClearToken(ctx); err != nil {
				s.log.Warn().Err(err).Msg("failed to clear expired token")
			}
			return explain(api.ErrUnauthorized)
		}
	}

	user, err := s.client.Me(ctx)
	if err != nil {
		return explain(err)
	}

	res := whoamiJSON{User: *user}
	if s.store != nil {
		if tok, _ := s.store.Token(ctx); tok != "" {
			if exp, ok := api.TokenExpiry(tok); ok {
				res.ExpiresAt = &exp
			}
		}
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printJSON(out, res)
	}
	fmt.Fprintf(out, "%s (%s)\n", display.Bold(user.Name), user.PhoneNumber)
	if user.Role != "" {
		fmt.Fprintf(out, "role: %s\n", user.Role)
	}
	if res.ExpiresAt != nil {
		left := res.ExpiresAt.Sub(clock()).Round(time.Minute)
		msg := fmt.Sprintf("session expires in %s", left)
		if left < 15*time.Minute {
			msg = display.Yellow(msg)
		}
		fmt.Fprintln(out, msg)
	}
	return nil
}

func newSubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe <push-token>",
		Short: "Register a device push token for a city's notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagSectionID < 1 {
				return errors.New("--section-id is required (see `mawaqit cities`)")
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.client.Subscribe(cmd.Context(), strings.TrimSpace(args[0]), flagSectionID); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to section %d\n", flagSectionID)
			return nil
		},
	}
	cmd.Flags().IntVar(&flagSectionID, "section-id", 0, "City (section) ID to subscribe to")
	return cmd
}
