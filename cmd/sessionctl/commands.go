package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	sessionbridge "github.com/opengovern/session-bridge"
	"github.com/opengovern/session-bridge/utils"
)

var errSessionEnded = errors.New("session ended")

// loginConfig holds configuration for the login command.
type loginConfig struct {
	email         string
	password      string
	passwordStdin bool
}

func newLoginCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().BoolVar(&cfg.passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func runLogin(cmd *cobra.Command, cfg *loginConfig) error {
	password, err := resolvePassword(cmd.InOrStdin(), cfg.password, cfg.passwordStdin)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	return rt.finish(rt.bridge.SubmitLogin(cmd.Context(), cfg.email, password))
}

// registerConfig holds configuration for the register command.
type registerConfig struct {
	name          string
	email         string
	password      string
	passwordStdin bool
}

func newRegisterCmd() *cobra.Command {
	cfg := &registerConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegister(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.name, "name", "", "display name")
	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().BoolVar(&cfg.passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func runRegister(cmd *cobra.Command, cfg *registerConfig) error {
	password, err := resolvePassword(cmd.InOrStdin(), cfg.password, cfg.passwordStdin)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	return rt.finish(rt.bridge.SubmitRegister(cmd.Context(), cfg.name, cfg.email, password))
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message, or one message per stdin line",
		Long: `With arguments, chat sends them as a single message. Without arguments it
reads stdin and sends each non-empty line in turn, stopping when the session ends.`,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	if d := rt.bridge.EnsureSession(); d.ShouldRedirect {
		rt.report(sessionEndedOutcome(d.RedirectTarget))
		return errSessionEnded
	}

	if len(args) > 0 {
		return rt.finish(rt.bridge.SendChatMessage(cmd.Context(), strings.Join(args, " ")))
	}

	var failed error
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out := rt.bridge.SendChatMessage(cmd.Context(), line)
		if err := rt.finish(out); err != nil {
			failed = err
		}
		if out.Redirect != "" || cmd.Context().Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return failed
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on the server and forget the local token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			rt.report(rt.bridge.Logout(cmd.Context()))
			return nil
		},
	}
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// SessionStatus describes the locally stored session.
type SessionStatus struct {
	LoggedIn  bool       `json:"logged_in"`
	Token     string     `json:"token,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	Type      string     `json:"type,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
	Error     string     `json:"error,omitempty"`
}

func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the locally stored session",
		Long: `Show whether a token is stored and what its claims say. The claims are
decoded without verification; only the server decides whether the session is valid.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			status := sessionStatus(rt.store.Get())
			if cfg.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			writeStatusTable(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func sessionStatus(token string, ok bool) SessionStatus {
	if !ok || token == "" {
		return SessionStatus{}
	}
	status := SessionStatus{LoggedIn: true, Token: utils.MaskToken(token)}
	info, err := utils.InspectToken(token)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Subject = info.Subject
	status.Type = info.Type
	if !info.IssuedAt.IsZero() {
		status.IssuedAt = &info.IssuedAt
	}
	if !info.ExpiresAt.IsZero() {
		status.ExpiresAt = &info.ExpiresAt
	}
	status.Expired = info.Expired(time.Now())
	return status
}

func writeStatusTable(w io.Writer, s SessionStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if !s.LoggedIn {
		fmt.Fprintln(tw, "SESSION\tlogged out")
		return
	}
	fmt.Fprintln(tw, "SESSION\tlogged in")
	fmt.Fprintf(tw, "TOKEN\t%s\n", s.Token)
	if s.Error != "" {
		fmt.Fprintf(tw, "CLAIMS\tunreadable (%s)\n", s.Error)
		return
	}
	if s.Subject != "" {
		fmt.Fprintf(tw, "SUBJECT\t%s\n", s.Subject)
	}
	if s.ExpiresAt != nil {
		fmt.Fprintf(tw, "EXPIRES\t%s\n", s.ExpiresAt.Format(time.RFC3339))
	}
	if s.Expired {
		fmt.Fprintln(tw, "NOTE\ttoken has expired; the next chat will end the session")
	}
}

func sessionEndedOutcome(target string) sessionbridge.Outcome {
	return sessionbridge.Outcome{Level: sessionbridge.NoticeError, Message: "Not signed in. Run sessionctl login first.", Redirect: target}
}

func resolvePassword(in io.Reader, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
