package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"igfeed/pkg/retry"
)

// loginPassword is filled by the interactive prompt and merged like a flag
var loginPassword string

var forceLogin bool

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and cache the session",
	Long: `Log in to Instagram and store the session cookies in the configured session backend.

The password is read from IGFEED_PASSWORD or the config file. When neither is
set you are prompted for it; input is hidden. A cached session that is still
valid is reused unless --force is given.`,
	Example: `  # Log in with the configured username
  igfeed login

  # Log in as a specific account, ignoring any cached session
  igfeed login myaccount --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a cached session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the usernames with a cached session",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	loginCmd.Flags().BoolVarP(&forceLogin, "force", "f", false, "log in again even if a cached session exists")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		username = args[0]
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if cfg.Instagram.Username == "" {
		fmt.Fprint(os.Stderr, "Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
		if username == "" {
			return errors.New("username is required")
		}
	}
	if cfg.Instagram.Password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		loginPassword, err = readPassword(reader)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	err = retry.Do(cmd.Context(), func(ctx context.Context) error {
		return s.client.Login(ctx, forceLogin)
	}, s.retry)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printer.Success("Logged in as %s", s.cfg.Instagram.Username)
	printer.Info("Session backend", s.cfg.Session.Backend)
	return nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line read when stdin is piped
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	name := s.cfg.Instagram.Username
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return errors.New("no username given and none configured")
	}
	if err := s.store.Delete(cmd.Context(), name); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	printer.Success("Removed cached session for %s", name)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	names, err := s.store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(names) == 0 {
		names = []string{}
		printer.Hint("No cached sessions. Run 'igfeed login' to create one.")
	}
	return writeResult(cmd, names)
}
