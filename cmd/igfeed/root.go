package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"igfeed/pkg/config"
	"igfeed/pkg/instagram"
	"igfeed/pkg/logger"
	"igfeed/pkg/ratelimit"
	"igfeed/pkg/retry"
	"igfeed/pkg/sessions"
	"igfeed/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile     string
	logLevel       string
	outputFormat   string
	username       string
	sessionBackend string
	noRetry        bool
	quiet          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igfeed",
	Short: "Read Instagram account, hashtag and location feeds",
	Long: `igfeed reads public Instagram feeds through the endpoints of the web front end.

Features:
  - Account, hashtag and location feeds with resumable cursors
  - Single media lookup by URL, short code or numeric id
  - Comments, search and account lookup by id
  - Login sessions cached in a file, keyring, Redis or SQLite
  - Rate limiting and retry of transient failures

Results are written to stdout as JSON or YAML.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		printer.SetQuiet(quiet)
		if _, err := outputEncoder(outputFormat); err != nil {
			return err
		}
		return nil
	},
}

// printer writes status lines to stderr so stdout stays machine readable
var printer = ui.Stderr()

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the running request.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		printer.Error("Command failed", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igfeed.yaml or ~/.config/igfeed/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatJSON, "output format (json, yaml)")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "Instagram username to log in as")
	rootCmd.PersistentFlags().StringVar(&sessionBackend, "session-backend", "", "session cache (memory, file, encrypted, keyring, redis, sqlite)")
	rootCmd.PersistentFlags().BoolVar(&noRetry, "no-retry", false, "do not retry transient failures")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress status output")

	rootCmd.SetVersionTemplate(`igfeed {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and global flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := map[string]interface{}{
		"username":        username,
		"session-backend": sessionBackend,
		"log-level":       logLevel,
		"password":        loginPassword,
	}
	if cmd.Flags().Changed("no-retry") {
		flags["retry"] = !noRetry
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// session bundles what a command needs to talk to Instagram
type session struct {
	cfg    *config.Config
	log    logger.Logger
	store  sessions.Store
	client *instagram.Client
	retry  *retry.Config
}

// openSession builds the client for a command. When login is true and a
// username is configured, the cached session is reused or a new one is
// created before any feed request.
func openSession(cmd *cobra.Command, login bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger()
	ctx := cmd.Context()

	store, err := sessions.Open(ctx, &cfg.Session, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	opts := []instagram.Option{
		instagram.WithSessionCache(store),
		instagram.WithIdentity(cfg.Instagram.Username, cfg.Instagram.Password),
		instagram.WithUserAgent(cfg.Instagram.UserAgent),
		instagram.WithSessionTTL(cfg.Session.TTL),
	}
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		opts = append(opts, instagram.WithRateLimiter(ratelimit.New(cfg.RateLimit.Strategy, rpm, time.Minute)))
	}

	s := &session{
		cfg:    cfg,
		log:    log,
		store:  store,
		client: instagram.NewClient(cfg.HTTP.Timeout, log, opts...),
		retry:  retry.FromConfig(cfg.Retry, log),
	}

	if !login || cfg.Instagram.Username == "" {
		return s, nil
	}
	if cfg.Instagram.Password == "" {
		if err := s.restore(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	err = retry.Do(ctx, func(ctx context.Context) error {
		return s.client.Login(ctx, false)
	}, s.retry)
	if err != nil {
		return nil, fmt.Errorf("login as %s failed: %w", cfg.Instagram.Username, err)
	}
	log.WithField("username", cfg.Instagram.Username).Debug("session ready")
	return s, nil
}

// restore makes the cached session of the configured username current
// without logging in. Without a usable cached session the client stays
// anonymous.
func (s *session) restore(ctx context.Context) error {
	name := s.cfg.Instagram.Username
	record, err := s.store.Get(ctx, name)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		printer.Warning("No cached session for %s, continuing anonymously. Run 'igfeed login' first.", name)
		return nil
	case err != nil:
		return fmt.Errorf("failed to load cached session: %w", err)
	case record.Expired(s.cfg.Session.TTL, time.Now()):
		printer.Warning("The cached session for %s has expired, continuing anonymously", name)
		return nil
	}

	s.client.SetSession(&instagram.Session{Username: record.Username, Cookies: record.Cookies, SavedAt: record.SavedAt})
	s.log.WithField("username", name).Debug("restored cached session")
	return nil
}

// call runs op under the retry policy of the session
func call[T any](ctx context.Context, s *session, op retry.OperationWithResult[T]) (T, error) {
	return retry.DoWithResult(ctx, op, s.retry)
}
