package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/erauner12/groceries/internal/app"
	"github.com/erauner12/groceries/internal/config"
)

// rootOptions holds the global flags. Flags override the config file and
// environment only when set explicitly.
type rootOptions struct {
	configPath string
	apiURL     string
	dataDir    string
	transport  string
	logLevel   string
	logFile    string
	debug      bool

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "groceries",
		Short:         "Shared grocery list with offline support",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			setupLogging(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("GROCERIES_CONFIG"), "path to JSON config file")
	flags.StringVar(&opts.apiURL, "api", "", "server base URL")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for the local cache")
	flags.StringVar(&opts.transport, "transport", "", "live update transport (sse|websocket)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	flags.BoolVar(&opts.debug, "debug", false, "human readable logs with caller info")

	cmd.AddCommand(
		newListCommand(opts),
		newAddCommand(opts),
		newEditCommand(opts),
		newCheckCommand(opts, true),
		newCheckCommand(opts, false),
		newRemoveCommand(opts),
		newClearCheckedCommand(opts),
		newCategoryCommand(opts),
		newRecipeCommand(opts),
		newSyncCommand(opts),
		newWatchCommand(opts),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.APIBaseURL = opts.apiURL
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("transport") {
		cfg.Transport = opts.transport
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging configures the global logger.
func setupLogging(cfg *config.Config, stderr io.Writer) {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	out := stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	if cfg.Debug {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.LogFile != "",
		}).With().Timestamp().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// withSession opens a session, loads fresh data (or the cache when
// offline), runs fn and closes the session.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *app.Session) error) error {
	ctx := cmd.Context()
	s, err := app.Open(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}
