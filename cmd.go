package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	app "github.com/rocketscienceinc/tictactoe-arena/internal"
	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/session"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tui"
)

const (
	envPrefix       = "TICTACTOE"
	localIdentity   = "local"
	terminalLogFile = "tictactoe-arena/tictactoe.log"
)

var ErrNoRecordedMatch = errors.New("no recorded match to replay")

type options struct {
	configPath string
	logLevel   string
	httpPort   string

	mode     string
	size     int
	mark     string
	identity string
	delay    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "tictactoe",
		Short:         "N×N tic-tac-toe for the terminal and the browser.",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to config.yml (env: TICTACTOE_CONFIG)")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (env: TICTACTOE_LOG_LEVEL)")
	fs.StringVar(&opts.identity, "identity", localIdentity, "identity recorded in the local history (env: TICTACTOE_IDENTITY)")

	cmd.AddCommand(newServeCmd(opts), newPlayCmd(opts), newReplayCmd(opts))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("tictactoe v{{.Version}}\n")

	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST and WebSocket server backed by Redis.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if opts.httpPort != "" {
				conf.HTTPPort = opts.httpPort
			}

			logger := initLogger(os.Stdout, conf.LogLevel)

			return app.RunApp(logger, conf)
		},
	}

	cmd.Flags().StringVarP(&opts.httpPort, "port", "p", "", "port to listen on (env: TICTACTOE_PORT)")
	bindFlags(cmd)

	return cmd
}

func newPlayCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a local or vs-computer game in the terminal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd.Context(), opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.mode, "mode", "m", "computer", "local or computer (env: TICTACTOE_MODE)")
	fs.IntVarP(&opts.size, "size", "s", 0, "grid size, 3 to 5 (env: TICTACTOE_SIZE)")
	fs.StringVar(&opts.mark, "mark", "X", "your mark against the computer (env: TICTACTOE_MARK)")
	fs.DurationVar(&opts.delay, "delay", 0, "computer thinking time (env: TICTACTOE_DELAY)")
	bindFlags(cmd)

	return cmd
}

func newReplayCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the last locally recorded match.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReplay(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "time between replayed moves (env: TICTACTOE_DELAY)")
	bindFlags(cmd)

	return cmd
}

// bindFlags lets TICTACTOE_* variables fill any flag that wasn't set on the command line.
func bindFlags(cmd *cobra.Command) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		var errs []error

		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
					errs = append(errs, fmt.Errorf("invalid %s: %w", f.Name, err))
				}
			}
		})

		return errors.Join(errs...)
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.SearchPath()
	}

	if path == "" {
		if _, err := os.Stat("config.yml"); err == nil {
			path = "config.yml"
		}
	}

	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if opts.logLevel != "" {
		conf.LogLevel = opts.logLevel
	}

	return conf, nil
}

// initialize logger.
func initLogger(w io.Writer, logLevel string) *slog.Logger {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// terminalSession holds what the terminal commands share: the logger writing to a file, since
// stdout belongs to the board, and the local history.
type terminalSession struct {
	conf    *config.Config
	logger  *slog.Logger
	stats   service.StatsService
	closers []io.Closer
}

func openTerminalSession(ctx context.Context, opts *options) (*terminalSession, error) {
	conf, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logPath, err := xdg.StateFile(terminalLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log path: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	historyPath, err := conf.History.ResolvePath()
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	history, err := storage.NewSQLiteStorage(historyPath)
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("could not open history: %w", err)
	}

	if err = history.Init(ctx); err != nil {
		_ = history.Close()
		_ = logFile.Close()
		return nil, fmt.Errorf("could not init history: %w", err)
	}

	stats := service.NewStatsService(
		repository.NewSQLMatchRepository(history.Connection),
		repository.NewSQLStatsRepository(history.Connection),
	)

	return &terminalSession{
		conf:    conf,
		logger:  initLogger(logFile, conf.LogLevel),
		stats:   stats,
		closers: []io.Closer{history, logFile},
	}, nil
}

func (that *terminalSession) Close() {
	for _, closer := range that.closers {
		_ = closer.Close()
	}
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func runPlay(ctx context.Context, opts *options) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	term, err := openTerminalSession(ctx, opts)
	if err != nil {
		return err
	}
	defer term.Close()

	sessionOpts := session.Options{
		GridSize: opts.size,
		Identity: opts.identity,
		Recorder: term.stats,
		Logger:   term.logger,
	}
	if sessionOpts.GridSize == 0 {
		sessionOpts.GridSize = term.conf.Game.DefaultGridSize
	}

	switch opts.mode {
	case "local":
		sessionOpts.Mode = session.ModeLocal
	case "computer":
		sessionOpts.Mode = session.ModeComputer
		sessionOpts.Bot = service.NewBotService()
		sessionOpts.HumanMark = entity.Mark(strings.ToUpper(opts.mark))
		sessionOpts.ComputerDelay = opts.delay
		if sessionOpts.ComputerDelay == 0 {
			sessionOpts.ComputerDelay = term.conf.Game.ComputerDelay
		}
	default:
		return fmt.Errorf("unknown mode %q, expected local or computer", opts.mode)
	}

	controller, err := session.New(sessionOpts)
	if err != nil {
		return err
	}

	if err = controller.Start(ctx); err != nil {
		return err
	}

	return tui.NewGame(term.logger, controller).Run(ctx)
}

func runReplay(ctx context.Context, opts *options) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	term, err := openTerminalSession(ctx, opts)
	if err != nil {
		return err
	}
	defer term.Close()

	matches, err := term.stats.History(ctx, opts.identity, 1)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(matches) == 0 {
		return ErrNoRecordedMatch
	}

	match := matches[0]

	controller, err := session.New(session.Options{
		Mode:     session.ModeLocal,
		GridSize: match.GridSize,
		Logger:   term.logger,
	})
	if err != nil {
		return err
	}

	if err = controller.Start(ctx); err != nil {
		return err
	}

	delay := opts.delay
	if delay == 0 {
		delay = term.conf.Game.ReplayDelay
	}

	return tui.NewReplay(term.logger, controller, match, delay).Run(ctx)
}
