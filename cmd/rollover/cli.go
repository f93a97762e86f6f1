package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arthur-debert/rollover/config"
	"github.com/arthur-debert/rollover/rollover"
	"github.com/arthur-debert/rollover/schedule"
	"github.com/arthur-debert/rollover/store"
	"github.com/arthur-debert/rollover/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// CLI is the rollover command line. It plays the host application: the
// note tree and the synced state live in local JSON files.
type CLI struct {
	source   *config.Source
	rootCmd  *cobra.Command
	logger   *slog.Logger
	logFile  io.Closer
	registry *prometheus.Registry
	metrics  *rollover.Metrics

	// now is the clock shared by the engine, the store and the scheduler
	now       func() time.Time
	storeOpts []store.Option
}

// host is everything a command needs to act on the tree
type host struct {
	treePath string
	tree     *store.Tree
	state    *store.State
	engine   *rollover.Engine
	auto     *schedule.AutoRoller
}

// NewCLI creates the rollover CLI with config discovery, flags and commands set up
func NewCLI() *CLI {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cli := &CLI{
		source:   config.New(""),
		logger:   slog.Default(),
		registry: registry,
		metrics:  rollover.NewMetrics(registry),
		now:      time.Now,
	}

	cli.createRootCommand()
	cli.addGlobalFlags()
	cli.addCommands()

	return cli
}

// Execute runs the command line and releases the log file afterwards
func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

// ExecuteContext is Execute with a parent context for the commands
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	defer func() {
		if cli.logFile != nil {
			_ = cli.logFile.Close()
			cli.logFile = nil
		}
	}()
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "rollover",
		Short: "Roll unfinished todos forward into today's daily document",
		Long: `rollover finds unfinished todos in recent daily documents and moves them
(or, in portal mode, mirrors them) into today's daily document.

The note tree and the scheduler state are kept in local JSON files so the
engine can be driven from the command line or left running with 'watch'.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (ROLLOVER_*)
3. Configuration file (rollover.yaml)
4. Built-in defaults

Configuration File Discovery:
  ROLLOVER_CONFIG=/path/to/rollover.yaml   # Custom config file path
  ./rollover.yaml                          # Current directory
  ~/.rollover/rollover.yaml                # User directory
  /etc/rollover/rollover.yaml              # System directory

Examples:
  # Seed a tree from an outline, then roll yesterday's todos forward
  rollover import week.yaml
  rollover run

  # Preview without touching the tree
  rollover run --dry-run --format yaml

  # Mirror instead of move, and keep the scheduler running
  ROLLOVER_PORTAL_MODE=true rollover watch --metrics-addr :9090`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.setup(cmd)
		},
	}
}

// addGlobalFlags adds persistent flags that apply to all commands and
// binds them to viper so they override env and file values
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()
	d := types.DefaultSettings()

	flags.String("config", "", "Config file path (default: discovered rollover.yaml)")
	flags.String(config.KeyTree, config.DefaultTreePath, "Tree file path")
	flags.String(config.KeyState, config.DefaultStatePath, "State file path")
	flags.String(config.KeyLogLevel, "warn", "Log level: debug|info|warn|error")
	flags.BoolP("verbose", "v", false, "Also write logs to stderr")

	flags.String(config.KeyAutoRollover, d.AutoRolloverTime, "Time of day (HH:MM) after which the automatic run is due")
	flags.Bool(config.KeyPortalMode, d.PortalMode, "Mirror todos into today instead of moving them")
	flags.Int(config.KeyDateLimit, d.DateLimit, "How many days back daily documents are scanned")
	flags.Bool(config.KeyRetainCompleted, d.RetainCompleted, "Keep finished todos anchored in their original day")
	flags.Bool(config.KeyDebug, d.Debug, "Log the scheduler decision trace")
	flags.String(config.KeyMoveOrder, string(d.MoveOrder), "Order of moved todos: append|prepend")
	flags.Duration(config.KeyInterval, d.Interval, "Scheduler tick interval for watch")

	v := cli.source.Viper()
	for _, key := range []string{
		config.KeyTree, config.KeyState, config.KeyLogLevel,
		config.KeyAutoRollover, config.KeyPortalMode, config.KeyDateLimit,
		config.KeyRetainCompleted, config.KeyDebug, config.KeyMoveOrder, config.KeyInterval,
	} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}
}

// addCommands adds every subcommand
func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newRunCommand(),
		cli.newAutoCommand(),
		cli.newBumpCommand(),
		cli.newCleanupCommand(),
		cli.newExcludeCommand(),
		cli.newIncludeCommand(),
		cli.newShowCommand(),
		cli.newImportCommand(),
		cli.newFindCommand(),
		cli.newWatchCommand(),
		cli.newConfigCommand(),
	)
}

// setup reads the configuration and starts logging before any command runs
func (cli *CLI) setup(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cli.source.Viper().SetConfigFile(path)
	}

	settings, err := cli.source.Settings()
	if err != nil {
		return NewConfigError("load configuration", err)
	}

	var stderr io.Writer
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		stderr = cmd.ErrOrStderr()
	}
	logger, closer, err := initLogging(cli.source.String(config.KeyLogLevel), settings.Debug, stderr)
	if err != nil {
		return NewConfigError("initialize logging", err)
	}
	cli.logger = logger
	cli.logFile = closer

	logger.Debug("configuration loaded",
		"config_file", cli.source.ConfigFileUsed(),
		"tree", cli.source.String(config.KeyTree),
		"state", cli.source.String(config.KeyState),
		"portal_mode", settings.PortalMode)
	return nil
}

// openHost opens the tree and state files and builds the engine around them
func (cli *CLI) openHost(cmd *cobra.Command) (*host, error) {
	opts := append([]store.Option{store.WithTimeFunc(cli.now)}, cli.storeOpts...)

	treePath := cli.source.String(config.KeyTree)
	tree, err := store.OpenTree(treePath, opts...)
	if err != nil {
		return nil, NewStoreError("open tree", err,
			CommonSuggestions.CheckTree,
			CommonSuggestions.CheckPerms)
	}
	state := store.OpenState(cli.source.String(config.KeyState), opts...)

	notifier := &consoleNotifier{w: cmd.ErrOrStderr(), logger: cli.logger}
	engine := rollover.New(tree, notifier, cli.source,
		rollover.WithLogger(cli.logger),
		rollover.WithMetrics(cli.metrics),
		rollover.WithTimeFunc(cli.now))

	return &host{
		treePath: treePath,
		tree:     tree,
		state:    state,
		engine:   engine,
		auto:     schedule.NewAutoRoller(engine, state, cli.source, cli.logger),
	}, nil
}

// consoleNotifier shows engine notices on the terminal
type consoleNotifier struct {
	w      io.Writer
	logger *slog.Logger
}

// Notify implements types.Notifier
func (n *consoleNotifier) Notify(ctx context.Context, message string) error {
	n.logger.Info("notice", "message", message)
	_, err := fmt.Fprintln(n.w, message)
	return err
}
