package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codeduel/internal/cli/command"
	"codeduel/internal/cli/config"
	"codeduel/internal/cli/repl"
	"codeduel/internal/duel"
	"codeduel/internal/duel/async"
	"codeduel/internal/emulator"
	"codeduel/pkg/utils/logger"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/duel.yaml"

type rootFlags struct {
	configPath string
	baseURL    string
	timeout    time.Duration
	scheduling string
	pretty     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "duel",
		Short:         "Play timed multiplayer coding duels from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "Path to config file")
	root.PersistentFlags().StringVar(&flags.baseURL, "base", "", "Override platform base URL")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "Override HTTP timeout (e.g. 10s)")
	root.PersistentFlags().StringVar(&flags.scheduling, "scheduling", "", "blocking or non-blocking")
	root.PersistentFlags().BoolVar(&flags.pretty, "pretty", false, "Pretty print JSON output")

	root.AddCommand(
		newReplCmd(flags),
		newFetchCmd(flags),
		newLanguagesCmd(flags),
		newEmulateCmd(flags),
	)
	return root
}

// loadConfig reads the config file, applies flag overrides and initializes
// the global logger.
func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config failed: %w", err)
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.timeout > 0 {
		cfg.Timeout = flags.timeout
	}
	if flags.scheduling != "" {
		cfg.Scheduling = flags.scheduling
	}
	if flags.pretty {
		value := true
		cfg.PrettyJSON = &value
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return cfg, fmt.Errorf("init logger failed: %w", err)
	}
	return cfg, nil
}

func withApp(flags *rootFlags, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd.Context(), a, args)
	}
}

func newReplCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			session := repl.New(repl.Options{
				Env:         command.NewEnv(a.client),
				Commands:    command.Registry(),
				HTTP:        a.http,
				State:       &a.actorState,
				StatePath:   a.cfg.StatePath,
				HistoryFile: filepath.Join(filepath.Dir(a.cfg.StatePath), "duel_history"),
				PrettyJSON:  a.cfg.PrettyJSON != nil && *a.cfg.PrettyJSON,
				Out:         os.Stdout,
			})
			return session.Run(ctx)
		}),
	}
}

func newFetchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <handle>",
		Short: "Print the state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, a *app, args []string) error {
			session, err := fetchSession(ctx, a, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(os.Stdout, command.NewSessionView(session))
		}),
	}
}

// fetchSession honors the configured scheduling: a non-blocking client
// drives the fetch through a future.
func fetchSession(ctx context.Context, a *app, handle string) (*duel.Session, error) {
	if a.client.Scheduling() != duel.NonBlocking {
		return a.client.Session(ctx, handle)
	}
	client, err := async.Wrap(a.client)
	if err != nil {
		return nil, err
	}
	session, err := client.Session(ctx, handle).Await(ctx)
	if err != nil {
		return nil, err
	}
	return session.Blocking(), nil
}

func newLanguagesCmd(flags *rootFlags) *cobra.Command {
	var invalidate bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the language ids accepted by the platform",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, a *app, _ []string) error {
			if invalidate {
				if err := a.catalog.Invalidate(ctx); err != nil {
					return err
				}
			}
			ids, err := a.catalog.LanguageIDs(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(os.Stdout, ids)
		}),
	}
	cmd.Flags().BoolVar(&invalidate, "refresh", false, "Drop the cached list first")
	return cmd
}

func newEmulateCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Serve an in-memory duel platform for local play",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if addr != "" {
				cfg.Emulator.Addr = addr
			}
			return emulator.New(cfg.Emulator).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides emulator.addr")
	return cmd
}
