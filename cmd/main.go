package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plp-bookstore/configs"
	"plp-bookstore/internal/runner"
	"plp-bookstore/internal/utils"
)

type appEnv struct {
	configPath string
	logLevel   string

	cfg    configs.Config
	logger *zap.Logger
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	app := &appEnv{}
	root := app.rootCommand()
	root.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if app.logger == nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		var failure *runner.OperationFailure
		if !errors.As(err, &failure) {
			// step failures are already logged by the runner
			app.logger.Error("An error occurred", zap.Error(err))
		}
		return 1
	}
	return 0
}

func (app *appEnv) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "plp-bookstore",
		Short:         "Run the bookstore query sequence against MongoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
		RunE: app.runSequence,
	}
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "path to a .toml config file")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run every step in order, stopping at the first failure",
			Args:  cobra.NoArgs,
			RunE:  app.runSequence,
		},
		&cobra.Command{
			Use:   "steps",
			Short: "List the steps without connecting",
			Args:  cobra.NoArgs,
			RunE:  app.listSteps,
		},
		app.serveCommand(),
	)
	return root
}

func (app *appEnv) setup() error {
	cfg, err := configs.LoadConfig(app.configPath)
	if err != nil {
		return err
	}
	if app.logLevel != "" {
		cfg.LogLevel = app.logLevel
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	app.cfg = cfg
	app.logger = logger
	return nil
}

func (app *appEnv) runSequence(cmd *cobra.Command, args []string) error {
	r := runner.New(cmd.OutOrStdout(), app.logger)
	r.AuditCollection = app.cfg.AuditCollection

	open := runner.StoreOpener(app.cfg.MongoURI, app.cfg.DBName, app.cfg.Collection)
	return r.Execute(cmd.Context(), open)
}

func (app *appEnv) listSteps(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for i, op := range runner.New(nil, nil).Steps {
		fmt.Fprintf(out, "%2d  %-24s %-6s %s\n", i+1, op.Name, op.Class(), op.Label)
	}
	return nil
}
