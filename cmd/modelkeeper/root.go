package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"modelkeeper/internal/lifecycle"
)

type rootFlags struct {
	configPath string
	logLevel   string
	events     bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "modelkeeper",
		Short:         "Keep a trained classifier or ranker instance available on a remote service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", os.Getenv("MODELKEEPER_CONFIG"), "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().BoolVar(&f.events, "events", false, "Print lifecycle events published by the command to stderr")

	root.AddCommand(newServeCmd(f))

	trainData := ""
	trainCmd := &cobra.Command{Use: "train", Short: "Start a new training job", Example: "  modelkeeper train --data classes.csv", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		var src lifecycle.TrainingSource
		if trainData != "" {
			blob, err := readBlob(trainData)
			if err != nil {
				return err
			}
			src.Blob = blob
		}
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.Train(ctx, src) })
	}}
	trainCmd.Flags().StringVar(&trainData, "data", "", "Training payload file in the service's format (- for stdin); defaults to the configured rows")

	trainIfNeeded := &cobra.Command{Use: "train-if-needed", Short: "Resolve the current instance, training only when none is usable", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.TrainIfNeeded(ctx) })
	}}
	monitor := &cobra.Command{Use: "monitor [id]", Short: "Wait for a training instance to finish, then prune old instances", Args: cobra.MaximumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.MonitorTraining(ctx, optionalID(args)) })
	}}
	status := &cobra.Command{Use: "status [id]", Short: "Check the status of an instance (default: current)", Args: cobra.MaximumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.Status(ctx, optionalID(args)) })
	}}
	list := &cobra.Command{Use: "list", Short: "List instances under the managed name", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.List(ctx) })
	}}
	current := &cobra.Command{Use: "current", Short: "Show the current instance without training", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.Current(ctx) })
	}}
	process := &cobra.Command{Use: "process <text>", Short: "Classify or rank text with the current instance", Example: "  modelkeeper process what is the weather like", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.Process(ctx, text) })
	}}
	data := &cobra.Command{Use: "data <id>", Short: "Show recorded training data grouped by label", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, f, func(ctx context.Context, a *app) (any, error) { return a.mgr.InstanceData(ctx, args[0]) })
	}}
	root.AddCommand(trainCmd, trainIfNeeded, monitor, status, list, current, process, data)
	return root
}

func optionalID(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// setup resolves configuration and builds the app for one command run.
func setup(cmd *cobra.Command, f *rootFlags) (*app, error) {
	cfg, err := loadConfig(f.configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
}

// withApp runs fn and prints its result as indented JSON.
func withApp(cmd *cobra.Command, f *rootFlags, fn func(ctx context.Context, a *app) (any, error)) error {
	a, err := setup(cmd, f)
	if err != nil {
		return err
	}
	defer a.close()
	if f.events {
		pub := lifecycle.NewMemoryPublisher()
		a.mgr.SetEventPublisher(pub)
		defer printEvents(cmd.ErrOrStderr(), pub)
	}
	v, err := fn(cmd.Context(), a)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printEvents writes one JSON line per recorded event.
func printEvents(w io.Writer, pub *lifecycle.MemoryPublisher) {
	enc := json.NewEncoder(w)
	for _, e := range pub.Events() {
		_ = enc.Encode(e)
	}
}
