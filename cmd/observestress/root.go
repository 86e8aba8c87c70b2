package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/observation"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// overrides, applied only when the flag was set
	Subjects        int
	Properties      int
	Sessions        int
	ReadsPerSession int
	Writers         int
	Seed            int64

	// resolved by PersistentPreRunE
	config StressConfig
	logger *slog.Logger
}

// NewRootCommand creates the root command of the observestress CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	defaults := DefaultStressConfig()

	cmd := &cobra.Command{
		Use:           "observestress",
		Short:         "Stress one-shot change tracking",
		Long:          "Installs tracking sessions while concurrent writers mutate the tracked properties, then checks that every session fired exactly once and left no registration behind.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML stress config file")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	flags.IntVar(&opts.Subjects, "subjects", defaults.Subjects, "number of subjects")
	flags.IntVar(&opts.Properties, "properties", defaults.Properties, "properties per subject")
	flags.IntVar(&opts.Sessions, "sessions", defaults.Sessions, "number of tracking sessions")
	flags.IntVar(&opts.ReadsPerSession, "reads", defaults.ReadsPerSession, "property reads per session")
	flags.IntVar(&opts.Writers, "writers", defaults.Writers, "concurrent writer goroutines")
	flags.Int64Var(&opts.Seed, "seed", defaults.Seed, "random seed")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) resolve(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.LogLevel, err)
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg := DefaultStressConfig()
	if o.ConfigPath != "" {
		loaded, err := LoadStressConfig(o.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("subjects") {
		cfg.Subjects = o.Subjects
	}
	if flags.Changed("properties") {
		cfg.Properties = o.Properties
	}
	if flags.Changed("sessions") {
		cfg.Sessions = o.Sessions
	}
	if flags.Changed("reads") {
		cfg.ReadsPerSession = o.ReadsPerSession
	}
	if flags.Changed("writers") {
		cfg.Writers = o.Writers
	}
	if flags.Changed("seed") {
		cfg.Seed = o.Seed
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.config = cfg
	return nil
}

// ErrStressFailed is returned by the run command when the report is not clean.
var ErrStressFailed = errors.New("stress run detected double fires, missed fires or leaks")

// NewRunCommand creates the run subcommand.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stress scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			tracker := observation.NewTracker(
				observation.WithLogger(opts.logger),
				observation.WithRegisterer(reg),
			)

			opts.logger.Info("stress run starting",
				"subjects", opts.config.Subjects,
				"sessions", opts.config.Sessions,
				"writers", opts.config.Writers,
			)

			report, err := RunStress(cmd.Context(), opts.config, tracker)
			if err != nil {
				return fmt.Errorf("stress run failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := report.Write(out); err != nil {
				return err
			}

			if showMetrics {
				if err := writeMetrics(out, reg); err != nil {
					return err
				}
			}

			if !report.OK() {
				return ErrStressFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print the tracker metrics after the report")

	return cmd
}

// NewConfigCommand creates the config subcommand.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective stress config as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(opts.config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}

			if _, err := fmt.Fprintf(w, "%s %g\n", mf.GetName(), value); err != nil {
				return err
			}
		}
	}

	return nil
}
