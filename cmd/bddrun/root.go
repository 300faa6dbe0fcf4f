package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kuitang/playwright-bdd/internal/config"
	"github.com/kuitang/playwright-bdd/internal/errs"
	"github.com/kuitang/playwright-bdd/internal/obs"
	"github.com/kuitang/playwright-bdd/internal/runner"
)

// exitError carries the process exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return errs.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return errs.ExitCode(errs.CodeOf(err))
}

type rootCmd struct {
	configPath    string
	tags          string
	format        string
	strict        bool
	stopOnFailure bool
	noColors      bool

	// run is swapped out in tests.
	run func(cmd *cobra.Command, opts runner.Options) (int, error)
}

func defaultRun(cmd *cobra.Command, opts runner.Options) (int, error) {
	return runner.Run(cmd.Context(), opts)
}

func (c *rootCmd) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, &exitError{code: errs.ExitCode(errs.InvalidArgument), err: err}
	}
	if !obs.SetLevel(cfg.LogLevel) {
		obs.Pkg("bddrun").Warn("unknown log level, keeping info", "log_level", cfg.LogLevel)
	}
	return cfg, nil
}

func (c *rootCmd) runE(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	status, err := c.run(cmd, runner.Options{
		Config:        cfg,
		Paths:         args,
		Tags:          c.tags,
		Format:        c.format,
		Strict:        c.strict,
		StopOnFailure: c.stopOnFailure,
		NoColors:      c.noColors,
		Output:        cmd.OutOrStdout(),
	})
	if err != nil || status != errs.ExitOK {
		return &exitError{code: status, err: err}
	}
	return nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &rootCmd{run: defaultRun}
	return c.command(stdout, stderr)
}

func (c *rootCmd) command(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "bddrun [feature paths...]",
		Short: "Run Gherkin feature files against a real browser",
		Long: `Run Gherkin feature files against a Playwright-driven browser.

Each scenario gets a fresh page and trace in one shared browser context.
Failed scenarios keep a trace and a screenshot under the reports directory.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runE,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Wrap(errs.InvalidArgument, "parse flags", err)
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", config.DefaultConfigFile, "YAML configuration file")

	runFlags := root.Flags()
	runFlags.StringVarP(&c.tags, "tags", "t", "", "tag expression selecting scenarios, e.g. \"@smoke && ~@wip\"")
	runFlags.StringVarP(&c.format, "format", "f", "pretty", "godog output format (pretty, progress, cucumber, junit)")
	runFlags.BoolVar(&c.strict, "strict", false, "fail on undefined or pending steps")
	runFlags.BoolVar(&c.stopOnFailure, "stop-on-failure", false, "stop at the first failed scenario")
	runFlags.BoolVar(&c.noColors, "no-colors", false, "disable colored output")

	root.AddCommand(c.configCommand())
	return root
}

func (c *rootCmd) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cfg.PrintSummary(cmd.OutOrStdout())
			return nil
		},
	}
}
