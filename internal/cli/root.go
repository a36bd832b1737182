package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/dosgrid/internal/app"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/registry"
)

// Exit codes.
const (
	ExitFailure = 1 // the network failed while running
	ExitUsage   = 2 // bad flags, unreadable description or wiring error
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel        string
	LogFormat       string
	HealthcheckPort int
	Telemetry       string

	// modules overrides the compiled-in client modules, for tests.
	modules []registry.Module
}

// config validates the options for the given network path.
func (o *RootOptions) config(path string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		NetworkPath:     path,
		LogLevel:        strings.ToLower(o.LogLevel),
		LogFormat:       strings.ToLower(o.LogFormat),
		HealthcheckPort: o.HealthcheckPort,
		TelemetryPath:   o.Telemetry,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// NewRootCommand creates the root command of the dosgrid CLI.
func NewRootCommand(modules ...registry.Module) *cobra.Command {
	opts := &RootOptions{modules: modules}

	cmd := &cobra.Command{
		Use:   "dosgrid",
		Short: "dosgrid - concurrent multi-rate actor networks",
		Long: `dosgrid runs networks of independently clocked actors exchanging typed
values over bounded links. Networks are described in HCL or YAML files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "logging level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log output format (text|json)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewClientsCommand(opts))

	return cmd
}

// Execute runs the CLI with args. Output goes to outW and logs to errW. The
// returned error, if any, is an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, modules ...registry.Module) error {
	cmd := NewRootCommand(modules...)
	cmd.SetArgs(args)
	cmd.SetOut(outW)
	cmd.SetErr(errW)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Errors raised by cobra itself: unknown commands, wrong argument counts.
	return usageError(err)
}

// classify maps an application error to its exit code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var runErr *network.RunError
	if errors.As(err, &runErr) {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	return usageError(err)
}

func newApp(cmd *cobra.Command, opts *RootOptions, args []string) (*app.App, error) {
	if len(args) == 0 {
		return nil, usageError(fmt.Errorf("a network path is required"))
	}
	cfg, err := opts.config(args[0])
	if err != nil {
		return nil, err
	}
	return app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts.modules...), nil
}
