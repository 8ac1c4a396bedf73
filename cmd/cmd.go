package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitmon-go/internal/buildinfo"
	"github.com/thiagokokada/gitmon-go/internal/config"
	"github.com/thiagokokada/gitmon-go/internal/logging"
	"github.com/thiagokokada/gitmon-go/internal/monitor"
	"github.com/thiagokokada/gitmon-go/internal/notify"
)

const firstRunMessage = `Configuration not found! %s was created for you. Edit it to tailor your needs.

You can schedule gitmon to run with crontab:

# Edit with 'crontab -e'
# 'git' must be in cron's PATH
PATH=/usr/bin:/usr/local/bin/:/bin
*/5 * * * * gitmon
`

// ExitError carries the process exit code for err.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Run to a process exit code: 0 on
// success, 2 for configuration problems and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, config.ErrInvalid) ||
		errors.Is(err, config.ErrNoRepositories) ||
		errors.Is(err, notify.ErrUnknownNotifier) {
		return 2
	}
	return 1
}

type options struct {
	configFile  string
	verbose     bool
	debug       bool
	daemon      bool
	selftest    bool
	version     bool
	printConfig bool
}

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "gitmon",
		Short:         "Notify about new commits, branches and tags in git repositories",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd.Context(), opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "configuration file (default $"+config.EnvVar+" or ~/"+config.DefaultFileName+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "print progress and warnings")
	flags.BoolVar(&opts.debug, "debug", false, "print debug information")
	flags.BoolVar(&opts.daemon, "daemon", false, "run the built-in scheduler regardless of scheduler.builtin")
	flags.BoolVar(&opts.selftest, "selftest", false, "send a test notification and exit")
	flags.BoolVar(&opts.version, "version", false, "print version information and exit")
	flags.BoolVar(&opts.printConfig, "print-config", false, "print the effective configuration as YAML and exit")
	return cmd
}

func execute(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	if opts.version {
		fmt.Fprintln(stdout, buildinfo.VersionWithTags())
		return nil
	}
	logging.Setup(stderr, opts.verbose, opts.debug)

	cfg, err := config.Load(opts.configFile)
	if errors.Is(err, config.ErrCreated) {
		path := opts.configFile
		if path == "" {
			path, _ = config.DefaultPath()
		}
		fmt.Fprintf(stdout, firstRunMessage, path)
		return nil
	}
	if err != nil {
		return err
	}
	if opts.printConfig {
		out, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("render configuration: %w", err)
		}
		_, err = stdout.Write(out)
		return err
	}

	notifier, err := notify.New(cfg.NotifierType, notify.Settings{
		Command: cfg.CommandLine,
		Sticky:  cfg.StickyNotifications,
		Color:   cfg.ConsoleColor && notify.IsTerminal(stdout),
		Out:     stdout,
	})
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("%w: notifier.type: %w", config.ErrInvalid, err)}
	}

	if opts.selftest {
		dir, _ := os.Getwd()
		slog.Info("sending test notification", slog.String("notifier", cfg.NotifierType))
		if err := notifier.Notify(ctx, notify.TestNotification(cfg.Icon, dir)); err != nil {
			return fmt.Errorf("selftest: %w", err)
		}
		return nil
	}

	m := monitor.New(cfg, notifier)
	if opts.daemon || cfg.BuiltinScheduler {
		return m.Run(ctx)
	}
	_, err = m.CheckAll(ctx)
	return err
}
