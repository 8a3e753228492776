package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neomorfeo/reportcycle/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes the command line args. Partial failures inside a report run
// are not errors; only configuration and fatal failures are.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// cli carries what every subcommand needs.
type cli struct {
	configFile string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "reportcycle",
		Short: "Monthly time statements for every tenant",
		Long: `reportcycle renders per-worker time statements as PDF and stores them.

The scheduled cycle handles every tenant whose dispatch day is today, covering
the days since its previous dispatch. Manual runs produce revisioned statements
for selected workers and an explicit date range.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to a YAML config file")

	root.AddCommand(c.manualCmd())
	root.AddCommand(c.scheduledCmd())
	root.AddCommand(c.remindCmd())
	root.AddCommand(c.serveCmd())
	return root
}

// load reads the configuration and builds the logger.
func (c *cli) load(flags config.Flags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configFile, flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(c.stderr, cfg), nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, config.FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", cfg.OTel.ServiceName)
}
