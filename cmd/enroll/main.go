package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/xavierca1/pmp-enrollment/internal/enrollment"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

var Version = "dev"

type globalFlags struct {
	server   string
	timeout  time.Duration
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "enroll",
		Short:         "Drive the enrollment flow against a running server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.server, "server", envOr("ENROLL_SERVER", "http://localhost:3000"), "enrollment server base URL")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 15*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(checkoutCmd(flags))
	rootCmd.AddCommand(locationCmd(flags))
	rootCmd.AddCommand(statusCmd(flags))

	return rootCmd
}

func (f *globalFlags) client() *enrollment.APIClient {
	return enrollment.NewAPIClient(f.server, f.timeout)
}

func (f *globalFlags) logger(cmd *cobra.Command) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "enroll",
		Level:       logger.ParseLevel(f.logLevel),
		Format:      "console",
		Output:      cmd.ErrOrStderr(),
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
