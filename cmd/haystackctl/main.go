package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lyzr/haystack/common/clients"
	"github.com/lyzr/haystack/common/config"
	"github.com/lyzr/haystack/common/logger"
)

type app struct {
	cfg *config.Config
	log *logger.Logger
}

var (
	application = &app{}

	rootCmd = &cobra.Command{
		Use:           "haystackctl",
		Short:         "Administer haystack store partitions and caches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return application.init()
		},
	}
)

func init() {
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newLocateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// init loads the shared configuration. Logs go to stderr so command output
// on stdout stays clean.
func (a *app) init() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load("haystackctl")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.log = logger.NewWithWriter(os.Stderr, cfg.Service.LogLevel, cfg.Service.LogFormat)
	return nil
}

// commandContext tags the command context with a request id the servers
// will log alongside their own entries
func commandContext(cmd *cobra.Command) context.Context {
	return clients.WithRequestID(cmd.Context(), uuid.New().String())
}
