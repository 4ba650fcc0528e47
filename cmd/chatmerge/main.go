// Command chatmerge merges chat export CSV files from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/chatmerge/internal/config"
	"github.com/JonMunkholm/chatmerge/internal/logging"
)

var version = "dev"

const defaultQueueFile = "chatmerge.toml"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	queuePath string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "chatmerge",
		Short:         "Merge chat export CSV files into one chronological log",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := opts.logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			if level == "" {
				level = "warn"
			}
			// stdout carries CSV, so logs go to stderr
			logging.SetupWriter(cmd.ErrOrStderr(), level, os.Getenv("LOG_FORMAT"))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.queuePath, "queue", defaultQueueFile, "Queue file listing the sources to merge")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(mergeCmd(opts))
	rootCmd.AddCommand(usersCmd(opts))
	rootCmd.AddCommand(saveCmd(opts))
	rootCmd.AddCommand(queueCmd(opts))

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	// a missing .env is fine; real env vars win over the file
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatmerge:", err)
		os.Exit(1)
	}
}
