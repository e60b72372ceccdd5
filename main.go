/*
Package main runs the tweet filter monitor.

The monitor submits a natural-language question over a list of accounts (or
an explicit set of users) to the remote filter service and follows the job
to completion, by polling its status endpoint or by listening on its push
channel.

Run the HTTP API:

	$ tweet-filter serve

Run one filter operation from the terminal:

	$ tweet-filter filter --question "Is this about Go?" --list golang

Endpoints:
  - POST /filter: Start a filter operation.
  - GET /filter?since=<version>: Read (or wait for) the current operation.
  - GET|POST /accounts: List or add monitored accounts.
  - GET /tweets, GET /tweets/{username}: Recent tweets, cached.
*/
package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/Nexora-Open-Source/tweet-filter/config"
	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/spf13/cobra"
)

var (
	flagEnvFile   string
	flagVerbose   bool
	flagTransport string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "tweet-filter",
	Short:        "Submit tweet filter jobs and monitor them to completion",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Fprintln(out, "tweet-filter: no build info")
			return
		}
		fmt.Fprintf(out, "tweet-filter %s (%s)\n", buildVersion(), info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision", "vcs.time", "vcs.modified":
				fmt.Fprintf(out, "  %s: %s\n", s.Key, s.Value)
			}
		}
	},
}

// @title Tweet Filter Monitor API
// @version 1.0
// @description Local operator API for submitting tweet filter jobs and following them to completion.
// @host localhost:8080
// @BasePath /
func main() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagTransport, "transport", "", "job transport, poll or push (overrides TRANSPORT)")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initApp
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		middleware.Logger.WithError(err).Error("tweet-filter failed")
		os.Exit(1)
	}
}

// initApp loads configuration for every subcommand except version
func initApp(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}

	config.LoadEnv(flagEnvFile)
	cfg := config.NewConfig()
	if flagTransport != "" {
		cfg.Transport = strings.ToLower(flagTransport)
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	cfg.Version = buildVersion()

	middleware.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appConfig = cfg
	return nil
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "devel"
	}
	return info.Main.Version
}
