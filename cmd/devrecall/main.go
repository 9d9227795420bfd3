// devrecall: persistent memory MCP server for AI coding sessions.
//
// It watches a session's tool activity through observe_event, distills the
// buffer into deduplicated knowledge entries when the session goes idle,
// and serves that knowledge back through the recall_* tools.
//
// Usage:
//
//	devrecall serve    # Start MCP server (stdio transport)
//	devrecall update   # Update to the latest version
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devrecall/devrecall/internal/config"
	recallserver "github.com/devrecall/devrecall/internal/server"
	"github.com/devrecall/devrecall/internal/updater"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devrecall",
		Short:         "Persistent memory MCP server for AI coding sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCmd(), newVersionCmd(), newUpdateCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			s, cleanup, err := recallserver.New(cfg)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			// The exit-time safety flush must also run on signals, not
			// just on stdin EOF.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				cleanup()
				os.Exit(0)
			}()

			// Background version check prints to stderr so it doesn't
			// interfere with the stdio transport on stdout.
			go checkForUpdates()

			return mcpserver.ServeStdio(s)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (default ~/.devrecall/config.yaml)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devrecall version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("devrecall v%s\n", recallserver.Version)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update devrecall to the latest release",
		RunE: func(_ *cobra.Command, _ []string) error {
			result := updater.CheckVersion(recallserver.Version)
			if !result.UpdateAvailable {
				fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
				return nil
			}

			fmt.Fprintf(os.Stderr, "Updating v%s -> v%s ...\n", result.CurrentVersion, result.LatestVersion)
			if err := updater.SelfUpdate(recallserver.Version); err != nil {
				return fmt.Errorf("update failed (download manually from %s): %w", result.ReleaseURL, err)
			}
			fmt.Fprintf(os.Stderr, "Updated to v%s. Restart devrecall to use the new version.\n", result.LatestVersion)
			return nil
		},
	}
}

// checkForUpdates is best-effort: network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(recallserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\nUpdate available: v%s -> v%s\nRun: devrecall update\nRelease: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL)
	}
}
