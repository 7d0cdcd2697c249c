// Package commands provides the CLI commands for slash.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	configFile string
	logLevel   string
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:   "slash",
	Short: "Run slash commands against a conversation buffer",
	Long: `slash dispatches "/command arg..." directives to registered commands,
offers argument completions and splices the structured output into a
conversation buffer.

Run 'slash repl' for an interactive session or 'slash run /workflow' to run a
single command.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: slash.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR), overrides the config")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Working directory")

	rootCmd.SetVersionTemplate(fmt.Sprintf("slash %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(listCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
