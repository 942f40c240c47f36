package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	userFlag    string
	jsonOutput  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "pacer",
	Version: Version,
	Short:   "Fit goal-driven task plans into a personal calendar",
	Long: `Pacer turns a goal into a dependency-aware task plan and schedules it
into your available time. When work changes it adapts the schedule,
moving only what the change affects, and recovers overdue tasks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectPath, "root", "C", "", "Workspace directory (default $PACER_ROOT or the current directory)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User the command acts for (default $PACER_USER or $USER)")
	RootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}
