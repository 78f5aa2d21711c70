package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "Customer support ticket and live chat service.",
	Long: `helpdesk runs the support ticket and live chat API: visitors open tickets
from the website widget, staff reply, assign and resolve them, and admins
manage the team, the widget settings and the dashboard analytics.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newUsersCommand())
	rootCmd.AddCommand(newSettingsCommand())
}
