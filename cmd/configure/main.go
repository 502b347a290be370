package main

import (
	"fmt"
	"os"

	"github.com/quotaguard/quotaguard/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "quotaguard-configure",
		Short: "Configuration tool for QuotaGuard",
		Long:  "CLI tool for managing rate limit rules and service settings",
	}

	rootCmd.AddCommand(commands.NewRulesCmd())
	rootCmd.AddCommand(commands.NewAdminLimitCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
