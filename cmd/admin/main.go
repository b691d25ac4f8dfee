package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskhaven/todo-api/cmd/admin/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "todo-admin",
		Short: "Administration tool for the todo API",
		Long:  "CLI tool for seeding and inspecting todo API accounts",
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewSeedUsersCmd())
	rootCmd.AddCommand(commands.NewListUsersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
