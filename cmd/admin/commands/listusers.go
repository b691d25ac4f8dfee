package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskhaven/todo-api/internal/config"
	"github.com/taskhaven/todo-api/internal/database"
)

// NewListUsersCmd creates the list-users command
func NewListUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "List registered accounts",
		Long:  "List all registered accounts without credential material",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			userRepo := database.NewUserRepository(db)

			users, err := userRepo.ListAll(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			if len(users) == 0 {
				fmt.Println("No accounts registered")
				return nil
			}

			fmt.Println("Registered accounts:")
			for _, user := range users {
				fmt.Printf("  - Username: %s\n", user.Username)
				fmt.Printf("    Email: %s\n", user.Email)
				fmt.Printf("    ID: %s\n", user.ID)
				fmt.Printf("    Created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}
