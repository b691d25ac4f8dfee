package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/taskhaven/todo-api/internal/config"
	"github.com/taskhaven/todo-api/internal/database"
	"github.com/taskhaven/todo-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	username string
	email    string
	password string
}

var seedUsers = []seedUser{
	{username: "admin", email: "admin@example.com", password: "admin123456"},
	{username: "testuser", email: "test@example.com", password: "test123456"},
	{username: "demo", email: "demo@example.com", password: "demo123456"},
}

// NewSeedUsersCmd creates the seed-users command
func NewSeedUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-users",
		Short: "Create development accounts",
		Long:  "Create a fixed set of development accounts, skipping any that already exist",
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
			ctx := context.Background()

			for _, su := range seedUsers {
				exists, err := userRepo.ExistsByEmailOrUsername(ctx, su.email, su.username)
				if err != nil {
					return fmt.Errorf("failed to check user %s: %w", su.username, err)
				}
				if exists {
					fmt.Printf("Skipped existing user: %s (%s)\n", su.username, su.email)
					continue
				}

				hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("failed to hash password for %s: %w", su.username, err)
				}

				user := &models.User{
					ID:           uuid.New(),
					Username:     su.username,
					Email:        su.email,
					PasswordHash: string(hash),
				}
				if err := userRepo.Create(ctx, user); err != nil {
					return fmt.Errorf("failed to create user %s: %w", su.username, err)
				}
				fmt.Printf("Created user: %s (%s)\n", su.username, su.email)
			}

			fmt.Println("Database seeded successfully!")
			return nil
		},
	}

	return cmd
}
