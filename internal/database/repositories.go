package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskhaven/todo-api/internal/models"
)

// TodoRepositoryInterface defines the interface for todo repository
// operations. Enables mock implementations in handler tests.
type TodoRepositoryInterface interface {
	List(ctx context.Context, userID uuid.UUID, filter TodoFilter) (*TodoPage, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Todo, error)
	Create(ctx context.Context, todo *models.Todo) error
	Update(ctx context.Context, todo *models.Todo) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Ensure concrete types implement the interfaces
var (
	_ TodoRepositoryInterface = (*TodoRepository)(nil)
	_ UserRepositoryInterface = (*UserRepository)(nil)
)
