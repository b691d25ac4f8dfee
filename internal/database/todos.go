package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskhaven/todo-api/internal/models"
)

const (
	// DefaultPageLimit is the default number of todos per page
	DefaultPageLimit = 3
	// MaxPageLimit is the maximum number of todos per page
	MaxPageLimit = 100
)

// TodoFilter narrows a todo listing. Zero values mean "no filter".
type TodoFilter struct {
	Status   string // "active", "completed" or "" / "all"
	Priority *models.Priority
	Search   string
	Page     int
	Limit    int
}

// TodoCounts holds the per-tab totals for an owner's full record set,
// independent of any filter applied to the listing.
type TodoCounts struct {
	All       int `json:"all"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// TodoPage is one page of a filtered todo listing
type TodoPage struct {
	Todos  []*models.Todo
	Total  int
	Page   int
	Limit  int
	Pages  int
	Counts TodoCounts
}

const todoColumns = `id, user_id, title, description, completed, priority, tags, recommendation, image_url, file_url, file_name, created_at, updated_at`

// TodoRepository handles todo database operations
type TodoRepository struct {
	db *DB
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// buildListConditions returns the WHERE conditions and arguments for a
// filtered listing scoped to one owner. Search matches title, description or
// any tag case-insensitively; all filters are AND-combined.
func buildListConditions(userID uuid.UUID, filter TodoFilter) (string, []any) {
	where := "user_id = $1"
	args := []any{userID}
	argIndex := 2

	switch filter.Status {
	case "active":
		where += " AND completed = FALSE"
	case "completed":
		where += " AND completed = TRUE"
	}

	if filter.Priority != nil {
		where += fmt.Sprintf(" AND priority = $%d", argIndex)
		args = append(args, string(*filter.Priority))
		argIndex++
	}

	if filter.Search != "" {
		where += fmt.Sprintf(
			" AND (title ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) AS tag WHERE tag ILIKE $%d))",
			argIndex, argIndex, argIndex,
		)
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argIndex++
	}

	return where, args
}

// escapeLike escapes LIKE metacharacters so search terms match literally
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// normalizePaging coerces page/limit into their allowed ranges
func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// pageCount returns the number of pages covering total records at the given limit
func pageCount(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// List returns one page of the owner's todos matching the filter, newest
// first, together with the filtered total and the owner-wide tab counts.
func (r *TodoRepository) List(ctx context.Context, userID uuid.UUID, filter TodoFilter) (*TodoPage, error) {
	page, limit := normalizePaging(filter.Page, filter.Limit)
	where, args := buildListConditions(userID, filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM todos WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count todos: %w", err)
	}

	var counts TodoCounts
	countsQuery := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT completed),
		       COUNT(*) FILTER (WHERE completed)
		FROM todos
		WHERE user_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countsQuery, userID).Scan(&counts.All, &counts.Active, &counts.Completed); err != nil {
		return nil, fmt.Errorf("failed to count todo tabs: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM todos WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		todoColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := []*models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	return &TodoPage{
		Todos:  todos,
		Total:  total,
		Page:   page,
		Limit:  limit,
		Pages:  pageCount(total, limit),
		Counts: counts,
	}, nil
}

// Get retrieves a todo by id, scoped to the owner. A todo owned by a
// different user is reported as ErrNotFound.
func (r *TodoRepository) Get(ctx context.Context, userID, id uuid.UUID) (*models.Todo, error) {
	query := fmt.Sprintf("SELECT %s FROM todos WHERE id = $1 AND user_id = $2", todoColumns)

	row := r.db.QueryRowContext(ctx, query, id, userID)
	todo, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

// Create inserts a new todo and fills in its generated timestamps
func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	query := `
		INSERT INTO todos (id, user_id, title, description, completed, priority, tags, recommendation, image_url, file_url, file_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	tagsJSON, err := json.Marshal(todo.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		todo.ID,
		todo.UserID,
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.Priority,
		tagsJSON,
		todo.Recommendation,
		todo.ImageURL,
		todo.FileURL,
		todo.FileName,
		now,
		now,
	).Scan(&todo.CreatedAt, &todo.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}

	return nil
}

// Update writes the mutable fields of an existing todo, scoped to the owner.
// Callers merge partial input onto the loaded record before calling.
func (r *TodoRepository) Update(ctx context.Context, todo *models.Todo) error {
	query := `
		UPDATE todos
		SET title = $3, description = $4, completed = $5, priority = $6, tags = $7,
		    recommendation = $8, image_url = $9, file_url = $10, file_name = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	tagsJSON, err := json.Marshal(todo.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		todo.ID,
		todo.UserID,
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.Priority,
		tagsJSON,
		todo.Recommendation,
		todo.ImageURL,
		todo.FileURL,
		todo.FileName,
		time.Now(),
	).Scan(&todo.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}

	return nil
}

// Delete removes a todo, scoped to the owner. Attachment cleanup is the
// caller's responsibility.
func (r *TodoRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*models.Todo, error) {
	todo := &models.Todo{}
	var tagsJSON []byte
	var imageURL, fileURL, fileName sql.NullString

	err := s.Scan(
		&todo.ID,
		&todo.UserID,
		&todo.Title,
		&todo.Description,
		&todo.Completed,
		&todo.Priority,
		&tagsJSON,
		&todo.Recommendation,
		&imageURL,
		&fileURL,
		&fileName,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan todo: %w", err)
	}

	if err := json.Unmarshal(tagsJSON, &todo.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if todo.Tags == nil {
		todo.Tags = []string{}
	}

	if imageURL.Valid {
		todo.ImageURL = &imageURL.String
	}
	if fileURL.Valid {
		todo.FileURL = &fileURL.String
	}
	if fileName.Valid {
		todo.FileName = &fileName.String
	}

	return todo, nil
}
