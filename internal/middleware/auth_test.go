package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskhaven/todo-api/internal/auth"
	"github.com/taskhaven/todo-api/internal/database"
	"github.com/taskhaven/todo-api/internal/models"
	"github.com/taskhaven/todo-api/internal/request"
	"go.uber.org/zap"
)

type staticUserRepo struct {
	user *models.User
}

func (s *staticUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (s *staticUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, database.ErrNotFound
}

func (s *staticUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, database.ErrNotFound
}

func (s *staticUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return false, nil
}

func (s *staticUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	user := &models.User{ID: uuid.New(), Username: "tester", Email: "tester@example.com"}

	validToken, err := tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	orphanToken, err := tokens.Issue(uuid.New())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   bool
	}{
		{name: "valid token", header: "Bearer " + validToken, wantStatus: http.StatusOK, wantUser: true},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + validToken, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.token", wantStatus: http.StatusUnauthorized},
		{name: "token for deleted user", header: "Bearer " + orphanToken, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotUser *models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = request.UserFromContext(r)
				w.WriteHeader(http.StatusOK)
			})

			mw := Auth(tokens, &staticUserRepo{user: user}, zap.NewNop())
			req := httptest.NewRequest("GET", "/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rr := httptest.NewRecorder()
			mw(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantUser && (gotUser == nil || gotUser.ID != user.ID) {
				t.Error("expected the resolved user in the request context")
			}
			if !tt.wantUser && gotUser != nil {
				t.Error("expected no user in context for rejected requests")
			}
		})
	}
}
