package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	users      map[uuid.UUID]*models.User
	failCreate bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.failCreate {
		return fmt.Errorf("create failed")
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	for _, user := range m.users {
		if user.Email == email || user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func newTestAuthHandler(repo *mockUserRepo) *AuthHandler {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthHandler(repo, tokens, zap.NewNop())
}

func seedAccount(t *testing.T, repo *mockUserRepo, username, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	repo.users[user.ID] = user
	return user
}

func TestRegister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		seed       bool
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid registration",
			body:       `{"username":"newuser","email":"new@example.com","password":"secret123"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate email",
			body:       `{"username":"different","email":"taken@example.com","password":"secret123"}`,
			seed:       true,
			wantStatus: http.StatusBadRequest,
			wantError:  "User already exists",
		},
		{
			name:       "duplicate username",
			body:       `{"username":"taken","email":"other@example.com","password":"secret123"}`,
			seed:       true,
			wantStatus: http.StatusBadRequest,
			wantError:  "User already exists",
		},
		{
			name:       "short password",
			body:       `{"username":"newuser","email":"new@example.com","password":"abc"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short username",
			body:       `{"username":"ab","email":"new@example.com","password":"secret123"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid email",
			body:       `{"username":"newuser","email":"not-an-email","password":"secret123"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing fields",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"username"`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newMockUserRepo()
			if tt.seed {
				seedAccount(t, repo, "taken", "taken@example.com", "secret123")
			}
			handler := newTestAuthHandler(repo)

			req := httptest.NewRequest("POST", "/auth/register", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.Register(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}

			if tt.wantStatus == http.StatusCreated {
				var resp UserResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token in the registration response")
				}
				if resp.Username != "newuser" {
					t.Errorf("expected username newuser, got %q", resp.Username)
				}
			}
			if tt.wantError != "" {
				var resp map[string]string
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode error response: %v", err)
				}
				if resp["error"] != tt.wantError {
					t.Errorf("expected error %q, got %q", tt.wantError, resp["error"])
				}
			}
		})
	}
}

func TestRegisterDoesNotExposePasswordHash(t *testing.T) {
	t.Parallel()

	repo := newMockUserRepo()
	handler := newTestAuthHandler(repo)

	body := `{"username":"newuser","email":"new@example.com","password":"secret123"}`
	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"password", "passwordHash", "password_hash"} {
		if _, ok := raw[key]; ok {
			t.Errorf("response must not contain %q", key)
		}
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid credentials",
			body:       `{"email":"user@example.com","password":"secret123"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       `{"email":"user@example.com","password":"wrong"}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid email or password",
		},
		{
			name:       "unknown email",
			body:       `{"email":"nobody@example.com","password":"secret123"}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid email or password",
		},
		{
			name:       "missing password",
			body:       `{"email":"user@example.com"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing email",
			body:       `{"password":"secret123"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newMockUserRepo()
			seedAccount(t, repo, "user", "user@example.com", "secret123")
			handler := newTestAuthHandler(repo)

			req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.Login(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp UserResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token in the login response")
				}
			}
			if tt.wantError != "" {
				var resp map[string]string
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode error response: %v", err)
				}
				if resp["error"] != tt.wantError {
					t.Errorf("expected error %q, got %q", tt.wantError, resp["error"])
				}
			}
		})
	}
}

func TestProfile(t *testing.T) {
	t.Parallel()

	repo := newMockUserRepo()
	user := seedAccount(t, repo, "user", "user@example.com", "secret123")
	handler := newTestAuthHandler(repo)

	req := httptest.NewRequest("GET", "/auth/profile", nil)
	req = req.WithContext(request.WithUser(req.Context(), user))
	rr := httptest.NewRecorder()
	handler.Profile(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp UserResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != user.ID || resp.Email != user.Email {
		t.Error("expected the authenticated account in the response")
	}
	if resp.Token != "" {
		t.Error("profile response must not mint a new token")
	}
}

func TestProfileUnauthenticated(t *testing.T) {
	t.Parallel()

	handler := newTestAuthHandler(newMockUserRepo())

	req := httptest.NewRequest("GET", "/auth/profile", nil)
	rr := httptest.NewRecorder()
	handler.Profile(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid rotation",
			body:       `{"currentPassword":"secret123","newPassword":"evenmoresecret"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong current password",
			body:       `{"currentPassword":"nope","newPassword":"evenmoresecret"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "short new password",
			body:       `{"currentPassword":"secret123","newPassword":"abc"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing fields",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newMockUserRepo()
			user := seedAccount(t, repo, "user", "user@example.com", "secret123")
			handler := newTestAuthHandler(repo)

			req := httptest.NewRequest("PUT", "/auth/change-password", bytes.NewBufferString(tt.body))
			req = req.WithContext(request.WithUser(req.Context(), user))
			rr := httptest.NewRecorder()
			handler.ChangePassword(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				stored := repo.users[user.ID]
				if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("evenmoresecret")) != nil {
					t.Error("expected stored hash to match the new password")
				}
			}
		})
	}
}
