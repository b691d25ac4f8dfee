package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskhaven/todo-api/internal/auth"
	"github.com/taskhaven/todo-api/internal/database"
	"github.com/taskhaven/todo-api/internal/models"
	"github.com/taskhaven/todo-api/internal/request"
	"github.com/taskhaven/todo-api/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 6

// AuthHandler handles account registration, login and profile requests
type AuthHandler struct {
	users  database.UserRepositoryInterface
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users database.UserRepositoryInterface, tokens *auth.TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// RegisterPublicRoutes registers the unauthenticated auth routes
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// RegisterProtectedRoutes registers the auth routes that require a valid token
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/profile", h.Profile).Methods("GET")
	r.HandleFunc("/change-password", h.ChangePassword).Methods("PUT")
}

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents a password rotation request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserResponse is the account payload returned by auth endpoints
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Token    string    `json:"token,omitempty"`
}

// Register creates a new account and returns it with a fresh token
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Please provide all required fields")
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Validation failed")
		return
	}

	ctx := r.Context()
	exists, err := h.users.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		h.logger.Error("register_existence_check_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}
	if exists {
		respondJSONError(w, http.StatusBadRequest, "User already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("register_password_hash_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.users.Create(ctx, user); err != nil {
		h.logger.Error("register_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("register_token_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	respondJSON(w, http.StatusCreated, UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

// Login authenticates an account by email and password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondJSONError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("login_lookup_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondJSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("login_token_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	respondJSON(w, http.StatusOK, UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

// Profile returns the authenticated account
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	respondJSON(w, http.StatusOK, UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// ChangePassword rotates the authenticated account's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		respondJSONError(w, http.StatusBadRequest, "Please provide current password and new password")
		return
	}
	if len(req.NewPassword) < MinPasswordLength {
		respondJSONError(w, http.StatusBadRequest, "New password must be at least 6 characters long")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		respondJSONError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("change_password_hash_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error while changing password")
		return
	}

	if err := h.users.UpdatePassword(r.Context(), user.ID, string(hash)); err != nil {
		h.logger.Error("change_password_update_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Server error while changing password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Password changed successfully",
		"user": UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}
