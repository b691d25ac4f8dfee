package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskhaven/todo-api/internal/database"
	"github.com/taskhaven/todo-api/internal/models"
	"github.com/taskhaven/todo-api/internal/request"
	"github.com/taskhaven/todo-api/internal/storage"
	"github.com/taskhaven/todo-api/internal/validation"
	"go.uber.org/zap"
)

// multipartMemory is the in-memory buffer for multipart parsing; larger
// parts spill to temporary files.
const multipartMemory int64 = 10 << 20

// RecommendationService produces advisory text for a todo's content. It must
// degrade to sentinel strings instead of failing.
type RecommendationService interface {
	Recommend(ctx context.Context, title, description string, priority models.Priority, tags []string) string
}

// AttachmentStore persists uploaded attachments
type AttachmentStore interface {
	Save(kind storage.Kind, originalName, contentType string, data []byte) (*storage.Reference, error)
	Delete(ref string) error
}

// TodoHandler handles todo-related requests
type TodoHandler struct {
	todos       database.TodoRepositoryInterface
	store       AttachmentStore
	recommender RecommendationService
	logger      *zap.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todos database.TodoRepositoryInterface, store AttachmentStore, recommender RecommendationService, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, store: store, recommender: recommender, logger: logger}
}

// RegisterRoutes registers todo routes on the given router. The router should
// already carry the /todos prefix.
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods("GET")
	r.HandleFunc("", h.CreateTodo).Methods("POST")
	r.HandleFunc("/{id}", h.GetTodo).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTodo).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
}

// Pagination describes one page of a filtered listing
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListTodosResponse is the payload for the todo listing endpoint
type ListTodosResponse struct {
	Todos      []*models.Todo      `json:"todos"`
	Pagination Pagination          `json:"pagination"`
	Counts     database.TodoCounts `json:"counts"`
}

// parseTodoFilter extracts and validates listing filters from query params
func parseTodoFilter(r *http.Request) (database.TodoFilter, error) {
	filter := database.TodoFilter{Page: 1, Limit: database.DefaultPageLimit}
	query := r.URL.Query()

	status := query.Get("status")
	if err := validation.ValidateStatusFilter(status); err != nil {
		return filter, err
	}
	filter.Status = status

	if p := query.Get("priority"); p != "" {
		if err := validation.ValidatePriority(p); err != nil {
			return filter, err
		}
		priority := models.Priority(p)
		filter.Priority = &priority
	}

	filter.Search = validation.SanitizeText(query.Get("search"))

	if p := query.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			filter.Page = parsed
		}
	}
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	return filter, nil
}

// ListTodos lists the authenticated user's todos with filtering and pagination
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	filter, err := parseTodoFilter(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.todos.List(r.Context(), user.ID, filter)
	if err != nil {
		h.logger.Error("list_todos_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to retrieve todos")
		return
	}

	respondJSON(w, http.StatusOK, ListTodosResponse{
		Todos: page.Todos,
		Pagination: Pagination{
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages,
		},
		Counts: page.Counts,
	})
}

// GetTodo retrieves a single todo by id
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid todo ID")
		return
	}

	todo, err := h.todos.Get(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Todo not found")
			return
		}
		h.logger.Error("get_todo_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to retrieve todo")
		return
	}

	respondJSON(w, http.StatusOK, todo)
}

// createTodoInput carries the parsed fields of a create request
type createTodoInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// uploadPart is a validated, fully-read multipart file part
type uploadPart struct {
	kind         storage.Kind
	originalName string
	contentType  string
	data         []byte
}

// CreateTodo creates a new todo with optional attachments and a freshly
// generated recommendation.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var in createTodoInput
	var imagePart, filePart *uploadPart

	if isMultipart(r) {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		in.Title = r.FormValue("title")
		in.Description = r.FormValue("description")
		in.Priority = r.FormValue("priority")
		in.Tags = parseTagValues(r.MultipartForm.Value["tags"])

		var err error
		if imagePart, err = readUploadPart(r, "image", storage.KindImage); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if filePart, err = readUploadPart(r, "file", storage.KindDocument); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	in.Title = validation.SanitizeText(in.Title)
	in.Description = validation.SanitizeText(in.Description)
	if in.Priority == "" {
		in.Priority = string(models.PriorityMedium)
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}

	if in.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if utf8.RuneCountInString(in.Title) > models.MaxTitleLength {
		respondJSONError(w, http.StatusBadRequest, fmt.Sprintf("Title must be less than %d characters", models.MaxTitleLength))
		return
	}
	if utf8.RuneCountInString(in.Description) > models.MaxDescriptionLength {
		respondJSONError(w, http.StatusBadRequest, fmt.Sprintf("Description must be less than %d characters", models.MaxDescriptionLength))
		return
	}
	if err := validation.ValidatePriority(in.Priority); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateTags(in.Tags); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	todo := &models.Todo{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       in.Title,
		Description: in.Description,
		Completed:   false,
		Priority:    models.Priority(in.Priority),
		Tags:        in.Tags,
	}

	if !h.saveAttachment(w, todo, imagePart, nil) {
		return
	}
	if !h.saveAttachment(w, todo, filePart, imagePart) {
		return
	}

	todo.Recommendation = h.recommender.Recommend(r.Context(), todo.Title, todo.Description, todo.Priority, todo.Tags)

	if err := h.todos.Create(r.Context(), todo); err != nil {
		h.logger.Error("create_todo_failed", zap.Error(err))
		h.cleanupAttachments(todo.ImageURL, todo.FileURL)
		respondJSONError(w, http.StatusInternalServerError, "Failed to create todo")
		return
	}

	respondJSON(w, http.StatusCreated, todo)
}

// saveAttachment stores one upload part onto the todo. On failure it responds
// with a 500 and undoes the sibling part so no orphan files remain; the
// returned bool reports whether handling may continue.
func (h *TodoHandler) saveAttachment(w http.ResponseWriter, todo *models.Todo, part, sibling *uploadPart) bool {
	if part == nil {
		return true
	}

	ref, err := h.store.Save(part.kind, part.originalName, part.contentType, part.data)
	if err != nil {
		var verr *storage.ValidationError
		if errors.As(err, &verr) {
			respondJSONError(w, http.StatusBadRequest, verr.Message)
			return false
		}
		h.logger.Error("attachment_save_failed", zap.Error(err))
		if sibling != nil {
			h.cleanupAttachments(todo.ImageURL, todo.FileURL)
		}
		respondJSONError(w, http.StatusInternalServerError, "Failed to store attachment")
		return false
	}

	switch part.kind {
	case storage.KindImage:
		todo.ImageURL = &ref.URL
	default:
		todo.FileURL = &ref.URL
		todo.FileName = &ref.OriginalName
	}
	return true
}

// cleanupAttachments best-effort deletes stored files after a failed create
func (h *TodoHandler) cleanupAttachments(refs ...*string) {
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if err := h.store.Delete(*ref); err != nil {
			h.logger.Warn("attachment_cleanup_failed", zap.String("ref", *ref), zap.Error(err))
		}
	}
}

// updateTodoInput carries the parsed fields of an update request. Nil
// pointers mean "not provided"; those fields keep their stored values.
type updateTodoInput struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *string
	Tags        []string
	TagsSet     bool
	RemoveImage bool
	RemoveFile  bool
}

// UnmarshalJSON distinguishes absent fields from zero values
func (in *updateTodoInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Completed   *bool     `json:"completed"`
		Priority    *string   `json:"priority"`
		Tags        *[]string `json:"tags"`
		RemoveImage bool      `json:"removeImage"`
		RemoveFile  bool      `json:"removeFile"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	in.Title = raw.Title
	in.Description = raw.Description
	in.Completed = raw.Completed
	in.Priority = raw.Priority
	if raw.Tags != nil {
		in.Tags = *raw.Tags
		in.TagsSet = true
	}
	in.RemoveImage = raw.RemoveImage
	in.RemoveFile = raw.RemoveFile
	return nil
}

func parseUpdateForm(r *http.Request) updateTodoInput {
	var in updateTodoInput
	form := r.MultipartForm

	if vals, ok := form.Value["title"]; ok && len(vals) > 0 {
		in.Title = &vals[0]
	}
	if vals, ok := form.Value["description"]; ok && len(vals) > 0 {
		in.Description = &vals[0]
	}
	if vals, ok := form.Value["priority"]; ok && len(vals) > 0 {
		in.Priority = &vals[0]
	}
	if vals, ok := form.Value["completed"]; ok && len(vals) > 0 {
		if b, err := strconv.ParseBool(vals[0]); err == nil {
			in.Completed = &b
		}
	}
	if vals, ok := form.Value["tags"]; ok {
		in.Tags = parseTagValues(vals)
		in.TagsSet = true
	}
	if vals, ok := form.Value["removeImage"]; ok && len(vals) > 0 {
		in.RemoveImage, _ = strconv.ParseBool(vals[0])
	}
	if vals, ok := form.Value["removeFile"]; ok && len(vals) > 0 {
		in.RemoveFile, _ = strconv.ParseBool(vals[0])
	}

	return in
}

// UpdateTodo merges the provided fields onto an existing todo, handling
// attachment replacement and conditional recommendation regeneration.
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid todo ID")
		return
	}

	ctx := r.Context()
	existing, err := h.todos.Get(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Todo not found")
			return
		}
		h.logger.Error("update_todo_load_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to retrieve todo")
		return
	}

	var in updateTodoInput
	var imagePart, filePart *uploadPart

	if isMultipart(r) {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		in = parseUpdateForm(r)

		if imagePart, err = readUploadPart(r, "image", storage.KindImage); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if filePart, err = readUploadPart(r, "file", storage.KindDocument); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	updated := *existing
	updated.Tags = append([]string{}, existing.Tags...)

	if in.Title != nil {
		title := validation.SanitizeText(*in.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Title is required")
			return
		}
		if utf8.RuneCountInString(title) > models.MaxTitleLength {
			respondJSONError(w, http.StatusBadRequest, fmt.Sprintf("Title must be less than %d characters", models.MaxTitleLength))
			return
		}
		updated.Title = title
	}
	if in.Description != nil {
		description := validation.SanitizeText(*in.Description)
		if utf8.RuneCountInString(description) > models.MaxDescriptionLength {
			respondJSONError(w, http.StatusBadRequest, fmt.Sprintf("Description must be less than %d characters", models.MaxDescriptionLength))
			return
		}
		updated.Description = description
	}
	if in.Priority != nil {
		if err := validation.ValidatePriority(*in.Priority); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated.Priority = models.Priority(*in.Priority)
	}
	if in.Completed != nil {
		updated.Completed = *in.Completed
	}
	if in.TagsSet {
		tags := in.Tags
		if tags == nil {
			tags = []string{}
		}
		if err := validation.ValidateTags(tags); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated.Tags = tags
	}

	// Image slot: a new upload wins over a simultaneous removal request.
	// The old file is deleted before the new write, so a failed write leaves
	// the slot empty rather than pointing at a deleted file.
	if imagePart != nil {
		if existing.ImageURL != nil {
			h.cleanupAttachments(existing.ImageURL)
		}
		ref, err := h.store.Save(imagePart.kind, imagePart.originalName, imagePart.contentType, imagePart.data)
		if err != nil {
			h.logger.Error("attachment_save_failed", zap.Error(err))
			updated.ImageURL = nil
		} else {
			updated.ImageURL = &ref.URL
		}
	} else if in.RemoveImage && existing.ImageURL != nil {
		h.cleanupAttachments(existing.ImageURL)
		updated.ImageURL = nil
	}

	// File slot, same policy
	if filePart != nil {
		if existing.FileURL != nil {
			h.cleanupAttachments(existing.FileURL)
		}
		ref, err := h.store.Save(filePart.kind, filePart.originalName, filePart.contentType, filePart.data)
		if err != nil {
			h.logger.Error("attachment_save_failed", zap.Error(err))
			updated.FileURL = nil
			updated.FileName = nil
		} else {
			updated.FileURL = &ref.URL
			updated.FileName = &ref.OriginalName
		}
	} else if in.RemoveFile && existing.FileURL != nil {
		h.cleanupAttachments(existing.FileURL)
		updated.FileURL = nil
		updated.FileName = nil
	}

	// Regenerate only when advisory-relevant content changed; a completed
	// toggle on its own keeps the stored recommendation.
	if !existing.ContentEqual(&updated) {
		updated.Recommendation = h.recommender.Recommend(ctx, updated.Title, updated.Description, updated.Priority, updated.Tags)
	}

	if err := h.todos.Update(ctx, &updated); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Todo not found")
			return
		}
		h.logger.Error("update_todo_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to update todo")
		return
	}

	respondJSON(w, http.StatusOK, &updated)
}

// DeleteTodo removes a todo and cleans up its attachments
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid todo ID")
		return
	}

	ctx := r.Context()
	todo, err := h.todos.Get(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Todo not found")
			return
		}
		h.logger.Error("delete_todo_load_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to retrieve todo")
		return
	}

	h.cleanupAttachments(todo.ImageURL, todo.FileURL)

	if err := h.todos.Delete(ctx, user.ID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Todo not found")
			return
		}
		h.logger.Error("delete_todo_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Failed to delete todo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

// isMultipart reports whether the request body is multipart/form-data
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "multipart/form-data"
}

// parseTagValues normalizes tag form values. A single JSON array value is
// expanded; repeated values are taken as-is.
func parseTagValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 && len(values[0]) > 0 && values[0][0] == '[' {
		var tags []string
		if err := json.Unmarshal([]byte(values[0]), &tags); err == nil {
			return tags
		}
	}
	return values
}

// readUploadPart reads and validates one named file part. A missing part is
// not an error; invalid type or size is rejected before any store write.
func readUploadPart(r *http.Request, field string, kind storage.Kind) (*uploadPart, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s upload", field)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := storage.ValidateUpload(kind, contentType, header.Size); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s upload", field)
	}
	if err := storage.ValidateUpload(kind, contentType, int64(len(data))); err != nil {
		return nil, err
	}

	return &uploadPart{
		kind:         kind,
		originalName: header.Filename,
		contentType:  contentType,
		data:         data,
	}, nil
}
