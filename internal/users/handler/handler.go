package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"restapidemo/internal/platform/middleware"
	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
	dErrors "restapidemo/pkg/domain-errors"
	"restapidemo/pkg/platform/httputil"
)

// maxBodyBytes caps request bodies; a user document is a few hundred bytes.
const maxBodyBytes = 64 << 10

// Service defines the user operations the handler needs.
type Service interface {
	Create(ctx context.Context, req *models.UserRequest) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id domain.UserID) (*models.User, error)
	Update(ctx context.Context, id domain.UserID, req *models.UserRequest) (*models.User, error)
	Delete(ctx context.Context, id domain.UserID) error
}

// Handler serves the /users resource.
type Handler struct {
	logger *slog.Logger
	users  Service
}

// New creates a users Handler.
func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, users: users}
}

// Register mounts the /users routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeUserRequest(w, r)
	if err != nil {
		h.fail(ctx, w, "invalid create user request", err)
		return
	}

	user, err := h.users.Create(ctx, req)
	if err != nil {
		h.fail(ctx, w, "failed to create user", err)
		return
	}

	w.Header().Set("Location", "/users/"+user.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.users.List(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list users", err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}

	user, err := h.users.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}

	req, err := decodeUserRequest(w, r)
	if err != nil {
		h.fail(ctx, w, "invalid update user request", err)
		return
	}

	user, err := h.users.Update(ctx, id, req)
	if err != nil {
		h.fail(ctx, w, "failed to update user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}

	if err := h.users.Delete(ctx, id); err != nil {
		h.fail(ctx, w, "failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs at a level matching the error's class and writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	if de, ok := dErrors.As(err); ok {
		status = dErrors.ToHTTPStatus(de.Code)
	}
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"status", status,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func decodeUserRequest(w http.ResponseWriter, r *http.Request) (*models.UserRequest, error) {
	var req models.UserRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "request body too large")
		case errors.Is(err, io.EOF):
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "request body is required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must be a single JSON object")
	}
	return &req, nil
}
