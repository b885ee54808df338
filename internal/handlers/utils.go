package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/userhub/apiserver/apperr"
	"github.com/userhub/apiserver/types"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type contextKey string

const contextUserKey contextKey = "user"

// UserFromContext returns the user attached by the Protect middleware.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

// ErrorResponse is the error payload rendered at the boundary.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	// Detail carries the underlying error in development only.
	Detail string `json:"error,omitempty"`
}

// StatusResponse is a bare success acknowledgement.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// errorWriter is the single translation point from operational errors to
// transport responses. Operational errors render their own status and
// message; everything else renders a generic 500 in production with the
// cause only logged server-side.
type errorWriter struct {
	production bool
	log        *slog.Logger
}

func newErrorWriter(production bool, log *slog.Logger) *errorWriter {
	return &errorWriter{production: production, log: log}
}

func (e *errorWriter) respond(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Operational {
		writeJSON(w, appErr.Status, ErrorResponse{
			Status:  statusLabel(appErr.Status),
			Message: appErr.Message,
		})
		return
	}

	status := http.StatusInternalServerError
	message := "Something went wrong!"
	if appErr != nil {
		status = appErr.Status
		message = appErr.Message
	}

	e.log.ErrorContext(r.Context(), "unexpected error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)

	if e.production {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "Something went wrong!",
		})
		return
	}
	writeJSON(w, status, ErrorResponse{
		Status:  statusLabel(status),
		Message: message,
		Detail:  err.Error(),
	})
}

// statusLabel mirrors the "fail" vs "error" split clients rely on:
// "fail" for 4xx, "error" for everything else.
func statusLabel(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit, nil
}
