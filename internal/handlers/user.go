package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/userhub/apiserver/apperr"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/storage"
	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxAvatarBytes = 8 << 20

// UserHandler provides profile self-service and admin CRUD endpoints.
type UserHandler struct {
	users   *services.UserService
	avatars *storage.Storage
	errs    *errorWriter
}

// NewUserHandler constructs a UserHandler. avatars may be nil when no
// object storage is configured; avatar uploads are then rejected.
func NewUserHandler(users *services.UserService, avatars *storage.Storage, production bool, log *slog.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		avatars: avatars,
		errs:    newErrorWriter(production, log),
	}
}

type UserResponse struct {
	User types.User `json:"user"`
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.errs.respond(w, r, apperr.Unauthorized("Please log in to get access."))
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

type UpdateMeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`

	// Password fields are decoded only to reject them explicitly.
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdateMe updates the allow-listed profile fields (name, email) of the
// authenticated user. With a multipart body an avatar image may be
// uploaded alongside.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.errs.respond(w, r, apperr.Unauthorized("Please log in to get access."))
		return
	}

	var name, email string
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
			h.errs.respond(w, r, apperr.BadRequest("invalid multipart body"))
			return
		}
		if r.FormValue("password") != "" || r.FormValue("passwordConfirm") != "" {
			h.errs.respond(w, r, apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword."))
			return
		}
		name = r.FormValue("name")
		email = r.FormValue("email")

		key, err := h.storeAvatar(r, user)
		if err != nil {
			h.errs.respond(w, r, err)
			return
		}
		if key != "" {
			user.Image = key
		}
	} else {
		var req UpdateMeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
			return
		}
		if req.Password != "" || req.PasswordConfirm != "" {
			h.errs.respond(w, r, apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword."))
			return
		}
		name = req.Name
		email = req.Email
	}

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email != "" {
		normalized, err := normalizeEmail(email)
		if err != nil {
			h.errs.respond(w, r, err)
			return
		}
		user.Email = normalized
	}

	saved, err := h.users.Save(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			h.errs.respond(w, r, apperr.BadRequest("Email already taken"))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to update user", err))
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: saved})
}

// DeleteMe soft-deletes the authenticated user's account.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.errs.respond(w, r, apperr.Unauthorized("Please log in to get access."))
		return
	}

	user.Active = false
	if _, err := h.users.Save(r.Context(), user); err != nil {
		h.errs.respond(w, r, apperr.Internal("failed to delete user", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns a page of users. Admin only.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		h.errs.respond(w, r, apperr.BadRequest(err.Error()))
		return
	}

	items, total, err := h.users.List(r.Context(), offset, limit)
	if err != nil {
		h.errs.respond(w, r, apperr.Internal("failed to list users", err))
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// GetUser fetches a user by id.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	user, lookupErr := h.users.GetByID(r.Context(), id)
	if lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			h.errs.respond(w, r, apperr.NotFound("User not found with this ID."))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to fetch user", lookupErr))
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

type CreateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// CreateUser creates an account without logging it in. Admin only.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.errs.respond(w, r, apperr.BadRequest("Please tell us your name"))
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}
	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		h.errs.respond(w, r, err)
		return
	}
	role := req.Role
	if role == "" {
		role = types.RoleUser
	}
	if role != types.RoleUser && role != types.RoleAdmin {
		h.errs.respond(w, r, apperr.BadRequest("invalid role"))
		return
	}

	hash, hashErr := auth.HashPassword(req.Password)
	if hashErr != nil {
		h.errs.respond(w, r, apperr.Internal("failed to create user", hashErr))
		return
	}

	user, createErr := h.users.Create(r.Context(), types.User{
		Name:         req.Name,
		Email:        email,
		Role:         role,
		Image:        types.DefaultImage,
		PasswordHash: hash,
	})
	if createErr != nil {
		if errors.Is(createErr, store.ErrDuplicateEmail) {
			h.errs.respond(w, r, apperr.BadRequest("Email already taken"))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to create user", createErr))
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{User: user})
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateUser updates the allow-listed fields of any user. Admin only.
// Password mutations go through the password routes exclusively.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	var req UpdateUserRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	user, lookupErr := h.users.GetByID(r.Context(), id)
	if lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			h.errs.respond(w, r, apperr.NotFound("User not found with this ID."))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to fetch user", lookupErr))
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Email != "" {
		email, emailErr := normalizeEmail(req.Email)
		if emailErr != nil {
			h.errs.respond(w, r, emailErr)
			return
		}
		user.Email = email
	}
	if req.Role != "" {
		if req.Role != types.RoleUser && req.Role != types.RoleAdmin {
			h.errs.respond(w, r, apperr.BadRequest("invalid role"))
			return
		}
		user.Role = req.Role
	}

	saved, saveErr := h.users.Save(r.Context(), user)
	if saveErr != nil {
		if errors.Is(saveErr, store.ErrDuplicateEmail) {
			h.errs.respond(w, r, apperr.BadRequest("Email already taken"))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to update user", saveErr))
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: saved})
}

// DeleteUser removes a user record permanently. Admin only.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		h.errs.respond(w, r, err)
		return
	}

	if deleteErr := h.users.Delete(r.Context(), id); deleteErr != nil {
		if errors.Is(deleteErr, store.ErrNotFound) {
			h.errs.respond(w, r, apperr.NotFound("User not found with this ID."))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to delete user", deleteErr))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storeAvatar uploads the optional "image" part of a multipart request and
// returns the stored object key, or "" when no image was sent.
func (h *UserHandler) storeAvatar(r *http.Request, user types.User) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apperr.BadRequest("invalid image upload")
	}
	defer file.Close()

	if h.avatars == nil {
		return "", apperr.BadRequest("avatar uploads are not enabled")
	}
	if header.Size > maxAvatarBytes {
		return "", apperr.BadRequest("image too large")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		return "", apperr.BadRequest("unsupported image type")
	}

	key := fmt.Sprintf("users/%s%s", user.ID.Hex(), ext)
	contentType := header.Header.Get("Content-Type")
	if err := h.avatars.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		return "", apperr.Internal("failed to store image", err)
	}
	return key, nil
}

func parseUserID(r *http.Request) (bson.ObjectID, error) {
	raw := chi.URLParam(r, "userID")
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, apperr.BadRequest("invalid user id")
	}
	return id, nil
}
