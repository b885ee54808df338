package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/userhub/apiserver/apperr"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/mailer"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const minPasswordLength = 8

const tokenCookieName = "jwt"

// AuthHandler provides signup, login, password lifecycle endpoints, and
// the Protect/RestrictTo middleware.
type AuthHandler struct {
	users     *services.UserService
	mail      mailer.Mailer
	secret    []byte
	tokenTTL  time.Duration
	cookieTTL time.Duration
	baseURL   string
	secure    bool
	errs      *errorWriter
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, mail mailer.Mailer, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		mail:      mail,
		secret:    []byte(cfg.JWT.Secret),
		tokenTTL:  cfg.JWT.AccessTTL,
		cookieTTL: cfg.JWT.CookieTTL,
		baseURL:   strings.TrimRight(cfg.Mail.BaseURL, "/"),
		secure:    cfg.IsProduction(),
		errs:      newErrorWriter(cfg.IsProduction(), log),
	}
}

// UserRouter registers the full user route table on the given router.
func UserRouter(r chi.Router, authHandler *AuthHandler, userHandler *UserHandler) {
	r.Post("/signup", authHandler.Signup)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)

	r.Post("/forgotPassword", authHandler.ForgotPassword)
	r.Patch("/resetPassword/{token}", authHandler.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(authHandler.Protect)

		r.Patch("/updateMyPassword", authHandler.UpdatePassword)
		r.Get("/me", userHandler.Me)
		r.Patch("/updateMe", userHandler.UpdateMe)
		r.Delete("/deleteMe", userHandler.DeleteMe)

		r.With(authHandler.RestrictTo(types.RoleUser, types.RoleAdmin)).
			Get("/{userID}", userHandler.GetUser)

		r.Group(func(r chi.Router) {
			r.Use(authHandler.RestrictTo(types.RoleAdmin))

			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Patch("/{userID}", userHandler.UpdateUser)
			r.Delete("/{userID}", userHandler.DeleteUser)
		})
	})
}

// Protect enforces authentication: it extracts the bearer token, verifies
// it, re-fetches the user, rejects tokens issued before the last password
// change, and attaches the resolved user to the request context.
func (h *AuthHandler) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			h.errs.respond(w, r, apperr.Unauthorized("Please log in to get access."))
			return
		}

		claims, err := auth.VerifyToken(tokenString, h.secret)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				h.errs.respond(w, r, apperr.Unauthorized("Your token has expired! Please log in again."))
				return
			}
			h.errs.respond(w, r, apperr.Unauthorized("Invalid token. Please log in again!"))
			return
		}

		id, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			h.errs.respond(w, r, apperr.Unauthorized("Invalid token. Please log in again!"))
			return
		}

		user, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.errs.respond(w, r, apperr.Unauthorized("The user belonging to this token does no longer exist."))
				return
			}
			h.errs.respond(w, r, apperr.Internal("failed to load user", err))
			return
		}

		if user.ChangedPasswordAfter(claims.IssuedAt) {
			h.errs.respond(w, r, apperr.Unauthorized("User recently changed password! Please log in again."))
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RestrictTo authorizes only the listed roles. It must run after Protect.
func (h *AuthHandler) RestrictTo(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				h.errs.respond(w, r, apperr.Unauthorized("Please log in to get access."))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			h.errs.respond(w, r, apperr.Forbidden("You don't have permission to perform this action"))
		})
	}
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Signup creates a new account and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
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

	hash, hashErr := auth.HashPassword(req.Password)
	if hashErr != nil {
		h.errs.respond(w, r, apperr.Internal("failed to create user", hashErr))
		return
	}

	user, createErr := h.users.Create(r.Context(), types.User{
		Name:         req.Name,
		Email:        email,
		Role:         types.RoleUser,
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

	// Best effort: a failed welcome mail never fails the signup.
	_ = h.mail.SendWelcome(r.Context(), user, h.baseURL+"/me")

	h.sendToken(w, http.StatusCreated, user)
}

// Login verifies credentials and returns a fresh session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		h.errs.respond(w, r, apperr.BadRequest("Please provide email and password"))
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.errs.respond(w, r, apperr.Unauthorized("Incorrect email or password"))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to authenticate", err))
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		h.errs.respond(w, r, apperr.Unauthorized("Incorrect email or password"))
		return
	}

	h.sendToken(w, http.StatusOK, user)
}

// Logout expires the client-held token cookie. The bearer token itself is
// stateless and simply ages out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	})
	writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token and mails its one-time link. Only
// the token's hash is persisted; a failed dispatch rolls the fields back.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.errs.respond(w, r, apperr.NotFound("There is no user with email address."))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to look up user", err))
		return
	}

	token, err := auth.NewResetToken(time.Now())
	if err != nil {
		h.errs.respond(w, r, apperr.Internal("failed to create reset token", err))
		return
	}

	user.SetResetToken(token.Hash, token.ExpiresAt)
	if user, err = h.users.Save(r.Context(), user); err != nil {
		h.errs.respond(w, r, apperr.Internal("failed to store reset token", err))
		return
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", h.baseURL, token.Raw)
	if err := h.mail.SendPasswordReset(r.Context(), user, resetURL); err != nil {
		user.ClearResetToken()
		_, _ = h.users.Save(r.Context(), user)
		h.errs.respond(w, r, apperr.Internal("There was an error sending the email. Try again later!", err))
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Token sent to email!"})
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ResetPassword consumes a reset token and sets the new password. The
// token is single-use: completing the change clears the stored hash.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	tokenHash := auth.HashResetToken(chi.URLParam(r, "token"))
	user, err := h.users.GetByResetToken(r.Context(), tokenHash, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.errs.respond(w, r, apperr.BadRequest("Token is invalid or has expired"))
			return
		}
		h.errs.respond(w, r, apperr.Internal("failed to look up reset token", err))
		return
	}

	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		h.errs.respond(w, r, err)
		return
	}

	if err := h.changePassword(r.Context(), &user, req.Password); err != nil {
		h.errs.respond(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, user)
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePassword changes the password of the authenticated user after
// verifying the current one.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.errs.respond(w, r, apperr.Unauthorized("Please log in to get access."))
		return
	}

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.respond(w, r, apperr.BadRequest("invalid request body"))
		return
	}

	if !auth.CheckPassword(req.PasswordCurrent, user.PasswordHash) {
		h.errs.respond(w, r, apperr.Unauthorized("Your current password is wrong."))
		return
	}
	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		h.errs.respond(w, r, err)
		return
	}

	if err := h.changePassword(r.Context(), &user, req.Password); err != nil {
		h.errs.respond(w, r, err)
		return
	}

	h.sendToken(w, http.StatusOK, user)
}

// changePassword hashes and persists a new password, clearing any
// outstanding reset token. PasswordChangedAt is backdated one second so a
// session token minted in the same second stays valid.
func (h *AuthHandler) changePassword(ctx context.Context, user *types.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal("failed to update password", err)
	}

	changedAt := time.Now().Add(-time.Second)
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.ClearResetToken()

	saved, err := h.users.Save(ctx, *user)
	if err != nil {
		return apperr.Internal("failed to update password", err)
	}
	*user = saved
	return nil
}

// sendToken issues a session token, mirrors it into the jwt cookie, and
// writes the auth response.
func (h *AuthHandler) sendToken(w http.ResponseWriter, status int, user types.User) {
	token, err := auth.IssueToken(user.ID.Hex(), h.secret, h.tokenTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Status:  "error",
			Message: "failed to create token",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		Secure:   h.secure,
	})

	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.BadRequest("Please provide your email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.BadRequest("Please provide a valid email")
	}
	return email, nil
}

func validatePassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return apperr.BadRequest("Password must have minimum 8 characters")
	}
	if password != confirm {
		return apperr.BadRequest("Passwords are not the same!")
	}
	return nil
}
