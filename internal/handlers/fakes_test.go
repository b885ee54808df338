package handlers

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const testSecret = "test-secret"

// fakeUserRepo is an in-memory services.UserRepository honoring the same
// contract as the mongo-backed store: unique emails, soft-delete
// filtering, reset-token expiry.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

var _ services.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id bson.ObjectID) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id.Hex()]
	if !ok || !user.Active {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Active && user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Active &&
			user.PasswordResetToken == tokenHash &&
			user.PasswordResetExpires != nil &&
			user.PasswordResetExpires.After(now) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	now := time.Now()
	user.ID = bson.NewObjectID()
	user.Active = true
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID.Hex()] = user
	return user, nil
}

func (r *fakeUserRepo) Save(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID.Hex()]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for _, existing := range r.users {
		if existing.ID != user.ID && existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID.Hex()] = user
	return user, nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id.Hex()]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id.Hex())
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []types.User{}
	for _, user := range r.users {
		if user.Active {
			all = append(all, user)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []types.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// get returns the stored record regardless of the active flag.
func (r *fakeUserRepo) get(id bson.ObjectID) (types.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id.Hex()]
	return user, ok
}

// set overwrites the stored record, bypassing constraints. Tests use it
// to arrange edge cases like expired reset tokens.
func (r *fakeUserRepo) set(user types.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID.Hex()] = user
}

// captureMailer records dispatched mail and optionally fails.
type captureMailer struct {
	mu        sync.Mutex
	welcomes  []string
	resetURLs []string
	resetErr  error
}

func (m *captureMailer) SendWelcome(ctx context.Context, user types.User, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, user.Email)
	return nil
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, user types.User, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resetURLs = append(m.resetURLs, url)
	return nil
}

func (m *captureMailer) lastResetURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetURLs) == 0 {
		return ""
	}
	return m.resetURLs[len(m.resetURLs)-1]
}

type testEnv struct {
	router *chi.Mux
	repo   *fakeUserRepo
	mail   *captureMailer
}

func newTestEnv() *testEnv {
	repo := newFakeUserRepo()
	mail := &captureMailer{}
	cfg := config.Config{
		Env: "production",
		JWT: config.JWTConfig{
			Secret:    testSecret,
			AccessTTL: time.Hour,
			CookieTTL: time.Hour,
		},
		Mail: config.MailConfig{BaseURL: "http://localhost:8080"},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	userService := services.NewUserService(repo)
	authHandler := NewAuthHandler(userService, mail, cfg, log)
	userHandler := NewUserHandler(userService, nil, cfg.IsProduction(), log)

	router := chi.NewRouter()
	router.Route("/api/v1/users", func(r chi.Router) {
		UserRouter(r, authHandler, userHandler)
	})

	return &testEnv{router: router, repo: repo, mail: mail}
}
