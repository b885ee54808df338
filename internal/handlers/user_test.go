package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/userhub/apiserver/types"
)

func newAdmin(t *testing.T, env *testEnv, email string) AuthResponse {
	t.Helper()
	created := signup(t, env, "Admin", email, "password1")
	user, ok := env.repo.get(created.User.ID)
	if !ok {
		t.Fatalf("admin not stored")
	}
	user.Role = types.RoleAdmin
	env.repo.set(user)
	created.User = user
	return created
}

func TestMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	created := signup(t, env, "Ada", "ada@example.com", "engine1234")

	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/users/me", nil, created.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[UserResponse](t, rec)
	if resp.User.ID != created.User.ID || resp.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
}

func TestUpdateMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	created := signup(t, env, "Ada", "ada@example.com", "engine1234")

	t.Run("updates allow-listed fields", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPatch, "/api/v1/users/updateMe", UpdateMeRequest{
			Name:  "Ada King",
			Email: "countess@example.com",
		}, created.Token)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		resp := decode[UserResponse](t, rec)
		if resp.User.Name != "Ada King" || resp.User.Email != "countess@example.com" {
			t.Fatalf("unexpected user: %+v", resp.User)
		}

		stored, _ := env.repo.get(created.User.ID)
		if stored.Name != "Ada King" {
			t.Fatalf("name not persisted: %+v", stored)
		}
	})

	t.Run("rejects password fields", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPatch, "/api/v1/users/updateMe", UpdateMeRequest{
			Name:     "Ada",
			Password: "sneaky-change",
		}, created.Token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		resp := decode[ErrorResponse](t, rec)
		if resp.Message != "This route is not for password updates. Please use /updateMyPassword." {
			t.Fatalf("got message %q", resp.Message)
		}
	})

	t.Run("rejects taken email", func(t *testing.T) {
		signup(t, env, "Other", "other@example.com", "password1")
		rec := doJSON(t, env.router, http.MethodPatch, "/api/v1/users/updateMe", UpdateMeRequest{
			Email: "other@example.com",
		}, created.Token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestDeleteMe(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	created := signup(t, env, "Ada", "ada@example.com", "engine1234")

	rec := doJSON(t, env.router, http.MethodDelete, "/api/v1/users/deleteMe", nil, created.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}

	stored, ok := env.repo.get(created.User.ID)
	if !ok || stored.Active {
		t.Fatalf("account must be deactivated, not removed: %+v, ok=%v", stored, ok)
	}

	// A deactivated account can no longer log in.
	login := doJSON(t, env.router, http.MethodPost, "/api/v1/users/login", LoginRequest{
		Email:    "ada@example.com",
		Password: "engine1234",
	}, "")
	if login.Code != http.StatusUnauthorized {
		t.Fatalf("login after deleteMe: got status %d", login.Code)
	}
}

func TestAdminCreateUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	admin := newAdmin(t, env, "root@example.com")

	t.Run("creates with role", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPost, "/api/v1/users/", CreateUserRequest{
			Name:            "Grace",
			Email:           "grace@example.com",
			Role:            types.RoleAdmin,
			Password:        "password1",
			PasswordConfirm: "password1",
		}, admin.Token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		resp := decode[UserResponse](t, rec)
		if resp.User.Role != types.RoleAdmin {
			t.Fatalf("got role %q", resp.User.Role)
		}
	})

	t.Run("defaults role to user", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPost, "/api/v1/users/", CreateUserRequest{
			Name:            "Joan",
			Email:           "joan@example.com",
			Password:        "password1",
			PasswordConfirm: "password1",
		}, admin.Token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		if resp := decode[UserResponse](t, rec); resp.User.Role != types.RoleUser {
			t.Fatalf("got role %q", resp.User.Role)
		}
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPost, "/api/v1/users/", CreateUserRequest{
			Name:            "Eve",
			Email:           "eve@example.com",
			Role:            "superuser",
			Password:        "password1",
			PasswordConfirm: "password1",
		}, admin.Token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestAdminGetUpdateDeleteUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	admin := newAdmin(t, env, "root@example.com")
	target := signup(t, env, "Ada", "ada@example.com", "engine1234")

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodGet, "/api/v1/users/"+target.User.ID.Hex(), nil, admin.Token)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("get malformed id", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodGet, "/api/v1/users/not-an-id", nil, admin.Token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("update", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPatch, "/api/v1/users/"+target.User.ID.Hex(), UpdateUserRequest{
			Name: "Ada King",
			Role: types.RoleAdmin,
		}, admin.Token)
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
		resp := decode[UserResponse](t, rec)
		if resp.User.Name != "Ada King" || resp.User.Role != types.RoleAdmin {
			t.Fatalf("unexpected user: %+v", resp.User)
		}
	})

	t.Run("update with invalid role", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodPatch, "/api/v1/users/"+target.User.ID.Hex(), UpdateUserRequest{
			Role: "owner",
		}, admin.Token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, env.router, http.MethodDelete, "/api/v1/users/"+target.User.ID.Hex(), nil, admin.Token)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, env.router, http.MethodGet, "/api/v1/users/"+target.User.ID.Hex(), nil, admin.Token)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("get after delete: got status %d", rec.Code)
		}
		if resp := decode[ErrorResponse](t, rec); resp.Message != "User not found with this ID." {
			t.Fatalf("got message %q", resp.Message)
		}
	})
}

func TestListUsersPagination(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	admin := newAdmin(t, env, "root@example.com")

	for i := 0; i < 5; i++ {
		signup(t, env, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), "password1")
	}

	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/users/?page=2&limit=2", nil, admin.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[UserListResponse](t, rec)
	if resp.Page != 2 || resp.Limit != 2 {
		t.Fatalf("got page=%d limit=%d", resp.Page, resp.Limit)
	}
	if resp.Total != 6 {
		t.Fatalf("got total %d, want 6", resp.Total)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(resp.Items))
	}
}

func TestAdminRoutesForbiddenForUsers(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	plain := signup(t, env, "Plain", "plain@example.com", "password1")

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/"},
		{http.MethodPost, "/api/v1/users/"},
		{http.MethodPatch, "/api/v1/users/" + plain.User.ID.Hex()},
		{http.MethodDelete, "/api/v1/users/" + plain.User.ID.Hex()},
	}
	for _, tc := range paths {
		rec := doJSON(t, env.router, tc.method, tc.path, nil, plain.Token)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: got status %d, body %s", tc.method, tc.path, rec.Code, rec.Body.String())
		}
	}
}
