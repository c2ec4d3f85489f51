package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/repository"
	"github.com/rajvir-app/mining-server/internal/util"
)

type mockUserRepo struct {
	findByTokenHashFunc func(ctx context.Context, tokenHash string) (*model.User, error)
}

func (m *mockUserRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	if m.findByTokenHashFunc != nil {
		return m.findByTokenHashFunc(ctx, tokenHash)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindAll(ctx context.Context, limit, offset int) ([]model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) SaveMining(ctx context.Context, id string, snap model.MiningSnapshot) error {
	return nil
}

func (m *mockUserRepo) SaveProfile(ctx context.Context, id string, profile model.ProfileDelta) error {
	return nil
}

func (m *mockUserRepo) SaveLanguage(ctx context.Context, id string, language string) error {
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockUserRepo) SumPoints(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

func runAuth(m *AuthMiddleware, req *http.Request) (*httptest.ResponseRecorder, *model.User) {
	var captured *model.User
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetAccount(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, captured
}

func TestAuthMiddlewareStandalone(t *testing.T) {
	m := NewAuthMiddleware(nil, true)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	w, account := runAuth(m, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, account)
	assert.Equal(t, LocalAccountID, account.ID)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	m := NewAuthMiddleware(&mockUserRepo{}, false)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	w, _ := runAuth(m, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	repo := &mockUserRepo{
		findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.User, error) {
			return nil, nil
		},
	}
	m := NewAuthMiddleware(repo, false)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	w, _ := runAuth(m, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareBannedAccount(t *testing.T) {
	repo := &mockUserRepo{
		findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.User, error) {
			return &model.User{ID: "u1", Banned: true}, nil
		},
	}
	m := NewAuthMiddleware(repo, false)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w, _ := runAuth(m, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	token := "valid-token"
	repo := &mockUserRepo{
		findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.User, error) {
			if tokenHash == util.HashToken(token) {
				return &model.User{ID: "u1", Name: "Rajvir"}, nil
			}
			return nil, nil
		},
	}
	m := NewAuthMiddleware(repo, false)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/state", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w, account := runAuth(m, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, account)
		assert.Equal(t, "u1", account.ID)
	})

	t.Run("query parameter for event streams", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events?token="+token, nil)
		w, account := runAuth(m, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, account)
	})
}

func TestAuthMiddlewareDatabaseError(t *testing.T) {
	repo := &mockUserRepo{
		findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	m := NewAuthMiddleware(repo, false)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w, _ := runAuth(m, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
