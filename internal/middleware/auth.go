package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/repository"
	"github.com/rajvir-app/mining-server/internal/util"
)

type contextKey string

const AccountContextKey contextKey = "account"

// LocalAccountID is the single implicit account in standalone mode.
const LocalAccountID = "local"

func GetAccount(ctx context.Context) *model.User {
	if account, ok := ctx.Value(AccountContextKey).(*model.User); ok {
		return account
	}
	return nil
}

// AuthMiddleware resolves the bearer token to a user record. In standalone
// mode (no database) every request maps to the single local account, which
// mirrors the app's unauthenticated local-only behavior.
type AuthMiddleware struct {
	users      repository.UserRepository
	standalone bool
}

func NewAuthMiddleware(users repository.UserRepository, standalone bool) *AuthMiddleware {
	return &AuthMiddleware{users: users, standalone: standalone}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.standalone {
			account := &model.User{ID: LocalAccountID, Name: "User", Language: "en", Role: model.RoleUser}
			ctx := context.WithValue(r.Context(), AccountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		tokenHash := util.HashToken(token)
		account, err := m.users.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if account == nil {
			log.Warn().Msg("auth middleware: invalid token attempt")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		if account.Banned {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Account is banned",
			})
			return
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
