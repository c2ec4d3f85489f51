package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/audit"
	"github.com/rajvir-app/mining-server/internal/database"
	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/repository"
	"github.com/rajvir-app/mining-server/internal/util"
)

const adminSessionTTL = 24 * time.Hour

// AdminService backs the admin surface: password login, stats, and direct
// mutation of user records. Admin writes go to the database, not through the
// per-account mining session; the service evicts the live session afterward
// so the next access re-hydrates, shrinking (but not closing) the
// last-write-wins window between admin and account.
type AdminService struct {
	db            *database.DB
	sessionRepo   repository.AdminSessionRepository
	users         repository.UserRepository
	recharges     repository.RechargeRepository
	miningSvc     *MiningService
	passwordHash  string
	sessionSecret string
}

func NewAdminService(
	db *database.DB,
	sessionRepo repository.AdminSessionRepository,
	users repository.UserRepository,
	recharges repository.RechargeRepository,
	miningSvc *MiningService,
	passwordHash, sessionSecret string,
) *AdminService {
	return &AdminService{
		db:            db,
		sessionRepo:   sessionRepo,
		users:         users,
		recharges:     recharges,
		miningSvc:     miningSvc,
		passwordHash:  passwordHash,
		sessionSecret: sessionSecret,
	}
}

// Login checks the admin password and mints a cookie session token.
// An empty token with nil error means the password was wrong.
func (s *AdminService) Login(ctx context.Context, password string) (string, error) {
	if s.passwordHash == "" || !util.CheckPasswordHash(password, s.passwordHash) {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure})
		return "", nil
	}

	token, err := util.GenerateToken()
	if err != nil {
		return "", err
	}

	tokenHash := util.HmacSHA256(s.sessionSecret, token)
	_, err = s.sessionRepo.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(adminSessionTTL),
	})
	if err != nil {
		return "", err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLoginSuccess})
	return token, nil
}

func (s *AdminService) Logout(ctx context.Context, token string) error {
	tokenHash := util.HmacSHA256(s.sessionSecret, token)
	audit.Log(ctx, audit.Event{Type: audit.EventLogout})
	return s.sessionRepo.DeleteByTokenHash(ctx, tokenHash)
}

type Stats struct {
	Users        int `json:"users"`
	TotalPoints  int `json:"totalPoints"`
	Recharges    int `json:"recharges"`
	LiveSessions int `json:"liveSessions"`
}

func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.Users = users

	points, err := s.users.SumPoints(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalPoints = points

	recharges, err := s.recharges.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.Recharges = recharges

	stats.LiveSessions = s.miningSvc.Count()
	return stats, nil
}

// ListUsers returns users, optionally filtered by a name/phone search query.
func (s *AdminService) ListUsers(ctx context.Context, query string, limit, offset int) ([]model.User, error) {
	if query != "" {
		return s.users.Search(ctx, query, limit, offset)
	}
	return s.users.FindAll(ctx, limit, offset)
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdateUser applies an admin mutation (points, ban, role, name) directly to
// the stored record and evicts the live session.
func (s *AdminService) UpdateUser(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error) {
	user, err := s.users.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	s.miningSvc.Evict(id)

	audit.Log(ctx, audit.Event{
		Type:      audit.EventUserUpdate,
		AccountID: id,
		Details: map[string]interface{}{
			"pointsSet": params.Points != nil,
			"banToggle": params.Banned != nil,
			"roleSet":   params.Role != nil,
		},
	})
	return user, nil
}

// DeleteUser removes the user record and its recharge history in one
// transaction.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.recharges.WithTx(tx).DeleteByUserID(ctx, id); err != nil {
			return err
		}
		return s.users.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.miningSvc.Evict(id)

	audit.Log(ctx, audit.Event{Type: audit.EventUserDelete, AccountID: id})
	log.Info().Str("userId", id).Msg("user deleted")
	return nil
}

func (s *AdminService) ListUserRecharges(ctx context.Context, userID string, limit, offset int) ([]model.RechargeRecord, error) {
	records, err := s.recharges.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.RechargeRecord{}
	}
	return records, nil
}
