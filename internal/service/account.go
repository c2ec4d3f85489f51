package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/clock"
	"github.com/rajvir-app/mining-server/internal/mining"
	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/repository"
	"github.com/rajvir-app/mining-server/internal/util"
)

// AccountService creates backing records for authenticated users and serves
// recharge history. Registration stands in for the auth collaborator: it
// issues the bearer token the user API authenticates with.
type AccountService struct {
	users repository.UserRepository
	store mining.Store
	clock clock.Clock
}

func NewAccountService(users repository.UserRepository, store mining.Store, clk clock.Clock) *AccountService {
	return &AccountService{users: users, store: store, clock: clk}
}

// Register creates a user record with accrual defaults and returns the
// account plus its bearer token. The token is only shown once.
func (s *AccountService) Register(ctx context.Context, phone string) (*model.User, string, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	user, err := s.users.Create(ctx, model.CreateUserParams{
		Phone:     phone,
		TokenHash: util.HashToken(token),
		Name:      "User",
		Today:     mining.DateOf(s.clock.Now()),
	})
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	log.Info().Str("userId", user.ID).Msg("user registered")
	return user, token, nil
}

// RechargeHistory returns an account's recharge records, newest first.
func (s *AccountService) RechargeHistory(ctx context.Context, accountID string, limit, offset int) ([]model.RechargeRecord, error) {
	records, err := s.store.ListRecharges(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recharges: %w", err)
	}
	if records == nil {
		records = []model.RechargeRecord{}
	}
	return records, nil
}
