// Package store provides the two persistence adapter variants behind
// mining.Store: a Postgres-backed remote store and a SQLite-backed local
// store for standalone use.
package store

import (
	"context"

	"github.com/rajvir-app/mining-server/internal/mining"
	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/repository"
)

// Remote adapts the Postgres repositories to the mining.Store contract.
// Writes are expected to be wrapped in a mining.DebouncedStore so tick
// bursts coalesce into one statement.
type Remote struct {
	users     repository.UserRepository
	recharges repository.RechargeRepository
}

var _ mining.Store = (*Remote)(nil)

func NewRemote(users repository.UserRepository, recharges repository.RechargeRepository) *Remote {
	return &Remote{users: users, recharges: recharges}
}

func (s *Remote) Load(ctx context.Context, accountID string) (*model.User, error) {
	return s.users.FindByID(ctx, accountID)
}

func (s *Remote) Save(ctx context.Context, accountID string, delta model.StateDelta) error {
	if delta.Mining != nil {
		if err := s.users.SaveMining(ctx, accountID, *delta.Mining); err != nil {
			return err
		}
	}
	if delta.Profile != nil {
		if err := s.users.SaveProfile(ctx, accountID, *delta.Profile); err != nil {
			return err
		}
	}
	if delta.Language != nil {
		if err := s.users.SaveLanguage(ctx, accountID, *delta.Language); err != nil {
			return err
		}
	}
	return nil
}

func (s *Remote) AppendRecharge(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error) {
	return s.recharges.Create(ctx, params)
}

func (s *Remote) ListRecharges(ctx context.Context, accountID string, limit, offset int) ([]model.RechargeRecord, error) {
	return s.recharges.FindByUserID(ctx, accountID, limit, offset)
}
