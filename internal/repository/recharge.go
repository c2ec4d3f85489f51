package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rajvir-app/mining-server/internal/model"
)

type RechargeRepository interface {
	Create(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.RechargeRecord, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	Count(ctx context.Context) (int, error)
	DeleteByUserID(ctx context.Context, userID string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) RechargeRepository
}

type rechargeRepo struct {
	db sqlxDB
}

func NewRechargeRepository(db *sqlx.DB) RechargeRepository {
	return &rechargeRepo{db: db}
}

func (r *rechargeRepo) WithTx(tx *sqlx.Tx) RechargeRepository {
	return &rechargeRepo{db: tx}
}

func (r *rechargeRepo) Create(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error) {
	var record model.RechargeRecord
	err := r.db.GetContext(ctx, &record, `
		INSERT INTO recharges (user_id, destination, points, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING *
	`, params.UserID, params.Destination, params.Points)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *rechargeRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.RechargeRecord, error) {
	var records []model.RechargeRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM recharges
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *rechargeRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM recharges WHERE user_id = $1
	`, userID)
	return count, err
}

func (r *rechargeRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM recharges`)
	return count, err
}

func (r *rechargeRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recharges WHERE user_id = $1`, userID)
	return err
}
