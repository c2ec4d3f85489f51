package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rajvir-app/mining-server/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.User, error)
	Search(ctx context.Context, query string, limit, offset int) ([]model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	SaveMining(ctx context.Context, id string, snap model.MiningSnapshot) error
	SaveProfile(ctx context.Context, id string, profile model.ProfileDelta) error
	SaveLanguage(ctx context.Context, id string, language string) error
	Update(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	SumPoints(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindAll(ctx context.Context, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Search(ctx context.Context, query string, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (phone, token_hash, name, last_reset_date, first_use_date)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING *
	`, params.Phone, params.TokenHash, params.Name, params.Today)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) SaveMining(ctx context.Context, id string, snap model.MiningSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			total_points = $2,
			mining_active = $3,
			mining_seconds_today = $4,
			points_awarded_today = $5,
			last_reset_date = $6,
			mining_started_at = $7,
			days_active = $8,
			updated_at = $9
		WHERE id = $1
	`, id, snap.TotalPoints, snap.Active, snap.SecondsToday, snap.PointsToday,
		snap.LastReset, snap.StartedAt, snap.DaysActive, time.Now())
	return err
}

func (r *userRepo) SaveProfile(ctx context.Context, id string, profile model.ProfileDelta) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, avatar = $3, updated_at = $4
		WHERE id = $1
	`, id, profile.Name, profile.Avatar, time.Now())
	return err
}

func (r *userRepo) SaveLanguage(ctx context.Context, id string, language string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET language = $2, updated_at = $3
		WHERE id = $1
	`, id, language, time.Now())
	return err
}

func (r *userRepo) Update(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			name = COALESCE($2, name),
			total_points = COALESCE($3, total_points),
			banned = COALESCE($4, banned),
			role = COALESCE($5, role),
			updated_at = $6
		WHERE id = $1
		RETURNING *
	`, id, params.Name, params.Points, params.Banned, params.Role, time.Now())
	return HandleNotFound(&user, err)
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}

func (r *userRepo) SumPoints(ctx context.Context) (int, error) {
	var sum int
	err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(total_points), 0) FROM users`)
	return sum, err
}
