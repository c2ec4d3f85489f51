package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/rajvir-app/mining-server/internal/mining"
	"github.com/rajvir-app/mining-server/internal/model"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	phone TEXT NOT NULL DEFAULT '',
	token_hash TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT 'User',
	avatar TEXT,
	language TEXT NOT NULL DEFAULT 'en',
	role TEXT NOT NULL DEFAULT 'user',
	banned INTEGER NOT NULL DEFAULT 0,
	total_points INTEGER NOT NULL DEFAULT 0,
	mining_active INTEGER NOT NULL DEFAULT 0,
	mining_seconds_today INTEGER NOT NULL DEFAULT 0,
	points_awarded_today INTEGER NOT NULL DEFAULT 0,
	last_reset_date TEXT NOT NULL DEFAULT '',
	mining_started_at TEXT,
	days_active INTEGER NOT NULL DEFAULT 1,
	first_use_date TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recharges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	destination TEXT NOT NULL,
	points INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recharges_user ON recharges(user_id, id DESC);
`

// Local is the synchronous SQLite variant of the persistence adapter, used
// when the server runs without Postgres. Durability is advisory: save
// failures are logged and swallowed, mirroring how the app treats local
// storage as best-effort.
type Local struct {
	db *sql.DB
}

var _ mining.Store = (*Local)(nil)

// OpenLocal opens (or creates) the SQLite database at path and applies the
// schema.
func OpenLocal(path string) (*Local, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// The sqlite driver rejects concurrent writers on one connection pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Local{db: db}, nil
}

func (s *Local) Close() error {
	return s.db.Close()
}

func (s *Local) Load(ctx context.Context, accountID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone, token_hash, name, avatar, language, role, banned,
			total_points, mining_active, mining_seconds_today,
			points_awarded_today, last_reset_date, mining_started_at,
			days_active, first_use_date, created_at, updated_at
		FROM users WHERE id = ?
	`, accountID)

	var (
		u         model.User
		startedAt sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&u.ID, &u.Phone, &u.TokenHash, &u.Name, &u.Avatar, &u.Language,
		&u.Role, &u.Banned, &u.TotalPoints, &u.MiningActive,
		&u.SecondsToday, &u.PointsToday, &u.LastReset, &startedAt,
		&u.DaysActive, &u.FirstUseDate, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("local load failed")
		return nil, nil
	}

	if startedAt.Valid {
		if t, err := time.Parse(time.RFC3339, startedAt.String); err == nil {
			local := t.Local()
			u.StartedAt = &local
		}
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &u, nil
}

func (s *Local) Save(ctx context.Context, accountID string, delta model.StateDelta) error {
	now := time.Now().Format(time.RFC3339)

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, created_at, updated_at)
		VALUES (?, ?, ?)
	`, accountID, now, now); err != nil {
		log.Warn().Err(err).Str("accountId", accountID).Msg("local save failed")
		return nil
	}

	if delta.Mining != nil {
		m := delta.Mining
		var startedAt any
		if m.StartedAt != nil {
			startedAt = m.StartedAt.Format(time.RFC3339)
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE users SET
				total_points = ?, mining_active = ?,
				mining_seconds_today = ?, points_awarded_today = ?,
				last_reset_date = ?, mining_started_at = ?,
				days_active = ?, first_use_date = ?, updated_at = ?
			WHERE id = ?
		`, m.TotalPoints, m.Active, m.SecondsToday, m.PointsToday,
			m.LastReset, startedAt, m.DaysActive, m.FirstUseDate, now, accountID); err != nil {
			log.Warn().Err(err).Str("accountId", accountID).Msg("local save failed")
		}
	}

	if delta.Profile != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE users SET name = ?, avatar = ?, updated_at = ? WHERE id = ?
		`, delta.Profile.Name, delta.Profile.Avatar, now, accountID); err != nil {
			log.Warn().Err(err).Str("accountId", accountID).Msg("local save failed")
		}
	}

	if delta.Language != nil {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE users SET language = ?, updated_at = ? WHERE id = ?
		`, *delta.Language, now, accountID); err != nil {
			log.Warn().Err(err).Str("accountId", accountID).Msg("local save failed")
		}
	}

	return nil
}

func (s *Local) AppendRecharge(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO recharges (user_id, destination, points, status, created_at)
		VALUES (?, ?, ?, 'pending', ?)
	`, params.UserID, params.Destination, params.Points, now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &model.RechargeRecord{
		ID:          id,
		UserID:      params.UserID,
		Destination: params.Destination,
		Points:      params.Points,
		Status:      model.RechargeStatusPending,
		CreatedAt:   now,
	}, nil
}

func (s *Local) ListRecharges(ctx context.Context, accountID string, limit, offset int) ([]model.RechargeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, destination, points, status, created_at
		FROM recharges
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.RechargeRecord
	for rows.Next() {
		var (
			rec       model.RechargeRecord
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Destination, &rec.Points, &rec.Status, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
