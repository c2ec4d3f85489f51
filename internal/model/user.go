package model

import (
	"time"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Phone        string     `db:"phone" json:"phone"`
	TokenHash    string     `db:"token_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	Avatar       *string    `db:"avatar" json:"avatar,omitempty"`
	Language     string     `db:"language" json:"language"`
	Role         UserRole   `db:"role" json:"role"`
	Banned       bool       `db:"banned" json:"banned"`
	TotalPoints  int        `db:"total_points" json:"totalPoints"`
	MiningActive bool       `db:"mining_active" json:"miningActive"`
	SecondsToday int        `db:"mining_seconds_today" json:"miningSecondsToday"`
	PointsToday  int        `db:"points_awarded_today" json:"pointsAwardedToday"`
	LastReset    string     `db:"last_reset_date" json:"lastResetDate"`
	StartedAt    *time.Time `db:"mining_started_at" json:"miningStartTimestamp,omitempty"`
	DaysActive   int        `db:"days_active" json:"daysActive"`
	FirstUseDate string     `db:"first_use_date" json:"firstUseDate"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Mining extracts the accrual scalar fields that the mining engine owns.
func (u *User) Mining() MiningSnapshot {
	return MiningSnapshot{
		TotalPoints:  u.TotalPoints,
		Active:       u.MiningActive,
		SecondsToday: u.SecondsToday,
		PointsToday:  u.PointsToday,
		LastReset:    u.LastReset,
		StartedAt:    u.StartedAt,
		DaysActive:   u.DaysActive,
		FirstUseDate: u.FirstUseDate,
	}
}

// MiningSnapshot is the accrual state of one account at a quiescent point.
// It is copied by value through the pure transition functions and written
// back to storage wholesale.
type MiningSnapshot struct {
	TotalPoints  int        `json:"totalPoints"`
	Active       bool       `json:"miningActive"`
	SecondsToday int        `json:"miningSecondsToday"`
	PointsToday  int        `json:"pointsAwardedToday"`
	LastReset    string     `json:"lastResetDate"`
	StartedAt    *time.Time `json:"miningStartTimestamp,omitempty"`
	DaysActive   int        `json:"daysActive"`
	FirstUseDate string     `json:"firstUseDate"`
}

// ProfileDelta replaces the user's display profile atomically.
type ProfileDelta struct {
	Name   string
	Avatar *string
}

// StateDelta is a partial write against one account's stored record.
// Nil fields are left untouched; the debounced writer coalesces successive
// deltas by merging later ones over earlier ones.
type StateDelta struct {
	Mining   *MiningSnapshot
	Profile  *ProfileDelta
	Language *string
}

// Merge overlays other on top of d, field by field.
func (d *StateDelta) Merge(other StateDelta) {
	if other.Mining != nil {
		d.Mining = other.Mining
	}
	if other.Profile != nil {
		d.Profile = other.Profile
	}
	if other.Language != nil {
		d.Language = other.Language
	}
}

func (d StateDelta) Empty() bool {
	return d.Mining == nil && d.Profile == nil && d.Language == nil
}

type CreateUserParams struct {
	Phone     string
	TokenHash string
	Name      string
	Today     string
}

type UpdateUserParams struct {
	Name   *string
	Points *int
	Banned *bool
	Role   *UserRole
}
