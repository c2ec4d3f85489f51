package model

import (
	"time"
)

// RechargeRecord is one spend of points against a destination number.
// Records are append-only and keyed by a monotonically increasing id so
// concurrent writers never rewrite each other's history.
type RechargeRecord struct {
	ID          int64          `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"-"`
	Destination string         `db:"destination" json:"destination"`
	Points      int            `db:"points" json:"points"`
	Status      RechargeStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

type CreateRechargeParams struct {
	UserID      string
	Destination string
	Points      int
}
