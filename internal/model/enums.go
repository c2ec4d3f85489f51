package model

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type RechargeStatus string

const (
	// RechargeStatusPending is the only status recharges ever reach;
	// fulfillment happens outside this system.
	RechargeStatusPending RechargeStatus = "pending"
)
