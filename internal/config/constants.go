package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Mining accrual
const (
	// TickInterval is how often an active mining session re-evaluates
	// accrual and publishes a display update.
	TickInterval = 1 * time.Second

	// RechargeCost is the fixed point price of one recharge.
	RechargeCost = 28
)

// Background job intervals
const (
	JanitorInterval = 5 * time.Minute

	// SessionIdleTimeout is how long an in-memory mining session may sit
	// untouched (and not actively mining) before the janitor evicts it.
	SessionIdleTimeout = 30 * time.Minute
)

// Default rate limiting
const DefaultRateLimitPerMin = 120
