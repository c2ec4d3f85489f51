package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess EventType = "login_success"
	EventLoginFailure EventType = "login_failure"
	EventLogout       EventType = "logout"
	EventUserUpdate   EventType = "user_update"
	EventUserDelete   EventType = "user_delete"
	EventAuthFailure  EventType = "auth_failure"
)

type Event struct {
	Type      EventType
	AccountID string
	IP        string
	Details   map[string]interface{}
}

// Log emits a structured audit record for security-relevant admin actions.
func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.AccountID != "" {
		logger = logger.With().Str("account_id", event.AccountID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if len(event.Details) > 0 {
		logger = logger.With().Fields(event.Details).Logger()
	}

	logger.Info().Msg("audit event")
}
