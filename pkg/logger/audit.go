package logger

import (
	"context"
	"log/slog"
	"time"
)

// LoginEvent describes one authentication attempt
type LoginEvent struct {
	UserName  string // masked before logging
	AccountID string
	IPAddress string
	UserAgent string
	Outcome   string // "allow", "denied", "locked", "unknown_user"
	Reason    string
}

// AdminEvent describes one administrative mutation
type AdminEvent struct {
	Action    string // e.g. "member_lock"
	ActorID   string
	TargetID  string
	Success   bool
	Reason    string
	Metadata  map[string]string
	IPAddress string
}

// AuditLogger writes security events through slog. Rejections are logged at
// warn, never at error.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

func (al *AuditLogger) timestamp() slog.Attr {
	return slog.String("timestamp", al.now().UTC().Format(time.RFC3339))
}

// LogLogin records an authentication attempt
func (al *AuditLogger) LogLogin(ctx context.Context, event LoginEvent) {
	success := event.Outcome == "allow"
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", "login"),
		slog.String("outcome", event.Outcome),
		slog.Bool("success", success),
		slog.String("user", SanitizedEmail(event.UserName)),
		al.timestamp(),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.Reason))
	}

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLockout records an account entering lockout because of failed attempts
func (al *AuditLogger) LogLockout(ctx context.Context, accountID, userName string, until time.Time) {
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit",
		slog.String("audit_type", "auth"),
		slog.String("event_type", "account_locked"),
		slog.String("account_id", accountID),
		slog.String("user", SanitizedEmail(userName)),
		slog.String("locked_until", until.UTC().Format(time.RFC3339)),
		al.timestamp(),
	)
}

// LogRegistration records a self-service sign up
func (al *AuditLogger) LogRegistration(ctx context.Context, accountID, userName string, success bool, reason string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", "register"),
		slog.Bool("success", success),
		slog.String("user", SanitizedEmail(userName)),
		al.timestamp(),
	}
	if accountID != "" {
		attrs = append(attrs, slog.String("account_id", accountID))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("failure_reason", reason))
	}

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAdminAction records an administrative mutation and its result
func (al *AuditLogger) LogAdminAction(ctx context.Context, event AdminEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "admin"),
		slog.String("event_type", event.Action),
		slog.Bool("success", event.Success),
		slog.String("actor_id", event.ActorID),
		al.timestamp(),
	}

	if event.TargetID != "" {
		attrs = append(attrs, slog.String("target_id", event.TargetID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.Reason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
