package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditEvent represents an audit log event type
type AuditEvent string

const (
	// Authentication events
	AuditLoginSuccess AuditEvent = "auth.login.success"
	AuditLoginFailure AuditEvent = "auth.login.failure"
	AuditSignup       AuditEvent = "auth.signup"

	// Project access events
	AuditAccessGranted  AuditEvent = "project.access.granted"
	AuditInviteCreated  AuditEvent = "project.invite.created"
	AuditInviteAccepted AuditEvent = "project.invite.accepted"
	AuditInviteRejected AuditEvent = "project.invite.rejected"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         uuid.UUID
	EventType  AuditEvent
	Actor      string
	ProjectID  int64
	TargetUser string
	Details    map[string]interface{}
	ClientIP   string
	UserAgent  string
	CreatedAt  time.Time
}

// AuditLogger is an interface for logging audit events
type AuditLogger interface {
	Log(entry *AuditLog) error
}

func stamp(entry *AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}

// InMemoryAuditLogger keeps entries in memory. Used in development and tests.
type InMemoryAuditLogger struct {
	mu   sync.Mutex
	logs []AuditLog
}

// NewInMemoryAuditLogger creates a new in-memory audit logger
func NewInMemoryAuditLogger() *InMemoryAuditLogger {
	return &InMemoryAuditLogger{
		logs: make([]AuditLog, 0),
	}
}

// Log adds an audit log entry
func (l *InMemoryAuditLogger) Log(entry *AuditLog) error {
	stamp(entry)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, *entry)
	return nil
}

// GetLogs returns a copy of all entries
func (l *InMemoryAuditLogger) GetLogs() []AuditLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditLog, len(l.logs))
	copy(out, l.logs)
	return out
}

// LogAuditLogger writes audit entries to a logrus logger.
type LogAuditLogger struct {
	log logrus.FieldLogger
}

// NewLogAuditLogger creates an audit logger backed by log
func NewLogAuditLogger(log logrus.FieldLogger) *LogAuditLogger {
	return &LogAuditLogger{log: log}
}

// Log writes the entry as a structured line
func (l *LogAuditLogger) Log(entry *AuditLog) error {
	stamp(entry)
	fields := logrus.Fields{
		"audit_id":   entry.ID.String(),
		"event":      string(entry.EventType),
		"actor":      entry.Actor,
		"client_ip":  entry.ClientIP,
		"created_at": entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.ProjectID != 0 {
		fields["project_id"] = entry.ProjectID
	}
	if entry.TargetUser != "" {
		fields["target_user"] = entry.TargetUser
	}
	for k, v := range entry.Details {
		fields[k] = v
	}
	l.log.WithFields(fields).Info("audit")
	return nil
}

// CreateLoginAuditLog creates an audit log for login attempts
func CreateLoginAuditLog(success bool, username, clientIP, userAgent string) *AuditLog {
	eventType := AuditLoginFailure
	details := map[string]interface{}{}
	if success {
		eventType = AuditLoginSuccess
	} else {
		details["reason"] = "invalid_credentials"
	}

	return &AuditLog{
		EventType: eventType,
		Actor:     username,
		Details:   details,
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}
}

// CreateSignupAuditLog creates an audit log for a new registration
func CreateSignupAuditLog(username, email, clientIP string) *AuditLog {
	return &AuditLog{
		EventType: AuditSignup,
		Actor:     username,
		Details:   map[string]interface{}{"email": email},
		ClientIP:  clientIP,
	}
}

// CreateInviteAuditLog creates an audit log for an emailed invite
func CreateInviteAuditLog(inviter string, projectID int64, invitee, email string) *AuditLog {
	return &AuditLog{
		EventType:  AuditInviteCreated,
		Actor:      inviter,
		ProjectID:  projectID,
		TargetUser: invitee,
		Details:    map[string]interface{}{"email": email},
	}
}

// CreateGrantAuditLog creates an audit log for a direct grant
func CreateGrantAuditLog(owner string, projectID int64, grantee, role string) *AuditLog {
	return &AuditLog{
		EventType:  AuditAccessGranted,
		Actor:      owner,
		ProjectID:  projectID,
		TargetUser: grantee,
		Details:    map[string]interface{}{"role": role},
	}
}

// CreateJoinAuditLog creates an audit log for an invite redemption attempt
func CreateJoinAuditLog(accepted bool, username string, projectID int64, reason, clientIP string) *AuditLog {
	entry := &AuditLog{
		EventType: AuditInviteAccepted,
		Actor:     username,
		ProjectID: projectID,
		ClientIP:  clientIP,
	}
	if !accepted {
		entry.EventType = AuditInviteRejected
		entry.Details = map[string]interface{}{"reason": reason}
	}
	return entry
}
