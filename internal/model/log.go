package model

import "time"

// LogKind separates the per-user log streams kept in one table.
type LogKind string

const (
	LogActivity     LogKind = "activity"
	LogError        LogKind = "error"
	LogLoginAttempt LogKind = "login_attempt"
)

// LogEntry is one dashboard log record owned by an account.
type LogEntry struct {
	ID          string    `json:"id"          db:"id"`
	AccountID   string    `json:"-"           db:"account_id"`
	Kind        LogKind   `json:"kind"        db:"kind"`
	Description string    `json:"description" db:"description"`
	Context     string    `json:"context"     db:"context"`
	Details     JSONMap   `json:"details"     db:"details"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// IsValid reports whether k is one of the known streams.
func (k LogKind) IsValid() bool {
	switch k {
	case LogActivity, LogError, LogLoginAttempt:
		return true
	default:
		return false
	}
}
