// Package model defines the data structures used throughout the application.
package model

import "time"

// Account is one registered identity.
//
// Username is stored trimmed and lowercased; DisplayID is stored trimmed and
// compared case-sensitively at login. SecretHash never leaves the server:
// it has no JSON tag and handlers build their own response shapes.
type Account struct {
	ID             string     `db:"id"`
	Username       string     `db:"username"`
	DisplayID      string     `db:"display_id"`
	Name           string     `db:"name"`
	SecretHash     string     `db:"secret_hash"`
	Role           Role       `db:"role"`
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
	Settings       JSONMap    `db:"settings"`
	Stats          JSONMap    `db:"stats"`
	ClickCount     int64      `db:"click_count"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// IsLocked reports whether a login attempt at now must be rejected.
// Expiry is evaluated lazily here; nothing clears LockedUntil in the
// background.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// DefaultSettings are the per-user dashboard preferences of a new account.
func DefaultSettings() JSONMap {
	return JSONMap{
		"darkMode":             true,
		"autoSaveNotes":        true,
		"soundNotifications":   false,
		"autoRefreshData":      true,
		"compactView":          false,
		"showAnimations":       true,
		"highContrast":         false,
		"autoBackup":           true,
		"securityMode":         true,
		"advancedLogging":      false,
		"performanceMode":      false,
		"developerMode":        false,
		"experimentalFeatures": false,
		"dataCompression":      true,
		"realtimeSync":         false,
		"accentTheme":          "orange",
	}
}

// DefaultStats are the usage counters of a new account. Values are float64
// so they compare equal to what encoding/json produces on read-back.
func DefaultStats() JSONMap {
	return JSONMap{
		"buttonPresses":  float64(0),
		"toggleSwitches": float64(0),
		"panelsOpened":   float64(0),
		"panelsClosed":   float64(0),
		"searchQueries":  float64(0),
		"sessionTime":    float64(0), // seconds
	}
}
