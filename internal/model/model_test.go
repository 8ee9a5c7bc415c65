package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"", RoleStandard, true},
		{"admin", RoleAdmin, true},
		{"moderator", RoleModerator, true},
		{"guest", RoleGuest, true},
		{"locked", RoleLocked, true},
		{"Admin", Role("Admin"), false},
		{"superuser", Role("superuser"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllRolesAreValid(t *testing.T) {
	for _, r := range AllRoles() {
		assert.True(t, r.IsValid(), "role %q", r)
	}
}

func TestAccountIsLocked(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&Account{}).IsLocked(now))
	assert.True(t, (&Account{LockedUntil: &future}).IsLocked(now))
	assert.False(t, (&Account{LockedUntil: &past}).IsLocked(now))
	assert.False(t, (&Account{LockedUntil: &now}).IsLocked(now), "lock ends exactly at lockedUntil")
}

func TestJSONMapScanValue(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(`{"darkMode":false,"accentTheme":"blue"}`))
	assert.Equal(t, false, m["darkMode"])
	assert.Equal(t, "blue", m["accentTheme"])

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))

	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestJSONMapMerge(t *testing.T) {
	base := JSONMap{"a": 1, "b": 2}
	merged := base.Merge(JSONMap{"b": 3, "c": 4})

	assert.Equal(t, JSONMap{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, JSONMap{"a": 1, "b": 2}, base, "Merge must not mutate the receiver")
}

func TestLogKindIsValid(t *testing.T) {
	for _, k := range []LogKind{LogActivity, LogError, LogLoginAttempt} {
		assert.True(t, k.IsValid(), "%q should be valid", k)
	}
	assert.False(t, LogKind("audit").IsValid())
	assert.False(t, LogKind("").IsValid())
}
