package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/school-dashboard/internal/apperror"
)

func newPlanner() *PlannerService {
	return NewPlannerService(newFakeNoteRepo(), &fakeDateRepo{}, discardLogger())
}

// =========================================================================
// NOTES
// =========================================================================

func TestPlanner_NotesDefaultToEmpty(t *testing.T) {
	svc := newPlanner()

	n, err := svc.Notes(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Empty(t, n.TextContent)
	assert.Empty(t, n.DrawingData)
	assert.Nil(t, n.UpdatedAt)
}

func TestPlanner_SaveAndClearNotes(t *testing.T) {
	svc := newPlanner()
	ctx := context.Background()

	saved, err := svc.SaveNotes(ctx, "acct-1", NotesInput{
		TextContent: "permission slip due Friday",
		DrawingData: "data:image/png;base64,iVBORw0KGgo=",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.UpdatedAt)

	got, err := svc.Notes(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "permission slip due Friday", got.TextContent)

	other, err := svc.Notes(ctx, "acct-2")
	require.NoError(t, err)
	assert.Empty(t, other.TextContent, "notes are per account")

	require.NoError(t, svc.ClearNotes(ctx, "acct-1"))
	got, err = svc.Notes(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, got.TextContent)
}

func TestPlanner_NotesValidation(t *testing.T) {
	svc := newPlanner()
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID string
		in        NotesInput
		field     string
	}{
		{"text too long", "acct-1", NotesInput{TextContent: strings.Repeat("a", 20001)}, "text_content"},
		{"drawing not an image", "acct-1", NotesInput{DrawingData: "javascript:alert(1)"}, "drawing_data"},
		{"no account", "", NotesInput{TextContent: "x"}, "account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveNotes(ctx, tt.accountID, tt.in)
			require.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	_, err := svc.SaveNotes(ctx, "acct-1", NotesInput{})
	assert.NoError(t, err, "an empty pad is a valid save")
}

// =========================================================================
// IMPORTANT DATES
// =========================================================================

func TestPlanner_AddImportantDateParsesFormats(t *testing.T) {
	svc := newPlanner()
	ctx := context.Background()

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-06-01T09:30:00+02:00", time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC)},
		{"2025-06-01T09:30:00Z", time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-06-01T09:30", time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := svc.AddImportantDate(ctx, "acct-1", ImportantDateInput{Datetime: tt.input, Event: "exam"})
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d.Datetime), "got %s", d.Datetime)
			assert.Equal(t, time.UTC, d.Datetime.Location())
		})
	}
}

func TestPlanner_AddImportantDateValidation(t *testing.T) {
	svc := newPlanner()
	ctx := context.Background()

	tests := []struct {
		name string
		in   ImportantDateInput
	}{
		{"missing datetime", ImportantDateInput{Event: "exam"}},
		{"blank event", ImportantDateInput{Datetime: "2025-06-01", Event: "   "}},
		{"unparseable datetime", ImportantDateInput{Datetime: "next tuesday", Event: "exam"}},
		{"event too long", ImportantDateInput{Datetime: "2025-06-01", Event: strings.Repeat("e", 201)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddImportantDate(ctx, "acct-1", tt.in)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestPlanner_ListAndClearImportantDates(t *testing.T) {
	svc := newPlanner()
	ctx := context.Background()

	for _, in := range []ImportantDateInput{
		{Datetime: "2025-06-20", Event: "sports day"},
		{Datetime: "2025-06-01", Event: "maths exam"},
	} {
		_, err := svc.AddImportantDate(ctx, "acct-1", in)
		require.NoError(t, err)
	}
	_, err := svc.AddImportantDate(ctx, "acct-2", ImportantDateInput{Datetime: "2025-05-01", Event: "other"})
	require.NoError(t, err)

	got, err := svc.ImportantDates(ctx, "acct-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "maths exam", got[0].Event)

	n, err := svc.ClearImportantDates(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = svc.ImportantDates(ctx, "acct-2", 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
