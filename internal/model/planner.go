package model

import "time"

// Notes is an account's scratch pad: free text plus the canvas drawing,
// which the dashboard sends as an image data URL. An account has at most
// one.
type Notes struct {
	AccountID   string     `json:"-"                   db:"account_id"`
	TextContent string     `json:"text_content"        db:"text_content"`
	DrawingData string     `json:"drawing_data"        db:"drawing_data"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// ImportantDate is a dated event on an account's calendar panel.
type ImportantDate struct {
	ID        string    `json:"id"        db:"id"`
	AccountID string    `json:"-"         db:"account_id"`
	Datetime  time.Time `json:"datetime"  db:"event_at"`
	Event     string    `json:"event"     db:"event"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
