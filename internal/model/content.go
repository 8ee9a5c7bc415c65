package model

import (
	"encoding/json"
	"time"
)

// ContentItem is one entry of the global dashboard content store, such as
// the announcement banner or the phone directory. Value is any JSON value.
type ContentItem struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
