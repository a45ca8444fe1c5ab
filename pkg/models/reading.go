package models

import (
	"encoding/json"
	"time"
)

// ReadingRecord is one completed reading in an owner's history.
// Records are append-only.
type ReadingRecord struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}
