package models

import (
	"time"

	"github.com/google/uuid"
)

// Stream is a configured live-broadcast source (one debate topic / venue feed).
type Stream struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Type        string    `json:"type"` // hls, rtmp, flv
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
