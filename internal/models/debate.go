package models

import (
	"time"

	"github.com/google/uuid"
)

// Debate is a debate topic with the two positions argued on a stream.
type Debate struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	LeftPosition  string    `json:"leftPosition"`
	RightPosition string    `json:"rightPosition"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FlowSide is the side that holds the floor during a flow segment.
type FlowSide string

const (
	FlowLeft  FlowSide = "left"
	FlowRight FlowSide = "right"
	FlowBoth  FlowSide = "both"
)

// FlowSegment is one timed segment of a debate flow. Duration is in seconds.
type FlowSegment struct {
	Name     string   `json:"name"`
	Duration int      `json:"duration"`
	Side     FlowSide `json:"side"`
}

// LiveSchedule is a pending timed start (and optional stop) of a stream.
type LiveSchedule struct {
	StreamID    uuid.UUID  `json:"streamId"`
	StartAt     time.Time  `json:"scheduledStartTime"`
	EndAt       *time.Time `json:"scheduledEndTime,omitempty"`
	AutoStartAI bool       `json:"autoStartAI"`
	CreatedAt   time.Time  `json:"createdAt"`
}
