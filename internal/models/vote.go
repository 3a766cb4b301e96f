package models

import (
	"time"

	"github.com/google/uuid"
)

// Side is one of the two debate sides.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Valid reports whether s names a debate side.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// VoteRecord is an audit entry appended to a participant's vote history.
type VoteRecord struct {
	ParticipantID string    `json:"participantId"`
	StreamID      uuid.UUID `json:"streamId"`
	LiveID        uuid.UUID `json:"liveId"`
	Side          Side      `json:"side"`
	Weight        int       `json:"votes"`
	AsJudge       bool      `json:"asJudge"`
	At            time.Time `json:"at"`
}

// Voter is a vote record joined with the participant's display name.
type Voter struct {
	ParticipantID string    `json:"userId"`
	NickName      string    `json:"nickName"`
	Side          Side      `json:"side"`
	Weight        int       `json:"votes"`
	At            time.Time `json:"at"`
}
