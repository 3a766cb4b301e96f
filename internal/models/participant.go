package models

import "time"

// ParticipantStatus is the moderation status of a participant.
type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "active"
	ParticipantBanned ParticipantStatus = "banned"
)

// Participant is an audience member (mini-program user) who can vote.
type Participant struct {
	ID        string            `json:"id"`
	NickName  string            `json:"nickName"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	Status    ParticipantStatus `json:"status"`
	VoteTimes int               `json:"voteTimes"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// IsBanned reports whether the participant may not vote.
func (p *Participant) IsBanned() bool {
	return p != nil && p.Status == ParticipantBanned
}
