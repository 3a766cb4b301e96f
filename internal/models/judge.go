package models

// DefaultJudgeWeight is the vote weight of a judge with no explicit weight.
const DefaultJudgeWeight = 10

// MaxJudgesPerStream bounds the judge panel of a stream.
const MaxJudgesPerStream = 3

// Judge is one member of a stream's judge panel.
type Judge struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	VoteWeight    int    `json:"voteWeight"`
	ParticipantID string `json:"participantId,omitempty"` // bound participant; votes from it count with VoteWeight
}
