package models

import "github.com/google/uuid"

// DailyStat is the per-day vote aggregation, accumulated when live sessions end.
type DailyStat struct {
	Date       string        `json:"date"` // YYYY-MM-DD
	TotalVotes int           `json:"totalVotes"`
	LeftVotes  int           `json:"leftVotes"`
	RightVotes int           `json:"rightVotes"`
	Streams    []StreamVotes `json:"streamVotesBar"`
}

// StreamVotes is one stream's share of a day's votes.
type StreamVotes struct {
	StreamID   uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	LeftVotes  int       `json:"leftVotes"`
	RightVotes int       `json:"rightVotes"`
}

// Summary is the platform-wide statistics headline.
type Summary struct {
	GlobalTotalVotes int `json:"globalTotalVotes"`
	TodayVotes       int `json:"todayVotes"`
	Participants     int `json:"participants"`
	BannedUsers      int `json:"bannedUsers"`
	Streams          int `json:"streams"`
	LiveSessions     int `json:"liveSessions"`
}

// ActiveUser is a participant whose vote count on a date exceeds the activity threshold.
type ActiveUser struct {
	ParticipantID string `json:"userId"`
	NickName      string `json:"nickName"`
	Votes         int    `json:"voteCount"`
}
