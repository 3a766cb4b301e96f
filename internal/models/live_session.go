package models

import (
	"time"

	"github.com/google/uuid"
)

// LiveSession is one continuous broadcast of a stream, from start to stop.
type LiveSession struct {
	LiveID      uuid.UUID  `json:"liveId"`
	StreamID    uuid.UUID  `json:"streamId"`
	StartTime   time.Time  `json:"startTime"`
	StopTime    *time.Time `json:"stopTime,omitempty"`
	IsLive      bool       `json:"isLive"`
	StopReason  string     `json:"stopReason,omitempty"`
	LeftVotes   int        `json:"leftVotes"`  // final session tally, set on stop
	RightVotes  int        `json:"rightVotes"` // final session tally, set on stop
	PeakViewers int        `json:"peakViewers"`
}
