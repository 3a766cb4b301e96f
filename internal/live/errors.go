package live

import "errors"

var (
	ErrStreamNotFound      = errors.New("stream not found")
	ErrStreamDisabled      = errors.New("stream is disabled")
	ErrAlreadyLive         = errors.New("stream is already live")
	ErrStreamNotLive       = errors.New("stream is not live")
	ErrParticipantBanned   = errors.New("participant is banned")
	ErrAlreadyVoted        = errors.New("participant already voted in this live session")
	ErrVotingWindowNotOpen = errors.New("voting window is not open yet")
	ErrVotingWindowClosed  = errors.New("voting window has closed")
	ErrInvalidSide         = errors.New("side must be left or right")
	ErrMissingParticipant  = errors.New("participant id is required")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidSchedule     = errors.New("invalid schedule")

	ErrAIAlreadyRunning = errors.New("ai commentary already running")
	ErrAINotRunning     = errors.New("ai commentary not running")
)
