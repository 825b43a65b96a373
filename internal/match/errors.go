package match

import "errors"

var (
	// Manager errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotRunning     = errors.New("matchmaking is not running")

	// Queue membership errors
	ErrAlreadyInQueue = errors.New("player is already in queue")
	ErrNotInQueue     = errors.New("player is not in queue")
	ErrQueueAddFailed = errors.New("failed to add player to queue")
)
