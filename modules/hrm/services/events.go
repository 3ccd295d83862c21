package services

import (
	"time"

	"github.com/google/uuid"
)

type ImportLoadedEvent struct {
	SessionID  uuid.UUID
	Campus     string
	Filename   string
	Total      int
	Valid      int
	OccurredAt time.Time
}

type ImportSubmittedEvent struct {
	SessionID  uuid.UUID
	Campus     string
	Sent       int
	Skipped    int
	Succeeded  int
	Failed     int
	OccurredAt time.Time
}
