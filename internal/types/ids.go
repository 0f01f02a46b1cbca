package types

import (
	"time"

	"github.com/google/uuid"
)

// LogID identifies a DET log event (UUIDv7).
type LogID string

// RunID identifies one save-event pass through the engine (UUIDv7).
type RunID string

// NewLogID generates a UUIDv7 log identifier.
// Time-ordered IDs keep the append-only log clustered by insertion time.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewLogID() LogID {
	return LogID(uuid.Must(uuid.NewV7()).String())
}

// NewRunID generates a UUIDv7 run identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// ParseRunID validates and converts a string to RunID.
func ParseRunID(s string) (RunID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RunID(s), nil
}

// RunIDTime extracts the timestamp embedded in a UUIDv7 run ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RunIDTime(id RunID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
