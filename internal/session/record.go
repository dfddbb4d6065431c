package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kycportal/internal/domain"
)

// ErrCorruptRecord marks a persisted value that no longer decodes.
var ErrCorruptRecord = errors.New("corrupt session record")

// Record is the single serialized value written on every session mutation.
type Record struct {
	Token      string          `json:"token"`
	Identity   domain.Identity `json:"identity"`
	Device     string          `json:"device,omitempty"`
	LoggedInAt time.Time       `json:"loggedInAt"`
}

func encodeRecord(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode session record: %w", err)
	}
	return b, nil
}

func decodeRecord(b []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}
