package domain

import "time"

// IdempotencyRecord maps a client-supplied key to the serialized response of
// the original successful operation. A record is logically visible only while
// ExpiresAt is in the future; expired rows are inert and may be overwritten or
// lazily swept.
type IdempotencyRecord struct {
	Key       string
	Response  []byte // Serialized success response
	CreatedAt time.Time
	ExpiresAt time.Time
}

// APIKey authorizes a caller. Validation happens before any core operation;
// the engine itself only ever reads these rows.
type APIKey struct {
	KeyID     int64
	Key       string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
