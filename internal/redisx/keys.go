package redisx

import "time"

const (
	// Session state (cart + logged-in user): sess:{session_id} -> JSON
	KeySession = "sess:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession = 24 * time.Hour
	TTLDedup   = 48 * time.Hour
)
