package models

import "time"

// ReadReceipt is produced when the operator opens a thread and all of its
// messages are marked seen.
type ReadReceipt struct {
	OwnerID string    `json:"owner_id"`
	Marked  int64     `json:"marked"`
	SeenAt  time.Time `json:"seen_at"`
}
