package domain

import "time"

// User is a registered session owner. Conversation turns are rejected for
// unknown users before any session lookup happens.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}
