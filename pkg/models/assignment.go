package models

import (
	"time"

	"github.com/google/uuid"
)

// UserClientAssignment scopes which clients' cases a user may see.
type UserClientAssignment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	ClientID  uuid.UUID `json:"clientId" db:"client_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
