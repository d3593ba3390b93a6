package models

import "time"

// UserRecord is the JSON document stored per account in the record
// store. The email inside the body is authoritative; the object path is
// only a lookup prefix plus a store-assigned suffix.
type UserRecord struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}
