package domain

import "time"

// User is a login for the CRM or portal.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	PartyID      *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
