// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the local projection of an identity owned by the auth provider.
// ClerkID is the provider's user id and is what every other table refers to.
type User struct {
	ID        string    `json:"id"`
	ClerkID   string    `json:"clerkId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}
