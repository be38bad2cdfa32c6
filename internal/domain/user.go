package domain

import "time"

// User is the persisted identity record. ID and CreatedAt are assigned by the
// store on insert and never change afterwards.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
