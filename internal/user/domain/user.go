package domain

import "time"

type ID string

type User struct {
	ID           ID
	Name         string
	Email        string
	PasswordHash string
	Admin        bool
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
