package models

import (
	"strconv"
	"time"
)

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// Subject returns the token subject for this user (decimal form of the ID)
func (u *User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}
