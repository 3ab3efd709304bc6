package domain

import (
	"strings"

	"cloud.google.com/go/civil"
)

// User is one account record returned by the users API.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	BirthDate civil.Date `json:"birthDate"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
}

// FullName joins first and last name the way the list renders them.
func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}
