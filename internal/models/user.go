package models

// User is an operator account of the remote control surface.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never exposed
	Admin        bool   `json:"admin"`
}
