package models

import "time"

// Role account role
type Role string

const (
	RoleCaregiver Role = "caregiver"
	RolePatient   Role = "patient"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCaregiver || r == RolePatient
}

// User account (users table)
type User struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Role      Role      `json:"user_type" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsCaregiver reports whether the user may see every patient.
func (u *User) IsCaregiver() bool {
	return u != nil && u.Role == RoleCaregiver
}
