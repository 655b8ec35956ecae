package domain

import "time"

// Role is the access level granted to a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account of the system. Email and Username are each
// globally unique. An account with IsConfirmed=false is provisional: it was
// written during sign-up but the email was never verified, and a later
// sign-up for the same email overwrites it instead of creating a second row.
type User struct {
	ID             int64
	Email          string
	Username       string
	FirstName      string
	MiddleName     string
	LastName       string
	Address        string
	PhoneNumber    string
	PasswordHash   string
	Role           Role
	IsConfirmed    bool
	Enabled        bool
	NewsSubscribed bool
	AvatarKey      string
	CreatedAt      time.Time
}

// Profile is the mutable identity portion of a sign-up request.
type Profile struct {
	Username       string
	FirstName      string
	MiddleName     string
	LastName       string
	Address        string
	PhoneNumber    string
	NewsSubscribed bool
}

// ApplyProfile overwrites the user's identity fields with the given profile.
func (u *User) ApplyProfile(p Profile) {
	u.Username = p.Username
	u.FirstName = p.FirstName
	u.MiddleName = p.MiddleName
	u.LastName = p.LastName
	u.Address = p.Address
	u.PhoneNumber = p.PhoneNumber
	u.NewsSubscribed = p.NewsSubscribed
}

// Confirm transitions a provisional account to active.
func (u *User) Confirm() {
	u.IsConfirmed = true
}
