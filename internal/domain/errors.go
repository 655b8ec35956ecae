package domain

import "errors"

// Failure taxonomy surfaced to the transport layer. Each condition maps to a
// distinct response status there, so they stay separate sentinels.
var (
	// ErrUserNotFound indicates no user record matches the given identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailAlreadyExists indicates the email belongs to an existing user.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrUsernameAlreadyExists indicates the username belongs to an existing user.
	ErrUsernameAlreadyExists = errors.New("username already exists")
	// ErrChallengeNotFound indicates no pin has been issued for the email.
	ErrChallengeNotFound = errors.New("verification pin not found")
	// ErrInvalidPin indicates the submitted pin does not match the stored one.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrInvalidPassword indicates the submitted password does not match the stored hash.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrAccountNotConfirmed indicates the account email was never verified.
	ErrAccountNotConfirmed = errors.New("account email is not confirmed")
)
