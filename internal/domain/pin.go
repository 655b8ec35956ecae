package domain

// EmailPin is a one-time verification challenge keyed by email address. At
// most one pin is live per email; issuing a new challenge overwrites the
// stored pin in place. The record is deleted when validation succeeds.
type EmailPin struct {
	Email string
	Pin   int
}
