package party

import "errors"

var (
	ErrPartyNotFound   = errors.New("party not found")
	ErrContactNotFound = errors.New("contact mechanism not found")
	ErrEmptyEmail      = errors.New("email is required")

	pgUniqueViolation = "23505"
)
