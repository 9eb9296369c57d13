package address

import "errors"

var (
	ErrAddressNotFound = errors.New("address not found")
	// ErrAddressNotOwned is returned when a selected address belongs to a
	// different party than the sale.
	ErrAddressNotOwned = errors.New("address does not belong to the party")
)
