package ticketing

import "errors"

var (
	// ErrValidation marks request input rejected before any store access.
	ErrValidation = errors.New("invalid ticket request")
	// ErrPersistence marks a ticket that was not issued because the store failed.
	ErrPersistence = errors.New("ticket persistence failed")
	// ErrMaintenance marks retention sweep failures. They are only logged.
	ErrMaintenance = errors.New("retention maintenance failed")
)
