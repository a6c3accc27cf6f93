package store

import "github.com/go-faster/errors"

var (
	// ErrUnknownTable indicates a table outside the planning schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn indicates a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnfiltered guards against table-wide updates and deletes.
	ErrUnfiltered = errors.New("update and delete require at least one filter")

	// ErrTransport indicates the backend could not be reached or kept
	// failing after all retries.
	ErrTransport = errors.New("store transport failure")

	// ErrRejected indicates the backend refused the request; retrying
	// the same request will not help.
	ErrRejected = errors.New("store rejected request")
)
