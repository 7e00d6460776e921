package pipeline

import "errors"

var (
	// ErrUnreadableFile is returned when the statement cannot be read or parsed.
	ErrUnreadableFile = errors.New("unable to read statement file")

	// ErrNoTransactions is returned when a statement yields no rows.
	ErrNoTransactions = errors.New("no valid transactions found")

	// ErrTooManyRows is returned when a commit exceeds MaxCommitRows.
	ErrTooManyRows = errors.New("too many transactions in one import")

	// ErrNothingSelected is returned when a commit has no rows.
	ErrNothingSelected = errors.New("no transactions selected")

	// ErrInvalidRows is returned when a commit contains rows that failed validation.
	ErrInvalidRows = errors.New("selected transactions contain validation errors")

	// ErrUnauthenticated is returned when no caller identity is available.
	ErrUnauthenticated = errors.New("authenticated user required")

	// ErrSessionNotFound is returned for unknown or foreign import sessions.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrRowNotFound is returned for an unknown temp ID.
	ErrRowNotFound = errors.New("row not found")

	// ErrNotEditing is returned when no row is being edited.
	ErrNotEditing = errors.New("no row is being edited")

	// ErrCommitInFlight is returned when a session is already being committed.
	ErrCommitInFlight = errors.New("import is already being committed")
)
