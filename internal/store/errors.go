package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrTenantNotFound is returned when a public tenant UUID does not
	// resolve to a provisioned tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrDeviceNotFound is returned when no AUTHORIZED device matches the
	// presented (tenant, email, fingerprint) triple.
	ErrDeviceNotFound = errors.New("no matching authorized device")

	// ErrAuthCheckNotGranted is returned when a session-gated auth check
	// does not match any vault/device row satisfying all predicates.
	ErrAuthCheckNotGranted = errors.New("auth check not granted")

	// ErrConfigNotFound is returned when a vault has no backup rows from
	// which its recovery configuration could be resolved.
	ErrConfigNotFound = errors.New("shamir config not found")

	// ErrRecoveryAlreadyPending is returned when a recovery request cannot
	// be created because an unexpired PENDING request already exists for
	// the vault.
	ErrRecoveryAlreadyPending = errors.New("shamir recovery already pending")

	// ErrNoPendingRequest is returned when an operation requires a matching
	// PENDING recovery request and none exists.
	ErrNoPendingRequest = errors.New("no pending recovery request")

	// ErrShareCountMismatch is returned when a submitted backup entry does
	// not carry exactly the number of closed shares configured for the
	// holder. The surrounding transaction is rolled back.
	ErrShareCountMismatch = errors.New("incorrect closed shares length for holder")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)
