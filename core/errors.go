package core

import "errors"

var (
	// ErrChallengeNotFound covers unknown, already consumed and expired
	// challenges. The three cases are indistinguishable to callers.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrProofInvalid covers malformed payloads, timestamp drift, domain
	// mismatches and bad signatures, collapsed into one category.
	ErrProofInvalid = errors.New("proof invalid")

	// ErrUnauthenticated is returned for missing, unknown or expired
	// session tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound is returned when a catalog or order record is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for rejected request input.
	ErrValidation = errors.New("invalid input")

	// ErrForbidden is returned when a seller touches a record it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrStoreOperationFailed is returned when a store round trip fails.
	ErrStoreOperationFailed = errors.New("store operation failed")
)
