// Package common defines shared constants and sentinel errors used across
// SuiLocker layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation errors: bad input caught before any network call.
	ErrValidation = errors.New("validation error")

	// Authentication errors: missing wallet or locker key.
	ErrNotAuthenticated = errors.New("not authenticated")

	// Ledger errors: a simulated call or submission was rejected, or
	// finality was never observed.
	ErrLedgerRejected = errors.New("ledger rejected transaction")
	ErrNotFound       = errors.New("not found")

	// ErrVaultNotEmpty is the domain error for deleting a vault that
	// still holds entries. The ledger enforces this; the client only
	// translates the rejection.
	ErrVaultNotEmpty = errors.New("vault is not empty")

	// Blob network errors. A missing blob is distinct from a
	// cryptographic failure on its content.
	ErrBlobUnavailable = errors.New("blob unavailable")

	// Cryptographic errors.
	ErrMalformedEnvelope = errors.New("malformed ciphertext envelope")
	ErrDecrypt           = errors.New("decryption failed")

	// ErrMalformedRecord is a ledger return value that cannot be
	// decoded: truncated bytes, a bad option tag, a schema version
	// mismatch, or trailing data. Distinct from the cryptographic
	// errors above: the record never reached decryption.
	ErrMalformedRecord = errors.New("malformed ledger record")
)
