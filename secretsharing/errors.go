package secretsharing

import "errors"

// Error kinds returned by the engine. They are deterministic functions of the
// input and are never worth retrying.
var (
	// ErrInvalidThreshold is returned by Split when t or n is out of range.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrSecretTooLarge is returned when a secret does not fit the field.
	ErrSecretTooLarge = errors.New("secret too large for field")
	// ErrMalformedSecret is returned when a secret is not a hex string.
	ErrMalformedSecret = errors.New("malformed secret")
	// ErrInsufficientShares is returned by Recover with fewer than two shares.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrInconsistentShares is returned on duplicate or malformed shares.
	ErrInconsistentShares = errors.New("inconsistent shares")
	// ErrInsecureRandomSource is returned at construction time when a
	// production scheme is given a non-cryptographic generator.
	ErrInsecureRandomSource = errors.New("insecure random source")
)
