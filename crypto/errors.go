package crypto

import "errors"

// Sentinel errors for the signature/encryption failure kinds named in
// spec §4.3 and §4.7. Callers compare with errors.Is; none of these are
// ever panicked.
var (
	// ErrUnsigned is returned when VerifySignature is called against a
	// signature field that is empty or cannot be parsed into a
	// signature+fingerprint pair.
	ErrUnsigned = errors.New("crypto: transaction is unsigned")

	// ErrBadSignature is returned when the ECDSA signature does not
	// verify against the supplied public key and canonical string.
	ErrBadSignature = errors.New("crypto: signature verification failed")

	// ErrFingerprintMismatch is returned when a signature verifies but
	// was produced by a different build (embedded fingerprint differs).
	ErrFingerprintMismatch = errors.New("crypto: build fingerprint mismatch")

	// ErrTampered is returned by envelope decryption when the HMAC over
	// the ciphertext does not match, per spec §4.7.
	ErrTampered = errors.New("crypto: envelope authentication failed")
)
