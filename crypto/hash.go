package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex encoding of SHA-256(data). Used for
// transaction hashes (spec §4.3: "lowercase hex SHA-256 of its canonical
// string").
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256Base64 returns the base64 (standard) encoding of SHA-256(data).
// Used for block hashes (spec §4.1: "Hash the UTF-8 bytes with SHA-256 and
// encode base64").
func SHA256Base64(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
