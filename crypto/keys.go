package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
)

// curveFieldBytes is the byte width of a NIST P-256 scalar; r and s are
// zero-padded to this width before concatenation so the encoded signature
// has a fixed, parseable length.
const curveFieldBytes = 32

// GenerateSigningKey creates a new ECDSA P-256 keypair used to sign
// transactions (spec §4.3).
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// EncodeSigningPublicKey renders a signing public key as base64 of its PKIX
// DER encoding, suitable for embedding in configuration or exchanging out
// of band.
func EncodeSigningPublicKey(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal signing public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// DecodeSigningPublicKey parses a base64 PKIX-encoded ECDSA public key.
func DecodeSigningPublicKey(b64 string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode signing public key: %w", err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse signing public key: %w", err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signing public key is not ECDSA")
	}
	return ecPub, nil
}

// Sign computes the ECDSA signature over SHA-256(canonical) and returns it
// as "base64(r||s)|fingerprint" (spec §4.3).
func Sign(priv *ecdsa.PrivateKey, canonical string) (string, error) {
	if priv == nil {
		return "", ErrUnsigned
	}
	digest := sha256.Sum256([]byte(canonical))
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	raw := make([]byte, 2*curveFieldBytes)
	r.FillBytes(raw[:curveFieldBytes])
	s.FillBytes(raw[curveFieldBytes:])
	return base64.StdEncoding.EncodeToString(raw) + "|" + BuildFingerprint, nil
}

// VerifySignature recomputes the digest, verifies the ECDSA signature, and
// checks that the embedded build fingerprint matches this build's
// fingerprint (spec §4.3). The three failure kinds are distinguished via
// errors.Is against ErrUnsigned, ErrBadSignature and
// ErrFingerprintMismatch.
func VerifySignature(pub *ecdsa.PublicKey, canonical, signature string) error {
	if signature == "" {
		return ErrUnsigned
	}
	parts := strings.SplitN(signature, "|", 2)
	if len(parts) != 2 || parts[0] == "" {
		return ErrUnsigned
	}
	sigB64, fingerprint := parts[0], parts[1]

	raw, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil || len(raw) != 2*curveFieldBytes {
		return ErrBadSignature
	}
	r := new(big.Int).SetBytes(raw[:curveFieldBytes])
	s := new(big.Int).SetBytes(raw[curveFieldBytes:])

	digest := sha256.Sum256([]byte(canonical))
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return ErrBadSignature
	}
	if fingerprint != BuildFingerprint {
		return ErrFingerprintMismatch
	}
	return nil
}

// EncodeSigningPrivateKeyPEM renders a signing private key as a PEM block,
// used only by CLI tooling that persists keys to disk for a local node.
func EncodeSigningPrivateKeyPEM(priv *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshal signing private key: %w", err)
	}
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// DecodeSigningPrivateKeyPEM parses a PEM-encoded EC private key.
func DecodeSigningPrivateKeyPEM(data string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("decode signing private key: no PEM block found")
	}
	return x509.ParseECPrivateKey(block.Bytes)
}
