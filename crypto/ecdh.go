package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// handshakeInfo labels the HKDF expansion step so the derived key is bound
// to this protocol and cannot be confused with a key derived for another
// purpose from the same ECDH secret.
var handshakeInfo = []byte("smartxchain/secure-channel/v1")

// GenerateECDHKeyPair creates the long-lived ECDH keypair each node holds
// for the secure channel handshake (spec §4.7, curve NIST P-256).
func GenerateECDHKeyPair() (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(rand.Reader)
}

// EncodeECDHPublicKey renders an ECDH public key as base64 of its
// uncompressed point encoding, the "base64 public key" exchanged by the
// unauthenticated GetPublicKey RPC.
func EncodeECDHPublicKey(pub *ecdh.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub.Bytes())
}

// DecodeECDHPublicKey parses a base64-encoded ECDH public key as returned
// by GetPublicKey.
func DecodeECDHPublicKey(b64 string) (*ecdh.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode ecdh public key: %w", err)
	}
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ecdh public key: %w", err)
	}
	return pub, nil
}

// DeriveSharedKey computes the ECDH shared secret between priv and peerPub
// and stretches it into a 256-bit AES key via HKDF-SHA256 (spec §4.7:
// "KDF = SHA-256"). The derivation is deterministic given the same pair of
// keys, so both endpoints of a handshake arrive at the same key K
// independently.
func DeriveSharedKey(priv *ecdh.PrivateKey, peerPub *ecdh.PublicKey) ([]byte, error) {
	secret, err := priv.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh agreement: %w", err)
	}
	reader := hkdf.New(sha256.New, secret, nil, handshakeInfo)
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}
