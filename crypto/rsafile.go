package crypto

import (
	cryptostd "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// RSAExportKeySize is the key size used for file-export blobs (spec §4.4,
// §6: "PrivateKey: base64 RSA-2048 priv").
const RSAExportKeySize = 2048

// GenerateRSAExportKey creates a new RSA keypair for a single TransferToFile
// blob. Each exported blob carries its own throwaway keypair; it is never
// reused across exports.
func GenerateRSAExportKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, RSAExportKeySize)
}

// EncodeRSAPrivateKey renders an RSA private key as base64 of its PKCS#1
// DER encoding, the literal format spec §6 requires for the export blob's
// PrivateKey field.
func EncodeRSAPrivateKey(priv *rsa.PrivateKey) string {
	return base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PrivateKey(priv))
}

// DecodeRSAPrivateKey parses a base64 PKCS#1 RSA private key.
func DecodeRSAPrivateKey(b64 string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode rsa private key: %w", err)
	}
	return x509.ParsePKCS1PrivateKey(der)
}

// EncodeRSAPublicKey renders an RSA public key as base64 of its PKCS#1 DER
// encoding. Export blobs stamp this into the transaction's info field
// (spec §4.4).
func EncodeRSAPublicKey(pub *rsa.PublicKey) string {
	return base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PublicKey(pub))
}

// DecodeRSAPublicKey parses a base64 PKCS#1 RSA public key.
func DecodeRSAPublicKey(b64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode rsa public key: %w", err)
	}
	return x509.ParsePKCS1PublicKey(der)
}

// SignRSA signs SHA-256(message) with PKCS#1 v1.5 and returns it base64
// encoded. Used for the export blob's "rsa_sig(amount-privkey-id)" field.
func SignRSA(priv *rsa.PrivateKey, message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, cryptostd.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("rsa sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyRSA verifies a base64 PKCS#1 v1.5 signature produced by SignRSA.
func VerifyRSA(pub *rsa.PublicKey, message []byte, sigB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("decode rsa signature: %w", err)
	}
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(pub, cryptostd.SHA256, digest[:], sig); err != nil {
		return ErrBadSignature
	}
	return nil
}
