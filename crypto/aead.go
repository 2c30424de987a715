package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Envelope is the per-message wire format every inter-node RPC payload is
// wrapped in (spec §4.7): a shared-key identifier (the sender's own ECDH
// public key, so the receiver can re-derive the same K), an AES-256-CBC
// ciphertext, its IV, and an HMAC-SHA256 tag over the ciphertext.
type Envelope struct {
	SharedKey        string `json:"shared_key"`
	EncryptedMessage string `json:"encrypted_message"`
	IV               string `json:"iv"`
	HMAC             string `json:"hmac"`
}

const ivSize = aes.BlockSize // 16 bytes

// Seal encrypts plaintext under key K with a fresh random IV and appends an
// HMAC-SHA256 tag over the ciphertext. senderPublicKeyB64 is stamped into
// the envelope unchanged as SharedKey, per spec §4.7.
func Seal(key []byte, senderPublicKeyB64 string, plaintext []byte) (*Envelope, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal: new cipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("seal: read iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	tag := computeHMAC(key, ciphertext)

	return &Envelope{
		SharedKey:        senderPublicKeyB64,
		EncryptedMessage: base64.StdEncoding.EncodeToString(ciphertext),
		IV:               base64.StdEncoding.EncodeToString(iv),
		HMAC:             base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Open verifies the HMAC tag in constant time and, only if it matches,
// decrypts the envelope under key K. A tag mismatch returns ErrTampered and
// never touches the ciphertext (spec §4.7: "must constant-time-compare the
// HMAC before AES-decrypting").
func Open(key []byte, env *Envelope) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(env.EncryptedMessage)
	if err != nil {
		return nil, fmt.Errorf("open: decode ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("open: decode iv: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.HMAC)
	if err != nil {
		return nil, fmt.Errorf("open: decode hmac: %w", err)
	}

	expected := computeHMAC(key, ciphertext)
	if !hmac.Equal(expected, tag) {
		return nil, ErrTampered
	}

	if len(iv) != ivSize || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrTampered
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("open: new cipher: %w", err)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded)
}

func computeHMAC(key, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("pkcs7 unpad: empty input")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > n || padLen > aes.BlockSize {
		return nil, fmt.Errorf("pkcs7 unpad: invalid padding")
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("pkcs7 unpad: invalid padding")
		}
	}
	return data[:n-padLen], nil
}
