package crypto

import (
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	canonical := "NativeTransfer|id-1|alice|bob||info|100|1"

	sig, err := Sign(priv, canonical)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := VerifySignature(&priv.PublicKey, canonical, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv, _ := GenerateSigningKey()
	other, _ := GenerateSigningKey()
	canonical := "tx-data"
	sig, _ := Sign(priv, canonical)

	if err := VerifySignature(&other.PublicKey, canonical, sig); err != ErrBadSignature {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsFingerprintMismatch(t *testing.T) {
	priv, _ := GenerateSigningKey()
	canonical := "tx-data"

	old := BuildFingerprint
	SetBuildFingerprint("build-a")
	sig, _ := Sign(priv, canonical)
	SetBuildFingerprint("build-b")
	defer SetBuildFingerprint(old)

	err := VerifySignature(&priv.PublicKey, canonical, sig)
	if err != ErrFingerprintMismatch {
		t.Fatalf("expected ErrFingerprintMismatch, got %v", err)
	}
}

func TestVerifyRejectsUnsigned(t *testing.T) {
	priv, _ := GenerateSigningKey()
	if err := VerifySignature(&priv.PublicKey, "data", ""); err != ErrUnsigned {
		t.Fatalf("expected ErrUnsigned, got %v", err)
	}
}

func TestECDHSharedSecretAgrees(t *testing.T) {
	a, err := GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	b, err := GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}

	keyA, err := DeriveSharedKey(a, b.PublicKey())
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	keyB, err := DeriveSharedKey(b, a.PublicKey())
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if string(keyA) != string(keyB) {
		t.Fatalf("shared keys disagree")
	}
	if len(keyA) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(keyA))
	}
}

func TestECDHPublicKeyEncodeRoundTrip(t *testing.T) {
	priv, _ := GenerateECDHKeyPair()
	enc := EncodeECDHPublicKey(priv.PublicKey())
	dec, err := DecodeECDHPublicKey(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Bytes() == nil || string(dec.Bytes()) != string(priv.PublicKey().Bytes()) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plaintext := []byte(`{"hello":"world"}`)

	env, err := Seal(key, "sender-pub", plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	out, err := Open(key, env)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(out) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", out, plaintext)
	}
}

// TestOpenDetectsTamper is scenario S8: flipping a byte of the ciphertext
// must raise ErrTampered and never return plaintext.
func TestOpenDetectsTamper(t *testing.T) {
	key := make([]byte, 32)
	env, err := Seal(key, "sender-pub", []byte("secret payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	tampered := *env
	raw := []rune(tampered.EncryptedMessage)
	// flip a base64 character so the decoded ciphertext differs by at
	// least one byte.
	for i, r := range raw {
		if r != '=' {
			if r == 'A' {
				raw[i] = 'B'
			} else {
				raw[i] = 'A'
			}
			break
		}
	}
	tampered.EncryptedMessage = string(raw)

	out, err := Open(key, &tampered)
	if err != ErrTampered {
		t.Fatalf("expected ErrTampered, got err=%v out=%v", err, out)
	}
	if out != nil {
		t.Fatalf("expected no plaintext on tamper, got %q", out)
	}
}

func TestRSASignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateRSAExportKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	msg := []byte("500-privkey-id-123")

	sig, err := SignRSA(priv, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := VerifyRSA(&priv.PublicKey, msg, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyRSA(&priv.PublicKey, []byte("different"), sig); err == nil {
		t.Fatalf("expected verification failure for altered message")
	}
}

func TestRSAKeyEncodeRoundTrip(t *testing.T) {
	priv, _ := GenerateRSAExportKey()
	encPriv := EncodeRSAPrivateKey(priv)
	if encPriv == "" {
		t.Fatalf("expected non-empty encoded private key")
	}
	decPriv, err := DecodeRSAPrivateKey(encPriv)
	if err != nil {
		t.Fatalf("decode private: %v", err)
	}
	if decPriv.D.Cmp(priv.D) != 0 {
		t.Fatalf("private key round trip mismatch")
	}

	encPub := EncodeRSAPublicKey(&priv.PublicKey)
	decPub, err := DecodeRSAPublicKey(encPub)
	if err != nil {
		t.Fatalf("decode public: %v", err)
	}
	if decPub.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatalf("public key round trip mismatch")
	}
}

func TestHashHelpers(t *testing.T) {
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := SHA256Hex([]byte("abc")); got != want {
		t.Fatalf("SHA256Hex(abc) = %s, want %s", got, want)
	}
}
