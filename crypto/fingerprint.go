package crypto

// BuildFingerprint identifies the build that produced a signature. Every
// ECDSA signature this package emits is suffixed with the fingerprint of
// the build that signed it (spec §3/§4.3); VerifySignature rejects a
// signature whose embedded fingerprint does not match the fingerprint of
// the build doing the verifying.
//
// It defaults to a fixed development value and is expected to be
// overridden at process start (e.g. from a version string baked in at
// link time) via SetBuildFingerprint.
var BuildFingerprint = "smartxchain-dev"

// SetBuildFingerprint overrides the process-wide build fingerprint. It is
// not safe to call concurrently with Sign/VerifySignature and is intended
// to be called once at startup (or from tests, to pin a known value).
func SetBuildFingerprint(fp string) {
	BuildFingerprint = fp
}
