// Package wire formalizes the ad-hoc string protocols spec §6 describes
// for the RPC surface ("Vote:<base64 block>", "Register:<addr>|<hmac>",
// "VerifyCode:<compressed-b64 code>", ...) into a tagged union of typed
// request/response messages with explicit Encode/Decode codecs, per the
// redesign note in spec §9: "formalize ad-hoc string protocols ... the
// wire format is still the short strings above." Both node (the client
// side, calling a peer) and rpcapi (the server side, serving a peer)
// import this package; neither imports the other, so it is the shared
// seam that keeps the two in lock-step without a dependency cycle.
package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"smartxchain/crypto"
)

// SecureRequest is the envelope every secured RPC call in §6 travels in
// (every verb except GetPublicKey). PeerAddress identifies the caller to
// the secure channel's per-peer shared-key cache; SenderPublicKey is the
// caller's ECDH public key, carried in-band so the receiver can open the
// envelope without first dialing the caller back for its GetPublicKey
// (ECDH public keys are not secret, so shipping it alongside the envelope
// costs nothing cryptographically and avoids a call-back round trip).
// Envelope is the authenticated-encryption wrapper of spec §4.7.
type SecureRequest struct {
	PeerAddress     string           `json:"PeerAddress"`
	SenderPublicKey string           `json:"SenderPublicKey"`
	Envelope        *crypto.Envelope `json:"Envelope"`
}

// SecureResponse is the matching reply envelope.
type SecureResponse struct {
	Envelope *crypto.Envelope `json:"Envelope"`
}

// PublicKeyResponse is GetPublicKey's unauthenticated reply (spec §6):
// the node's ECDH public key, its build fingerprint, and its chain ID,
// the three pieces of information that begin a handshake.
type PublicKeyResponse struct {
	PublicKey      string `json:"PublicKey"`
	DllFingerprint string `json:"DllFingerprint"`
	ChainID        string `json:"ChainID"`
}

// ChainInfo is spec §6's liveness/chain-metadata exchange payload, shared
// verbatim by the ChainInfo and NewBlocks verbs (NewBlocks reuses it with
// Message carrying a base64 block list instead of chain metadata).
type ChainInfo struct {
	PublicKey      string `json:"PublicKey"`
	DllFingerprint string `json:"DllFingerprint"`
	ChainID        string `json:"ChainID"`
	BlockCount     int    `json:"BlockCount"`
	Message        string `json:"Message"`
	FirstHash      string `json:"FirstHash"`
	LastHash       string `json:"LastHash"`
	LastDate       string `json:"LastDate"`
	NodeAddress    string `json:"NodeAddress"`
}

const (
	votePrefix       = "Vote:"
	registerPrefix   = "Register:"
	verifyCodePrefix = "VerifyCode:"
	okResponse       = "ok"
	errorPrefix      = "Error:"
	failedPrefix     = "failed:"
)

// VoteRequest is the decoded form of "Vote:<base64 block>" (block
// consensus only; contract-code consensus goes through the separate
// VerifyCode verb/request below — see consensus.Engine.ReachCodeConsensus
// and spec §4.5).
type VoteRequest struct {
	BlockB64 string
}

// Encode renders a VoteRequest back to its wire string.
func (r VoteRequest) Encode() string {
	return votePrefix + r.BlockB64
}

// DecodeVoteRequest parses "Vote:<base64 block>", reporting false if s
// does not carry the Vote prefix.
func DecodeVoteRequest(s string) (VoteRequest, bool) {
	if !strings.HasPrefix(s, votePrefix) {
		return VoteRequest{}, false
	}
	return VoteRequest{BlockB64: strings.TrimPrefix(s, votePrefix)}, true
}

// VoteResponse is the decoded form of a Vote reply: "ok#<minerAddr>" on
// acceptance, "" (abstain/reject) otherwise.
type VoteResponse struct {
	Accepted     bool
	MinerAddress string
}

// Encode renders a VoteResponse back to its wire string.
func (r VoteResponse) Encode() string {
	if !r.Accepted {
		return ""
	}
	return okResponse + "#" + r.MinerAddress
}

// DecodeVoteResponse parses a Vote reply. A peer returning a miner
// address that doesn't match its registered address is still counted as
// accepted (spec §4.5: "is still counted").
func DecodeVoteResponse(s string) VoteResponse {
	const prefix = okResponse + "#"
	if !strings.HasPrefix(s, prefix) {
		return VoteResponse{}
	}
	return VoteResponse{Accepted: true, MinerAddress: strings.TrimPrefix(s, prefix)}
}

// RegisterRequest is the decoded form of "Register:<addr>|<hmac>".
type RegisterRequest struct {
	Address string
	HMACHex string
}

// Encode renders a RegisterRequest back to its wire string.
func (r RegisterRequest) Encode() string {
	return registerPrefix + r.Address + "|" + r.HMACHex
}

// DecodeRegisterRequest parses "Register:<addr>|<hmac>".
func DecodeRegisterRequest(s string) (RegisterRequest, bool) {
	rest := strings.TrimPrefix(s, registerPrefix)
	if rest == s {
		return RegisterRequest{}, false
	}
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RegisterRequest{}, false
	}
	return RegisterRequest{Address: parts[0], HMACHex: parts[1]}, true
}

// ComputeRegisterHMAC computes spec §6's Register authentication tag:
// HMAC-SHA256 keyed by the network's chain ID over the registering
// address, hex encoded.
func ComputeRegisterHMAC(chainID, address string) string {
	mac := hmac.New(sha256.New, []byte(chainID))
	mac.Write([]byte(address))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCodeRequest is the decoded form of
// "VerifyCode:<compressed-b64 code>".
type VerifyCodeRequest struct {
	CompressedCodeB64 string
}

// Encode renders a VerifyCodeRequest back to its wire string.
func (r VerifyCodeRequest) Encode() string {
	return verifyCodePrefix + r.CompressedCodeB64
}

// DecodeVerifyCodeRequest parses "VerifyCode:<compressed-b64 code>".
func DecodeVerifyCodeRequest(s string) (VerifyCodeRequest, bool) {
	if !strings.HasPrefix(s, verifyCodePrefix) {
		return VerifyCodeRequest{}, false
	}
	return VerifyCodeRequest{CompressedCodeB64: strings.TrimPrefix(s, verifyCodePrefix)}, true
}

// VerifyCodeResponse is the decoded form of a VerifyCode reply: "ok" or
// "failed:<reason>".
type VerifyCodeResponse struct {
	OK     bool
	Reason string
}

// Encode renders a VerifyCodeResponse back to its wire string.
func (r VerifyCodeResponse) Encode() string {
	if r.OK {
		return okResponse
	}
	return fmt.Sprintf("%s%s", failedPrefix, r.Reason)
}

// DecodeVerifyCodeResponse parses a VerifyCode reply.
func DecodeVerifyCodeResponse(s string) VerifyCodeResponse {
	if s == okResponse {
		return VerifyCodeResponse{OK: true}
	}
	return VerifyCodeResponse{OK: false, Reason: strings.TrimPrefix(s, failedPrefix)}
}

// EncodeNodesResponse joins a peer address list the way the Nodes RPC
// reply does (spec §6: "comma-separated active peers").
func EncodeNodesResponse(addresses []string) string {
	return strings.Join(addresses, ",")
}

// DecodeNodesResponse reverses EncodeNodesResponse. An empty string
// decodes to a nil slice, not a one-element slice holding "".
func DecodeNodesResponse(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// OKMessage and ErrorMessage build the "ok" / "Error:<reason>" strings
// carried in NewBlocks replies (spec §6).
func OKMessage() string { return okResponse }

func ErrorMessage(reason string) string { return errorPrefix + " " + reason }

// IsErrorMessage reports whether a ChainInfo.Message (or similar reply)
// carries the "Error:" prefix.
func IsErrorMessage(s string) bool { return strings.HasPrefix(s, errorPrefix) }
