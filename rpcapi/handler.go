// Package rpcapi implements component K: the transport-agnostic RPC
// surface spec §6 names (GetPublicKey, Register, Nodes, ChainInfo, Vote,
// NewBlocks, VerifyCode, ValidateChain, RebootChain, GetBlock), plus a
// thin net/http + gorilla/mux binding over it. Generalized from the
// teacher's walletserver/controllers pattern (a struct wrapping a
// service, with plain decode/call/encode handler methods) and its
// routes.go + middleware.Logger wiring, replacing the wallet service with
// *node.Orchestrator as the thing being wrapped.
package rpcapi

import (
	"crypto/hmac"
	"fmt"

	"github.com/sirupsen/logrus"

	"smartxchain/chain"
	"smartxchain/consensus"
	"smartxchain/crypto"
	"smartxchain/node"
	"smartxchain/wire"
)

// ReservedChainID is the well-known chain id RebootChain treats as a
// no-op (spec §6: "No-op for the reserved well-known chain id"), the
// production chain a permissioned deployment is never allowed to reset
// via a remote RPC call.
const ReservedChainID = "mainnet"

// rejectAllCodePolicy is the fail-closed default used when no
// consensus.CodePolicy is configured: the contract source analyzer itself
// is out of scope (Non-goals), so with nothing plugged in every deploy is
// refused rather than silently accepted.
type rejectAllCodePolicy struct{}

func (rejectAllCodePolicy) Validate([]byte) bool { return false }

// Handler wraps a *node.Orchestrator with the RPC verbs of spec §6. It
// holds no transport-specific state; Router builds the net/http binding
// over it.
type Handler struct {
	o      *node.Orchestrator
	log    *logrus.Logger
	policy consensus.CodePolicy
}

// New builds a Handler. policy may be nil, in which case VerifyCode
// always fails closed (see rejectAllCodePolicy).
func New(o *node.Orchestrator, policy consensus.CodePolicy, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if policy == nil {
		policy = rejectAllCodePolicy{}
	}
	return &Handler{o: o, log: log, policy: policy}
}

// GetPublicKey answers the unauthenticated handshake opener: this node's
// ECDH public key, build fingerprint and chain id.
func (h *Handler) GetPublicKey() wire.PublicKeyResponse {
	return wire.PublicKeyResponse{
		PublicKey:      h.o.Channel.PublicKeyB64(),
		DllFingerprint: crypto.BuildFingerprint,
		ChainID:        h.o.ChainID(),
	}
}

// Register validates req's HMAC against this node's chain id and, if it
// checks out, adds the peer to the registry.
func (h *Handler) Register(req wire.RegisterRequest) bool {
	expected := wire.ComputeRegisterHMAC(h.o.ChainID(), req.Address)
	if !hmac.Equal([]byte(expected), []byte(req.HMACHex)) {
		h.log.WithField("peer", req.Address).Warn("rpcapi: register rejected, bad hmac")
		return false
	}
	ok, err := h.o.Registry.Add(req.Address)
	if err != nil {
		h.log.WithFields(logrus.Fields{"peer": req.Address, "error": err}).Warn("rpcapi: register rejected, invalid address")
		return false
	}
	return ok
}

// Nodes sweeps expired peers, then returns every currently-live peer
// address. payload must contain a "." (spec §6's loose liveness-ping
// shape) or the call is treated as malformed.
func (h *Handler) Nodes(payload string) ([]string, error) {
	if !containsDot(payload) {
		return nil, fmt.Errorf("rpcapi: malformed nodes payload")
	}
	h.o.Registry.SweepExpired()
	return h.o.Registry.Peers(), nil
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

// ChainInfo answers the liveness/chain-metadata exchange: this node's
// current chain, serialized into Message the same way NewBlocks expects
// to receive one.
func (h *Handler) ChainInfo(req wire.ChainInfo) (wire.ChainInfo, error) {
	if req.NodeAddress != "" {
		h.o.Registry.Touch(req.NodeAddress)
	}
	return h.selfChainInfo()
}

func (h *Handler) selfChainInfo() (wire.ChainInfo, error) {
	blocks := h.o.Chain.Snapshot()
	message, err := chain.EncodeBlocksTransport(blocks)
	if err != nil {
		return wire.ChainInfo{}, fmt.Errorf("rpcapi: encode chain for transport: %w", err)
	}
	tail := blocks[len(blocks)-1]
	return wire.ChainInfo{
		PublicKey:      h.o.Channel.PublicKeyB64(),
		DllFingerprint: crypto.BuildFingerprint,
		ChainID:        h.o.ChainID(),
		BlockCount:     len(blocks),
		Message:        message,
		FirstHash:      blocks[0].Hash,
		LastHash:       tail.Hash,
		LastDate:       tail.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		NodeAddress:    h.o.SelfAddress(),
	}, nil
}

// Vote decodes a proposed block and votes yes iff its stored hash matches
// its recomputed hash (spec §4.5 leaves previous-hash linkage and
// difficulty checks to AddBlock at install time, not at vote time, so a
// vote only ever certifies internal hash consistency).
func (h *Handler) Vote(req wire.VoteRequest) wire.VoteResponse {
	block, err := chain.DecodeBlockTransport(req.BlockB64)
	if err != nil {
		h.log.WithError(err).Warn("rpcapi: vote on malformed block")
		return wire.VoteResponse{}
	}
	if !block.VerifyHash() {
		return wire.VoteResponse{}
	}
	return wire.VoteResponse{Accepted: true, MinerAddress: h.o.MinerAddress()}
}

// NewBlocks installs a peer-broadcast batch of blocks (a leading
// Nonce==-1 block resets the local chain first, per spec §6).
func (h *Handler) NewBlocks(req wire.ChainInfo) wire.ChainInfo {
	blocks, err := chain.DecodeBlocksTransport(req.Message)
	if err != nil {
		h.log.WithError(err).Warn("rpcapi: newblocks malformed payload")
		return wire.ChainInfo{Message: wire.ErrorMessage(err.Error())}
	}
	if err := h.o.InstallForeignBlocks(blocks); err != nil {
		h.log.WithError(err).Warn("rpcapi: newblocks install failed")
		return wire.ChainInfo{Message: wire.ErrorMessage(err.Error())}
	}
	return wire.ChainInfo{Message: wire.OKMessage()}
}

// VerifyCode decompresses the proposed contract code and delegates the
// accept/reject decision to the configured consensus.CodePolicy.
func (h *Handler) VerifyCode(req wire.VerifyCodeRequest) wire.VerifyCodeResponse {
	code, err := chain.DecodeCompressedBase64(req.CompressedCodeB64)
	if err != nil {
		return wire.VerifyCodeResponse{OK: false, Reason: "malformed code"}
	}
	if !h.policy.Validate(code) {
		return wire.VerifyCodeResponse{OK: false, Reason: "rejected by code policy"}
	}
	return wire.VerifyCodeResponse{OK: true}
}

// ValidateChain reports "ok" or "error" per spec §6.
func (h *Handler) ValidateChain() string {
	if h.o.Chain.IsValid() {
		return "ok"
	}
	return "error"
}

// RebootChain resets the local chain to genesis, unless its id is the
// reserved well-known chain id, in which case it is a no-op.
func (h *Handler) RebootChain() string {
	if h.o.ChainID() == ReservedChainID {
		return "ok"
	}
	h.o.Chain.Reset(h.o.ChainID())
	return "ok"
}

// GetBlock returns the block at index n.
func (h *Handler) GetBlock(n int) (*chain.Block, error) {
	b, ok := h.o.Chain.BlockAt(n)
	if !ok {
		return nil, fmt.Errorf("rpcapi: block index %d out of range", n)
	}
	return b, nil
}
