package rpcapi

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"smartxchain/chain"
	"smartxchain/crypto"
	"smartxchain/node"
	"smartxchain/wire"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	systemKey, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate system key: %v", err)
	}
	o, err := node.New(node.Config{
		ChainID:           "test-chain",
		SelfAddress:       "http://node-a.test",
		MinerAddress:      "miner-1",
		SystemKey:         systemKey,
		Difficulty:        0,
		ConsensusDeadline: 50 * time.Millisecond,
		PeerTimeout:       time.Minute,
		MaxParallelConns:  4,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return New(o, nil, testLogger())
}

func TestGetPublicKeyReturnsChannelKeyAndChainID(t *testing.T) {
	h := newTestHandler(t)
	resp := h.GetPublicKey()
	if resp.ChainID != "test-chain" {
		t.Fatalf("got chain id %q", resp.ChainID)
	}
	if resp.PublicKey == "" {
		t.Fatal("expected non-empty public key")
	}
	if resp.DllFingerprint != crypto.BuildFingerprint {
		t.Fatalf("got fingerprint %q, want %q", resp.DllFingerprint, crypto.BuildFingerprint)
	}
}

func TestRegisterAcceptsValidHMAC(t *testing.T) {
	h := newTestHandler(t)
	req := wire.RegisterRequest{
		Address: "http://peer-1.test",
		HMACHex: wire.ComputeRegisterHMAC("test-chain", "http://peer-1.test"),
	}
	if !h.Register(req) {
		t.Fatal("expected register to succeed with valid hmac")
	}
	found := false
	for _, p := range h.o.Registry.Peers() {
		if p == "http://peer-1.test" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected peer to be in registry after register")
	}
}

func TestRegisterRejectsBadHMAC(t *testing.T) {
	h := newTestHandler(t)
	req := wire.RegisterRequest{Address: "http://peer-1.test", HMACHex: "not-the-right-hmac"}
	if h.Register(req) {
		t.Fatal("expected register to fail with bad hmac")
	}
}

func TestNodesRequiresDotPayload(t *testing.T) {
	h := newTestHandler(t)
	if _, err := h.Nodes("no-dot-here"); err == nil {
		t.Fatal("expected malformed payload error")
	}
	if _, err := h.Nodes("1.2.3.4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVoteAcceptsValidBlockAndRejectsTamperedHash(t *testing.T) {
	h := newTestHandler(t)

	tail := h.o.Chain.Tail()
	b := chain.NewBlock(tail.Hash, nil)
	if err := b.Mine(0, "miner-1", "http://node-a.test", nil); err != nil {
		t.Fatalf("mine: %v", err)
	}
	encoded, err := chain.EncodeBlockTransport(b)
	if err != nil {
		t.Fatalf("encode block: %v", err)
	}

	resp := h.Vote(wire.VoteRequest{BlockB64: encoded})
	if !resp.Accepted {
		t.Fatal("expected vote to accept a validly hashed block")
	}
	if resp.MinerAddress != "miner-1" {
		t.Fatalf("got miner address %q", resp.MinerAddress)
	}

	b.Hash = "tampered"
	tampered, err := chain.EncodeBlockTransport(b)
	if err != nil {
		t.Fatalf("encode tampered block: %v", err)
	}
	if h.Vote(wire.VoteRequest{BlockB64: tampered}).Accepted {
		t.Fatal("expected vote to reject a tampered block")
	}
}

func TestVerifyCodeFailsClosedWithoutPolicy(t *testing.T) {
	h := newTestHandler(t)
	encoded, err := chain.EncodeCompressedBase64([]byte("contract source"))
	if err != nil {
		t.Fatalf("encode code: %v", err)
	}
	resp := h.VerifyCode(wire.VerifyCodeRequest{CompressedCodeB64: encoded})
	if resp.OK {
		t.Fatal("expected verifycode to fail closed with no policy configured")
	}
}

type acceptAllCodePolicy struct{}

func (acceptAllCodePolicy) Validate([]byte) bool { return true }

func TestVerifyCodeDelegatesToConfiguredPolicy(t *testing.T) {
	h := newTestHandler(t)
	h.policy = acceptAllCodePolicy{}
	encoded, err := chain.EncodeCompressedBase64([]byte("contract source"))
	if err != nil {
		t.Fatalf("encode code: %v", err)
	}
	if !h.VerifyCode(wire.VerifyCodeRequest{CompressedCodeB64: encoded}).OK {
		t.Fatal("expected verifycode to accept when policy allows it")
	}
}

func TestValidateChainReportsOKOnFreshChain(t *testing.T) {
	h := newTestHandler(t)
	if got := h.ValidateChain(); got != "ok" {
		t.Fatalf("got %q, want ok", got)
	}
}

func TestRebootChainIsNoopForReservedChainID(t *testing.T) {
	systemKey, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate system key: %v", err)
	}
	o, err := node.New(node.Config{
		ChainID:           ReservedChainID,
		SelfAddress:       "http://node-a.test",
		MinerAddress:      "miner-1",
		SystemKey:         systemKey,
		Difficulty:        0,
		ConsensusDeadline: 50 * time.Millisecond,
		PeerTimeout:       time.Minute,
		MaxParallelConns:  4,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	defer o.Close()
	h := New(o, nil, testLogger())

	before := o.Chain.Len()
	if got := h.RebootChain(); got != "ok" {
		t.Fatalf("got %q, want ok", got)
	}
	if o.Chain.Len() != before {
		t.Fatal("expected reboot to be a no-op for the reserved chain id")
	}
}

func TestGetBlockOutOfRange(t *testing.T) {
	h := newTestHandler(t)
	if _, err := h.GetBlock(9999); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := h.GetBlock(0); err != nil {
		t.Fatalf("unexpected error fetching genesis block: %v", err)
	}
}
