package rpcapi

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smartxchain/addr"
	"smartxchain/chain"
	"smartxchain/crypto"
	"smartxchain/node"
)

// acceptAllCodePolicy is declared in handler_test.go and reused here.

func newTestOrchestratorWithAddress(t *testing.T, selfAddress string) *node.Orchestrator {
	t.Helper()
	systemKey, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate system key: %v", err)
	}
	o, err := node.New(node.Config{
		ChainID:           "test-chain",
		SelfAddress:       selfAddress,
		MinerAddress:      "miner-1",
		SystemKey:         systemKey,
		Difficulty:        0,
		ConsensusDeadline: 2 * time.Second,
		PeerTimeout:       time.Minute,
		MaxParallelConns:  4,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

func buildContractDeploy(t *testing.T, name string, code []byte) *chain.Transaction {
	t.Helper()
	deploy := chain.NewTransaction(chain.ContractDeploy, addr.System, addr.System, decimal.Zero)
	deploy.Info = "$$" + name
	deploy.Data = base64.StdEncoding.EncodeToString(code)
	return deploy
}

// TestAddTransactionRejectsContractDeployWithoutPeerQuorum exercises the
// gate end to end over real HTTP: a deploy is offered to a peer whose
// rpcapi.Handler has no configured CodePolicy, so it fails closed (the
// default from spec's Non-goals on the contract source analyzer), and
// the deploy must never reach the caller's pool.
func TestAddTransactionRejectsContractDeployWithoutPeerQuorum(t *testing.T) {
	callee := New(newTestOrchestratorWithAddress(t, "http://callee.test"), nil, testLogger())
	srv := httptest.NewServer(callee.Router())
	defer srv.Close()

	caller := newTestOrchestratorWithAddress(t, "http://caller.test")
	if _, err := caller.Registry.Add(srv.URL); err != nil {
		t.Fatalf("register peer: %v", err)
	}

	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	deploy := buildContractDeploy(t, "Counter", []byte("contract bytecode"))
	if err := caller.AddTransaction(context.Background(), deploy, priv); err == nil {
		t.Fatal("expected deploy to be rejected without a peer that accepts the code")
	}
	if caller.Pool.Len() != 0 {
		t.Fatalf("expected pool to stay empty on rejection, got %d", caller.Pool.Len())
	}
}

// TestAddTransactionAdmitsContractDeployOnPeerQuorum is the acceptance
// mirror: a peer running an accept-all CodePolicy votes yes, quorum (the
// lone peer) is reached, and the deploy is admitted to the pool.
func TestAddTransactionAdmitsContractDeployOnPeerQuorum(t *testing.T) {
	callee := New(newTestOrchestratorWithAddress(t, "http://callee.test"), acceptAllCodePolicy{}, testLogger())
	srv := httptest.NewServer(callee.Router())
	defer srv.Close()

	caller := newTestOrchestratorWithAddress(t, "http://caller.test")
	if _, err := caller.Registry.Add(srv.URL); err != nil {
		t.Fatalf("register peer: %v", err)
	}

	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	deploy := buildContractDeploy(t, "Counter", []byte("contract bytecode"))
	if err := caller.AddTransaction(context.Background(), deploy, priv); err != nil {
		t.Fatalf("AddTransaction(deploy): %v", err)
	}
	if caller.Pool.Len() != 1 {
		t.Fatalf("expected pool len 1 after admitted deploy, got %d", caller.Pool.Len())
	}
}
