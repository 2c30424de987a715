package chain

import (
	"testing"

	"github.com/shopspring/decimal"

	"smartxchain/addr"
	"smartxchain/crypto"
	"smartxchain/gas"
)

func TestTransactionHashIsDeterministic(t *testing.T) {
	tx := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(100))
	tx.Info = "memo"
	h1 := tx.Hash()
	h2 := tx.Hash()
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %s then %s", h1, h2)
	}
}

func TestTransactionFinalizeSignsAndSetsGas(t *testing.T) {
	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg := gas.Default()
	tx := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(50))
	tx.Info = "memo"

	if err := tx.Finalize(cfg, decimal.NewFromFloat(0.5), priv); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if tx.Signature == "" {
		t.Fatalf("expected non-empty signature")
	}
	if tx.Gas.IsZero() {
		t.Fatalf("expected non-zero gas for non-system sender")
	}
	if err := tx.VerifySignature(&priv.PublicKey); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestTransactionSystemSenderHasZeroGas(t *testing.T) {
	priv, _ := crypto.GenerateSigningKey()
	cfg := gas.Default()
	tx := NewTransaction(MinerReward, addr.System, "miner", decimal.NewFromInt(1))
	if err := tx.Finalize(cfg, decimal.NewFromFloat(0.5), priv); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !tx.Gas.IsZero() {
		t.Fatalf("expected zero gas for system sender, got %s", tx.Gas)
	}
}

func TestTransactionVerifyRejectsTamperedAmount(t *testing.T) {
	priv, _ := crypto.GenerateSigningKey()
	cfg := gas.Default()
	tx := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(50))
	if err := tx.Finalize(cfg, decimal.NewFromFloat(0.5), priv); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	tx.Amount = decimal.NewFromInt(5000)
	if err := tx.VerifySignature(&priv.PublicKey); err == nil {
		t.Fatalf("expected verification failure after amount tampering")
	}
}

func TestContractDeployNameParsing(t *testing.T) {
	tx := NewTransaction(ContractDeploy, "alice", addr.System, decimal.Zero)
	tx.Info = "$$mytoken"
	if !tx.IsContractDeploy() {
		t.Fatalf("expected IsContractDeploy true")
	}
	if got := tx.ContractName(); got != "mytoken" {
		t.Fatalf("expected contract name 'mytoken', got %q", got)
	}
}
