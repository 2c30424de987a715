package chain

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func mustMinedBlock(t *testing.T, prevHash string, txs []*Transaction) *Block {
	t.Helper()
	b := NewBlock(prevHash, txs)
	if err := b.Mine(0, "miner", "node1", nil); err != nil {
		t.Fatalf("mine block: %v", err)
	}
	return b
}

func TestChainGenesisIsValid(t *testing.T) {
	c := NewChain("test-chain")
	if !c.IsValid() {
		t.Fatalf("expected fresh chain to be valid")
	}
	if c.Len() != 1 {
		t.Fatalf("expected genesis-only chain to have length 1, got %d", c.Len())
	}
}

func TestChainAddBlockExtendsAndValidates(t *testing.T) {
	c := NewChain("test-chain")
	tail := c.Tail()
	next := mustMinedBlock(t, tail.Hash, nil)

	ok, err := c.AddBlock(next, false, 0)
	if err != nil || !ok {
		t.Fatalf("expected AddBlock to succeed, got ok=%v err=%v", ok, err)
	}
	if !c.IsValid() {
		t.Fatalf("expected chain to remain valid after AddBlock")
	}
}

func TestChainAddBlockRejectsBrokenLink(t *testing.T) {
	c := NewChain("test-chain")
	bad := mustMinedBlock(t, "not-the-tail-hash", nil)

	ok, err := c.AddBlock(bad, false, 0)
	if ok || err != ErrPreviousHashMismatch {
		t.Fatalf("expected ErrPreviousHashMismatch, got ok=%v err=%v", ok, err)
	}
}

func TestChainAddBlockIdempotentOnDuplicateHash(t *testing.T) {
	c := NewChain("test-chain")
	next := mustMinedBlock(t, c.Tail().Hash, nil)

	ok1, err1 := c.AddBlock(next, false, 0)
	ok2, err2 := c.AddBlock(next, false, 0)
	if !ok1 || err1 != nil {
		t.Fatalf("expected first AddBlock to succeed, got ok=%v err=%v", ok1, err1)
	}
	if !ok2 || err2 != nil {
		t.Fatalf("expected duplicate AddBlock to be an idempotent success, got ok=%v err=%v", ok2, err2)
	}
	if c.Len() != 2 {
		t.Fatalf("expected duplicate add not to grow the chain, len=%d", c.Len())
	}
}

func TestChainReplaceWithForeignPrefersLonger(t *testing.T) {
	c := NewChain("test-chain")
	next := mustMinedBlock(t, c.Tail().Hash, nil)
	c.AddBlock(next, false, 0)

	foreign := NewChain("test-chain")
	f1 := mustMinedBlock(t, foreign.Tail().Hash, nil)
	foreign.AddBlock(f1, false, 0)
	f2 := mustMinedBlock(t, f1.Hash, nil)
	foreign.AddBlock(f2, false, 0)

	replaced, err := c.ReplaceWithForeign(foreign)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !replaced {
		t.Fatalf("expected longer valid foreign chain to replace local chain")
	}
	if c.Len() != 3 {
		t.Fatalf("expected local chain length 3 after replace, got %d", c.Len())
	}
}

func TestChainReplaceWithForeignRejectsShorter(t *testing.T) {
	c := NewChain("test-chain")
	next := mustMinedBlock(t, c.Tail().Hash, nil)
	c.AddBlock(next, false, 0)

	foreign := NewChain("test-chain") // length 1, shorter than local length 2

	replaced, _ := c.ReplaceWithForeign(foreign)
	if replaced {
		t.Fatalf("expected shorter foreign chain to be rejected")
	}
}

func TestChainReplaceWithForeignRejectsWhenContractsDeployed(t *testing.T) {
	c := NewChain("test-chain")
	deploy := NewTransaction(ContractDeploy, "alice", "SYSTEM_ADDRESS", decimal.Zero)
	deploy.Info = "$$mytoken"
	deploy.Data = base64.StdEncoding.EncodeToString([]byte("code"))
	withContract := mustMinedBlock(t, c.Tail().Hash, []*Transaction{deploy})
	c.AddBlock(withContract, false, 0)

	foreign := NewChain("test-chain")
	f1 := mustMinedBlock(t, foreign.Tail().Hash, nil)
	foreign.AddBlock(f1, false, 0)
	f2 := mustMinedBlock(t, f1.Hash, nil)
	foreign.AddBlock(f2, false, 0)
	f3 := mustMinedBlock(t, f2.Hash, nil)
	foreign.AddBlock(f3, false, 0)

	replaced, _ := c.ReplaceWithForeign(foreign)
	if replaced {
		t.Fatalf("expected chain with deployed contracts to refuse foreign replacement")
	}
}

func TestChainDumpRoundTrip(t *testing.T) {
	c := NewChain("test-chain")
	next := mustMinedBlock(t, c.Tail().Hash, nil)
	c.AddBlock(next, false, 0)

	path := filepath.Join(t.TempDir(), "chain-test-chain")
	if err := SaveChainDump(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadChainDump("test-chain", path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("expected round-tripped chain to have same length, got %d want %d", loaded.Len(), c.Len())
	}
	if !loaded.IsValid() {
		t.Fatalf("expected round-tripped chain to validate")
	}
}

func TestChainValidateWithArchive(t *testing.T) {
	c := NewChain("test-chain")
	dir := filepath.Join(t.TempDir(), "archive")

	archived := mustMinedBlock(t, c.Tail().Hash, nil)
	if err := SaveArchiveBlock(dir, 0, archived); err != nil {
		t.Fatalf("save archive block: %v", err)
	}

	ok, err := c.ValidateWithArchive(dir)
	if err != nil {
		t.Fatalf("validate with archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archive to validate as a continuation of the local chain")
	}
}
