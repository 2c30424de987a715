package chain

import (
	"encoding/base64"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBlockHashLinkage(t *testing.T) {
	genesis := NewBlock("0", nil)
	if err := genesis.Mine(0, "miner", "node1", nil); err != nil {
		t.Fatalf("mine genesis: %v", err)
	}

	tx := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	next := NewBlock(genesis.Hash, []*Transaction{tx})
	if err := next.Mine(0, "miner", "node1", nil); err != nil {
		t.Fatalf("mine next: %v", err)
	}

	if next.PreviousHash != genesis.Hash {
		t.Fatalf("expected next.PreviousHash == genesis.Hash")
	}
	if next.Hash != next.computeHash() {
		t.Fatalf("stored hash does not match recomputed hash")
	}
}

func TestBlockMineMeetsDifficulty(t *testing.T) {
	b := NewBlock("0", nil)
	if err := b.Mine(1, "miner", "node1", nil); err != nil {
		t.Fatalf("mine: %v", err)
	}
	if b.Hash[0] != '0' {
		t.Fatalf("expected leading zero at difficulty 1, got hash %s", b.Hash)
	}
}

func TestBlockMineCancellable(t *testing.T) {
	// An unreachable difficulty forces Mine to loop until stop fires.
	b := NewBlock("0", nil)
	stop := make(chan struct{})
	close(stop)
	if err := b.Mine(64, "miner", "node1", stop); err != ErrMiningCancelled {
		t.Fatalf("expected ErrMiningCancelled, got %v", err)
	}
}

func TestBlockSmartContractsDerivation(t *testing.T) {
	deploy := NewTransaction(ContractDeploy, "alice", "SYSTEM_ADDRESS", decimal.Zero)
	deploy.Info = "$$mytoken"
	deploy.Data = base64.StdEncoding.EncodeToString([]byte("contract-code"))

	other := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(1))

	b := NewBlock("0", []*Transaction{deploy, other})
	contracts := b.SmartContracts()
	if len(contracts) != 1 {
		t.Fatalf("expected exactly one derived contract, got %d", len(contracts))
	}
	c, ok := contracts["mytoken"]
	if !ok {
		t.Fatalf("expected contract 'mytoken' in derived map")
	}
	if string(c.Code) != "contract-code" {
		t.Fatalf("unexpected contract code: %q", c.Code)
	}

	// SmartContracts caches: calling it again must return the same map.
	if again := b.SmartContracts(); len(again) != len(contracts) {
		t.Fatalf("expected cached result on second call")
	}
}
