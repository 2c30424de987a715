package chain

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.db")
	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveAndGetBlockByHash(t *testing.T) {
	s := openTestStore(t)
	tx := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	b := mustMinedBlock(t, "0", []*Transaction{tx})

	if ok := s.SaveBlock(b); !ok {
		t.Fatalf("expected SaveBlock to succeed")
	}

	got, ok := s.GetBlockByHash(b.Hash)
	if !ok {
		t.Fatalf("expected to find block by hash")
	}
	if got.Hash != b.Hash || len(got.Transactions) != 1 {
		t.Fatalf("round-tripped block mismatch: %+v", got)
	}
}

func TestStoreContractLookupByNameAndPrefix(t *testing.T) {
	s := openTestStore(t)
	deploy := NewTransaction(ContractDeploy, "alice", "SYSTEM_ADDRESS", decimal.Zero)
	deploy.Info = "$$mytoken"
	deploy.Data = base64.StdEncoding.EncodeToString([]byte("code-bytes"))

	b := mustMinedBlock(t, "0", []*Transaction{deploy})
	if ok := s.SaveBlock(b); !ok {
		t.Fatalf("expected SaveBlock to succeed")
	}

	code, ok := s.ContractCodeByName("mytoken")
	if !ok {
		t.Fatalf("expected to find contract by name")
	}
	decoded, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		t.Fatalf("decode contract code: %v", err)
	}
	if string(decoded) != "code-bytes" {
		t.Fatalf("unexpected contract code: %q", decoded)
	}

	names, err := s.ContractNamesByPrefix("my")
	if err != nil {
		t.Fatalf("contract names by prefix: %v", err)
	}
	if len(names) != 1 || names[0] != "mytoken" {
		t.Fatalf("expected ['mytoken'], got %v", names)
	}
}

func TestStoreTransactionsForUser(t *testing.T) {
	s := openTestStore(t)
	tx1 := NewTransaction(NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	tx2 := NewTransaction(NativeTransfer, "carol", "alice", decimal.NewFromInt(5))
	b := mustMinedBlock(t, "0", []*Transaction{tx1, tx2})
	if ok := s.SaveBlock(b); !ok {
		t.Fatalf("expected SaveBlock to succeed")
	}

	records, err := s.TransactionsForUser("alice")
	if err != nil {
		t.Fatalf("transactions for user: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 transactions involving alice, got %d", len(records))
	}
}
