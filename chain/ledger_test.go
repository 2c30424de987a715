package chain

import (
	"testing"

	"github.com/shopspring/decimal"

	"smartxchain/addr"
	"smartxchain/crypto"
	"smartxchain/gas"
)

func TestLedgerInitialBalanceIsTotalSupply(t *testing.T) {
	l := NewLedger()
	want := decimal.RequireFromString(TotalSupply)
	if !l.Balance(addr.System).Equal(want) {
		t.Fatalf("expected SYSTEM_ADDRESS balance %s, got %s", want, l.Balance(addr.System))
	}
}

func TestLedgerUpdateBalancesFromChainConservesSupply(t *testing.T) {
	l := NewLedger()
	c := NewChain("test-chain")

	priv, _ := crypto.GenerateSigningKey()
	cfg := gas.Default()
	pool := NewPendingPool()

	tx, err := l.Transfer(pool, addr.System, "alice", decimal.NewFromInt(1000), "", "", cfg, decimal.NewFromFloat(0.5), priv, priv)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	mined := mustMinedBlock(t, c.Tail().Hash, []*Transaction{tx})
	if ok, err := c.AddBlock(mined, false, 0); !ok || err != nil {
		t.Fatalf("add block: ok=%v err=%v", ok, err)
	}

	l.UpdateBalancesFromChain(c)

	total := decimal.Zero
	for _, addrKey := range []string{addr.System, "alice"} {
		total = total.Add(l.Balance(addrKey))
	}
	if !total.Equal(decimal.RequireFromString(TotalSupply)) {
		t.Fatalf("expected conserved total supply %s, got %s", TotalSupply, total)
	}
	if !l.Balance("alice").Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected alice balance 1000, got %s", l.Balance("alice"))
	}
}

func TestLedgerTransferRejectsInsufficientBalance(t *testing.T) {
	l := NewLedger()
	pool := NewPendingPool()
	priv, _ := crypto.GenerateSigningKey()
	cfg := gas.Default()

	// No systemPriv: founder-reward settlement (step (a) of spec §4.4's
	// Transfer) is skipped, so this exercises the plain insufficient-
	// balance rejection of step (b) in isolation.
	_, err := l.Transfer(pool, "alice", "bob", decimal.NewFromInt(1), "", "", cfg, decimal.NewFromFloat(0.5), priv, nil)
	if err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestLedgerTransferSettlesPendingFounderReward(t *testing.T) {
	l := NewLedger()
	pool := NewPendingPool()
	alicePriv, _ := crypto.GenerateSigningKey()
	systemPriv, _ := crypto.GenerateSigningKey()
	cfg := gas.Default()
	load := decimal.NewFromFloat(0.5)

	// Alice has no balance, but the founder distribution window is open
	// on a fresh ledger, so step (a) must credit her a founder seat
	// before step (b)'s balance check runs, letting a transfer smaller
	// than the seat amount through.
	amount := decimal.NewFromInt(1000)
	tx, err := l.Transfer(pool, "alice", "bob", amount, "", "", cfg, load, alicePriv, systemPriv)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tx.Sender != "alice" || tx.Recipient != "bob" {
		t.Fatalf("expected forward transfer alice->bob, got %s->%s", tx.Sender, tx.Recipient)
	}

	pending := pool.SnapshotAndClear()
	if len(pending) != 2 {
		t.Fatalf("expected a Founder settlement plus the NativeTransfer pending, got %d", len(pending))
	}
	founderTx := pending[0]
	if founderTx.Type != Founder || founderTx.Sender != addr.System || founderTx.Recipient != "alice" {
		t.Fatalf("expected a Founder tx crediting alice first, got %+v", founderTx)
	}
	if !founderTx.Amount.Equal(cfg.FounderSeatAmount) {
		t.Fatalf("expected founder seat amount %s, got %s", cfg.FounderSeatAmount, founderTx.Amount)
	}

	wantAliceBalance := cfg.FounderSeatAmount.Sub(amount)
	if !l.Balance("alice").Equal(wantAliceBalance) {
		t.Fatalf("expected alice balance %s after settlement and transfer, got %s", wantAliceBalance, l.Balance("alice"))
	}
	if !l.Balance("bob").Equal(amount) {
		t.Fatalf("expected bob balance %s, got %s", amount, l.Balance("bob"))
	}

	// A second transfer from alice must not settle another founder seat.
	if _, err := l.Transfer(pool, "alice", "bob", decimal.NewFromInt(1), "", "", cfg, load, alicePriv, systemPriv); err != nil {
		t.Fatalf("second transfer: %v", err)
	}
	second := pool.SnapshotAndClear()
	if len(second) != 1 {
		t.Fatalf("expected only the NativeTransfer on a second call, no repeat settlement, got %d", len(second))
	}
}

func TestLedgerExportImportRoundTrip(t *testing.T) {
	l := NewLedger()
	c := NewChain("test-chain")
	pool := NewPendingPool()
	systemPriv, _ := crypto.GenerateSigningKey()
	cfg := gas.Default()
	load := decimal.NewFromFloat(0.5)

	seedTx, err := l.Transfer(pool, addr.System, "alice", decimal.NewFromInt(500), "", "", cfg, load, systemPriv, systemPriv)
	if err != nil {
		t.Fatalf("seed transfer: %v", err)
	}
	seedBlock := mustMinedBlock(t, c.Tail().Hash, []*Transaction{seedTx})
	c.AddBlock(seedBlock, false, 0)
	l.UpdateBalancesFromChain(c)

	alicePriv, _ := crypto.GenerateSigningKey()
	blob, err := l.TransferToFile(pool, "alice", decimal.NewFromInt(200), cfg, load, alicePriv)
	if err != nil {
		t.Fatalf("transfer to file: %v", err)
	}
	exportTx := pool.SnapshotAndClear()
	if len(exportTx) != 1 {
		t.Fatalf("expected exactly one pending export tx, got %d", len(exportTx))
	}
	exportBlock := mustMinedBlock(t, c.Tail().Hash, exportTx)
	c.AddBlock(exportBlock, false, 0)
	l.UpdateBalancesFromChain(c)

	if !l.Balance(addr.Unknown).Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected UNKNOWN_ADDRESS to hold 200, got %s", l.Balance(addr.Unknown))
	}

	importTx, err := l.ImportFromFileToAccount(c, pool, blob, "bob", cfg, load, systemPriv)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	importBlock := mustMinedBlock(t, c.Tail().Hash, []*Transaction{importTx})
	c.AddBlock(importBlock, false, 0)
	l.UpdateBalancesFromChain(c)

	if !l.Balance("bob").Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected bob balance 200 after import, got %s", l.Balance("bob"))
	}

	// Replaying the same export blob must be rejected.
	if _, err := l.ImportFromFileToAccount(c, pool, blob, "carol", cfg, load, systemPriv); err != ErrAlreadyImported {
		t.Fatalf("expected ErrAlreadyImported on replay, got %v", err)
	}
}

func TestLedgerFounderSeats(t *testing.T) {
	l := NewLedger()
	cfg := gas.Default()

	if !l.FounderSeatsRemaining(cfg) {
		t.Fatalf("expected founder seats to be available on a fresh ledger")
	}
	for i := 0; i < cfg.FounderSeatCount; i++ {
		if !l.FounderSeatsRemaining(cfg) {
			t.Fatalf("expected founder seat %d to be available", i)
		}
		reward := l.NextFounderReward(cfg, "")
		if !reward.Equal(cfg.FounderSeatAmount) {
			t.Fatalf("expected founder seat reward %s, got %s", cfg.FounderSeatAmount, reward)
		}
	}
	if l.FounderSeatsRemaining(cfg) {
		t.Fatalf("expected founder seats exhausted after %d allocations", cfg.FounderSeatCount)
	}
}
