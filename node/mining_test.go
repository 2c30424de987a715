package node

import (
	"context"
	"testing"

	"smartxchain/addr"
)

func TestMineOnceInstallsBlockWithoutPeers(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	startLen := o.Chain.Len()
	if err := o.MineOnce(context.Background(), nil); err != nil {
		t.Fatalf("MineOnce: %v", err)
	}
	if o.Chain.Len() != startLen+1 {
		t.Fatalf("expected chain to grow by one block, got %d -> %d", startLen, o.Chain.Len())
	}

	tail := o.Chain.Tail()
	if len(tail.Transactions) != 2 || tail.Transactions[0].Type != "MinerReward" || tail.Transactions[1].Type != "ValidatorReward" {
		t.Fatalf("expected mined block to carry exactly the miner and validator rewards, got %d txs", len(tail.Transactions))
	}
}

func TestMineOnceUsesFounderRewardWhileSeatsRemain(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	if err := o.MineOnce(context.Background(), nil); err != nil {
		t.Fatalf("MineOnce: %v", err)
	}

	reward := o.Chain.Tail().Transactions[0]
	cfg := o.GasConfig()
	if !reward.Amount.Equal(cfg.FounderSeatAmount) {
		t.Fatalf("expected first reward to be the founder seat amount %s, got %s", cfg.FounderSeatAmount, reward.Amount)
	}
	if reward.Sender != addr.System {
		t.Fatalf("expected reward sender to be system address, got %s", reward.Sender)
	}
}

func TestMineOnceRequeuesPendingTransactionsOnMiningFailure(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	tx := buildTestTransferTx(t, o)
	o.Pool.Push(tx)

	stop := make(chan struct{})
	close(stop)

	if err := o.MineOnce(context.Background(), stop); err == nil {
		t.Fatal("expected MineOnce to fail when stop is already closed")
	}
	if o.Pool.Len() == 0 {
		t.Fatal("expected requeued transactions after a failed mining round")
	}
}
