package node

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"smartxchain/addr"
	"smartxchain/chain"
	"smartxchain/gas"
)

// StartMining launches the background mining loop: on each tick it
// snapshots and clears the pending pool, mines a block over those
// transactions, puts the block to a vote, and installs it on quorum
// (spec §4.7/§4.8). A failed vote requeues the transactions so they are
// retried in the next round, in their original order.
func (o *Orchestrator) StartMining(ctx context.Context, interval time.Duration) {
	o.stopMu.Lock()
	if o.miningActive {
		o.stopMu.Unlock()
		return
	}
	o.miningActive = true
	o.stopMining = make(chan struct{})
	stop := o.stopMining
	o.stopMu.Unlock()

	go o.miningLoop(ctx, interval, stop)
	o.log.Info("node: mining loop started")
}

// StopMining halts the mining loop, cancelling any in-flight Mine call.
func (o *Orchestrator) StopMining() {
	o.stopMu.Lock()
	defer o.stopMu.Unlock()
	if !o.miningActive {
		return
	}
	close(o.stopMining)
	o.miningActive = false
}

func (o *Orchestrator) miningLoop(ctx context.Context, interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := o.MineOnce(ctx, stop); err != nil {
				o.log.WithError(err).Warn("node: mining round failed")
			}
		}
	}
}

// MineOnce runs a single mining round: it takes whatever is in the
// pending pool plus the round's reward transactions, mines a block,
// puts it to a peer vote, and installs it on quorum. Exported so the
// CLI and tests can trigger an on-demand round without waiting for the
// ticker.
func (o *Orchestrator) MineOnce(ctx context.Context, stop <-chan struct{}) error {
	txs := o.Pool.SnapshotAndClear()
	txs = append(txs, o.buildRewardTransactions()...)

	tail := o.Chain.Tail()
	block := chain.NewBlock(tail.Hash, txs)
	if err := block.Mine(o.difficulty, o.minerAddress, o.selfAddress, stop); err != nil {
		o.Pool.Requeue(txs)
		return err
	}

	peers := o.Registry.Peers()
	if len(peers) > 0 {
		blob, err := chain.EncodeBlockTransport(block)
		if err != nil {
			o.Pool.Requeue(txs)
			return err
		}
		ok, tally := o.Consensus.ReachConsensus(ctx, peers, []byte(blob))
		if !ok {
			o.log.WithField("tally", tally).Info("node: block failed to reach consensus, requeuing")
			o.Pool.Requeue(txs)
			return nil
		}
	}

	if _, err := o.installBlock(block); err != nil {
		o.Pool.Requeue(txs)
		return err
	}
	o.log.WithField("hash", block.Hash).Info("node: installed new block")
	return nil
}

// buildRewardTransactions pays the miner and validator for the round
// (spec §4.8: "emit miner + validator reward transactions into the next
// pool cycle"), applying the founder distribution in lieu of the
// computed miner reward while seats remain (spec §4.2/§4.4). This node
// proposes and self-certifies its own blocks before they ever reach a
// peer vote, so it is its own validator for the round; both reward
// transactions are credited to minerAddress.
func (o *Orchestrator) buildRewardTransactions() []*chain.Transaction {
	cfg := o.GasConfig()
	load := o.NetworkLoad()
	walletCount := o.Ledger.WalletCount()

	var minerReward decimal.Decimal
	if o.Ledger.FounderSeatsRemaining(cfg) {
		minerReward = o.Ledger.NextFounderReward(cfg, o.minerAddress)
	} else {
		minerReward = cfg.RewardFor(gas.RoleMiner, walletCount, o.Ledger.Balance(o.minerAddress))
	}
	validatorReward := cfg.RewardFor(gas.RoleValidator, walletCount, o.Ledger.Balance(o.minerAddress))

	minerTx := chain.NewTransaction(chain.MinerReward, addr.System, o.minerAddress, minerReward)
	if err := minerTx.Finalize(cfg, load, o.systemKey); err != nil {
		o.log.WithError(err).Warn("node: failed to finalize miner reward transaction")
		return nil
	}
	validatorTx := chain.NewTransaction(chain.ValidatorReward, addr.System, o.minerAddress, validatorReward)
	if err := validatorTx.Finalize(cfg, load, o.systemKey); err != nil {
		o.log.WithError(err).Warn("node: failed to finalize validator reward transaction")
		return []*chain.Transaction{minerTx}
	}
	return []*chain.Transaction{minerTx, validatorTx}
}
