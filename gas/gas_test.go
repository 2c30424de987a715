package gas

import (
	"testing"

	"github.com/shopspring/decimal"

	"smartxchain/addr"
)

func TestTxGasIsZeroForSystemSender(t *testing.T) {
	cfg := Default()
	got := cfg.TxGas(addr.System, "data", "info", decimal.NewFromFloat(0.5))
	if !got.IsZero() {
		t.Fatalf("expected zero gas for system sender, got %s", got)
	}
}

// TestGasMonotonicity is invariant 5 from spec §8: for fixed sender,
// gas(tx with data d1||d2) >= gas(tx with data d1).
func TestGasMonotonicity(t *testing.T) {
	cfg := Default()
	load := decimal.NewFromFloat(0.5) // inside [LoadLow, LoadHigh], no multiplier
	short := cfg.TxGas("alice", "d1", "info", load)
	long := cfg.TxGas("alice", "d1d2-extra-payload", "info", load)
	if long.LessThan(short) {
		t.Fatalf("expected gas to grow with payload size: short=%s long=%s", short, long)
	}
}

func TestTxGasLoadMultiplier(t *testing.T) {
	cfg := Default()
	base := cfg.TxGas("alice", "data", "info", decimal.NewFromFloat(0.5))
	high := cfg.TxGas("alice", "data", "info", decimal.NewFromFloat(0.9))
	low := cfg.TxGas("alice", "data", "info", decimal.NewFromFloat(0.1))

	if !high.Equal(base.Mul(cfg.MulHigh)) {
		t.Fatalf("high load multiplier mismatch: got %s want %s", high, base.Mul(cfg.MulHigh))
	}
	if !low.Equal(base.Mul(cfg.MulLow)) {
		t.Fatalf("low load multiplier mismatch: got %s want %s", low, base.Mul(cfg.MulLow))
	}
}

func TestContractGasAppliesLengthFactor(t *testing.T) {
	cfg := Default()
	load := decimal.NewFromFloat(0.5)
	short := make([]byte, cfg.ContractMinLen-1)
	long := make([]byte, cfg.ContractMinLen+1)

	shortGas := cfg.ContractGas(string(short), load)
	longGas := cfg.ContractGas(string(long), load)

	base := cfg.BaseContract.Add(decimal.NewFromInt(int64(len(long))).Mul(cfg.PerChar).Div(cfg.Factor))
	if !longGas.Equal(base.Mul(cfg.ContractLenGasFactor)) {
		t.Fatalf("expected length factor applied: got %s want %s", longGas, base.Mul(cfg.ContractLenGasFactor))
	}
	if !longGas.GreaterThan(shortGas) {
		t.Fatalf("expected long contract to cost more: short=%s long=%s", shortGas, longGas)
	}
}

func TestMinerRewardFirstRewardIsInit(t *testing.T) {
	cfg := Default()
	got := cfg.MinerReward(5, decimal.Zero)
	if !got.Equal(cfg.MinerInit) {
		t.Fatalf("expected MinerInit for zero balance, got %s", got)
	}
}

func TestMinerRewardDecaysAndFloors(t *testing.T) {
	cfg := Default()
	got := cfg.MinerReward(100000, decimal.NewFromInt(1))
	if !got.Equal(cfg.MinerMin) {
		t.Fatalf("expected reward floored at MinerMin, got %s", got)
	}
}

// TestRewardForPreservesLiteralBranching pins the Open Question decision
// in DESIGN.md: RewardFor never sums a miner and a validator figure
// together, because "reward" starts zero-valued and only one branch
// assigns it.
func TestRewardForPreservesLiteralBranching(t *testing.T) {
	cfg := Default()
	balance := decimal.NewFromInt(1)

	minerOnly := cfg.RewardFor(RoleMiner, 10, balance)
	wantMiner := cfg.MinerReward(10, balance)
	if !minerOnly.Equal(wantMiner) {
		t.Fatalf("RoleMiner reward should equal MinerReward alone: got %s want %s", minerOnly, wantMiner)
	}

	validatorOnly := cfg.RewardFor(RoleValidator, 10, balance)
	wantValidator := cfg.ValidatorReward(10, balance)
	if !validatorOnly.Equal(wantValidator) {
		t.Fatalf("RoleValidator reward should equal ValidatorReward alone: got %s want %s", validatorOnly, wantValidator)
	}
}
