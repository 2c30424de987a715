// Package gas implements the pure gas-cost and block-reward formulas of
// spec §4.2. It depends on nothing but the shared address constants and
// shopspring/decimal, so it can be unit tested without a ledger, a chain,
// or any network state. Generalized from the teacher's
// core/gas_table.go static per-opcode lookup table into a formula-based
// model, keeping the same "never panic on a missing input, fall back to a
// sane default" posture.
package gas

import (
	"github.com/shopspring/decimal"

	"smartxchain/addr"
)

// Role distinguishes which reward formula RewardFor should apply.
type Role int

const (
	RoleMiner Role = iota
	RoleValidator
)

// Config holds every gas/reward parameter named in spec §4.2. All fields
// are mutable only by a GasConfiguration governance transaction (enforced
// by the node orchestrator, not by this package).
type Config struct {
	BaseTx      decimal.Decimal
	BaseContract decimal.Decimal
	PerChar     decimal.Decimal
	Factor      decimal.Decimal

	MinerInit  decimal.Decimal
	MinerDecay decimal.Decimal
	MinerMin   decimal.Decimal

	ValidatorInit  decimal.Decimal
	ValidatorDecay decimal.Decimal
	ValidatorMin   decimal.Decimal

	LoadHigh decimal.Decimal
	LoadLow  decimal.Decimal
	MulHigh  decimal.Decimal
	MulLow   decimal.Decimal

	ContractMinLen       int
	ContractLenGasFactor decimal.Decimal

	// FounderSeatAmount is the per-seat founder distribution amount (spec
	// §4.2 "Founder distribution"). Surfaced here, rather than
	// hard-coded, per the Open Question decision in DESIGN.md.
	FounderSeatAmount decimal.Decimal
	// FounderSeatCount is the number of participants eligible for the
	// founder distribution before the computed reward resumes.
	FounderSeatCount int
}

// Default returns the parameter set with the literal defaults spec §4.2
// lists.
func Default() Config {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return Config{
		BaseTx:       d("5"),
		BaseContract: d("10"),
		PerChar:      d("2"),
		Factor:       d("1000"),

		MinerInit:  d("0.1"),
		MinerDecay: d("0.98"),
		MinerMin:   d("0.01"),

		ValidatorInit:  d("0.05"),
		ValidatorDecay: d("0.99"),
		ValidatorMin:   d("0.005"),

		LoadHigh: d("0.75"),
		LoadLow:  d("0.25"),
		MulHigh:  d("1.2"),
		MulLow:   d("0.8"),

		ContractMinLen:       1000,
		ContractLenGasFactor: d("1.5"),

		FounderSeatAmount: d("10000000"),
		FounderSeatCount:  10,
	}
}

// applyLoadMultiplier scales cost by MulHigh/MulLow when networkLoad falls
// outside [LoadLow, LoadHigh], per spec §4.2.
func (c Config) applyLoadMultiplier(cost, networkLoad decimal.Decimal) decimal.Decimal {
	switch {
	case networkLoad.GreaterThan(c.LoadHigh):
		return cost.Mul(c.MulHigh)
	case networkLoad.LessThan(c.LoadLow):
		return cost.Mul(c.MulLow)
	default:
		return cost
	}
}

// TxGas computes Gas(tx) for a transaction whose sender, data and info
// fields are given. Transactions sent by the system address are always
// free (spec §3: "0 when sender = SYSTEM_ADDRESS").
func (c Config) TxGas(sender, data, info string, networkLoad decimal.Decimal) decimal.Decimal {
	if sender == addr.System {
		return decimal.Zero
	}
	length := decimal.NewFromInt(int64(len(data) + len(info) + len(sender)))
	cost := c.BaseTx.Add(length.Mul(c.PerChar).Div(c.Factor))
	return c.applyLoadMultiplier(cost, networkLoad)
}

// ContractGas computes Gas(contract code) for a deploy transaction's code
// payload, per spec §4.2.
func (c Config) ContractGas(code string, networkLoad decimal.Decimal) decimal.Decimal {
	cost := c.BaseContract.Add(decimal.NewFromInt(int64(len(code))).Mul(c.PerChar).Div(c.Factor))
	if len(code) > c.ContractMinLen {
		cost = cost.Mul(c.ContractLenGasFactor)
	}
	return c.applyLoadMultiplier(cost, networkLoad)
}

// MinerReward computes the per-block miner reward. A miner with a zero
// balance (first reward ever) gets MinerInit outright; otherwise the
// reward decays geometrically with the number of wallets on the network,
// floored at MinerMin.
func (c Config) MinerReward(walletCount int, minerBalance decimal.Decimal) decimal.Decimal {
	if minerBalance.IsZero() {
		return c.MinerInit
	}
	decayed := c.MinerInit.Mul(c.MinerDecay.Pow(decimal.NewFromInt(int64(walletCount))))
	return decimal.Max(decayed, c.MinerMin)
}

// ValidatorReward is MinerReward's analogue for validators, per spec §4.2.
func (c Config) ValidatorReward(walletCount int, validatorBalance decimal.Decimal) decimal.Decimal {
	if validatorBalance.IsZero() {
		return c.ValidatorInit
	}
	decayed := c.ValidatorInit.Mul(c.ValidatorDecay.Pow(decimal.NewFromInt(int64(walletCount))))
	return decimal.Max(decayed, c.ValidatorMin)
}

// RewardFor dispatches to MinerReward or ValidatorReward by role.
//
// This intentionally preserves the original, slightly surprising control
// flow spec §9's Open Questions flags rather than "fixing" it into an
// additive miner+validator total: reward starts at its zero value and is
// only ever assigned inside the branch matching role, so a RoleMiner call
// can never pick up a stray validator contribution and vice versa. See
// DESIGN.md "Reward computation order bug" for the reasoning and a test
// that pins this shape.
func (c Config) RewardFor(role Role, walletCount int, balance decimal.Decimal) decimal.Decimal {
	var reward decimal.Decimal // zero value
	switch role {
	case RoleValidator:
		reward = c.ValidatorReward(walletCount, balance)
	case RoleMiner:
		reward = c.MinerReward(walletCount, balance).Add(reward)
	}
	return reward
}
