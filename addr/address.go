// Package addr holds the handful of reserved address constants that are
// shared, unchanged, across the gas calculator, the ledger and the node
// orchestrator. It exists only to avoid a dependency cycle between those
// packages; actual addresses are opaque strings derived outside this
// module from wallet keys (spec §3).
package addr

const (
	// System is the reserved address that seeds the ledger with the total
	// supply and pays miner/validator rewards.
	System = "SYSTEM_ADDRESS"

	// Unknown is the reserved burn address used by TransferToFile (spec
	// §4.4): value sent there is considered exported off-chain.
	Unknown = "UNKNOWN_ADDRESS"
)
