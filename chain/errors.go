package chain

import "errors"

var (
	// ErrPreviousHashMismatch is returned by Chain.AddBlock when the
	// candidate block does not link to the current tail.
	ErrPreviousHashMismatch = errors.New("chain: previous hash does not match tail")
	// ErrHashMismatch is returned by Chain.AddBlock when the block's
	// stored Hash does not match its recomputed hash.
	ErrHashMismatch = errors.New("chain: stored hash does not match recomputed hash")
	// ErrDifficultyNotMet is returned by Chain.AddBlock when the block's
	// hash lacks the required leading zeroes.
	ErrDifficultyNotMet = errors.New("chain: block hash does not meet difficulty")
	// ErrInsufficientBalance is returned by the ledger when a transfer
	// would overdraw the sender.
	ErrInsufficientBalance = errors.New("chain: insufficient balance")
	// ErrReplay is returned when a transaction ID already appears on the
	// chain.
	ErrReplay = errors.New("chain: duplicate transaction id")
	// ErrExportNotFound is returned by ImportFromFileToAccount when no
	// matching Export transaction exists on the chain.
	ErrExportNotFound = errors.New("chain: export transaction not found")
	// ErrAlreadyImported is returned when the export referenced by a file
	// has already been redeemed by a prior Import transaction.
	ErrAlreadyImported = errors.New("chain: export already imported")
)
