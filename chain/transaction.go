// Package chain implements components C-F of the node: transactions,
// blocks, the chain itself, its ledger and its persistence. It is
// generalized from the teacher's core/transactions.go, core/ledger.go and
// core/blockchain_compression.go, replacing go-ethereum/secp256k1 signing
// with the shared crypto package and go-ethereum's in-memory-only model
// with a SQLite-backed store.
package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartxchain/crypto"
	"smartxchain/gas"
)

// ProtocolVersion is the version tag included in every transaction's
// canonical string (spec §3's "version" field).
const ProtocolVersion = "1"

// TxType is the transaction type tag named in spec §3.
type TxType string

const (
	NativeTransfer   TxType = "NativeTransfer"
	MinerReward      TxType = "MinerReward"
	ValidatorReward  TxType = "ValidatorReward"
	ContractDeploy   TxType = "ContractDeploy"
	ContractState    TxType = "ContractState"
	GasConfiguration TxType = "GasConfiguration"
	Founder          TxType = "Founder"
	Export           TxType = "Export"
	Import           TxType = "Import"
)

// Transaction is spec §3's transaction record. Construct one with
// NewTransaction, fill in Info/Data as needed, then call Finalize exactly
// once: Finalize computes Gas and Signature together so the two can never
// drift apart, the redesign spec §9 asks for in place of the teacher's
// separate RecalculateGas-then-Sign property setters.
type Transaction struct {
	ID        string          `json:"ID"`
	Type      TxType          `json:"Type"`
	Sender    string          `json:"Sender"`
	Recipient string          `json:"Recipient"`
	Amount    decimal.Decimal `json:"Amount"`
	Timestamp time.Time       `json:"Timestamp"`
	Info      string          `json:"Info"`
	Data      string          `json:"Data"`
	Gas       decimal.Decimal `json:"Gas"`
	Signature string          `json:"Signature"`
}

// NewTransaction builds an unsigned, zero-gas transaction ready for
// Finalize.
func NewTransaction(txType TxType, sender, recipient string, amount decimal.Decimal) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Type:      txType,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}

// canonical builds the exact string Sign/VerifySignature operate on:
// type|id|sender|recipient|data|info|amount|version (spec §3).
func (tx *Transaction) canonical() string {
	return strings.Join([]string{
		string(tx.Type),
		tx.ID,
		tx.Sender,
		tx.Recipient,
		tx.Data,
		tx.Info,
		tx.Amount.String(),
		ProtocolVersion,
	}, "|")
}

// Hash is the lowercase hex SHA-256 of the canonical string (spec §3).
func (tx *Transaction) Hash() string {
	return crypto.SHA256Hex([]byte(tx.canonical()))
}

// Finalize computes Gas from the transaction's current Sender/Data/Info
// and signs the canonical string with priv, setting both fields
// atomically. Calling Finalize a second time re-signs over whatever the
// fields currently hold; callers must not mutate Sender/Recipient/Data/
// Info/Amount after the first Finalize, since the signature would no
// longer cover the new canonical string.
func (tx *Transaction) Finalize(cfg gas.Config, networkLoad decimal.Decimal, priv *ecdsa.PrivateKey) error {
	if tx.Type == ContractDeploy {
		tx.Gas = cfg.ContractGas(tx.Data, networkLoad)
	} else {
		tx.Gas = cfg.TxGas(tx.Sender, tx.Data, tx.Info, networkLoad)
	}
	sig, err := crypto.Sign(priv, tx.canonical())
	if err != nil {
		return fmt.Errorf("finalize transaction %s: %w", tx.ID, err)
	}
	tx.Signature = sig
	return nil
}

// VerifySignature checks tx.Signature against pub. A zero Signature is
// ErrUnsigned, a build-fingerprint mismatch is ErrFingerprintMismatch, any
// other mismatch is ErrBadSignature (spec §4.3's failure kinds).
func (tx *Transaction) VerifySignature(pub *ecdsa.PublicKey) error {
	return crypto.VerifySignature(pub, tx.canonical(), tx.Signature)
}

// IsContractDeploy reports whether Info carries the "$$name" marker spec
// §4.1 uses to recognize a smart-contract deployment transaction.
func (tx *Transaction) IsContractDeploy() bool {
	return strings.HasPrefix(tx.Info, "$$")
}

// ContractName extracts the deployed contract's name from Info, valid
// only when IsContractDeploy is true.
func (tx *Transaction) ContractName() string {
	return strings.TrimPrefix(tx.Info, "$$")
}

// IsContractStateUpdate reports whether Info carries the "$name" marker
// (a single "$", not "$$") spec §3 uses to recognize a contract state
// update transaction, whose Data is the compressed base64 state blob.
func (tx *Transaction) IsContractStateUpdate() bool {
	return strings.HasPrefix(tx.Info, "$") && !strings.HasPrefix(tx.Info, "$$")
}

// ContractStateName extracts the contract name a state-update
// transaction applies to, valid only when IsContractStateUpdate is true.
func (tx *Transaction) ContractStateName() string {
	return strings.TrimPrefix(tx.Info, "$")
}
