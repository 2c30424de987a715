package chain

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"smartxchain/crypto"
)

// ErrMiningCancelled is returned by Block.Mine when stop fires before a
// valid nonce is found.
var ErrMiningCancelled = errors.New("chain: mining cancelled")

// Block is spec §3's block record. Hash and Nonce are mutated only by
// Mine; once Mine returns successfully the block is treated as immutable.
type Block struct {
	Timestamp    time.Time      `json:"Timestamp"`
	PreviousHash string         `json:"PreviousHash"`
	Hash         string         `json:"Hash"`
	Nonce        int64          `json:"Nonce"`
	Issuer       string         `json:"Issuer"`
	NodeAddress  string         `json:"NodeAddress"`
	Transactions []*Transaction `json:"Transactions"`
	Approves     []string       `json:"Approves"`

	contractsOnce  sync.Once
	contractsCache map[string]*Contract
}

// NewBlock builds an unmined block ready for Mine.
func NewBlock(previousHash string, txs []*Transaction) *Block {
	if txs == nil {
		txs = []*Transaction{}
	}
	return &Block{
		Timestamp:    time.Now().UTC(),
		PreviousHash: previousHash,
		Transactions: txs,
	}
}

// computeHash implements spec §4.1's block hash formula: the
// concatenation of every transaction hash (no separator between them),
// then "-", the previous hash, "-", and the decimal nonce, SHA-256'd and
// base64-encoded.
func (b *Block) computeHash() string {
	var sb strings.Builder
	for _, tx := range b.Transactions {
		sb.WriteString(tx.Hash())
	}
	sb.WriteString("-")
	sb.WriteString(b.PreviousHash)
	sb.WriteString("-")
	sb.WriteString(strconv.FormatInt(b.Nonce, 10))
	return crypto.SHA256Base64([]byte(sb.String()))
}

// Mine finds a nonce whose resulting hash has `difficulty` leading zero
// characters (difficulty <= 0 mines in one step, no proof-of-work
// required), setting Hash/Nonce/Issuer/NodeAddress on success. It checks
// stop before every attempt so a node-level shutdown or a faster peer's
// block can cancel the loop promptly.
func (b *Block) Mine(difficulty int, minerAddress, nodeAddress string, stop <-chan struct{}) error {
	prefix := strings.Repeat("0", difficulty)
	for {
		select {
		case <-stop:
			return ErrMiningCancelled
		default:
		}
		candidate := b.computeHash()
		if difficulty <= 0 || strings.HasPrefix(candidate, prefix) {
			b.Hash = candidate
			b.Issuer = minerAddress
			b.NodeAddress = nodeAddress
			return nil
		}
		b.Nonce++
	}
}

// VerifyHash reports whether the block's stored hash matches its
// recomputed hash, the check spec §4.5 has each peer run before voting
// yes on a proposed block.
func (b *Block) VerifyHash() bool {
	return b.computeHash() == b.Hash
}

// Contract is a deployed smart contract's code and provenance, derived
// from a ContractDeploy transaction's Info/Data fields (spec §4.1's
// DeriveContracts).
type Contract struct {
	Name       string    `json:"Name"`
	Code       []byte    `json:"Code"`
	DeployedAt time.Time `json:"DeployedAt"`
	Deployer   string    `json:"Deployer"`

	// State is the contract's current serialized state, decoded from its
	// most recent "$name" state-update transaction (spec §4.8). It is
	// populated by the node orchestrator before a call reaches
	// ContractEvaluator.Execute and is not part of the block's own
	// JSON-serialized view (it isn't stored by SmartContracts/
	// deriveContracts, which only ever see deploy transactions).
	State []byte `json:"-"`
}

// SmartContracts returns every contract this block deploys, keyed by
// name. The result is computed once and cached; after JSON
// deserialization the zero-valued sync.Once simply recomputes it on
// first access, giving the "cache at decode time" behavior spec §4.1
// asks for without having to serialize the cache itself.
func (b *Block) SmartContracts() map[string]*Contract {
	b.contractsOnce.Do(func() {
		b.contractsCache = deriveContracts(b.Transactions)
	})
	return b.contractsCache
}

func deriveContracts(txs []*Transaction) map[string]*Contract {
	out := make(map[string]*Contract)
	for _, tx := range txs {
		if tx.Type != ContractDeploy || !tx.IsContractDeploy() {
			continue
		}
		code, err := base64.StdEncoding.DecodeString(tx.Data)
		if err != nil {
			continue
		}
		name := tx.ContractName()
		out[name] = &Contract{
			Name:       name,
			Code:       code,
			DeployedAt: tx.Timestamp,
			Deployer:   tx.Sender,
		}
	}
	return out
}
