// Package node implements component J: the orchestrator that wires the
// chain, ledger, pending pool, peer registry, secure channel and
// consensus engine together into a running node (spec §4.8). Generalized
// from the teacher's core/node.go + core/base_node.go wrapper pair and
// its core/blockchain_synchronization.go SyncManager, replacing the
// teacher's libp2p-backed NodeInterface with the flat HTTP peer fabric
// this system uses.
package node

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"smartxchain/addr"
	"smartxchain/chain"
	"smartxchain/consensus"
	"smartxchain/gas"
	"smartxchain/peernet"
	"smartxchain/secure"
)

// maxPoolForFullLoad is the pending-pool size at which NetworkLoad
// reports 1.0 (fully loaded), scaling gas costs to MulHigh per spec
// §4.2.
const maxPoolForFullLoad = 100

// Orchestrator is the node's single point of coordination. Its exported
// methods are the operations spec §4.8 names; rpcapi's HTTP handlers and
// cmd/smartxchain's CLI commands are both thin callers into this type.
type Orchestrator struct {
	log *logrus.Logger

	Chain  *chain.Chain
	Ledger *chain.Ledger
	Pool   *chain.PendingPool
	Store  *chain.Store

	Registry *peernet.Registry
	Channel  *secure.Channel
	ConnPool *secure.ConnPool
	Consensus *consensus.Engine

	evaluator chain.ContractEvaluator

	selfAddress  string
	minerAddress string
	systemKey    *ecdsa.PrivateKey

	difficulty     int
	consensusDeadline time.Duration

	gasMu  sync.RWMutex
	gasCfg gas.Config

	keysMu sync.RWMutex
	keys   map[string]*ecdsa.PublicKey

	peerKeysMu sync.RWMutex
	peerKeys   map[string]string

	sync *SyncManager

	stopMu       sync.Mutex
	stopped      bool
	stopMining   chan struct{}
	miningActive bool
}

// Config bundles the orchestrator's construction parameters, read out of
// pkg/config.Config and CLI flags at start-up.
type Config struct {
	ChainID          string
	SelfAddress      string
	MinerAddress     string
	SystemKey        *ecdsa.PrivateKey
	Difficulty       int
	ConsensusDeadline time.Duration
	PeerTimeout      time.Duration
	MaxParallelConns int
	Evaluator        chain.ContractEvaluator
	Logger           *logrus.Logger
}

// New builds an orchestrator with a fresh genesis chain. Use
// NewFromChain to resume from a previously persisted chain dump.
func New(cfg Config) (*Orchestrator, error) {
	return NewFromChain(cfg, chain.NewChain(cfg.ChainID))
}

// NewFromChain builds an orchestrator around an already-loaded chain
// (e.g. from chain.LoadChainDump), replaying the ledger from it.
func NewFromChain(cfg Config, c *chain.Chain) (*Orchestrator, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.SystemKey == nil {
		return nil, fmt.Errorf("node: system signing key is required")
	}

	ledger := chain.NewLedger()
	ledger.UpdateBalancesFromChain(c)

	registry := peernet.NewRegistry(cfg.SelfAddress, cfg.PeerTimeout, log)
	channel, err := secure.NewChannel(registry)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	connPool := secure.NewConnPool(cfg.MaxParallelConns, 2*cfg.PeerTimeout)

	o := &Orchestrator{
		log:               log,
		Chain:             c,
		Ledger:            ledger,
		Pool:              chain.NewPendingPool(),
		Registry:          registry,
		Channel:           channel,
		ConnPool:          connPool,
		evaluator:         cfg.Evaluator,
		selfAddress:       cfg.SelfAddress,
		minerAddress:      cfg.MinerAddress,
		systemKey:         cfg.SystemKey,
		difficulty:        cfg.Difficulty,
		consensusDeadline: cfg.ConsensusDeadline,
		gasCfg:            gas.Default(),
		keys:              make(map[string]*ecdsa.PublicKey),
		peerKeys:          make(map[string]string),
		stopMining:        make(chan struct{}),
	}
	registry.OnChange(o.invalidatePeerPublicKeys)
	o.Consensus = consensus.NewEngine(&httpVoteRequester{o: o, pool: connPool, log: log}, cfg.ConsensusDeadline, log)
	o.sync = NewSyncManager(o, log)
	return o, nil
}

// AttachStore opens (or reuses) a SQLite-backed Store at path.
func (o *Orchestrator) AttachStore(path string) error {
	s, err := chain.OpenStore(path)
	if err != nil {
		return fmt.Errorf("node: attach store: %w", err)
	}
	o.Store = s
	return nil
}

// SelfAddress is this node's own advertised base URL, the NodeAddress
// the RPC surface and consensus engine stamp onto mined blocks and
// handshake replies.
func (o *Orchestrator) SelfAddress() string {
	return o.selfAddress
}

// MinerAddress is the wallet address credited with mining rewards and
// echoed in an accepted Vote reply ("ok#<minerAddr>", spec §4.5).
func (o *Orchestrator) MinerAddress() string {
	return o.minerAddress
}

// ChainID is the chain identifier this node's genesis block was created
// with (or last reset to).
func (o *Orchestrator) ChainID() string {
	return o.Chain.ChainID
}

// Difficulty is this node's configured mining difficulty, also the
// threshold a peer's Vote handler checks a proposed block's hash against.
func (o *Orchestrator) Difficulty() int {
	return o.difficulty
}

// cachedPeerPublicKey and cachePeerPublicKey hold the ECDH public keys
// learned from each peer's unauthenticated GetPublicKey handshake (spec
// §4.7), so the secure channel doesn't have to re-fetch one on every
// outbound call. Invalidated the same way the shared-key cache is: via
// the peer registry's OnChange hook, wired in New/NewFromChain.
func (o *Orchestrator) cachedPeerPublicKey(address string) (string, bool) {
	o.peerKeysMu.RLock()
	defer o.peerKeysMu.RUnlock()
	key, ok := o.peerKeys[address]
	return key, ok
}

func (o *Orchestrator) cachePeerPublicKey(address, pubKeyB64 string) {
	o.peerKeysMu.Lock()
	defer o.peerKeysMu.Unlock()
	o.peerKeys[address] = pubKeyB64
}

func (o *Orchestrator) invalidatePeerPublicKeys() {
	o.peerKeysMu.Lock()
	defer o.peerKeysMu.Unlock()
	o.peerKeys = make(map[string]string)
}

// GasConfig returns the current gas parameters.
func (o *Orchestrator) GasConfig() gas.Config {
	o.gasMu.RLock()
	defer o.gasMu.RUnlock()
	return o.gasCfg
}

// NetworkLoad reports the pending pool's fill ratio in [0, 1], the
// networkLoad input to every gas formula (spec §4.2).
func (o *Orchestrator) NetworkLoad() decimal.Decimal {
	n := o.Pool.Len()
	load := decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(maxPoolForFullLoad))
	if load.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return load
}

// RegisterKey associates address with its ECDSA public key, learned via
// the RPC surface's Register operation, so AddTransaction can verify
// already-signed transactions from that sender.
func (o *Orchestrator) RegisterKey(address string, pub *ecdsa.PublicKey) {
	o.keysMu.Lock()
	defer o.keysMu.Unlock()
	o.keys[address] = pub
}

// PublicKey returns the registered public key for address, if any.
func (o *Orchestrator) PublicKey(address string) (*ecdsa.PublicKey, bool) {
	o.keysMu.RLock()
	defer o.keysMu.RUnlock()
	pub, ok := o.keys[address]
	return pub, ok
}

// AddTransaction enqueues tx onto the pending pool. An unsigned
// transaction is signed (and gas-priced) with priv; an already-signed
// transaction is verified against its sender's registered public key, if
// known (spec §4.3/§4.8). A ContractDeploy must additionally clear a
// peer code-consensus vote before admission (spec §4.5's S5 scenario:
// "deploy a contract ... after consensus"); it is rejected, not queued,
// if quorum isn't reached.
func (o *Orchestrator) AddTransaction(ctx context.Context, tx *chain.Transaction, priv *ecdsa.PrivateKey) error {
	cfg := o.GasConfig()
	load := o.NetworkLoad()

	if tx.Signature == "" {
		if priv == nil {
			return fmt.Errorf("node: transaction %s has no signature and no signing key was provided", tx.ID)
		}
		if err := tx.Finalize(cfg, load, priv); err != nil {
			return fmt.Errorf("node: finalize transaction %s: %w", tx.ID, err)
		}
	} else if pub, ok := o.PublicKey(tx.Sender); ok {
		if err := tx.VerifySignature(pub); err != nil {
			return fmt.Errorf("node: reject transaction %s: %w", tx.ID, err)
		}
	}

	if tx.Type == chain.ContractDeploy && tx.IsContractDeploy() {
		if err := o.reachCodeConsensus(ctx, tx); err != nil {
			return err
		}
	}

	o.Pool.Push(tx)
	return nil
}

// reachCodeConsensus puts a ContractDeploy transaction's code to a peer
// vote via consensus.Engine.ReachCodeConsensus before it may be admitted,
// mirroring MineOnce's "no registered peers, auto-accept" fast path for
// a lone node. The code travels the wire the same way VerifyCode expects
// it (raw DEFLATE-compressed bytes, base64-encoded exactly once by the
// transport), matching the format rpcapi.Handler.VerifyCode decodes.
func (o *Orchestrator) reachCodeConsensus(ctx context.Context, tx *chain.Transaction) error {
	peers := o.Registry.Peers()
	if len(peers) == 0 {
		return nil
	}

	name := tx.ContractName()
	code, err := base64.StdEncoding.DecodeString(tx.Data)
	if err != nil {
		return fmt.Errorf("node: decode contract %q code: %w", name, err)
	}
	compressed, err := chain.CompressBytes(code)
	if err != nil {
		return fmt.Errorf("node: compress contract %q code: %w", name, err)
	}

	ok, tally := o.Consensus.ReachCodeConsensus(ctx, peers, compressed)
	if !ok {
		o.log.WithFields(logrus.Fields{"contract": name, "tally": tally}).
			Info("node: contract deploy rejected by code consensus")
		return fmt.Errorf("node: contract %q deploy rejected by code consensus (%d/%d yes)", name, tally.Yes, tally.Total)
	}
	return nil
}

// Transfer is a thin wrapper over the ledger's Transfer, using the
// orchestrator's current gas configuration and network load.
func (o *Orchestrator) Transfer(sender, recipient string, amount decimal.Decimal, info, data string, priv *ecdsa.PrivateKey) (*chain.Transaction, error) {
	return o.Ledger.Transfer(o.Pool, sender, recipient, amount, info, data, o.GasConfig(), o.NetworkLoad(), priv, o.systemKey)
}

// TransferToFile is a thin wrapper over the ledger's TransferToFile.
func (o *Orchestrator) TransferToFile(sender string, amount decimal.Decimal, priv *ecdsa.PrivateKey) (*chain.ExportBlob, error) {
	return o.Ledger.TransferToFile(o.Pool, sender, amount, o.GasConfig(), o.NetworkLoad(), priv)
}

// ImportFromFile is a thin wrapper over the ledger's
// ImportFromFileToAccount, signing the resulting Import transaction with
// the node's system key.
func (o *Orchestrator) ImportFromFile(blob *chain.ExportBlob, recipient string) (*chain.Transaction, error) {
	return o.Ledger.ImportFromFileToAccount(o.Chain, o.Pool, blob, recipient, o.GasConfig(), o.NetworkLoad(), o.systemKey)
}

// GetTransactionsByAddress returns every persisted transaction touching
// address, oldest first.
func (o *Orchestrator) GetTransactionsByAddress(address string) ([]*chain.TxRecord, error) {
	if o.Store == nil {
		return nil, fmt.Errorf("node: no store attached")
	}
	return o.Store.TransactionsForUser(address)
}

// ExecuteSmartContract looks up a deployed contract by name, loads its
// current state (from the most recent "$name" state-update transaction,
// or empty if none exists yet), and runs method against it via the
// configured ContractEvaluator. On success the evaluator's returned state
// is committed to the chain as a new state-update transaction and the
// node mines immediately so the update is durable before
// ExecuteSmartContract returns (spec §4.8: "emit a state-update
// transaction carrying the new compressed state and remine").
func (o *Orchestrator) ExecuteSmartContract(ctx context.Context, name, method string, args []byte) ([]byte, error) {
	if o.evaluator == nil {
		return nil, fmt.Errorf("node: no contract evaluator configured")
	}
	if o.Store == nil {
		return nil, fmt.Errorf("node: no store attached")
	}
	codeB64, ok := o.Store.ContractCodeByName(name)
	if !ok {
		return nil, fmt.Errorf("node: contract %q not found", name)
	}
	code, err := base64.StdEncoding.DecodeString(codeB64)
	if err != nil {
		return nil, fmt.Errorf("node: decode contract %q code: %w", name, err)
	}

	var state []byte
	if stateB64, ok := o.Chain.LatestContractState(name); ok {
		state, err = chain.DecodeCompressedBase64(stateB64)
		if err != nil {
			return nil, fmt.Errorf("node: decode contract %q state: %w", name, err)
		}
	}

	contract := &chain.Contract{Name: name, Code: code, State: state}
	newState, err := o.evaluator.Execute(contract, method, args)
	if err != nil {
		return nil, fmt.Errorf("node: execute contract %q: %w", name, err)
	}

	compressed, err := chain.EncodeCompressedBase64(newState)
	if err != nil {
		return nil, fmt.Errorf("node: compress contract %q state: %w", name, err)
	}

	cfg := o.GasConfig()
	load := o.NetworkLoad()
	tx := chain.NewTransaction(chain.ContractState, addr.System, addr.System, decimal.Zero)
	tx.Info = "$" + name
	tx.Data = compressed
	if err := tx.Finalize(cfg, load, o.systemKey); err != nil {
		return nil, fmt.Errorf("node: finalize contract %q state update: %w", name, err)
	}
	o.Pool.Push(tx)

	if err := o.MineOnce(ctx, nil); err != nil {
		o.log.WithError(err).Warn("node: failed to remine after contract execution")
	}

	return newState, nil
}

// ApplyGasConfiguration applies a GasConfiguration governance
// transaction's payload, replacing the current gas parameters wholesale
// (spec §4.2: "mutable only by a governance transaction").
func (o *Orchestrator) ApplyGasConfiguration(tx *chain.Transaction) error {
	if tx.Type != chain.GasConfiguration {
		return nil
	}
	var patch gas.Config
	if err := json.Unmarshal([]byte(tx.Data), &patch); err != nil {
		return fmt.Errorf("node: bad gas configuration payload in tx %s: %w", tx.ID, err)
	}
	o.gasMu.Lock()
	o.gasCfg = patch
	o.gasMu.Unlock()
	o.log.WithField("tx", tx.ID).Info("node: applied gas configuration update")
	return nil
}

// applyGovernanceTransactions scans a newly-installed block for
// GasConfiguration transactions and applies them, in block order.
func (o *Orchestrator) applyGovernanceTransactions(b *chain.Block) {
	for _, tx := range b.Transactions {
		if tx.Type == chain.GasConfiguration {
			if err := o.ApplyGasConfiguration(tx); err != nil {
				o.log.WithError(err).Warn("node: rejected gas configuration transaction")
			}
		}
	}
}

// installBlock appends b to the chain, persists it, rebuilds the
// ledger, and applies any governance transactions it carries. It is the
// one place all four of those steps happen together, in the fixed order
// spec §5 requires: chain, then storage, then ledger.
func (o *Orchestrator) installBlock(b *chain.Block) (bool, error) {
	ok, err := o.Chain.AddBlock(b, false, o.difficulty)
	if err != nil || !ok {
		return ok, err
	}
	if o.Store != nil && !o.Store.SaveBlock(b) {
		o.log.WithField("hash", b.Hash).Warn("node: failed to persist block to store")
	}
	o.Ledger.UpdateBalancesFromChain(o.Chain)
	o.applyGovernanceTransactions(b)
	return true, nil
}

// InstallForeignBlocks applies a batch of blocks received from a peer's
// NewBlocks message. A leading block with Nonce == -1 is the "reset
// chain" sentinel (spec §6) and is consumed, not installed.
func (o *Orchestrator) InstallForeignBlocks(blocks []*chain.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if blocks[0].Nonce == -1 {
		o.Chain.Reset(o.Chain.ChainID)
		blocks = blocks[1:]
	}
	for _, b := range blocks {
		if _, err := o.installBlock(b); err != nil {
			return fmt.Errorf("node: install foreign block: %w", err)
		}
	}
	return nil
}

// AdoptForeignChain applies spec §4.1's fork-choice rule against a
// foreign chain retrieved via ChainInfo, then re-persists and rebuilds
// the ledger if it was adopted.
func (o *Orchestrator) AdoptForeignChain(foreign *chain.Chain) (bool, error) {
	replaced, err := o.Chain.ReplaceWithForeign(foreign)
	if err != nil || !replaced {
		return replaced, err
	}
	if o.Store != nil {
		for _, b := range o.Chain.Snapshot() {
			o.Store.SaveBlock(b)
		}
	}
	o.Ledger.UpdateBalancesFromChain(o.Chain)
	return true, nil
}

// Close releases the orchestrator's background resources (connection
// pool, store, sync manager, mining loop).
func (o *Orchestrator) Close() error {
	o.StopMining()
	o.sync.Stop()
	o.ConnPool.Close()
	if o.Store != nil {
		return o.Store.Close()
	}
	return nil
}
