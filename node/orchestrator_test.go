package node

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"smartxchain/addr"
	"smartxchain/chain"
	"smartxchain/crypto"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	systemKey, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate system key: %v", err)
	}
	o, err := New(Config{
		ChainID:           "test-chain",
		SelfAddress:       "http://node-a.test",
		MinerAddress:      "miner-1",
		SystemKey:         systemKey,
		Difficulty:        1,
		ConsensusDeadline: 50 * time.Millisecond,
		PeerTimeout:       time.Minute,
		MaxParallelConns:  4,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestAddTransactionSignsUnsignedTx(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := chain.NewTransaction(chain.NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	if err := o.AddTransaction(context.Background(), tx, priv); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if tx.Signature == "" {
		t.Fatal("expected tx to be signed")
	}
	if o.Pool.Len() != 1 {
		t.Fatalf("expected pool len 1, got %d", o.Pool.Len())
	}
}

func TestAddTransactionRejectsUnsignedWithoutKey(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	tx := chain.NewTransaction(chain.NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	if err := o.AddTransaction(context.Background(), tx, nil); err == nil {
		t.Fatal("expected error for unsigned tx with no key")
	}
}

func TestAddTransactionVerifiesKnownSignedTx(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	o.RegisterKey("alice", &priv.PublicKey)

	tx := chain.NewTransaction(chain.NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	if err := tx.Finalize(o.GasConfig(), o.NetworkLoad(), priv); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := o.AddTransaction(context.Background(), tx, nil); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
}

func TestAddTransactionRejectsTamperedSignedTx(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	o.RegisterKey("alice", &priv.PublicKey)

	tx := chain.NewTransaction(chain.NativeTransfer, "alice", "bob", decimal.NewFromInt(10))
	if err := tx.Finalize(o.GasConfig(), o.NetworkLoad(), priv); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	tx.Amount = decimal.NewFromInt(999999)
	if err := o.AddTransaction(context.Background(), tx, nil); err == nil {
		t.Fatal("expected tampered transaction to be rejected")
	}
}

// TestAddTransactionAdmitsContractDeployWithoutPeers covers the lone-node
// fast path of the code-consensus gate: with no registered peers,
// ReachCodeConsensus is never consulted and the deploy is admitted
// straight to the pool, the same shortcut MineOnce takes for block
// consensus.
func TestAddTransactionAdmitsContractDeployWithoutPeers(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	deploy := chain.NewTransaction(chain.ContractDeploy, addr.System, addr.System, decimal.Zero)
	deploy.Info = "$$Counter"
	deploy.Data = base64.StdEncoding.EncodeToString([]byte("contract bytecode"))
	if err := deploy.Finalize(o.GasConfig(), o.NetworkLoad(), o.systemKey); err != nil {
		t.Fatalf("finalize deploy: %v", err)
	}

	if err := o.AddTransaction(context.Background(), deploy, nil); err != nil {
		t.Fatalf("AddTransaction(deploy): %v", err)
	}
	if o.Pool.Len() != 1 {
		t.Fatalf("expected pool len 1, got %d", o.Pool.Len())
	}
}

// TestAddTransactionRejectsContractDeployWithMalformedCode covers the
// gate's decode failure path: a deploy whose Data isn't valid base64
// must be rejected before it ever reaches the pool. A peer is registered
// first because a node with no peers skips the gate entirely.
func TestAddTransactionRejectsContractDeployWithMalformedCode(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	deploy := chain.NewTransaction(chain.ContractDeploy, addr.System, addr.System, decimal.Zero)
	deploy.Info = "$$Counter"
	deploy.Data = "not valid base64!!"

	if _, err := o.Registry.Add("http://peer-b.test"); err != nil {
		t.Fatalf("register peer: %v", err)
	}

	if err := o.AddTransaction(context.Background(), deploy, o.systemKey); err == nil {
		t.Fatal("expected malformed contract code to be rejected")
	}
	if o.Pool.Len() != 0 {
		t.Fatalf("expected pool to stay empty, got %d", o.Pool.Len())
	}
}

func TestApplyGasConfigurationReplacesParams(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	patch := o.GasConfig()
	patch.BaseTx = decimal.NewFromInt(999)
	data, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("marshal patch: %v", err)
	}

	tx := chain.NewTransaction(chain.GasConfiguration, addr.System, addr.System, decimal.Zero)
	tx.Data = string(data)
	if err := tx.Finalize(o.GasConfig(), o.NetworkLoad(), o.systemKey); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := o.ApplyGasConfiguration(tx); err != nil {
		t.Fatalf("ApplyGasConfiguration: %v", err)
	}
	if !o.GasConfig().BaseTx.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected BaseTx to be replaced, got %s", o.GasConfig().BaseTx)
	}
}

func TestInstallForeignBlocksConsumesResetSentinel(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	reset := chain.NewBlock("ignored", nil)
	reset.Nonce = -1

	// Resetting always produces the same deterministic genesis hash
	// (no transactions, nonce 0, previous hash "0"); mine the follow-up
	// block against that hash so it links onto the post-reset chain.
	scratch := chain.NewChain("scratch")
	scratch.Reset("scratch")
	genesisHash := scratch.Tail().Hash

	next := chain.NewBlock(genesisHash, nil)
	if err := next.Mine(1, "miner-1", "node-a", nil); err != nil {
		t.Fatalf("mine: %v", err)
	}

	if err := o.InstallForeignBlocks([]*chain.Block{reset, next}); err != nil {
		t.Fatalf("InstallForeignBlocks: %v", err)
	}
	if o.Chain.Len() != 2 {
		t.Fatalf("expected chain len 2 after reset+install, got %d", o.Chain.Len())
	}
}

func TestGetTransactionsByAddressRequiresStore(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	if _, err := o.GetTransactionsByAddress("alice"); err == nil {
		t.Fatal("expected error with no store attached")
	}
}

func buildTestTransferTx(t *testing.T, o *Orchestrator) *chain.Transaction {
	t.Helper()
	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := chain.NewTransaction(chain.NativeTransfer, "alice", "bob", decimal.NewFromInt(5))
	if err := tx.Finalize(o.GasConfig(), o.NetworkLoad(), priv); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return tx
}

func TestExecuteSmartContractRequiresEvaluatorAndStore(t *testing.T) {
	o := newTestOrchestrator(t)
	defer o.Close()

	if _, err := o.ExecuteSmartContract(context.Background(), "foo", "run", nil); err == nil {
		t.Fatal("expected error with no evaluator/store configured")
	}
}

// appendCounterEvaluator is a fake chain.ContractEvaluator that treats the
// contract's current state as a counter and increments it by one on
// every call, ignoring args and method.
type appendCounterEvaluator struct{}

func (appendCounterEvaluator) Execute(contract *chain.Contract, method string, args []byte) ([]byte, error) {
	n := 0
	if len(contract.State) > 0 {
		n = int(contract.State[0])
	}
	return []byte{byte(n + 1)}, nil
}

func TestExecuteSmartContractDeploysReadsAndUpdatesState(t *testing.T) {
	systemKey, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("generate system key: %v", err)
	}
	o, err := New(Config{
		ChainID:           "test-chain",
		SelfAddress:       "http://node-a.test",
		MinerAddress:      "miner-1",
		SystemKey:         systemKey,
		Difficulty:        0,
		ConsensusDeadline: 50 * time.Millisecond,
		PeerTimeout:       time.Minute,
		MaxParallelConns:  4,
		Logger:            testLogger(),
		Evaluator:         appendCounterEvaluator{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	dbPath := t.TempDir() + "/test.db"
	if err := o.AttachStore(dbPath); err != nil {
		t.Fatalf("AttachStore: %v", err)
	}

	deploy := chain.NewTransaction(chain.ContractDeploy, addr.System, addr.System, decimal.Zero)
	deploy.Info = "$$Counter"
	deploy.Data = base64.StdEncoding.EncodeToString([]byte("contract bytecode"))
	if err := deploy.Finalize(o.GasConfig(), o.NetworkLoad(), systemKey); err != nil {
		t.Fatalf("finalize deploy: %v", err)
	}
	// Routed through AddTransaction, not a direct Pool.Push, so the
	// deploy clears the code-consensus gate (a no-op here: this node has
	// no registered peers, so it auto-accepts, same as MineOnce's lone-
	// node fast path for block consensus).
	if err := o.AddTransaction(context.Background(), deploy, nil); err != nil {
		t.Fatalf("AddTransaction(deploy): %v", err)
	}
	if err := o.MineOnce(context.Background(), nil); err != nil {
		t.Fatalf("MineOnce: %v", err)
	}

	result, err := o.ExecuteSmartContract(context.Background(), "Counter", "increment", nil)
	if err != nil {
		t.Fatalf("ExecuteSmartContract: %v", err)
	}
	if len(result) != 1 || result[0] != 1 {
		t.Fatalf("expected counter to start at 1, got %v", result)
	}

	result, err = o.ExecuteSmartContract(context.Background(), "Counter", "increment", nil)
	if err != nil {
		t.Fatalf("ExecuteSmartContract (second call): %v", err)
	}
	if len(result) != 1 || result[0] != 2 {
		t.Fatalf("expected counter to read back prior state and reach 2, got %v", result)
	}
}
