package chain

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the persistent index of spec §4.1/§7, backed by SQLite via
// the pure-Go modernc.org/sqlite driver so the module never needs cgo.
// The authoritative ordered chain lives in the in-memory Chain (and its
// on-disk dump, see SaveChainDump); Store exists for point lookups by
// hash, contract name and participating address, mirroring the teacher's
// separation between its in-memory core and its indexing layer.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) a SQLite database at path and
// runs its migration.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blocks (
	hash TEXT PRIMARY KEY,
	previous_hash TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	nonce INTEGER NOT NULL,
	smart_contracts_json TEXT NOT NULL,
	transactions_json TEXT NOT NULL,
	base64_encoded TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT NOT NULL,
	block_hash TEXT NOT NULL REFERENCES blocks(hash),
	sender TEXT NOT NULL,
	recipient TEXT NOT NULL,
	amount TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender);
CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient);
`)
	return err
}

// SaveBlock persists a mined block. Per spec §7's storage error
// handling, an I/O or encoding failure is reported via the bool return
// rather than a panic, logged with context by the caller; it never
// leaves the blocks table with only half a block's transactions, since
// the insert runs inside a single SQL transaction.
func (s *Store) SaveBlock(b *Block) bool {
	txJSON, err := json.Marshal(b.Transactions)
	if err != nil {
		return false
	}
	contractsJSON, err := json.Marshal(b.SmartContracts())
	if err != nil {
		return false
	}
	blob, err := EncodeBlockTransport(b)
	if err != nil {
		return false
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return false
	}
	defer dbTx.Rollback()

	_, err = dbTx.Exec(`INSERT OR REPLACE INTO blocks
		(hash, previous_hash, timestamp, nonce, smart_contracts_json, transactions_json, base64_encoded)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Hash, b.PreviousHash, b.Timestamp.Unix(), b.Nonce, string(contractsJSON), string(txJSON), blob)
	if err != nil {
		return false
	}

	if _, err = dbTx.Exec(`DELETE FROM transactions WHERE block_hash = ?`, b.Hash); err != nil {
		return false
	}
	for _, t := range b.Transactions {
		_, err = dbTx.Exec(`INSERT INTO transactions
			(id, block_hash, sender, recipient, amount, timestamp, data)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, b.Hash, t.Sender, t.Recipient, t.Amount.String(), t.Timestamp.Unix(), t.Data)
		if err != nil {
			return false
		}
	}

	return dbTx.Commit() == nil
}

// GetBlockByHash loads a block by its hash, decoding the stored
// base64/DEFLATE transport blob so the full block (including Issuer,
// NodeAddress and Approves, which have no dedicated columns) comes back
// intact.
func (s *Store) GetBlockByHash(hash string) (*Block, bool) {
	var blob string
	err := s.db.QueryRow(`SELECT base64_encoded FROM blocks WHERE hash = ?`, hash).Scan(&blob)
	if err != nil {
		return nil, false
	}
	b, err := DecodeBlockTransport(blob)
	if err != nil {
		return nil, false
	}
	return b, true
}

// ContractCodeByName looks up a deployed contract's base64-encoded code
// by name, scanning the persisted smart_contracts_json column for the
// block that deployed it (spec §4.1's VerifyCode/query surface).
func (s *Store) ContractCodeByName(name string) (string, bool) {
	rows, err := s.db.Query(`SELECT smart_contracts_json FROM blocks WHERE smart_contracts_json LIKE ?`, "%\""+name+"\"%")
	if err != nil {
		return "", false
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var contracts map[string]*Contract
		if err := json.Unmarshal([]byte(raw), &contracts); err != nil {
			continue
		}
		if c, ok := contracts[name]; ok {
			return base64.StdEncoding.EncodeToString(c.Code), true
		}
	}
	return "", false
}

// ContractNamesByPrefix returns every deployed contract name beginning
// with prefix, across every block.
func (s *Store) ContractNamesByPrefix(prefix string) ([]string, error) {
	rows, err := s.db.Query(`SELECT smart_contracts_json FROM blocks WHERE smart_contracts_json LIKE ?`, "%\""+prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("query contracts by prefix: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var names []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		var contracts map[string]*Contract
		if err := json.Unmarshal([]byte(raw), &contracts); err != nil {
			continue
		}
		for name := range contracts {
			if len(name) >= len(prefix) && name[:len(prefix)] == prefix && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// TxRecord is a flattened transaction row returned by
// TransactionsForUser, independent of which block it landed in.
type TxRecord struct {
	ID        string
	BlockHash string
	Sender    string
	Recipient string
	Amount    string
	Timestamp time.Time
	Data      string
}

// TransactionsForUser returns every transaction where address is sender
// or recipient, oldest first (spec §4.4's "history for an address").
func (s *Store) TransactionsForUser(address string) ([]*TxRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, block_hash, sender, recipient, amount, timestamp, data
		FROM transactions
		WHERE sender = ? OR recipient = ?
		ORDER BY timestamp ASC`, address, address)
	if err != nil {
		return nil, fmt.Errorf("query transactions for user: %w", err)
	}
	defer rows.Close()

	var out []*TxRecord
	for rows.Next() {
		var r TxRecord
		var ts int64
		if err := rows.Scan(&r.ID, &r.BlockHash, &r.Sender, &r.Recipient, &r.Amount, &ts, &r.Data); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}
