package chain

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// SaveArchiveBlock writes a single gzip-compressed JSON block file under
// dir, named so lexicographic directory listing preserves chain order
// (spec §4.1's optional archive validation, "<blockchain_path>/archive/
// *.gz"). Grounded on the teacher's blockchain_compression.go, which
// already gzips ledger snapshots.
func SaveArchiveBlock(dir string, index int, b *Block) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal archive block: %w", err)
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return fmt.Errorf("gzip write: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	name := fmt.Sprintf("%012d.gz", index)
	return os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600)
}

// LoadArchiveBlocks reads every *.gz file under dir in lexicographic
// order. A missing directory is not an error: it means no archive has
// been written yet.
func LoadArchiveBlocks(dir string) ([]*Block, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".gz" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	blocks := make([]*Block, 0, len(names))
	for _, name := range names {
		b, err := readArchiveFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read archive file %s: %w", name, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func readArchiveFile(path string) (*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
