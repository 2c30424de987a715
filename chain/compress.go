package chain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateCompress and deflateDecompress back every wire-transport blob
// (block, chain) named in spec §4.1/§6. Archive files use gzip instead
// (see archive.go); this mirrors the teacher's own split between an
// in-memory wire codec and an on-disk snapshot format.
func deflateCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate close: %w", err)
	}
	return buf.Bytes(), nil
}

func deflateDecompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out, nil
}

// EncodeBlockTransport JSON-serializes, DEFLATE-compresses and
// base64-encodes a block for the wire (spec §4.1, §6's NewBlocks
// message).
func EncodeBlockTransport(b *Block) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal block: %w", err)
	}
	compressed, err := deflateCompress(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeBlockTransport reverses EncodeBlockTransport.
func DecodeBlockTransport(s string) (*Block, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	data, err := deflateDecompress(compressed)
	if err != nil {
		return nil, err
	}
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal block: %w", err)
	}
	return &b, nil
}

// EncodeCompressedBase64 DEFLATE-compresses and base64-encodes arbitrary
// bytes, the generic "compressed base64" encoding spec §3 calls for on a
// contract deploy's code and a contract state update's Data field.
func EncodeCompressedBase64(data []byte) (string, error) {
	compressed, err := deflateCompress(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeCompressedBase64 reverses EncodeCompressedBase64.
func DecodeCompressedBase64(s string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return deflateDecompress(compressed)
}

// CompressBytes DEFLATE-compresses data without base64-encoding it, for
// callers that hand the result to a transport which applies its own
// base64 encoding downstream (the code-consensus vote proposal in
// consensus.Engine.ReachCodeConsensus, spec §4.7).
func CompressBytes(data []byte) ([]byte, error) {
	return deflateCompress(data)
}

// EncodeBlocksTransport encodes a list of blocks the same way, used for
// the ChainInfo/NewBlocks RPC payloads that carry more than one block.
func EncodeBlocksTransport(blocks []*Block) (string, error) {
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("marshal blocks: %w", err)
	}
	compressed, err := deflateCompress(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeBlocksTransport reverses EncodeBlocksTransport.
func DecodeBlocksTransport(s string) ([]*Block, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	data, err := deflateDecompress(compressed)
	if err != nil {
		return nil, err
	}
	var blocks []*Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("unmarshal blocks: %w", err)
	}
	return blocks, nil
}
