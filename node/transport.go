package node

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"smartxchain/chain"
	"smartxchain/secure"
	"smartxchain/wire"
)

// httpVoteRequester implements consensus.VoteRequester over the node's
// pooled HTTP clients and the secure peer channel: a "block" vote goes to
// a peer's Vote endpoint, a "code" vote (contract-deploy consensus) goes
// to its VerifyCode endpoint, per spec §4.5's split between the two.
// Errors — network failures, non-200 status, malformed JSON, a tampered
// envelope — all surface as a Go error, which the consensus engine treats
// as an abstention.
type httpVoteRequester struct {
	o    *Orchestrator
	pool *secure.ConnPool
	log  *logrus.Logger
}

func (r *httpVoteRequester) RequestVote(ctx context.Context, peerAddress, kind string, proposal []byte) (bool, error) {
	switch kind {
	case "block":
		plaintext := wire.VoteRequest{BlockB64: base64.StdEncoding.EncodeToString(proposal)}.Encode()
		reply, err := r.sendSecure(ctx, peerAddress, "/rpc/vote", []byte(plaintext))
		if err != nil {
			return false, err
		}
		return wire.DecodeVoteResponse(string(reply)).Accepted, nil
	case "code":
		plaintext := wire.VerifyCodeRequest{CompressedCodeB64: base64.StdEncoding.EncodeToString(proposal)}.Encode()
		reply, err := r.sendSecure(ctx, peerAddress, "/rpc/verifycode", []byte(plaintext))
		if err != nil {
			return false, err
		}
		return wire.DecodeVerifyCodeResponse(string(reply)).OK, nil
	default:
		return false, fmt.Errorf("node: unknown vote kind %q", kind)
	}
}

// PeerPublicKey returns peerAddress's ECDH public key, fetching it via
// the unauthenticated GetPublicKey handshake on first use and caching it
// until the peer registry's membership changes. Exported so rpcapi can
// resolve the sender of an inbound secure envelope the same way the
// outbound client side does.
func (o *Orchestrator) PeerPublicKey(ctx context.Context, peerAddress string) (string, error) {
	return ensurePeerPublicKey(ctx, o, o.ConnPool, peerAddress)
}

// ensurePeerPublicKey returns peerAddress's ECDH public key, fetching it
// via the unauthenticated GetPublicKey handshake on first use and caching
// it on the orchestrator until the peer registry's membership changes.
func ensurePeerPublicKey(ctx context.Context, o *Orchestrator, pool *secure.ConnPool, peerAddress string) (string, error) {
	if key, ok := o.cachedPeerPublicKey(peerAddress); ok {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peerAddress+"/rpc/getpublickey", nil)
	if err != nil {
		return "", fmt.Errorf("build getpublickey request: %w", err)
	}
	resp, err := pool.Client(peerAddress).Do(req)
	if err != nil {
		return "", fmt.Errorf("getpublickey request to %s: %w", peerAddress, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("getpublickey request to %s: status %d", peerAddress, resp.StatusCode)
	}

	encoded, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read getpublickey response from %s: %w", peerAddress, err)
	}
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(encoded)))
	if err != nil {
		return "", fmt.Errorf("decode getpublickey response from %s: %w", peerAddress, err)
	}
	var out wire.PublicKeyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal getpublickey response from %s: %w", peerAddress, err)
	}

	o.cachePeerPublicKey(peerAddress, out.PublicKey)
	return out.PublicKey, nil
}

// sendSecure wraps plaintext in the secure envelope of spec §4.7, POSTs
// it to peerAddress+path, and opens the reply envelope, returning the
// peer's plaintext response body.
func (r *httpVoteRequester) sendSecure(ctx context.Context, peerAddress, path string, plaintext []byte) ([]byte, error) {
	return sendSecure(ctx, r.o, r.pool, peerAddress, path, plaintext)
}

func sendSecure(ctx context.Context, o *Orchestrator, pool *secure.ConnPool, peerAddress, path string, plaintext []byte) ([]byte, error) {
	peerPubKey, err := ensurePeerPublicKey(ctx, o, pool, peerAddress)
	if err != nil {
		return nil, err
	}
	env, err := o.Channel.Seal(peerAddress, peerPubKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal request to %s: %w", peerAddress, err)
	}

	body, err := json.Marshal(wire.SecureRequest{
		PeerAddress:     o.SelfAddress(),
		SenderPublicKey: o.Channel.PublicKeyB64(),
		Envelope:        env,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal secure request to %s: %w", peerAddress, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peerAddress+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request to %s%s: %w", peerAddress, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pool.Client(peerAddress).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s%s: %w", peerAddress, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to %s%s: status %d", peerAddress, path, resp.StatusCode)
	}

	var out wire.SecureResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode secure response from %s%s: %w", peerAddress, path, err)
	}
	reply, err := o.Channel.Open(peerAddress, peerPubKey, out.Envelope)
	if err != nil {
		return nil, fmt.Errorf("open response from %s%s: %w", peerAddress, path, err)
	}
	return reply, nil
}

// fetchPeerChain retrieves peerAddress's current chain via its ChainInfo
// endpoint, used by SyncManager.SyncOnce.
func fetchPeerChain(ctx context.Context, o *Orchestrator, peerAddress string) (*chain.Chain, error) {
	request := wire.ChainInfo{ChainID: o.ChainID(), NodeAddress: o.SelfAddress()}
	plaintext, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal chaininfo request: %w", err)
	}

	reply, err := sendSecure(ctx, o, o.ConnPool, peerAddress, "/rpc/chaininfo", plaintext)
	if err != nil {
		return nil, err
	}

	var out wire.ChainInfo
	if err := json.Unmarshal(reply, &out); err != nil {
		return nil, fmt.Errorf("unmarshal chaininfo response from %s: %w", peerAddress, err)
	}
	if wire.IsErrorMessage(out.Message) {
		return nil, fmt.Errorf("chaininfo request to %s: %s", peerAddress, out.Message)
	}

	blocks, err := chain.DecodeBlocksTransport(out.Message)
	if err != nil {
		return nil, fmt.Errorf("decode chaininfo blocks from %s: %w", peerAddress, err)
	}
	return &chain.Chain{ChainID: out.ChainID, Blocks: blocks}, nil
}
