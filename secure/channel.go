// Package secure implements component H: the authenticated,
// ECDH-keyed peer channel (spec §4.6). It wraps the crypto package's
// handshake and AEAD-envelope primitives with a per-peer shared-key
// cache, invalidated whenever the peer registry's membership changes, so
// a node never encrypts to a key belonging to a peer that has since been
// removed or re-registered under the same address with a new identity.
package secure

import (
	"crypto/ecdh"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"smartxchain/crypto"
	"smartxchain/peernet"
)

// DefaultSharedKeyCacheSize bounds the LRU cache; one entry per
// concurrently-active peer is typical, so a permissioned network of a
// few hundred nodes fits comfortably.
const DefaultSharedKeyCacheSize = 256

// Channel is this node's end of the secure peer channel: it owns one
// long-lived ECDH keypair and derives (and caches) a distinct shared key
// per peer.
type Channel struct {
	mu   sync.Mutex
	priv *ecdh.PrivateKey
	pub  *ecdh.PublicKey

	cache    *lru.Cache[string, []byte]
	registry *peernet.Registry
}

// NewChannel generates a fresh ECDH keypair and wires cache invalidation
// to registry's OnChange hook, if registry is non-nil.
func NewChannel(registry *peernet.Registry) (*Channel, error) {
	priv, err := crypto.GenerateECDHKeyPair()
	if err != nil {
		return nil, fmt.Errorf("secure: generate channel keypair: %w", err)
	}
	cache, err := lru.New[string, []byte](DefaultSharedKeyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("secure: create shared-key cache: %w", err)
	}
	ch := &Channel{priv: priv, pub: priv.PublicKey(), cache: cache, registry: registry}
	if registry != nil {
		registry.OnChange(ch.invalidate)
	}
	return ch, nil
}

// PublicKeyB64 is this node's ECDH public key, to be advertised to peers
// during the handshake (spec §4.6).
func (c *Channel) PublicKeyB64() string {
	return crypto.EncodeECDHPublicKey(c.pub)
}

func (c *Channel) invalidate() {
	c.cache.Purge()
}

// sharedKeyWith derives (or returns the cached) shared key for a peer,
// keyed by the peer's address rather than its public key, so a changed
// peer identity at a known address naturally falls out of the cache when
// the registry calls invalidate.
func (c *Channel) sharedKeyWith(peerAddress, peerPubKeyB64 string) ([]byte, error) {
	if key, ok := c.cache.Get(peerAddress); ok {
		return key, nil
	}

	peerPub, err := crypto.DecodeECDHPublicKey(peerPubKeyB64)
	if err != nil {
		return nil, fmt.Errorf("secure: decode peer public key: %w", err)
	}

	c.mu.Lock()
	key, err := crypto.DeriveSharedKey(c.priv, peerPub)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("secure: derive shared key: %w", err)
	}

	c.cache.Add(peerAddress, key)
	return key, nil
}

// Seal encrypts plaintext for peerAddress using the shared key derived
// (or cached) from peerPubKeyB64, returning the wire envelope.
func (c *Channel) Seal(peerAddress, peerPubKeyB64 string, plaintext []byte) (*crypto.Envelope, error) {
	key, err := c.sharedKeyWith(peerAddress, peerPubKeyB64)
	if err != nil {
		return nil, err
	}
	return crypto.Seal(key, c.PublicKeyB64(), plaintext)
}

// Open decrypts an inbound envelope from peerAddress, authenticating its
// HMAC before returning any plaintext (spec §4.6, crypto.ErrTampered on
// failure).
func (c *Channel) Open(peerAddress, peerPubKeyB64 string, env *crypto.Envelope) ([]byte, error) {
	key, err := c.sharedKeyWith(peerAddress, peerPubKeyB64)
	if err != nil {
		return nil, err
	}
	return crypto.Open(key, env)
}
