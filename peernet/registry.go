// Package peernet implements component G: the node's peer registry.
// Generalized from the teacher's core/peer_management.go, dropping its
// libp2p host/pubsub plumbing (this system is a flat, HTTP-addressable
// permissioned fabric, not a libp2p swarm, per spec §2/§6) while keeping
// its mutex-guarded map-of-peers shape and its "advertise then discover"
// posture.
package peernet

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Info is what the registry tracks about one peer: its address, when it
// was last seen alive, and an optional cached ECDH shared key set through
// SetSharedKey.
type Info struct {
	Address   string
	LastSeen  time.Time
	SharedKey []byte
}

// Registry is the mutex-guarded peer table of spec §4.5/§5. Self's own
// address is never added, matching the teacher's convention of excluding
// the local node from its own peer list.
type Registry struct {
	mu      sync.RWMutex
	self    string
	timeout time.Duration
	peers   map[string]*Info
	log     *logrus.Logger

	onChangeMu sync.Mutex
	onChange   []func()
}

// NewRegistry builds a registry that excludes selfAddress and considers
// a peer dead once it hasn't been touched in timeout (spec §6's
// node.timeout_seconds, default 120s).
func NewRegistry(selfAddress string, timeout time.Duration, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		self:    selfAddress,
		timeout: timeout,
		peers:   make(map[string]*Info),
		log:     log,
	}
}

// validatePeerURL rejects anything that isn't an absolute http(s) URL,
// the discovered-peer validation spec §4.5 calls for before a peer is
// trusted enough to register.
func validatePeerURL(address string) error {
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("peernet: invalid peer address %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("peernet: peer address %q must be http or https", address)
	}
	if u.Host == "" {
		return fmt.Errorf("peernet: peer address %q missing host", address)
	}
	return nil
}

// Add registers address as alive, ignoring self-registration attempts.
// Returns false (with an error) if address fails URL validation.
func (r *Registry) Add(address string) (bool, error) {
	if address == r.self {
		return false, nil
	}
	if err := validatePeerURL(address); err != nil {
		return false, err
	}

	r.mu.Lock()
	_, existed := r.peers[address]
	r.peers[address] = &Info{Address: address, LastSeen: time.Now()}
	r.mu.Unlock()

	if !existed {
		r.log.WithField("peer", address).Info("peernet: registered new peer")
		r.notifyChanged()
	}
	return true, nil
}

// Touch refreshes a known peer's last-seen time, a no-op if the peer is
// not registered.
func (r *Registry) Touch(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.peers[address]; ok {
		info.LastSeen = time.Now()
	}
}

// Remove drops a peer from the registry.
func (r *Registry) Remove(address string) {
	r.mu.Lock()
	_, existed := r.peers[address]
	delete(r.peers, address)
	r.mu.Unlock()
	if existed {
		r.log.WithField("peer", address).Info("peernet: removed peer")
		r.notifyChanged()
	}
}

// CachedSharedKey returns the cached ECDH shared key for a peer, if any.
func (r *Registry) CachedSharedKey(address string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.peers[address]
	if !ok || info.SharedKey == nil {
		return nil, false
	}
	return info.SharedKey, true
}

// SetSharedKey caches a derived shared key against a registered peer; it
// is a no-op for an unknown address. The secure package keeps its own
// shared-key cache and does not call it.
func (r *Registry) SetSharedKey(address string, key []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.peers[address]; ok {
		info.SharedKey = key
	}
}

// Peers returns a snapshot of every currently-registered, non-expired
// peer address.
func (r *Registry) Peers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := time.Now().Add(-r.timeout)
	out := make([]string, 0, len(r.peers))
	for addr, info := range r.peers {
		if info.LastSeen.After(cutoff) {
			out = append(out, addr)
		}
	}
	return out
}

// Len reports the number of live peers, the same set Peers returns.
func (r *Registry) Len() int {
	return len(r.Peers())
}

// SweepExpired removes every peer whose last-seen time is older than the
// registry's timeout and returns the addresses removed. It's the
// liveness sweep spec §4.5 describes; the Nodes RPC handler runs it
// before listing peers.
func (r *Registry) SweepExpired() []string {
	cutoff := time.Now().Add(-r.timeout)

	r.mu.Lock()
	var expired []string
	for addr, info := range r.peers {
		if info.LastSeen.Before(cutoff) {
			expired = append(expired, addr)
			delete(r.peers, addr)
		}
	}
	r.mu.Unlock()

	if len(expired) > 0 {
		r.log.WithField("count", len(expired)).Info("peernet: swept expired peers")
		r.notifyChanged()
	}
	return expired
}

// OnChange registers a callback fired whenever the registry's membership
// changes (add, remove, or sweep). Used by secure.Channel's shared-key
// LRU cache and the node orchestrator's peer public-key cache to
// invalidate state tied to peer identity.
func (r *Registry) OnChange(fn func()) {
	r.onChangeMu.Lock()
	defer r.onChangeMu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func (r *Registry) notifyChanged() {
	r.onChangeMu.Lock()
	callbacks := make([]func(), len(r.onChange))
	copy(callbacks, r.onChange)
	r.onChangeMu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}
