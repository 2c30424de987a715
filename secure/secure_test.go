package secure

import (
	"testing"
	"time"

	"smartxchain/peernet"
)

func TestChannelSealOpenRoundTrip(t *testing.T) {
	registry := peernet.NewRegistry("http://self:8080", time.Minute, nil)
	alice, err := NewChannel(registry)
	if err != nil {
		t.Fatalf("new channel alice: %v", err)
	}
	bob, err := NewChannel(nil)
	if err != nil {
		t.Fatalf("new channel bob: %v", err)
	}

	plaintext := []byte("hello peer")
	env, err := alice.Seal("http://bob:8080", bob.PublicKeyB64(), plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	out, err := bob.Open("http://alice:8080", alice.PublicKeyB64(), env)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(out) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", out, plaintext)
	}
}

func TestChannelCacheInvalidatesOnRegistryChange(t *testing.T) {
	registry := peernet.NewRegistry("http://self:8080", time.Minute, nil)
	ch, err := NewChannel(registry)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	peer, err := NewChannel(nil)
	if err != nil {
		t.Fatalf("new channel peer: %v", err)
	}

	if _, err := ch.sharedKeyWith("http://peer:8080", peer.PublicKeyB64()); err != nil {
		t.Fatalf("derive shared key: %v", err)
	}
	if _, ok := ch.cache.Get("http://peer:8080"); !ok {
		t.Fatalf("expected shared key to be cached")
	}

	registry.Add("http://peer:8080") // triggers OnChange -> invalidate

	if _, ok := ch.cache.Get("http://peer:8080"); ok {
		t.Fatalf("expected cache to be purged after registry change")
	}
}

func TestConnPoolReusesClientAndReaps(t *testing.T) {
	cp := NewConnPool(4, 20*time.Millisecond)
	defer cp.Close()

	c1 := cp.Client("http://peer-a:8080")
	c2 := cp.Client("http://peer-a:8080")
	if c1 != c2 {
		t.Fatalf("expected same pooled client for the same address")
	}
	if cp.Stats() != 1 {
		t.Fatalf("expected 1 pooled client, got %d", cp.Stats())
	}

	time.Sleep(60 * time.Millisecond)
	if cp.Stats() != 0 {
		t.Fatalf("expected reaper to evict idle client, got %d pooled", cp.Stats())
	}
}
