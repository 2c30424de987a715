package peernet

import (
	"testing"
	"time"
)

func TestRegistryAddExcludesSelf(t *testing.T) {
	r := NewRegistry("http://self:8080", time.Minute, nil)
	ok, err := r.Add("http://self:8080")
	if err != nil {
		t.Fatalf("add self: %v", err)
	}
	if ok {
		t.Fatalf("expected self-registration to be rejected")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryAddRejectsInvalidURL(t *testing.T) {
	r := NewRegistry("http://self:8080", time.Minute, nil)
	if _, err := r.Add("not-a-url"); err == nil {
		t.Fatalf("expected validation error for malformed peer address")
	}
	if _, err := r.Add("ftp://peer:21"); err == nil {
		t.Fatalf("expected validation error for non-http(s) scheme")
	}
}

func TestRegistryAddAndPeers(t *testing.T) {
	r := NewRegistry("http://self:8080", time.Minute, nil)
	if _, err := r.Add("http://peer-a:8080"); err != nil {
		t.Fatalf("add peer-a: %v", err)
	}
	if _, err := r.Add("http://peer-b:8080"); err != nil {
		t.Fatalf("add peer-b: %v", err)
	}
	peers := r.Peers()
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
}

func TestRegistrySweepExpired(t *testing.T) {
	r := NewRegistry("http://self:8080", time.Millisecond, nil)
	r.Add("http://peer-a:8080")
	time.Sleep(5 * time.Millisecond)

	expired := r.SweepExpired()
	if len(expired) != 1 || expired[0] != "http://peer-a:8080" {
		t.Fatalf("expected peer-a to be swept, got %v", expired)
	}
	if r.Len() != 0 {
		t.Fatalf("expected registry empty after sweep, got %d", r.Len())
	}
}

func TestRegistryOnChangeFiresOnAddRemoveAndSweep(t *testing.T) {
	r := NewRegistry("http://self:8080", time.Millisecond, nil)
	calls := 0
	r.OnChange(func() { calls++ })

	r.Add("http://peer-a:8080")
	if calls != 1 {
		t.Fatalf("expected 1 callback after Add, got %d", calls)
	}

	r.Remove("http://peer-a:8080")
	if calls != 2 {
		t.Fatalf("expected 2 callbacks after Remove, got %d", calls)
	}

	r.Add("http://peer-b:8080")
	time.Sleep(5 * time.Millisecond)
	r.SweepExpired()
	if calls != 4 {
		t.Fatalf("expected 4 callbacks after Add+sweep, got %d", calls)
	}
}

func TestRegistrySharedKeyCache(t *testing.T) {
	r := NewRegistry("http://self:8080", time.Minute, nil)
	r.Add("http://peer-a:8080")

	if _, ok := r.CachedSharedKey("http://peer-a:8080"); ok {
		t.Fatalf("expected no cached key before SetSharedKey")
	}
	r.SetSharedKey("http://peer-a:8080", []byte("shared-secret"))
	key, ok := r.CachedSharedKey("http://peer-a:8080")
	if !ok || string(key) != "shared-secret" {
		t.Fatalf("expected cached shared key, got %q ok=%v", key, ok)
	}
}
