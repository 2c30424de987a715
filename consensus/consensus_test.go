package consensus

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRequester struct {
	votes map[string]bool  // peer -> vote
	slow  map[string]bool  // peer -> exceeds deadline
	bad   map[string]bool  // peer -> returns an error (malformed reply)
}

func (f *fakeRequester) RequestVote(ctx context.Context, peerAddress, kind string, proposal []byte) (bool, error) {
	if f.bad[peerAddress] {
		return false, errors.New("malformed reply")
	}
	if f.slow[peerAddress] {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return f.votes[peerAddress], nil
}

func TestReachConsensusQuorumReached(t *testing.T) {
	req := &fakeRequester{votes: map[string]bool{
		"p1": true, "p2": true, "p3": false,
	}}
	e := NewEngine(req, 50*time.Millisecond, nil)

	ok, tally := e.ReachConsensus(context.Background(), []string{"p1", "p2", "p3"}, []byte("block"))
	if !ok {
		t.Fatalf("expected quorum reached, got tally %+v", tally)
	}
	if tally.Yes != 2 || tally.No != 1 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
}

func TestReachConsensusQuorumFailsWithoutMajority(t *testing.T) {
	req := &fakeRequester{votes: map[string]bool{
		"p1": true, "p2": false, "p3": false, "p4": false,
	}}
	e := NewEngine(req, 50*time.Millisecond, nil)

	ok, tally := e.ReachConsensus(context.Background(), []string{"p1", "p2", "p3", "p4"}, []byte("block"))
	if ok {
		t.Fatalf("expected quorum to fail, got tally %+v", tally)
	}
	if tally.Yes != 1 || tally.No != 3 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
}

func TestReachConsensusTimeoutCountsAsAbstain(t *testing.T) {
	req := &fakeRequester{
		votes: map[string]bool{"p1": true},
		slow:  map[string]bool{"p2": true, "p3": true},
	}
	e := NewEngine(req, 10*time.Millisecond, nil)

	ok, tally := e.ReachConsensus(context.Background(), []string{"p1", "p2", "p3"}, []byte("block"))
	if ok {
		t.Fatalf("expected a single yes vote out of 3 not to reach quorum, got tally %+v", tally)
	}
	if tally.Abstain != 2 {
		t.Fatalf("expected 2 abstentions from slow peers, got %+v", tally)
	}
}

func TestReachConsensusMalformedReplyCountsAsAbstainNotNo(t *testing.T) {
	req := &fakeRequester{
		votes: map[string]bool{"p1": true, "p2": true},
		bad:   map[string]bool{"p3": true},
	}
	e := NewEngine(req, 50*time.Millisecond, nil)

	ok, tally := e.ReachConsensus(context.Background(), []string{"p1", "p2", "p3"}, []byte("block"))
	if !ok {
		t.Fatalf("expected quorum from 2 yes votes out of 3, got tally %+v", tally)
	}
	if tally.Abstain != 1 || tally.No != 0 {
		t.Fatalf("expected malformed reply counted as abstain not no, got %+v", tally)
	}
}

func TestReachCodeConsensusUsesCodeKind(t *testing.T) {
	var gotKind string
	req := &recordingRequester{onVote: func(kind string) { gotKind = kind }, vote: true}
	e := NewEngine(req, 50*time.Millisecond, nil)

	ok, _ := e.ReachCodeConsensus(context.Background(), []string{"p1"}, []byte("codehash"))
	if !ok {
		t.Fatalf("expected single-peer quorum to pass")
	}
	if gotKind != "code" {
		t.Fatalf("expected kind 'code', got %q", gotKind)
	}
}

type recordingRequester struct {
	onVote func(kind string)
	vote   bool
}

func (r *recordingRequester) RequestVote(ctx context.Context, peerAddress, kind string, proposal []byte) (bool, error) {
	r.onVote(kind)
	return r.vote, nil
}

func TestQuorumFormula(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 2, 4: 3, 5: 3}
	for n, want := range cases {
		if got := Quorum(n); got != want {
			t.Fatalf("Quorum(%d) = %d, want %d", n, got, want)
		}
	}
}
