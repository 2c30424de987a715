// Package consensus implements component I: the Snowman-style majority
// vote (spec §4.7). It is generalized from the teacher's core/consensus.go
// PoH+PoS engine, keeping its narrow-adapter wiring style (the teacher
// wires in txPool/networkAdapter/securityAdapter/authorityAdapter
// interfaces so the engine never imports concrete network or crypto
// types) but replacing the PoH/PoS/PoW hybrid with the single simple-
// majority vote the spec actually calls for.
package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// VoteRequester is the seam between the consensus engine and the
// transport layer: asking one peer to vote on a proposal (a block's
// bytes for ReachConsensus, a contract's DEFLATE-compressed code for
// ReachCodeConsensus) and getting back its yes/no vote. Any error —
// timeout, malformed reply, connection refused — is treated as an
// abstention, never as a "no" (spec §4.7).
type VoteRequester interface {
	RequestVote(ctx context.Context, peerAddress, kind string, proposal []byte) (bool, error)
}

// CodePolicy lets a node plug in an external static-analysis rule a peer
// applies before voting on a ContractDeploy's code. The contract source
// analyzer itself stays out of scope (Non-goals); this is only the
// boundary interface a real implementation would satisfy.
type CodePolicy interface {
	Validate(code []byte) bool
}

// Tally is the outcome of one consensus round.
type Tally struct {
	Yes     int
	No      int
	Abstain int
	Total   int
}

// Quorum is floor(n/2)+1, the number of "yes" votes spec §4.7 requires
// out of n peers for a proposal to pass.
func Quorum(n int) int {
	return n/2 + 1
}

// Engine runs consensus rounds over a fixed per-peer vote deadline.
type Engine struct {
	log       *logrus.Logger
	requester VoteRequester
	deadline  time.Duration
}

// NewEngine builds an Engine that gives each peer deadline to respond
// before counting it as an abstention.
func NewEngine(requester VoteRequester, deadline time.Duration, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{log: log, requester: requester, deadline: deadline}
}

// ReachConsensus asks every peer to vote on a mined block's bytes and
// reports whether quorum was reached.
func (e *Engine) ReachConsensus(ctx context.Context, peers []string, blockBytes []byte) (bool, Tally) {
	return e.collectVotes(ctx, peers, "block", blockBytes)
}

// ReachCodeConsensus asks every peer to vote on a contract deployment's
// code, passed as the DEFLATE-compressed code bytes.
func (e *Engine) ReachCodeConsensus(ctx context.Context, peers []string, compressedCode []byte) (bool, Tally) {
	return e.collectVotes(ctx, peers, "code", compressedCode)
}

// collectVotes fires one RequestVote per peer concurrently, each bounded
// by e.deadline, and tallies the results. Each peer contributes at most
// one vote per call — there is exactly one goroutine per peer address —
// so a peer can never be double-counted within a round (spec §4.7's
// "idempotent per-peer voting").
func (e *Engine) collectVotes(ctx context.Context, peers []string, kind string, proposal []byte) (bool, Tally) {
	type outcome struct {
		vote    bool
		abstain bool
	}

	results := make(chan outcome, len(peers))
	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peerAddress string) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, e.deadline)
			defer cancel()

			vote, err := e.requester.RequestVote(reqCtx, peerAddress, kind, proposal)
			if err != nil {
				e.log.WithFields(logrus.Fields{"peer": peerAddress, "kind": kind, "error": err}).
					Warn("consensus: peer abstained")
				results <- outcome{abstain: true}
				return
			}
			results <- outcome{vote: vote}
		}(peer)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	tally := Tally{Total: len(peers)}
	for r := range results {
		switch {
		case r.abstain:
			tally.Abstain++
		case r.vote:
			tally.Yes++
		default:
			tally.No++
		}
	}

	return tally.Yes >= Quorum(len(peers)), tally
}
