package wire

import "testing"

func TestVoteRequestRoundTrip(t *testing.T) {
	want := VoteRequest{BlockB64: "YmxvY2s="}
	got, ok := DecodeVoteRequest(want.Encode())
	if !ok {
		t.Fatalf("decode failed for %q", want.Encode())
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeVoteRequestRejectsWrongPrefix(t *testing.T) {
	if _, ok := DecodeVoteRequest("Register:foo|bar"); ok {
		t.Fatal("expected decode to fail for non-Vote string")
	}
}

func TestVoteResponseRoundTrip(t *testing.T) {
	accepted := VoteResponse{Accepted: true, MinerAddress: "addr-1"}
	if got := DecodeVoteResponse(accepted.Encode()); got != accepted {
		t.Fatalf("got %+v, want %+v", got, accepted)
	}

	rejected := VoteResponse{}
	if got := DecodeVoteResponse(rejected.Encode()); got != rejected {
		t.Fatalf("got %+v, want %+v", got, rejected)
	}
}

func TestRegisterRequestRoundTrip(t *testing.T) {
	want := RegisterRequest{Address: "peer.example:8080", HMACHex: "deadbeef"}
	got, ok := DecodeRegisterRequest(want.Encode())
	if !ok {
		t.Fatalf("decode failed for %q", want.Encode())
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeRegisterRequestRejectsMalformed(t *testing.T) {
	cases := []string{"Register:onlyaddress", "Register:|hmac", "Register:addr|", "Vote:xyz"}
	for _, c := range cases {
		if _, ok := DecodeRegisterRequest(c); ok {
			t.Fatalf("expected decode to fail for %q", c)
		}
	}
}

func TestComputeRegisterHMACIsDeterministicAndChainScoped(t *testing.T) {
	a := ComputeRegisterHMAC("chain-a", "addr-1")
	b := ComputeRegisterHMAC("chain-b", "addr-1")
	if a == b {
		t.Fatal("expected different chain ids to yield different hmacs")
	}
	if a != ComputeRegisterHMAC("chain-a", "addr-1") {
		t.Fatal("expected hmac to be deterministic")
	}
}

func TestVerifyCodeRequestRoundTrip(t *testing.T) {
	want := VerifyCodeRequest{CompressedCodeB64: "Y29kZQ=="}
	got, ok := DecodeVerifyCodeRequest(want.Encode())
	if !ok {
		t.Fatalf("decode failed for %q", want.Encode())
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestVerifyCodeResponseRoundTrip(t *testing.T) {
	ok := VerifyCodeResponse{OK: true}
	if got := DecodeVerifyCodeResponse(ok.Encode()); got != ok {
		t.Fatalf("got %+v, want %+v", got, ok)
	}

	failed := VerifyCodeResponse{OK: false, Reason: "bad syntax"}
	if got := DecodeVerifyCodeResponse(failed.Encode()); got != failed {
		t.Fatalf("got %+v, want %+v", got, failed)
	}
}

func TestNodesResponseRoundTrip(t *testing.T) {
	addrs := []string{"http://a", "http://b", "http://c"}
	got := DecodeNodesResponse(EncodeNodesResponse(addrs))
	if len(got) != len(addrs) {
		t.Fatalf("got %v, want %v", got, addrs)
	}
	for i := range addrs {
		if got[i] != addrs[i] {
			t.Fatalf("got %v, want %v", got, addrs)
		}
	}
}

func TestNodesResponseEmpty(t *testing.T) {
	if got := DecodeNodesResponse(""); got != nil {
		t.Fatalf("expected nil for empty string, got %v", got)
	}
}

func TestMessageHelpers(t *testing.T) {
	if !IsErrorMessage(ErrorMessage("boom")) {
		t.Fatal("expected ErrorMessage output to be recognized as an error")
	}
	if IsErrorMessage(OKMessage()) {
		t.Fatal("expected OKMessage output to not be recognized as an error")
	}
}
