package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMintArtifactCall(t *testing.T) {
	c := MintArtifact(DefaultPackageID, "Artifact of Might", ArtifactDescription, 0.5)
	if c.Target != DefaultPackageID+"::artifact::mint_artifact" {
		t.Fatalf("target %s", c.Target)
	}
	want := []Arg{
		{ArgString, "Artifact of Might"},
		{ArgString, "Legendary Item"},
		{ArgU64, "50"},
	}
	if len(c.Arguments) != len(want) {
		t.Fatalf("args %+v", c.Arguments)
	}
	for i := range want {
		if c.Arguments[i] != want[i] {
			t.Fatalf("arg %d = %+v; want %+v", i, c.Arguments[i], want[i])
		}
	}
	if c.GasBudget != 200000000 {
		t.Fatalf("gas budget %d", c.GasBudget)
	}

	if got := MintArtifact(DefaultPackageID, "Flow", ArtifactDescription, 10).Arguments[2].Value; got != "1000" {
		t.Fatalf("idle bonus scaled to %s", got)
	}
}

func TestSubmitScoreCall(t *testing.T) {
	c := SubmitScore(DefaultPackageID, DefaultLeaderboardID, DisplayName("neo@matrix.io"), 12345)
	if c.Target != DefaultPackageID+"::leaderboard::submit_score" {
		t.Fatalf("target %s", c.Target)
	}
	want := []Arg{
		{ArgObject, DefaultLeaderboardID},
		{ArgString, "neo"},
		{ArgU64, "12345"},
	}
	for i := range want {
		if c.Arguments[i] != want[i] {
			t.Fatalf("arg %d = %+v; want %+v", i, c.Arguments[i], want[i])
		}
	}
	if DisplayName("") != "Unknown" {
		t.Fatal("empty email should map to Unknown")
	}
}

func TestVerifyProof(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	addr := DeriveAddress(pub)
	now := time.Unix(1_700_000_000, 0)

	proof := ConnectProof{Timestamp: now.Unix(), Domain: "shake.example", Payload: GeneratePayload()}
	proof.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(priv, BuildProofMessage(addr, proof)))
	// адрес в верхнем регистре должен нормализоваться
	account := WalletAccount{Address: "0x" + strings.ToUpper(addr[2:]), PublicKey: hex.EncodeToString(pub)}

	if err := VerifyProof(account, proof, "shake.example", now.Add(time.Minute)); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}
	if err := VerifyProof(account, proof, "other.example", now); err == nil {
		t.Fatal("domain mismatch accepted")
	}
	if err := VerifyProof(account, proof, "shake.example", now.Add(ProofTTL+time.Second)); err == nil {
		t.Fatal("expired proof accepted")
	}

	otherPub, _, _ := ed25519.GenerateKey(nil)
	bad := account
	bad.PublicKey = hex.EncodeToString(otherPub)
	if err := VerifyProof(bad, proof, "shake.example", now); err == nil {
		t.Fatal("foreign public key accepted")
	}

	tampered := proof
	tampered.Payload = "something-else"
	if err := VerifyProof(account, tampered, "shake.example", now); err == nil {
		t.Fatal("tampered payload accepted")
	}
}

func TestValidateAddress(t *testing.T) {
	good := "0x" + strings.Repeat("ab", 32)
	cases := []struct {
		addr string
		want bool
	}{
		{good, true},
		{strings.ToUpper(good[2:]), false},
		{"0x1234", false},
		{"0x" + strings.Repeat("zz", 32), false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidateAddress(tc.addr); got != tc.want {
			t.Fatalf("ValidateAddress(%q) = %v; want %v", tc.addr, got, tc.want)
		}
	}
}

func TestDevSigner(t *testing.T) {
	d := NewDevSigner(0)
	wallet := "0x" + strings.Repeat("01", 32)

	res := <-d.Submit(context.Background(), wallet, SubmitScore(DefaultPackageID, DefaultLeaderboardID, "x", 1))
	if res.Err != nil || res.Receipt == nil || res.Receipt.Status != "success" {
		t.Fatalf("unexpected result %+v", res)
	}

	d.FailWith(ErrTransactionFailed)
	res = <-d.Submit(context.Background(), wallet, SubmitScore(DefaultPackageID, DefaultLeaderboardID, "x", 1))
	if !errors.Is(res.Err, ErrTransactionFailed) {
		t.Fatalf("expected failure, got %+v", res)
	}

	res = <-d.Submit(context.Background(), "not-a-wallet", Call{})
	if !errors.Is(res.Err, ErrRejected) {
		t.Fatalf("expected rejection, got %+v", res)
	}
	if len(d.Calls()) != 3 {
		t.Fatalf("calls recorded: %d", len(d.Calls()))
	}
}

func TestRelayerPollsUntilSettled(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transactions":
			if r.Header.Get("Idempotency-Key") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			var req submitRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Call.Target == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(Transaction{Digest: "d1", Status: "pending"})
		case r.Method == http.MethodGet && r.URL.Path == "/transactions/d1":
			if atomic.AddInt32(&polls, 1) < 2 {
				json.NewEncoder(w).Encode(Transaction{Digest: "d1", Status: "pending"})
				return
			}
			json.NewEncoder(w).Encode(Transaction{Digest: "d1", Status: "success"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := NewRelayer(srv.URL, "key", NetworkTestnet)
	r.pollInterval = 10 * time.Millisecond

	wallet := "0x" + strings.Repeat("0a", 32)
	res := <-r.Submit(context.Background(), wallet, MintArtifact(DefaultPackageID, "A", ArtifactDescription, 0.5))
	if res.Err != nil {
		t.Fatalf("submit: %v", res.Err)
	}
	if res.Receipt.Digest != "d1" {
		t.Fatalf("digest %s", res.Receipt.Digest)
	}
}

func TestRelayerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Transaction{Digest: "d2", Status: "failure", Error: "MoveAbort"})
	}))
	defer srv.Close()

	r := NewRelayer(srv.URL, "", NetworkTestnet)
	wallet := "0x" + strings.Repeat("0b", 32)
	res := <-r.Submit(context.Background(), wallet, Call{Target: "x"})
	if !errors.Is(res.Err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", res.Err)
	}
}
