package witness

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

func testKey(t *testing.T, b byte) *KeyPair {
	t.Helper()

	seed := bytes.Repeat([]byte{b}, 32)
	k, err := KeyFromSeed(seed)
	if err != nil {
		t.Fatalf("key from seed: %v", err)
	}

	return k
}

// TestSignVerify tests basic sign and verify.
func TestSignVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sig := key.Sign([]byte("attest"))
	if len(sig) != SignatureSize {
		t.Errorf("signature size: got %d, want %d", len(sig), SignatureSize)
	}

	if !Verify(sig, []byte("attest"), key.PublicKeyBytes()) {
		t.Error("valid signature should verify")
	}

	if Verify(sig, []byte("other"), key.PublicKeyBytes()) {
		t.Error("signature should not verify with wrong message")
	}

	if Verify(sig[:10], []byte("attest"), key.PublicKeyBytes()) {
		t.Error("truncated signature should not verify")
	}
}

// TestDeriveFromED25519 tests that derivation is deterministic.
func TestDeriveFromED25519(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{3}, 32))

	k1, err := DeriveFromED25519(priv)
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := DeriveFromED25519(priv)

	if !bytes.Equal(k1.PublicKeyBytes(), k2.PublicKeyBytes()) {
		t.Error("same identity should derive the same key")
	}
}

func TestKeyFromShortSeed(t *testing.T) {
	if _, err := KeyFromSeed(make([]byte, 16)); err == nil {
		t.Error("short seed should fail")
	}
}

func TestMintMessageBindsClaim(t *testing.T) {
	base := protocol.MintClaim{Worker: protocol.Identity{1}, Amount: 100}

	other := base
	other.Amount = 101
	if MintMessage(base) == MintMessage(other) {
		t.Error("amount not bound")
	}

	other = base
	other.Worker = protocol.Identity{2}
	if MintMessage(base) == MintMessage(other) {
		t.Error("worker not bound")
	}

	other = base
	other.Sequence = 1
	if MintMessage(base) == MintMessage(other) {
		t.Error("sequence not bound")
	}

	if MintMessage(base) != MintMessage(base) {
		t.Error("message not deterministic")
	}
}

func TestRegistryVerifyWitness(t *testing.T) {
	key := testKey(t, 9)
	witness := protocol.Identity{0xAA}
	worker := protocol.Identity{0x01}

	r := NewRegistry()
	if err := r.Add(witness, key.PublicKeyBytes(), 3000); err != nil {
		t.Fatal(err)
	}

	claim := protocol.MintClaim{Worker: worker, Amount: 500}
	good := protocol.WitnessSignature{Witness: witness, Weight: 3000, Signature: key.SignMint(claim)}
	if !r.VerifyWitness(good, claim) {
		t.Fatal("valid attestation rejected")
	}

	tests := []struct {
		name  string
		sig   protocol.WitnessSignature
		claim protocol.MintClaim
	}{
		{"other amount", good, protocol.MintClaim{Worker: worker, Amount: 501}},
		{"other worker", good, protocol.MintClaim{Worker: protocol.Identity{0x02}, Amount: 500}},
		{"next sequence", good, protocol.MintClaim{Worker: worker, Amount: 500, Sequence: 1}},
		{"weight above registered", protocol.WitnessSignature{Witness: witness, Weight: 3001, Signature: good.Signature}, claim},
		{"unknown witness", protocol.WitnessSignature{Witness: protocol.Identity{0xBB}, Weight: 1, Signature: good.Signature}, claim},
		{"wrong signer", protocol.WitnessSignature{Witness: witness, Weight: 1, Signature: testKey(t, 8).SignMint(claim)}, claim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r.VerifyWitness(tt.sig, tt.claim) {
				t.Error("attestation should be rejected")
			}
		})
	}
}

func TestRegistryAddRejectsBadKey(t *testing.T) {
	if err := NewRegistry().Add(protocol.Identity{1}, []byte{1, 2, 3}, 10); err == nil {
		t.Error("short public key should be rejected")
	}
}

func TestLoadRegistry(t *testing.T) {
	k1 := testKey(t, 1)
	k2 := testKey(t, 2)
	id1 := protocol.Identity{0x11}
	id2 := protocol.Identity{0x22}

	content := fmt.Sprintf(`witnesses:
  - identity: %s
    public_key: %s
    weight: 3000
  - identity: %s
    public_key: %s
    weight: 3500
`, id1, hex.EncodeToString(k1.PublicKeyBytes()), id2, hex.EncodeToString(k2.PublicKeyBytes()))

	path := filepath.Join(t.TempDir(), "witnesses.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}

	e, ok := r.Get(id2)
	if !ok || e.Weight != 3500 || !bytes.Equal(e.PublicKey, k2.PublicKeyBytes()) {
		t.Errorf("entry = %+v", e)
	}
}

func TestParseRegistryErrors(t *testing.T) {
	bad := []string{
		"witnesses: [",
		"witnesses:\n  - identity: zz\n    public_key: 00\n",
		fmt.Sprintf("witnesses:\n  - identity: %s\n    public_key: 0011\n", protocol.Identity{1}),
	}

	for _, content := range bad {
		if _, err := ParseRegistry([]byte(content)); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

// TestRegistryWithMintGate runs the consensus gate against real BLS attestations.
func TestRegistryWithMintGate(t *testing.T) {
	worker := protocol.NewWorker(protocol.Identity{0x01}, 0)
	worker.PendingTokens = 2_000_000

	r := NewRegistry()
	k1, k2 := testKey(t, 1), testKey(t, 2)
	r.Add(protocol.Identity{0x11}, k1.PublicKeyBytes(), 3000)
	r.Add(protocol.Identity{0x22}, k2.PublicKeyBytes(), 3500)

	p := protocol.New(protocol.Initialize(), protocol.WithVerifier(r), protocol.WithTokenLedger(nopLedger{}))

	claim := protocol.MintClaim{Worker: worker.ID, Amount: 500_000, Sequence: worker.MintCount}
	sigs := []protocol.WitnessSignature{
		{Witness: protocol.Identity{0x11}, Weight: 3000, Signature: k1.SignMint(claim)},
		{Witness: protocol.Identity{0x22}, Weight: 3500, Signature: k2.SignMint(claim)},
	}

	if _, err := p.MintWithConsensus(worker, 500_000, sigs); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if worker.PendingTokens != 1_500_000 {
		t.Errorf("pending = %d", worker.PendingTokens)
	}

	// The same attestations cannot authorize a second mint
	for i := 0; i < 4; i++ {
		if _, err := p.MintWithConsensus(worker, 500_000, sigs); !errors.Is(err, protocol.ErrInvalidWitnessSignature) {
			t.Fatalf("resubmission %d: err = %v, want ErrInvalidWitnessSignature", i, err)
		}
	}

	if worker.TotalTokensMinted != 500_000 || worker.PendingTokens != 1_500_000 {
		t.Errorf("minted = %d, pending = %d", worker.TotalTokensMinted, worker.PendingTokens)
	}
}

type nopLedger struct{}

func (nopLedger) Mint(protocol.Identity, uint64) error                        { return nil }
func (nopLedger) Transfer(protocol.Identity, protocol.Identity, uint64) error { return nil }
