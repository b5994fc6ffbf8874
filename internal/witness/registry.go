package witness

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

// Entry is a registered witness.
type Entry struct {
	PublicKey []byte // PublicKey is the compressed BLS public key
	Weight    uint64 // Weight is the maximum attestation weight of the witness
}

// Registry holds the known witnesses and verifies their attestations.
// It implements protocol.WitnessVerifier.
type Registry struct {
	mu      sync.RWMutex
	entries map[protocol.Identity]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[protocol.Identity]Entry)}
}

// Add registers or replaces a witness.
func (r *Registry) Add(id protocol.Identity, publicKey []byte, weight uint64) error {
	if len(publicKey) != PublicKeySize {
		return fmt.Errorf("invalid public key size: got %d, want %d", len(publicKey), PublicKeySize)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = Entry{PublicKey: append([]byte(nil), publicKey...), Weight: weight}

	return nil
}

// Get returns the entry of a witness.
func (r *Registry) Get(id protocol.Identity) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]

	return e, ok
}

// Len returns the number of registered witnesses.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// VerifyWitness checks that the witness is registered, claims no more than its
// registered weight, and signed the mint message for claim.
func (r *Registry) VerifyWitness(sig protocol.WitnessSignature, claim protocol.MintClaim) bool {
	e, ok := r.Get(sig.Witness)
	if !ok || sig.Weight > e.Weight {
		return false
	}

	msg := MintMessage(claim)

	return Verify(sig.Signature, msg[:], e.PublicKey)
}

// registryFile is the YAML layout of a witness registry file.
type registryFile struct {
	Witnesses []struct {
		Identity  string `yaml:"identity"`
		PublicKey string `yaml:"public_key"`
		Weight    uint64 `yaml:"weight"`
	} `yaml:"witnesses"`
}

// LoadRegistry reads a witness registry from a YAML file:
//
//	witnesses:
//	  - identity: <64 hex chars>
//	    public_key: <96 hex chars>
//	    weight: 3000
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s:\n%w", path, err)
	}

	return ParseRegistry(data)
}

// ParseRegistry decodes a YAML witness registry.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry:\n%w", err)
	}

	r := NewRegistry()

	for i, w := range f.Witnesses {
		id, err := protocol.ParseIdentity(w.Identity)
		if err != nil {
			return nil, fmt.Errorf("witness %d:\n%w", i, err)
		}

		pk, err := hex.DecodeString(w.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("witness %d public key:\n%w", i, err)
		}

		if err := r.Add(id, pk, w.Weight); err != nil {
			return nil, fmt.Errorf("witness %d:\n%w", i, err)
		}
	}

	return r, nil
}
