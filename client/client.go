// Package client is a Go client for the ledger node HTTP API.
package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/api"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/witness"
)

// Client connects to a ledger node via HTTP.
type Client struct {
	baseURL string       // baseURL is the node root, e.g. "http://127.0.0.1:8080"
	http    *http.Client // http performs the requests
}

// Wallet holds a worker keypair. The public key is the worker identity.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
	pubKey  ed25519.PublicKey  // pubKey is the Ed25519 public key
}

// NewClient creates a client for the node at nodeAddr ("host:port" or a full URL).
func NewClient(nodeAddr string) *Client {
	base := strings.TrimRight(nodeAddr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWallet creates a new wallet with a random Ed25519 keypair.
func NewWallet() *Wallet {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	return &Wallet{privKey: priv, pubKey: pub}
}

// WalletFromKey wraps an existing private key.
func WalletFromKey(priv ed25519.PrivateKey) *Wallet {
	return &Wallet{privKey: priv, pubKey: priv.Public().(ed25519.PublicKey)}
}

// Identity returns the wallet's ledger identity.
func (w *Wallet) Identity() protocol.Identity {
	var id protocol.Identity
	copy(id[:], w.pubKey)
	return id
}

// Health checks that the node is serving.
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil, nil)
}

// State returns the protocol state.
func (c *Client) State() (*api.StateView, error) {
	var v api.StateView
	if err := c.do(http.MethodGet, "/state", nil, nil, &v); err != nil {
		return nil, fmt.Errorf("get state:\n%w", err)
	}

	return &v, nil
}

// Worker returns the worker record of id.
func (c *Client) Worker(id protocol.Identity) (*api.WorkerView, error) {
	var v api.WorkerView
	if err := c.do(http.MethodGet, "/workers/"+id.String(), nil, nil, &v); err != nil {
		return nil, fmt.Errorf("get worker:\n%w", err)
	}

	return &v, nil
}

// SoulKey returns the reputation record of id.
func (c *Client) SoulKey(id protocol.Identity) (*api.SoulKeyView, error) {
	var v api.SoulKeyView
	if err := c.do(http.MethodGet, "/workers/"+id.String()+"/soulkey", nil, nil, &v); err != nil {
		return nil, fmt.Errorf("get soulkey:\n%w", err)
	}

	return &v, nil
}

// Balance returns the liquid token balance of id.
func (c *Client) Balance(id protocol.Identity) (uint64, error) {
	var v api.BalanceView
	if err := c.do(http.MethodGet, "/balances/"+id.String(), nil, nil, &v); err != nil {
		return 0, fmt.Errorf("get balance:\n%w", err)
	}

	return v.Balance, nil
}

// Snapshot downloads the latest compressed snapshot and its slot.
func (c *Client) Snapshot() ([]byte, uint64, error) {
	data, header, err := c.getRaw("/snapshot")
	if err != nil {
		return nil, 0, fmt.Errorf("get snapshot:\n%w", err)
	}

	slot, err := strconv.ParseUint(header.Get(api.HeaderSnapshotSlot), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("parse snapshot slot:\n%w", err)
	}

	return data, slot, nil
}

// Faucet requests amount liquid tokens for id. Only served by development nodes.
func (c *Client) Faucet(id protocol.Identity, amount uint64) (uint64, error) {
	var v api.BalanceView
	req := api.FaucetRequest{Identity: id.String(), Amount: amount}

	if err := c.do(http.MethodPost, "/faucet", nil, req, &v); err != nil {
		return 0, fmt.Errorf("faucet:\n%w", err)
	}

	return v.Balance, nil
}

// Onboard registers the wallet as a worker.
func (w *Wallet) Onboard(c *Client) error {
	if err := c.do(http.MethodPost, "/workers", w.privKey, nil, nil); err != nil {
		return fmt.Errorf("onboard:\n%w", err)
	}

	return nil
}

// Stake locks amount liquid tokens as emission collateral.
func (w *Wallet) Stake(c *Client, amount uint64) (*api.StakeResponse, error) {
	var resp api.StakeResponse
	if err := c.do(http.MethodPost, "/stake", w.privKey, api.AmountRequest{Amount: amount}, &resp); err != nil {
		return nil, fmt.Errorf("stake:\n%w", err)
	}

	return &resp, nil
}

// RecordWork submits a work claim.
func (w *Wallet) RecordWork(c *Client, t protocol.WorkType, effort uint64, metadata string) (*api.WorkResponse, error) {
	req := api.WorkRequest{WorkType: t.String(), EffortWeight: effort, Metadata: metadata}

	var resp api.WorkResponse
	if err := c.do(http.MethodPost, "/work", w.privKey, req, &resp); err != nil {
		return nil, fmt.Errorf("record work:\n%w", err)
	}

	return &resp, nil
}

// ApplyDecay charges inactivity decay to the wallet's pending balance.
func (w *Wallet) ApplyDecay(c *Client) (*api.DecayResponse, error) {
	var resp api.DecayResponse
	if err := c.do(http.MethodPost, "/decay", w.privKey, nil, &resp); err != nil {
		return nil, fmt.Errorf("apply decay:\n%w", err)
	}

	return &resp, nil
}

// Mint converts amount pending tokens using the collected witness attestations.
func (w *Wallet) Mint(c *Client, amount uint64, sigs []api.WitnessSignature) (*api.MintResponse, error) {
	req := api.MintRequest{Amount: amount, Signatures: sigs}

	var resp api.MintResponse
	if err := c.do(http.MethodPost, "/mint", w.privKey, req, &resp); err != nil {
		return nil, fmt.Errorf("mint:\n%w", err)
	}

	return &resp, nil
}

// Endorse endorses another worker.
func (w *Wallet) Endorse(c *Client, target protocol.Identity) error {
	if err := c.do(http.MethodPost, "/endorse", w.privKey, api.EndorseRequest{Target: target.String()}, nil); err != nil {
		return fmt.Errorf("endorse:\n%w", err)
	}

	return nil
}

// RecordPoolParticipation counts a multi-worker task for the wallet.
func (w *Wallet) RecordPoolParticipation(c *Client) error {
	if err := c.do(http.MethodPost, "/pool", w.privKey, nil, nil); err != nil {
		return fmt.Errorf("pool:\n%w", err)
	}

	return nil
}

// Attest signs claim with a witness key. The result is one entry of a Mint
// request. claim.Sequence must be the worker's current mint count.
func Attest(key *witness.KeyPair, id protocol.Identity, weight uint64, claim protocol.MintClaim) api.WitnessSignature {
	return api.WitnessSignature{
		Witness:   id.String(),
		Weight:    weight,
		Signature: hex.EncodeToString(key.SignMint(claim)),
		Timestamp: time.Now().Unix(),
	}
}
