package api

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/engine"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/storage"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/witness"
)

var _ Ledger = (*engine.Engine)(nil)

// fakeSnapshots serves a fixed snapshot.
type fakeSnapshots struct {
	data []byte
	slot uint64
}

func (f *fakeSnapshots) Latest() ([]byte, uint64) { return f.data, f.slot }

type testServer struct {
	server   *Server
	engine   *engine.Engine
	clock    *engine.ManualClock
	registry *witness.Registry
}

// newTestServer wires a server to an engine over temporary storage.
func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts := &testServer{
		clock:    engine.NewManualClock(time.Now().Unix()),
		registry: witness.NewRegistry(),
	}

	ts.engine, err = engine.Open(db, engine.Config{
		Params:   protocol.DefaultParams(),
		Verifier: ts.registry,
		Clock:    ts.clock,
	})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}

	ts.server = New(cfg, ts.engine, &fakeSnapshots{data: []byte("snap"), slot: 9})
	t.Cleanup(func() { ts.server.Stop() })

	return ts
}

func newKey(t *testing.T, seed byte) ed25519.PrivateKey {
	t.Helper()
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
}

func identityOf(key ed25519.PrivateKey) protocol.Identity {
	var id protocol.Identity
	copy(id[:], key.Public().(ed25519.PublicKey))
	return id
}

// do sends a request through the full handler chain. A nil key sends it unsigned.
func (ts *testServer) do(t *testing.T, key ed25519.PrivateKey, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if key != nil {
		SignRequest(req, key, raw, time.Now())
	}

	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}

	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	w := ts.do(t, nil, "GET", "/health", nil)
	expectStatus(t, w, http.StatusOK)

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}

	if _, err := uuid.Parse(w.Header().Get(HeaderRequestID)); err != nil {
		t.Errorf("missing request id: %v", err)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	id := uuid.NewString()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderRequestID, id)
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}

func TestWorkerLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Faucet = true
	ts := newTestServer(t, cfg)

	key := newKey(t, 1)
	id := identityOf(key)

	w := ts.do(t, key, "POST", "/workers", nil)
	expectStatus(t, w, http.StatusCreated)

	if view := decode[WorkerView](t, w); view.ID != id.String() {
		t.Errorf("id = %s", view.ID)
	}

	w = ts.do(t, nil, "POST", "/faucet", FaucetRequest{Identity: id.String(), Amount: 1_000_000})
	expectStatus(t, w, http.StatusOK)

	w = ts.do(t, key, "POST", "/stake", AmountRequest{Amount: 1_000_000})
	expectStatus(t, w, http.StatusOK)

	if resp := decode[StakeResponse](t, w); resp.TotalStaked != 1_000_000 {
		t.Errorf("total staked = %d", resp.TotalStaked)
	}

	w = ts.do(t, key, "POST", "/work", WorkRequest{WorkType: "WriteCode", EffortWeight: 100, Metadata: "auth module"})
	expectStatus(t, w, http.StatusOK)

	work := decode[WorkResponse](t, w)
	if work.EmissionAmount != 2_000_000 || work.WorkType != "WriteCode" || work.RequiresWitness {
		t.Errorf("work = %+v", work)
	}

	w = ts.do(t, nil, "GET", "/workers/"+id.String(), nil)
	expectStatus(t, w, http.StatusOK)

	view := decode[WorkerView](t, w)
	if view.PendingTokens != 2_000_000 || len(view.WorkHistory) != 1 || view.WorkHistory[0].WorkType != "WriteCode" {
		t.Errorf("worker = %+v", view)
	}

	w = ts.do(t, nil, "GET", "/workers/"+id.String()+"/soulkey", nil)
	expectStatus(t, w, http.StatusOK)

	sk := decode[SoulKeyView](t, w)
	if sk.TotalWorkCompleted != 1 || sk.DominantWorkType != "WriteCode" || sk.EvolutionLevel != 1 {
		t.Errorf("soulkey = %+v", sk)
	}

	w = ts.do(t, nil, "GET", "/state", nil)
	expectStatus(t, w, http.StatusOK)

	if st := decode[StateView](t, w); st.TotalWorkRecorded != 1 || st.TotalTokensEmitted != 2_000_000 {
		t.Errorf("state = %+v", st)
	}
}

func TestRecordWorkErrors(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	key := newKey(t, 1)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"unknown worker", WorkRequest{WorkType: "WriteCode", EffortWeight: 100}, http.StatusNotFound},
		{"unknown type", WorkRequest{WorkType: "Painting", EffortWeight: 100}, http.StatusBadRequest},
		{"empty body", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, ts.do(t, key, "POST", "/work", tt.body), tt.want)
		})
	}

	// Onboarded but not staked
	expectStatus(t, ts.do(t, key, "POST", "/workers", nil), http.StatusCreated)

	w := ts.do(t, key, "POST", "/work", WorkRequest{WorkType: "WriteCode", EffortWeight: 100})
	expectStatus(t, w, http.StatusForbidden)
}

func TestDuplicateOnboard(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	key := newKey(t, 1)

	expectStatus(t, ts.do(t, key, "POST", "/workers", nil), http.StatusCreated)
	expectStatus(t, ts.do(t, key, "POST", "/workers", nil), http.StatusConflict)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	key := newKey(t, 1)
	other := newKey(t, 2)

	t.Run("missing headers", func(t *testing.T) {
		expectStatus(t, ts.do(t, nil, "POST", "/workers", nil), http.StatusUnauthorized)
	})

	t.Run("wrong signer", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/workers", nil)
		SignRequest(req, key, nil, time.Now())
		req.Header.Set(HeaderActor, hex.EncodeToString(other.Public().(ed25519.PublicKey)))

		w := httptest.NewRecorder()
		ts.server.Handler().ServeHTTP(w, req)
		expectStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("tampered body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/stake", bytes.NewReader([]byte(`{"amount":2}`)))
		SignRequest(req, key, []byte(`{"amount":1}`), time.Now())

		w := httptest.NewRecorder()
		ts.server.Handler().ServeHTTP(w, req)
		expectStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/workers", nil)
		SignRequest(req, key, nil, time.Now().Add(-time.Hour))

		w := httptest.NewRecorder()
		ts.server.Handler().ServeHTTP(w, req)
		expectStatus(t, w, http.StatusUnauthorized)
	})
}

func TestReplayRejected(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	key := newKey(t, 1)

	req := httptest.NewRequest("POST", "/workers", nil)
	SignRequest(req, key, nil, time.Now())

	first := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(first, req)
	expectStatus(t, first, http.StatusCreated)

	replay := httptest.NewRequest("POST", "/workers", nil)
	replay.Header = req.Header.Clone()

	second := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(second, replay)
	expectStatus(t, second, http.StatusConflict)

	if ts.server.replay.Len() != 1 {
		t.Errorf("replay guard holds %d entries", ts.server.replay.Len())
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	ts := newTestServer(t, cfg)

	key := newKey(t, 1)

	expectStatus(t, ts.do(t, key, "POST", "/decay", nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, key, "POST", "/decay", nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, key, "POST", "/decay", nil), http.StatusTooManyRequests)

	// Other actors have their own budget
	expectStatus(t, ts.do(t, newKey(t, 2), "POST", "/decay", nil), http.StatusNotFound)
}

func TestFaucetDisabledByDefault(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	id := identityOf(newKey(t, 1))

	w := ts.do(t, nil, "POST", "/faucet", FaucetRequest{Identity: id.String(), Amount: 1})
	if w.Code == http.StatusOK {
		t.Fatal("faucet served while disabled")
	}
}

func TestFaucetCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Faucet = true
	cfg.FaucetMax = 100
	ts := newTestServer(t, cfg)

	id := identityOf(newKey(t, 1))

	expectStatus(t, ts.do(t, nil, "POST", "/faucet", FaucetRequest{Identity: id.String(), Amount: 101}), http.StatusBadRequest)
	expectStatus(t, ts.do(t, nil, "POST", "/faucet", FaucetRequest{Identity: id.String(), Amount: 0}), http.StatusBadRequest)

	w := ts.do(t, nil, "POST", "/faucet", FaucetRequest{Identity: id.String(), Amount: 100})
	expectStatus(t, w, http.StatusOK)

	if bal := decode[BalanceView](t, w); bal.Balance != 100 {
		t.Errorf("balance = %d", bal.Balance)
	}

	w = ts.do(t, nil, "GET", "/balances/"+id.String(), nil)
	expectStatus(t, w, http.StatusOK)
}

func TestMintEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Faucet = true
	ts := newTestServer(t, cfg)

	wa, err := witness.KeyFromSeed(bytes.Repeat([]byte{0xA1}, 32))
	if err != nil {
		t.Fatal(err)
	}
	wb, err := witness.KeyFromSeed(bytes.Repeat([]byte{0xA2}, 32))
	if err != nil {
		t.Fatal(err)
	}

	ida, idb := protocol.Identity{0xA1}, protocol.Identity{0xA2}
	ts.registry.Add(ida, wa.PublicKeyBytes(), 3000)
	ts.registry.Add(idb, wb.PublicKeyBytes(), 3500)

	key := newKey(t, 1)
	id := identityOf(key)

	expectStatus(t, ts.do(t, key, "POST", "/workers", nil), http.StatusCreated)
	expectStatus(t, ts.do(t, nil, "POST", "/faucet", FaucetRequest{Identity: id.String(), Amount: 1_000_000}), http.StatusOK)
	expectStatus(t, ts.do(t, key, "POST", "/stake", AmountRequest{Amount: 1_000_000}), http.StatusOK)
	expectStatus(t, ts.do(t, key, "POST", "/work", WorkRequest{WorkType: "WriteCode", EffortWeight: 100}), http.StatusOK)

	sig := func(id protocol.Identity, k *witness.KeyPair, weight uint64) WitnessSignature {
		return WitnessSignature{
			Witness:   id.String(),
			Weight:    weight,
			Signature: hex.EncodeToString(k.SignMint(protocol.MintClaim{Worker: identityOf(key), Amount: 500_000})),
		}
	}

	w := ts.do(t, key, "POST", "/mint", MintRequest{Amount: 500_000, Signatures: []WitnessSignature{sig(ida, wa, 3000)}})
	expectStatus(t, w, http.StatusForbidden)

	full := MintRequest{
		Amount:     500_000,
		Signatures: []WitnessSignature{sig(ida, wa, 3000), sig(idb, wb, 3500)},
	}

	w = ts.do(t, key, "POST", "/mint", full)
	expectStatus(t, w, http.StatusOK)

	if resp := decode[MintResponse](t, w); resp.Amount != 500_000 || resp.ConsensusWeight != 6500 || resp.WitnessCount != 2 {
		t.Errorf("mint = %+v", resp)
	}

	// A freshly signed request cannot reuse the consumed attestations
	expectStatus(t, ts.do(t, key, "POST", "/mint", full), http.StatusUnprocessableEntity)

	w = ts.do(t, nil, "GET", "/balances/"+id.String(), nil)
	if bal := decode[BalanceView](t, w); bal.Balance != 500_000 {
		t.Errorf("balance = %d", bal.Balance)
	}

	w = ts.do(t, nil, "GET", "/workers/"+id.String(), nil)
	if view := decode[WorkerView](t, w); view.MintCount != 1 {
		t.Errorf("mint count = %d, want 1", view.MintCount)
	}

	bad := MintRequest{Amount: 1, Signatures: []WitnessSignature{{Witness: "zz", Signature: "00"}}}
	expectStatus(t, ts.do(t, key, "POST", "/mint", bad), http.StatusBadRequest)
}

func TestEndorseAndPoolEndpoints(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	a, b := newKey(t, 1), newKey(t, 2)

	expectStatus(t, ts.do(t, a, "POST", "/workers", nil), http.StatusCreated)
	expectStatus(t, ts.do(t, b, "POST", "/workers", nil), http.StatusCreated)

	target := identityOf(b).String()
	expectStatus(t, ts.do(t, a, "POST", "/endorse", EndorseRequest{Target: target}), http.StatusOK)
	expectStatus(t, ts.do(t, a, "POST", "/endorse", EndorseRequest{Target: identityOf(a).String()}), http.StatusBadRequest)
	expectStatus(t, ts.do(t, b, "POST", "/pool", nil), http.StatusOK)

	w := ts.do(t, nil, "GET", "/workers/"+target+"/soulkey", nil)
	sk := decode[SoulKeyView](t, w)
	if sk.CommunityEndorsements != 1 || sk.PoolParticipationCount != 1 {
		t.Errorf("soulkey = %+v", sk)
	}
}

func TestGetErrors(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	expectStatus(t, ts.do(t, nil, "GET", "/workers/nothex", nil), http.StatusBadRequest)
	expectStatus(t, ts.do(t, nil, "GET", "/workers/"+protocol.Identity{7}.String(), nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, nil, "GET", "/workers/"+protocol.Identity{7}.String()+"/soulkey", nil), http.StatusNotFound)
}

func TestSnapshotEndpoint(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	w := ts.do(t, nil, "GET", "/snapshot", nil)
	expectStatus(t, w, http.StatusOK)

	if w.Body.String() != "snap" || w.Header().Get(HeaderSnapshotSlot) != "9" {
		t.Errorf("snapshot = %q at %q", w.Body.String(), w.Header().Get(HeaderSnapshotSlot))
	}

	ts.server.snapshots = &fakeSnapshots{}
	expectStatus(t, ts.do(t, nil, "GET", "/snapshot", nil), http.StatusServiceUnavailable)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{engine.ErrWorkerNotFound, http.StatusNotFound},
		{protocol.ErrTaskCooldownActive, http.StatusConflict},
		{protocol.ErrInsufficientConsensus, http.StatusForbidden},
		{protocol.ErrInvalidWitnessSignature, http.StatusUnprocessableEntity},
		{protocol.ErrMathOverflow, http.StatusUnprocessableEntity},
		{http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
