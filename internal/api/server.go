package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/engine"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/soulkey"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/token"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 64 << 10 // 64 KB

	// HeaderSnapshotSlot carries the slot of a snapshot download.
	HeaderSnapshotSlot = "X-Snapshot-Slot"
)

// Ledger is the set of engine operations served over HTTP.
type Ledger interface {
	OnboardWorker(actor protocol.Identity) error
	RecordWork(actor protocol.Identity, claim protocol.WorkClaim) (protocol.WorkRecorded, error)
	ApplyDecay(actor protocol.Identity) (protocol.TokensDecayed, error)
	MintWithConsensus(actor protocol.Identity, amount uint64, sigs []protocol.WitnessSignature) (protocol.TokensMinted, error)
	StakeToEmit(actor protocol.Identity, amount uint64) (protocol.WorkerStaked, error)
	Endorse(actor, target protocol.Identity) error
	RecordPoolParticipation(actor protocol.Identity) error
	Faucet(id protocol.Identity, amount uint64) error

	Worker(id protocol.Identity) (*protocol.Worker, error)
	SoulKey(id protocol.Identity) (*soulkey.SoulKey, error)
	Balance(id protocol.Identity) (uint64, error)
	State() protocol.State
	LastSlot() uint64
}

// SnapshotProvider exposes the latest compressed snapshot.
type SnapshotProvider interface {
	Latest() (data []byte, slot uint64)
}

// Config configures the HTTP server.
type Config struct {
	Addr         string        // Addr is the HTTP listen address
	MaxClockSkew time.Duration // MaxClockSkew bounds the request timestamp drift
	RateLimit    float64       // RateLimit is the per-actor request rate in requests per second
	RateBurst    int           // RateBurst is the per-actor burst size
	Faucet       bool          // Faucet enables POST /faucet
	FaucetMax    uint64        // FaucetMax caps a single faucet grant
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		MaxClockSkew: time.Minute,
		RateLimit:    5,
		RateBurst:    20,
		FaucetMax:    10_000_000,
	}
}

// Server is the HTTP API server.
type Server struct {
	cfg       Config           // cfg is the server configuration
	ledger    Ledger           // ledger executes operations
	snapshots SnapshotProvider // snapshots serves GET /snapshot, may be nil
	replay    *replayGuard     // replay rejects reused request signatures
	limiter   *keyedLimiter    // limiter bounds the request rate per actor
	handler   http.Handler     // handler is the routed middleware chain
	server    *http.Server     // server is the underlying HTTP server
	now       func() time.Time
}

// New creates a new HTTP API server.
func New(cfg Config, ledger Ledger, snapshots SnapshotProvider) *Server {
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = DefaultConfig().MaxClockSkew
	}

	s := &Server{
		cfg:       cfg,
		ledger:    ledger,
		snapshots: snapshots,
		limiter:   newKeyedLimiter(cfg.RateLimit, cfg.RateBurst),
		now:       time.Now,
	}

	// A signature stays replayable for the whole window on both sides of now
	s.replay = newReplayGuard(2*cfg.MaxClockSkew, s.clock)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /workers/{id}", s.handleGetWorker)
	mux.HandleFunc("GET /workers/{id}/soulkey", s.handleGetSoulKey)
	mux.HandleFunc("GET /balances/{id}", s.handleGetBalance)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	mux.HandleFunc("POST /workers", s.authed(s.handleOnboard))
	mux.HandleFunc("POST /work", s.authed(s.handleRecordWork))
	mux.HandleFunc("POST /decay", s.authed(s.handleDecay))
	mux.HandleFunc("POST /mint", s.authed(s.handleMint))
	mux.HandleFunc("POST /stake", s.authed(s.handleStake))
	mux.HandleFunc("POST /endorse", s.authed(s.handleEndorse))
	mux.HandleFunc("POST /pool", s.authed(s.handlePool))

	if cfg.Faucet {
		mux.HandleFunc("POST /faucet", s.handleFaucet)
	}

	s.handler = withRequestID(mux)

	return s
}

// clock indirects through s.now so tests can move time after construction.
func (s *Server) clock() time.Time {
	return s.now()
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.cfg.Addr, "faucet", s.cfg.Faucet)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	defer s.replay.Close()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// actorHandler serves an authenticated request whose body has been read.
type actorHandler func(w http.ResponseWriter, r *http.Request, actor protocol.Identity, body []byte)

// authed reads the body, authenticates the actor and applies its rate limit.
func (s *Server) authed(h actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		actor, err := s.authenticate(r, body)
		if errors.Is(err, errReplayRequest) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if !s.limiter.Allow(actor.String(), s.now()) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		h(w, r, actor, body)
	}
}

// withRequestID tags every request with an ID, echoed in the response and
// attached to the request log line.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		logger.Debug("http request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			logger.Timed(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrWorkerNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrWorkerExists),
		errors.Is(err, protocol.ErrTaskCooldownActive):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSelfEndorsement),
		errors.Is(err, protocol.ErrUnknownWorkType):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrInsufficientStake),
		errors.Is(err, protocol.ErrInsufficientConsensus),
		errors.Is(err, protocol.ErrWitnessNotEligible):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrInvalidWitnessSignature),
		errors.Is(err, protocol.ErrMathOverflow),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeOpError writes the status for err, hiding internal errors behind a generic message.
func writeOpError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("operation failed", "op", op, "error", err)
		writeError(w, status, "internal error")
		return
	}

	writeError(w, status, err.Error())
}

// decodeBody unmarshals a required JSON body.
func decodeBody(body []byte, v any) error {
	if len(body) == 0 {
		return fmt.Errorf("empty body")
	}

	return json.Unmarshal(body, v)
}

// pathIdentity parses the {id} path value.
func pathIdentity(r *http.Request) (protocol.Identity, error) {
	return protocol.ParseIdentity(r.PathValue("id"))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// formatSlot renders a slot header value.
func formatSlot(slot uint64) string {
	return strconv.FormatUint(slot, 10)
}

// readJSON reads and unmarshals a bounded request body.
func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}

	return decodeBody(body, v)
}
