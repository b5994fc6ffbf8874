package api

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"lastSlot": s.ledger.LastSlot(),
	})
}

// handleState handles GET /state requests.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(s.ledger.State(), s.ledger.LastSlot()))
}

// handleGetWorker handles GET /workers/{id} requests.
func (s *Server) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	worker, err := s.ledger.Worker(id)
	if err != nil {
		writeOpError(w, "get worker", err)
		return
	}

	writeJSON(w, http.StatusOK, newWorkerView(worker))
}

// handleGetSoulKey handles GET /workers/{id}/soulkey requests.
func (s *Server) handleGetSoulKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sk, err := s.ledger.SoulKey(id)
	if err != nil {
		writeOpError(w, "get soulkey", err)
		return
	}

	writeJSON(w, http.StatusOK, newSoulKeyView(sk))
}

// handleGetBalance handles GET /balances/{id} requests.
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, err := s.ledger.Balance(id)
	if err != nil {
		writeOpError(w, "get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceView{Identity: id.String(), Balance: bal})
}

// handleSnapshot handles GET /snapshot requests with the latest compressed snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshots not available")
		return
	}

	data, slot := s.snapshots.Latest()
	if data == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(HeaderSnapshotSlot, formatSlot(slot))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleOnboard handles POST /workers requests.
func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request, actor protocol.Identity, _ []byte) {
	if err := s.ledger.OnboardWorker(actor); err != nil {
		writeOpError(w, "onboard", err)
		return
	}

	worker, err := s.ledger.Worker(actor)
	if err != nil {
		writeOpError(w, "onboard", err)
		return
	}

	writeJSON(w, http.StatusCreated, newWorkerView(worker))
}

// handleRecordWork handles POST /work requests.
func (s *Server) handleRecordWork(w http.ResponseWriter, r *http.Request, actor protocol.Identity, body []byte) {
	var req WorkRequest
	if err := decodeBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	wt, err := protocol.ParseWorkType(req.WorkType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := s.ledger.RecordWork(actor, protocol.WorkClaim{
		WorkType:     wt,
		EffortWeight: req.EffortWeight,
		Metadata:     req.Metadata,
	})
	if err != nil {
		writeOpError(w, "record work", err)
		return
	}

	writeJSON(w, http.StatusOK, WorkResponse{
		Worker:          ev.Worker.String(),
		WorkType:        ev.WorkType.String(),
		EffortWeight:    ev.EffortWeight,
		EmissionAmount:  ev.EmissionAmount,
		Timestamp:       ev.Timestamp,
		Slot:            ev.Slot,
		Fingerprint:     hex.EncodeToString(ev.Fingerprint[:]),
		RequiresWitness: ev.RequiresWitness,
	})
}

// handleDecay handles POST /decay requests.
func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request, actor protocol.Identity, _ []byte) {
	ev, err := s.ledger.ApplyDecay(actor)
	if err != nil {
		writeOpError(w, "apply decay", err)
		return
	}

	writeJSON(w, http.StatusOK, DecayResponse{
		Worker:           ev.Worker.String(),
		DecayAmount:      ev.DecayAmount,
		RemainingBalance: ev.RemainingBalance,
		EpochsInactive:   ev.EpochsInactive,
	})
}

// handleMint handles POST /mint requests.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request, actor protocol.Identity, body []byte) {
	var req MintRequest
	if err := decodeBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	sigs, err := parseSignatures(req.Signatures)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid signature entry: %v", err))
		return
	}

	ev, err := s.ledger.MintWithConsensus(actor, req.Amount, sigs)
	if err != nil {
		writeOpError(w, "mint", err)
		return
	}

	writeJSON(w, http.StatusOK, MintResponse{
		Worker:          ev.Worker.String(),
		Amount:          ev.Amount,
		WitnessCount:    ev.WitnessCount,
		ConsensusWeight: ev.ConsensusWeight,
		Sequence:        ev.Sequence,
	})
}

// handleStake handles POST /stake requests.
func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, actor protocol.Identity, body []byte) {
	var req AmountRequest
	if err := decodeBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	ev, err := s.ledger.StakeToEmit(actor, req.Amount)
	if err != nil {
		writeOpError(w, "stake", err)
		return
	}

	writeJSON(w, http.StatusOK, StakeResponse{
		Worker:      ev.Worker.String(),
		Amount:      ev.Amount,
		TotalStaked: ev.TotalStaked,
	})
}

// handleEndorse handles POST /endorse requests.
func (s *Server) handleEndorse(w http.ResponseWriter, r *http.Request, actor protocol.Identity, body []byte) {
	var req EndorseRequest
	if err := decodeBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	target, err := protocol.ParseIdentity(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.Endorse(actor, target); err != nil {
		writeOpError(w, "endorse", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePool handles POST /pool requests.
func (s *Server) handlePool(w http.ResponseWriter, r *http.Request, actor protocol.Identity, _ []byte) {
	if err := s.ledger.RecordPoolParticipation(actor); err != nil {
		writeOpError(w, "pool", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFaucet handles POST /faucet requests. Only routed when the faucet is enabled.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	id, err := protocol.ParseIdentity(req.Identity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Amount == 0 || (s.cfg.FaucetMax > 0 && req.Amount > s.cfg.FaucetMax) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("amount must be between 1 and %d", s.cfg.FaucetMax))
		return
	}

	if !s.limiter.Allow("faucet:"+id.String(), s.now()) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if err := s.ledger.Faucet(id, req.Amount); err != nil {
		writeOpError(w, "faucet", err)
		return
	}

	logger.Info("faucet grant", "to", id.Short(), "amount", req.Amount)

	bal, err := s.ledger.Balance(id)
	if err != nil {
		writeOpError(w, "faucet", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceView{Identity: id.String(), Balance: bal})
}
