package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

// Request authentication headers. The actor is the hex Ed25519 public key that
// is also its ledger identity.
const (
	HeaderActor     = "X-Actor"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
	HeaderRequestID = "X-Request-ID"
)

// signingDomain separates request signatures from any other use of the key.
const signingDomain = "c-protocol/api/v1"

var (
	errMissingAuth   = errors.New("missing authentication headers")
	errBadSignature  = errors.New("invalid request signature")
	errStaleRequest  = errors.New("request timestamp outside the accepted window")
	errReplayRequest = errors.New("request already processed")
)

// SigningMessage returns the digest an actor signs to authenticate a request.
// Format: domain \n method \n path \n timestamp \n nonce \n body
func SigningMessage(method, path string, timestamp int64, nonce string, body []byte) [32]byte {
	h := blake3.New()
	h.Write([]byte(signingDomain))
	h.Write([]byte{'\n'})
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte{'\n'})
	h.Write([]byte(nonce))
	h.Write([]byte{'\n'})
	h.Write(body)

	var out [32]byte
	h.Sum(out[:0])

	return out
}

// SignRequest sets the authentication headers of r for the given body.
// Every call draws a fresh nonce, so identical requests carry distinct signatures.
func SignRequest(r *http.Request, key ed25519.PrivateKey, body []byte, now time.Time) {
	ts := now.Unix()
	nonce := uuid.NewString()
	msg := SigningMessage(r.Method, r.URL.Path, ts, nonce, body)

	r.Header.Set(HeaderActor, hex.EncodeToString(key.Public().(ed25519.PublicKey)))
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	r.Header.Set(HeaderNonce, nonce)
	r.Header.Set(HeaderSignature, hex.EncodeToString(ed25519.Sign(key, msg[:])))
}

// authenticate verifies the signature headers of r against body and returns
// the actor. A signature is accepted once inside the replay window.
func (s *Server) authenticate(r *http.Request, body []byte) (protocol.Identity, error) {
	actorHex := r.Header.Get(HeaderActor)
	tsStr := r.Header.Get(HeaderTimestamp)
	nonce := r.Header.Get(HeaderNonce)
	sigHex := r.Header.Get(HeaderSignature)

	if actorHex == "" || tsStr == "" || nonce == "" || sigHex == "" {
		return protocol.Identity{}, errMissingAuth
	}

	actor, err := protocol.ParseIdentity(actorHex)
	if err != nil {
		return protocol.Identity{}, fmt.Errorf("actor:\n%w", err)
	}

	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return protocol.Identity{}, fmt.Errorf("timestamp:\n%w", err)
	}

	window := int64(s.cfg.MaxClockSkew / time.Second)
	if skew := s.now().Unix() - ts; skew > window || -skew > window {
		return protocol.Identity{}, errStaleRequest
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return protocol.Identity{}, errBadSignature
	}

	msg := SigningMessage(r.Method, r.URL.Path, ts, nonce, body)
	if !ed25519.Verify(actor[:], msg[:], sig) {
		return protocol.Identity{}, errBadSignature
	}

	if !s.replay.Check(sig) {
		return protocol.Identity{}, errReplayRequest
	}

	return actor, nil
}
