// Package server exposes the sequencer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/app"
	"github.com/nnsW3/signup-sequencer/field"
)

const maxBodySize = 1 << 20

// Sequencer is the part of app.App the handlers call.
type Sequencer interface {
	InsertIdentity(ctx context.Context, commitment field.Element) (int, error)
	InclusionProof(ctx context.Context, commitment field.Element, status sequencer.Status) (*sequencer.InclusionProof, error)
	LeafProof(ctx context.Context, status sequencer.Status, leaf int) (*sequencer.InclusionProof, error)
	InclusionProofs(ctx context.Context, commitments []field.Element, status sequencer.Status) ([]app.ProofResult, error)
}

var _ Sequencer = (*app.App)(nil)

type Server struct {
	seq    Sequencer
	logger *app.Logger
	srv    *http.Server
}

// New routes the sequencer endpoints, and /metrics when gatherer is set.
func New(addr string, seq Sequencer, gatherer prometheus.Gatherer, logger *app.Logger) *Server {
	s := &Server{seq: seq, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/insertIdentity", s.insertIdentity)
	mux.HandleFunc("/inclusionProof", s.inclusionProof)
	mux.HandleFunc("/inclusionProofs", s.inclusionProofs)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks until the server stops. It returns nil after
// Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "address", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type insertIdentityRequest struct {
	IdentityCommitment field.Element `json:"identityCommitment"`
}

type insertIdentityResponse struct {
	LeafIndex int `json:"leafIndex"`
}

// inclusionProofRequest names the leaf by commitment or by index, not both.
type inclusionProofRequest struct {
	IdentityCommitment *field.Element   `json:"identityCommitment,omitempty"`
	LeafIndex          *int             `json:"leafIndex,omitempty"`
	Status             sequencer.Status `json:"status"`
}

var errProofTarget = errors.New("exactly one of identityCommitment and leafIndex is required")

type inclusionProofsRequest struct {
	IdentityCommitments []field.Element  `json:"identityCommitments"`
	Status              sequencer.Status `json:"status"`
}

type inclusionProofsEntry struct {
	IdentityCommitment field.Element             `json:"identityCommitment"`
	InclusionProof     *sequencer.InclusionProof `json:"inclusionProof,omitempty"`
	Error              string                    `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) insertIdentity(w http.ResponseWriter, r *http.Request) {
	var req insertIdentityRequest
	if !s.decode(w, r, &req) {
		return
	}
	leaf, err := s.seq.InsertIdentity(r.Context(), req.IdentityCommitment)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, insertIdentityResponse{LeafIndex: leaf})
}

func (s *Server) inclusionProof(w http.ResponseWriter, r *http.Request) {
	var req inclusionProofRequest
	if !s.decode(w, r, &req) {
		return
	}
	if (req.IdentityCommitment == nil) == (req.LeafIndex == nil) {
		s.reply(w, http.StatusBadRequest, errorResponse{Error: errProofTarget.Error()})
		return
	}
	var (
		proof *sequencer.InclusionProof
		err   error
	)
	if req.LeafIndex != nil {
		proof, err = s.seq.LeafProof(r.Context(), req.Status, *req.LeafIndex)
	} else {
		proof, err = s.seq.InclusionProof(r.Context(), *req.IdentityCommitment, req.Status)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, proof)
}

func (s *Server) inclusionProofs(w http.ResponseWriter, r *http.Request) {
	var req inclusionProofsRequest
	if !s.decode(w, r, &req) {
		return
	}
	results, err := s.seq.InclusionProofs(r.Context(), req.IdentityCommitments, req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries := make([]inclusionProofsEntry, len(results))
	for i, result := range results {
		entries[i] = inclusionProofsEntry{
			IdentityCommitment: result.Commitment,
			InclusionProof:     result.Proof,
		}
		if result.Err != nil {
			entries[i].Error = result.Err.Error()
		}
	}
	s.reply(w, http.StatusOK, entries)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.reply(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		s.reply(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "code", code, "err", err)
	}
	s.reply(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) reply(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write response", "err", err)
	}
}

func statusCode(err error) int {
	var ledgerErr *app.LedgerError
	switch {
	case errors.Is(err, sequencer.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrCommitmentNotFound), errors.Is(err, app.ErrLeafNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrDuplicateCommitment):
		return http.StatusConflict
	case errors.Is(err, app.ErrTreeFull), errors.Is(err, app.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &ledgerErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
