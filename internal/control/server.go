// Package control exposes a running pipeline over HTTP.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RyanBlaney/channel-detector/internal/pipeline"
)

// Controller is the part of the pipeline the server drives
type Controller interface {
	Snapshot() pipeline.Snapshot
	Config() pipeline.Config
	Retune(centerFreq float64)
}

// Status is the body of GET /status
type Status struct {
	Config   pipeline.Config   `json:"config"`
	Snapshot pipeline.Snapshot `json:"snapshot"`
}

type retuneRequest struct {
	CenterFreq *float64 `json:"center_freq"`
}

// Server serves the control endpoints
type Server struct {
	ctl     Controller
	logger  logging.Logger
	metrics http.Handler
	srv     *http.Server
}

func NewServer(ctl Controller, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Server{
		ctl:     ctl,
		metrics: promhttp.Handler(),
		logger: logger.WithFields(logging.Fields{
			"component": "control",
		}),
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/signals", s.signalsHandler)
	mux.HandleFunc("/center-freq", s.centerFreqHandler)
	mux.Handle("/metrics", s.metrics)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.ServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Control server listening", logging.Fields{
		"addr": ln.Addr().String(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("control server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, Status{
		Config:   s.ctl.Config(),
		Snapshot: s.ctl.Snapshot(),
	})
}

func (s *Server) signalsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.ctl.Snapshot().Signals)
}

func (s *Server) centerFreqHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string]float64{
			"center_freq": s.ctl.Snapshot().CenterFreq,
		})
	case http.MethodPost:
		var req retuneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if req.CenterFreq == nil {
			http.Error(w, "center_freq is required", http.StatusBadRequest)
			return
		}

		s.ctl.Retune(*req.CenterFreq)
		s.logger.Info("Retune requested", logging.Fields{
			"center_freq": *req.CenterFreq,
			"remote":      r.RemoteAddr,
		})
		s.writeJSON(w, http.StatusAccepted, map[string]float64{
			"center_freq": *req.CenterFreq,
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", logging.Fields{
			"error": err.Error(),
		})
	}
}
