package ingress

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hfi/privacy-gateway/internal/codec"
	"github.com/hfi/privacy-gateway/internal/wrapper"
)

// ThreadKeyHeader names the request header a caller uses to pin a request
// to a thread; if absent or empty, threadid.Normalise mints a fresh,
// unpersisted thread for that single turn.
const ThreadKeyHeader = "X-Thread-Key"

// Config holds the reverse-proxy listener's settings.
type Config struct {
	// Listen is the address the TLS listener binds, e.g. ":8443".
	Listen string
	// CACertPath/CAKeyPath locate the CA used to mint this listener's leaf
	// certificate; if empty, Handler is served over plain HTTP instead
	// (useful for tests and for deployments behind an external TLS
	// terminator).
	CACertPath string
	CAKeyPath  string
}

// Handler turns a *wrapper.Wrapper into an HTTP handler: it decodes an
// incoming chat-completions style body, resolves a thread key from
// ThreadKeyHeader, drives ProcessTurn, and re-encodes the response.
type Handler struct {
	Wrapper *wrapper.Wrapper
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	env, err := codec.Decode(body)
	if err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	key := r.Header.Get(ThreadKeyHeader)

	response, err := h.Wrapper.ProcessTurn(r.Context(), key, env.Messages)
	if err != nil {
		writeError(w, err)
		return
	}

	respEnv := codec.Envelope{Messages: append(env.Messages, response), Extra: env.Extra}
	encoded, err := codec.Encode(respEnv)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(encoded); err != nil {
		log.Debug().Err(err).Msg("ingress: failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch wrapper.Code(err) {
	case "invalid_input", "missing_tool_call_id", "unsupported_entity":
		status = http.StatusBadRequest
	case "detector_unavailable", "llm_unavailable", "store_unavailable":
		status = http.StatusBadGateway
	case "integrity_error", "configuration_error":
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

// Server wraps an http.Server bound to Config, optionally terminating TLS
// via a CertManager built from Config.CACertPath/CAKeyPath.
type Server struct {
	cfg    Config
	server *http.Server
}

// New builds a Server serving handler. If cfg names a CA cert/key pair, the
// listener generates and serves a leaf certificate for its own hostname
// on-the-fly via CertManager; otherwise it serves plain HTTP.
func New(cfg Config, handler http.Handler) (*Server, error) {
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.CACertPath != "" && cfg.CAKeyPath != "" {
		certManager, err := NewCertManager(cfg.CACertPath, cfg.CAKeyPath)
		if err != nil {
			return nil, err
		}
		httpServer.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: certManager.GetCertificate,
		}
	}

	return &Server{cfg: cfg, server: httpServer}, nil
}

// Start runs the listener until it is shut down, blocking the caller.
func (s *Server) Start() error {
	if s.server.TLSConfig != nil {
		err := s.server.ListenAndServeTLS("", "")
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
