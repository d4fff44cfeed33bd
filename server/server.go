// Package server exposes the repairing parser and the strict checker over
// HTTP.
//
//	POST /v1/repair   body: text to repair   200: repaired JSON
//	POST /v1/check    body: JSON text        200: {"valid":true,"kind":"object","size":2}
//	GET  /healthz                            200: ok
//
// Failures are reported as 422 with {"class","message","position"}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lattice-substrate/json-repair/internal/log"
	"github.com/lattice-substrate/json-repair/jrerr"
	"github.com/lattice-substrate/json-repair/jrfile"
	"github.com/lattice-substrate/json-repair/jrtoken"
	"github.com/lattice-substrate/json-repair/repair"
)

// HeaderRequestID carries the request id; one is generated when absent.
const HeaderRequestID = "X-Request-Id"

// DefaultMaxBodyBytes bounds request bodies unless WithMaxBodyBytes is used.
const DefaultMaxBodyBytes = 8 * 1024 * 1024

const shutdownTimeout = 5 * time.Second

// Server serves the repair API.
type Server struct {
	router  *mux.Router
	handler http.Handler

	opts           *repair.Options
	maxBodyBytes   int64
	allowedOrigins []string
	readTimeout    time.Duration
	logger         log.Logger
}

// Option configures the Server instance.
type Option func(*Server)

// WithRepairOptions sets the parser limits used by both endpoints.
func WithRepairOptions(opts *repair.Options) Option {
	return func(s *Server) { s.opts = opts }
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = int64(n)
		}
	}
}

// WithAllowedOrigins restricts CORS origins. Empty allows all.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithReadTimeout sets the read timeout used by Serve.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithLogger overrides log.Default.
func WithLogger(l log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server. The behaviour can be tweaked via functional options.
func New(opts ...Option) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       log.Default,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	// CORS wraps the router so preflight requests never reach route
	// matching, which only knows POST and GET.
	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
	})
	s.handler = c.Handler(s.withRequestID(s.withAccessLog(s.router)))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/v1/repair", s.handleRepair).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/check", s.handleCheck).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	out, err := repair.RepairBytes(data, s.opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	topts := &jrtoken.Options{}
	if s.opts != nil {
		topts.MaxDepth = s.opts.MaxDepth
		topts.MaxInputSize = s.opts.MaxInputSize
	}
	v, err := jrtoken.ParseWithOptions(data, topts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := checkResponse{Valid: true, Kind: v.Kind.String()}
	if v.Kind == jrtoken.KindObject || v.Kind == jrtoken.KindArray {
		n := v.Len()
		resp.Size = &n
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// checkResponse describes the root value of a valid document. Size is the
// member or element count and is omitted for scalars.
type checkResponse struct {
	Valid bool   `json:"valid"`
	Kind  string `json:"kind"`
	Size  *int   `json:"size,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// readBody reads a bounded, BOM-decoded request body. On failure the
// response is already written.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Class:    jrerr.BoundExceeded,
				Message:  "request body exceeds maximum size",
				Position: -1,
			})
			return nil, false
		}
		s.writeError(w, r, jrerr.Wrap(jrerr.InternalIO, -1, "read request body", err))
		return nil, false
	}
	data, err = jrfile.Decode(data)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return data, true
}

type errorBody struct {
	Class    jrerr.Class `json:"class"`
	Message  string      `json:"message"`
	Position int         `json:"position"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var je *jrerr.Error
	if !errors.As(err, &je) {
		je = jrerr.Wrap(jrerr.InternalError, -1, "unexpected failure", err)
	}
	status := http.StatusUnprocessableEntity
	if je.Class.ExitCode() != 2 {
		status = http.StatusInternalServerError
		s.logger.Errorw("request failed", "request_id", r.Header.Get(HeaderRequestID), "error", err)
	}
	msg := je.Message
	if je.Cause != nil {
		msg += ": " + je.Cause.Error()
	}
	s.writeJSON(w, status, errorBody{Class: je.Class, Message: msg, Position: je.Position})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(HeaderRequestID, id)
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Infow("request",
			"request_id", r.Header.Get(HeaderRequestID),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
