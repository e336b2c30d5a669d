// Package storeserver is the remote end of the sync gateway: it keeps the
// family document as a sequence of revisions in sqlite and serves the latest
// one at /family.
package storeserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"familytree/internal/format"
	"familytree/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds an uploaded document.
const maxBodyBytes = 16 << 20

type Config struct {
	Addr string
	// DBPath is the sqlite file holding the revisions.
	DBPath string
	// Keep is the number of revisions retained after each write; 0 keeps all.
	Keep   int
	Logger *slog.Logger
}

type Server struct {
	cfg   Config
	blobs store.BlobStore
	log   *slog.Logger

	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	rejected prometheus.Counter
	docBytes prometheus.Gauge
}

func New(cfg Config) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	if cfg.DBPath == "" {
		return nil, errors.New("storeserver: db path is empty")
	}
	if cfg.Keep < 0 {
		return nil, errors.New("storeserver: keep must be >= 0")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	s := &Server{
		cfg:   cfg,
		blobs: store.BlobStore{Path: cfg.DBPath},
		log:   log,
		reg:   reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "familytree",
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Requests to /family by method and response code.",
		}, []string{"method", "code"}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: "familytree",
			Subsystem: "store",
			Name:      "rejected_documents_total",
			Help:      "Uploaded documents that failed the shape check.",
		}),
		docBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "familytree",
			Subsystem: "store",
			Name:      "document_bytes",
			Help:      "Size of the latest stored document.",
		}),
	}
	return s, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /family", s.handleGetFamily)
	mux.HandleFunc("POST /family", s.handlePostFamily)
	mux.HandleFunc("GET /family/revisions", s.handleRevisions)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Addr == "" {
		return errors.New("storeserver: addr is empty")
	}
	hs := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	s.log.Info("store server listening", "addr", s.cfg.Addr, "db", s.cfg.DBPath)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	rev, err := s.blobs.Latest(r.Context())
	switch {
	case errors.Is(err, store.ErrNoDocument):
		s.fail(w, r, http.StatusNotFound, "no family tree stored")
		return
	case err != nil:
		s.log.Error("read latest revision", "err", err)
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", `"`+rev.ID+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rev.Body)
	s.count(r, http.StatusOK)
}

func (s *Server) handlePostFamily(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if _, err := store.DecodeFamilyBytes(body); err != nil {
		s.rejected.Inc()
		s.log.Warn("rejected family document", "err", err, "bytes", len(body))
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rev, err := s.blobs.Put(r.Context(), body)
	if err != nil {
		s.log.Error("store revision", "err", err)
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if s.cfg.Keep > 0 {
		if n, err := s.blobs.Prune(r.Context(), s.cfg.Keep); err != nil {
			s.log.Warn("prune revisions", "err", err)
		} else if n > 0 {
			s.log.Debug("pruned revisions", "count", n)
		}
	}
	s.docBytes.Set(float64(rev.Size))
	s.log.Info("family document stored", "revision", rev.ID, "bytes", rev.Size)
	w.Header().Set("ETag", `"`+rev.ID+`"`)
	w.WriteHeader(http.StatusNoContent)
	s.count(r, http.StatusNoContent)
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.blobs.Revisions(r.Context(), 50)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := format.WriteJSON(w, revs, true); err != nil {
		s.log.Warn("write revisions", "err", err)
	}
	s.count(r, http.StatusOK)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	http.Error(w, msg, code)
	s.count(r, code)
}

func (s *Server) count(r *http.Request, code int) {
	s.requests.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
}
