/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"faceplate/internal/domain"
	applog "faceplate/internal/log"
	"faceplate/internal/storage"
	"faceplate/internal/version"
)

const maxDocumentBytes = 8 << 20

// MemoryDSN selects the in-memory store.
const MemoryDSN = "memory"

// Server serves the faceplate library API over a Store.
type Server struct {
	store   Store
	secret  string
	version string
	log     *slog.Logger
	now     func() time.Time
}

// NewServer builds a server. An empty secret falls back to an insecure dev
// secret and logs a warning.
func NewServer(store Store, secret string, l *slog.Logger) *Server {
	if l == nil {
		l = applog.WithComponent("backend")
	}
	if secret == "" {
		secret = "dev-secret-change-me"
		l.Warn("FPB_AUTH_SECRET not set; using insecure dev secret")
	}
	return &Server{store: store, secret: secret, version: version.String(), log: l, now: time.Now}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.version))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", s.handleToken)
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/faceplates", s.handleList)
			r.Get("/faceplates/{id}/document", s.handleGetDocument)
			r.Put("/faceplates/{id}/document", s.handlePutDocument)
		})
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("dur", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// POST /api/auth/token with optional body { "subject": "name", "ttl_seconds": 3600 }
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := s.now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: tok, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Latest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get document", err)
		return
	}
	w.Header().Set("ETag", strconv.FormatInt(p.Version, 10))
	writeJSON(w, http.StatusOK, p)
}

// PUT /api/faceplates/{id}/document publishes the body as the next version.
// An If-Match header carrying the expected current version guards against
// lost updates.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxDocumentBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("document too large"))
		return
	}
	if err := storage.ValidateManifest(body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	var doc domain.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if doc.ID != id {
		writeError(w, http.StatusBadRequest, fmt.Errorf("document id %q does not match path %q", doc.ID, id))
		return
	}
	base := int64(-1)
	if m := strings.Trim(r.Header.Get("If-Match"), "\" "); m != "" {
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid If-Match: %w", err))
			return
		}
		base = v
	}
	ver, err := s.store.Publish(r.Context(), doc, base, Subject(r.Context()))
	if err != nil {
		s.fail(w, "publish", err)
		return
	}
	s.log.Info("published", slog.String("faceplate", id), slog.Int64("version", ver), slog.String("by", Subject(r.Context())))
	w.Header().Set("ETag", strconv.FormatInt(ver, 10))
	writeJSON(w, http.StatusOK, PublishResponse{ID: id, Version: ver})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err)
	default:
		applog.WithOperation(s.log, op).Error("store failure", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// Start opens the store and serves until ctx is cancelled. A DBURL of
// "memory" serves from a MemStore.
func Start(ctx context.Context, cfg Config) error {
	l := applog.WithComponent("backend")
	var store Store
	if cfg.DBURL == MemoryDSN {
		l.Warn("serving from in-memory store; data is lost on exit")
		store = NewMemStore()
	} else {
		pg, err := OpenPG(ctx, cfg.DBURL, l)
		if err != nil {
			return err
		}
		defer func() {
			if err := pg.Close(); err != nil {
				l.Warn("db close", slog.Any("err", err))
			}
		}()
		store = pg
	}
	srv := NewServer(store, cfg.Secret, l)
	if cfg.Version != "" {
		srv.version = cfg.Version
	}
	hs := &http.Server{Addr: cfg.Addr, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	l.Info("faceplated listening", slog.String("addr", cfg.Addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(sctx)
	}
}

// TokenResponse is the body of POST /api/auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// PublishResponse is the body of a successful PUT.
type PublishResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
