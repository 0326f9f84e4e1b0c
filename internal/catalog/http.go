package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductStore/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Store Store
	Log   *zap.Logger

	// Guard wraps the mutating routes. Nil leaves them open.
	Guard func(http.Handler) http.Handler
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusNotFound, "no such route", map[string]any{"path": r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed", map[string]any{"method": r.Method})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)

	r.Group(func(wr chi.Router) {
		if s.Guard != nil {
			wr.Use(s.Guard)
		}
		wr.Post("/products", s.create)
		wr.Patch("/products/{id}", s.update)
		wr.Delete("/products/{id}", s.delete)
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "list products failed")
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "get product failed")
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in NewProduct
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := s.Store.Create(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err, "create product failed")
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var patch Patch
	if !decodeBody(w, r, &patch) {
		return
	}

	p, err := s.Store.Update(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, r, err, "update product failed")
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err, "delete product failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *ValidationError

	switch {
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusUnprocessableEntity, "missing required fields", map[string]any{"missing": verr.Missing})
	case errors.Is(err, ErrDuplicateCode):
		kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": chi.URLParam(r, "id")})
	default:
		s.logger().Error(msg, zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

// decodeBody accepts unknown keys; an "id" in a payload is ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, ErrAmountRange) {
			kit.WriteError(w, r, http.StatusUnprocessableEntity, ErrAmountRange.Error(), map[string]any{"cause": err.Error()})
			return false
		}
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	return true
}
