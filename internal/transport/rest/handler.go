// Package rest exposes a domain.WindowStore over HTTP and provides a client that
// implements domain.WindowStore against such a server.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

const (
	basePath   = "/api/v1"
	namePrefix = "name:"
	maxBody    = 1 << 20
)

// Handler serves window rules from a store.
type Handler struct {
	store  domain.WindowStore
	logger *zap.Logger
}

// NewHandler creates a handler backed by store.
func NewHandler(store domain.WindowStore, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Router returns a configured chi router for embedding in HTTP servers.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(basePath+"/scopes/{kind}/{ref}/windows", func(api chi.Router) {
		api.Get("/", h.handleList)
		api.Post("/", h.handleCreate)
		api.Get("/{id}", h.handleGet)
		api.Patch("/{id}", h.handleModify)
		api.Delete("/{id}", h.handleDelete)
	})
	return r
}

// handleList handles GET /api/v1/scopes/{kind}/{ref}/windows
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	rules, err := h.store.ListWindows(r.Context(), scope)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := ListResponse{Windows: make([]WindowDTO, 0, len(rules)), Count: len(rules)}
	for _, rule := range rules {
		resp.Windows = append(resp.Windows, fromRule(rule))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleCreate handles POST /api/v1/scopes/{kind}/{ref}/windows
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req WindowDTO
	if err := decodeBody(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.respondError(w, domain.NewRuleError("name", req.Name, domain.ErrMissingField))
		return
	}
	rule, err := req.toRule()
	if err != nil {
		h.respondError(w, err)
		return
	}

	created, err := h.store.CreateWindow(r.Context(), scope, rule)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, fromRule(*created))
}

// handleGet handles GET /api/v1/scopes/{kind}/{ref}/windows/{id}
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	scope, id, err := scopeAndID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	rule, err := h.store.GetWindow(r.Context(), scope, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fromRule(*rule))
}

// handleModify handles PATCH /api/v1/scopes/{kind}/{ref}/windows/{id}
func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	scope, id, err := scopeAndID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req UpdateDTO
	if err := decodeBody(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		h.respondError(w, err)
		return
	}

	modified, err := h.store.ModifyWindow(r.Context(), scope, id, update)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fromRule(*modified))
}

// handleDelete handles DELETE /api/v1/scopes/{kind}/{ref}/windows/{id}
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	scope, id, err := scopeAndID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.store.DeleteWindow(r.Context(), scope, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("window store request failed", zap.Error(err))
	}
	respondJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}

// statusFor maps store and validation errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, domain.ErrUnknownEnumValue):
		return http.StatusUnprocessableEntity, "unknown_enum_value"
	case errors.Is(err, domain.ErrInvalidTimeRange):
		return http.StatusUnprocessableEntity, "invalid_time_range"
	case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrMissingIdentifier):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func scopeParam(r *http.Request) (domain.EntityScope, error) {
	kind, err := domain.ParseScopeKind(pathParam(r, "kind"))
	if err != nil {
		return domain.EntityScope{}, err
	}
	ref := pathParam(r, "ref")
	if ref == "" {
		return domain.EntityScope{}, domain.NewRuleError("scope_ref", ref, domain.ErrMissingField)
	}
	return domain.EntityScope{Kind: kind, Ref: ref}, nil
}

func scopeAndID(r *http.Request) (domain.EntityScope, domain.Identifier, error) {
	scope, err := scopeParam(r)
	if err != nil {
		return scope, domain.Identifier{}, err
	}
	id, err := parseIdentifier(pathParam(r, "id"))
	return scope, id, err
}

// parseIdentifier accepts a numeric rule id or "name:<name>".
func parseIdentifier(s string) (domain.Identifier, error) {
	if name, ok := strings.CutPrefix(s, namePrefix); ok {
		if name == "" {
			return domain.Identifier{}, domain.ErrMissingIdentifier
		}
		return domain.ByName(name), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return domain.Identifier{}, domain.NewRuleError("id", s, domain.ErrMissingIdentifier)
	}
	return domain.ByID(id), nil
}

// identifierPath renders id the way parseIdentifier reads it, escaped for a URL path.
func identifierPath(id domain.Identifier) string {
	if id.RuleID != 0 {
		return strconv.FormatInt(id.RuleID, 10)
	}
	return url.PathEscape(namePrefix + id.Name)
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
