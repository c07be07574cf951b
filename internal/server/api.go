// Package server implements the HTTP API and the lifecycle of the servers
// that expose it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rsclarke/ddnsd/internal/api"
	"github.com/rsclarke/ddnsd/internal/auth"
	"github.com/rsclarke/ddnsd/internal/capability"
	"github.com/rsclarke/ddnsd/internal/ddns"
	"github.com/rsclarke/ddnsd/internal/logging"
	"github.com/rsclarke/ddnsd/internal/metrics"
	"go.uber.org/zap"
)

type contextKey string

const tokenContextKey contextKey = "token"

func tokenFrom(r *http.Request) *capability.Token {
	t, _ := r.Context().Value(tokenContextKey).(*capability.Token)
	return t
}

// APIServer serves the host and token management API.
type APIServer struct {
	Hosts  *ddns.Hosts
	Tokens *capability.Tokens
	Salt   string
	Logger *zap.Logger

	// TrustCFConnectingIP makes "sender" updates prefer the CF-Connecting-IP
	// header over the connection's remote address.
	TrustCFConnectingIP bool
	// TrustProxy rewrites the remote address from X-Forwarded-For and
	// X-Real-IP.
	TrustProxy bool
}

// Handler returns the HTTP handler for the API server.
func (s *APIServer) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if s.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(s.observe)

	r.Get("/salt", s.handleSalt)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/hosts", s.handleListHosts)
		r.Post("/hosts", s.handleCreateHost)
		r.Post("/update", s.handleUpdate)

		r.Get("/tokens", s.handleListTokens)
		r.Post("/tokens", s.handleSaveToken)
		r.Get("/tokens/me", s.handleTokenMe)
		r.Delete("/tokens/me", s.handleDeleteTokenMe)
		r.Delete("/tokens/{id}", s.handleDeleteToken)
	})

	return r
}

// authenticate resolves the bearer API key to a stored token. Requests
// without a valid key are rejected before reaching any handler.
func (s *APIServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, api.ErrUnauthorized, "")
			return
		}

		tok, err := s.Tokens.Get(r.Context(), auth.TokenID(apiKey, s.Salt))
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if tok == nil {
			writeError(w, http.StatusUnauthorized, api.ErrUnauthorized, "")
			return
		}

		ctx := context.WithValue(r.Context(), tokenContextKey, tok)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *APIServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		s.Logger.Debug("api request",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(status),
			logging.RemoteIP(r.RemoteAddr))
	})
}

func (s *APIServer) handleSalt(w http.ResponseWriter, r *http.Request) {
	key, err := auth.GenerateSaltedKey()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func (s *APIServer) handleListHosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := tokenFrom(r)

	var names []string
	if raw := r.URL.Query().Get("name"); raw != "" {
		names = strings.Split(raw, ",")
	} else {
		var err error
		if names, err = s.Hosts.Names(ctx); err != nil {
			s.internalError(w, r, err)
			return
		}
	}

	hosts, err := s.Hosts.Visible(ctx, tok, names)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	var types []ddns.RecordType
	if r.URL.Query().Get("show_ipv4") == "true" {
		types = append(types, ddns.RecordA)
	}
	if r.URL.Query().Get("show_ipv6") == "true" {
		types = append(types, ddns.RecordAAAA)
	}
	if err := s.Hosts.LoadAddresses(ctx, hosts, types...); err != nil {
		s.internalError(w, r, err)
		return
	}

	resp := api.HostsResponse{Hosts: make(map[string]ddns.HostView, len(hosts))}
	for _, h := range hosts {
		resp.Hosts[h.Name] = h.View()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleCreateHost(w http.ResponseWriter, r *http.Request) {
	if !tokenFrom(r).IsAdmin() {
		writeError(w, http.StatusForbidden, api.ErrPermissionDenied, "Only admin tokens can create hosts.")
		return
	}

	var req api.CreateHostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h, err := s.Hosts.Create(r.Context(), req.Name, req.IPv4Enabled, req.IPv6Enabled)
	switch {
	case errors.Is(err, ddns.ErrInvalidHostName):
		writeError(w, http.StatusBadRequest, api.ErrInvalidHost, "Host name is not a valid DNS name.")
		return
	case errors.Is(err, ddns.ErrOutsideZone):
		writeError(w, http.StatusBadRequest, api.ErrInvalidHost, "Host name is outside the DNS zone.")
		return
	case errors.Is(err, ddns.ErrHostExists):
		writeError(w, http.StatusBadRequest, api.ErrHostExists, "Host already exists.")
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, api.HostsResponse{Hosts: map[string]ddns.HostView{h.Name: h.View()}})
}

func (s *APIServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := tokenFrom(r)

	name := r.URL.Query().Get("name")
	if name == "" {
		name = r.URL.Query().Get("host")
	}
	if !tok.CanUpdate(name) {
		writeError(w, http.StatusForbidden, api.ErrPermissionDenied, "Permission required.")
		return
	}

	var req api.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h, err := s.Hosts.Get(ctx, name)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if h == nil {
		writeError(w, http.StatusNotFound, api.ErrHostNotFound, "Host does not exist.")
		return
	}

	ip := s.senderIP(r)
	if req.IP != nil && *req.IP != api.SenderIP {
		ip = *req.IP
	}

	outcome, err := h.UpdateIP(ctx, ip, req.Force)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if outcome.Success {
		if err := h.Save(ctx, false); err != nil {
			s.internalError(w, r, err)
			return
		}
	}

	s.Logger.Info("update processed",
		logging.Host(name),
		logging.TokenID(tok.ID),
		logging.IP(ip),
		logging.Outcome(outcome.Result()))

	writeJSON(w, http.StatusOK, api.UpdateResponse{
		Hosts:  map[string]ddns.HostView{h.Name: h.View()},
		Update: outcome,
	})
}

// senderIP returns the address the request came from.
func (s *APIServer) senderIP(r *http.Request) string {
	if s.TrustCFConnectingIP {
		if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *APIServer) handleListTokens(w http.ResponseWriter, r *http.Request) {
	if !tokenFrom(r).IsAdmin() {
		writeError(w, http.StatusForbidden, api.ErrPermissionDenied, "Only admin tokens can list tokens.")
		return
	}

	tokens, err := s.Tokens.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	resp := api.TokensResponse{Tokens: make(map[string]capability.Info, len(tokens))}
	for _, t := range tokens {
		resp.Tokens[t.ID] = t.Info()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSaveToken creates a token, or replaces the info of an existing one
// when the body carries its id.
func (s *APIServer) handleSaveToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !tokenFrom(r).IsAdmin() {
		writeError(w, http.StatusForbidden, api.ErrPermissionDenied, "Only admin tokens can create tokens.")
		return
	}

	var info map[string]any
	if !decodeJSON(w, r, &info) {
		return
	}
	if info == nil {
		writeError(w, http.StatusBadRequest, api.ErrInvalidRequest, "Token info should be an object.")
		return
	}

	var apiKey *string
	id, editing := info["id"]
	delete(info, "id")
	var tokenID string
	if editing {
		idStr, ok := id.(string)
		if !ok {
			writeError(w, http.StatusNotFound, api.ErrTokenNotFound, "")
			return
		}
		existing, err := s.Tokens.Get(ctx, idStr)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, api.ErrTokenNotFound, "")
			return
		}
		tokenID = idStr
	} else {
		key, err := auth.GenerateAPIKey()
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		apiKey = &key
		tokenID = auth.TokenID(key, s.Salt)
	}

	if errs := capability.Validate(info); errs.HasErrors() {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: api.ErrInvalidToken, Details: errs})
		return
	}

	tok, err := capability.FromInfo(tokenID, info)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if err := s.Tokens.Save(ctx, tok); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.Logger.Info("token saved", logging.TokenID(tok.ID), zap.String("type", string(tok.Type)), zap.Bool("created", !editing))
	writeJSON(w, http.StatusOK, api.CreateTokenResponse{APIKey: apiKey, TokenID: tok.ID, Info: tok.Info()})
}

func (s *APIServer) handleTokenMe(w http.ResponseWriter, r *http.Request) {
	tok := tokenFrom(r)
	writeJSON(w, http.StatusOK, api.TokensResponse{Tokens: map[string]capability.Info{tok.ID: tok.Info()}})
}

func (s *APIServer) handleDeleteTokenMe(w http.ResponseWriter, r *http.Request) {
	tok := tokenFrom(r)
	if err := s.Tokens.Delete(r.Context(), tok.ID); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.Logger.Info("token revoked itself", logging.TokenID(tok.ID))
	writeJSON(w, http.StatusOK, api.DeleteResponse{Deleted: true})
}

func (s *APIServer) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !tokenFrom(r).IsAdmin() {
		writeError(w, http.StatusForbidden, api.ErrPermissionDenied, "Only admin tokens can revoke other tokens.")
		return
	}

	id := chi.URLParam(r, "id")
	existing, err := s.Tokens.Get(ctx, id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, api.ErrTokenNotFound, "")
		return
	}
	if err := s.Tokens.Delete(ctx, id); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.Logger.Info("token revoked", logging.TokenID(id))
	writeJSON(w, http.StatusOK, api.DeleteResponse{Deleted: true})
}

func (s *APIServer) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("request failed",
		logging.Method(r.Method),
		logging.Path(r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, api.ErrInternal, "")
}

// decodeJSON strictly decodes a body of at most 64KB into v. An empty body
// leaves v untouched. It writes the error response and returns false on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, api.ErrTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, api.ErrInvalidRequest, "invalid JSON")
		return false
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		writeError(w, http.StatusBadRequest, api.ErrInvalidRequest, "unexpected trailing data")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
