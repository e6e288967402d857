package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/angeloszaimis/service-mesh/internal/circuitbreaker"
	"github.com/angeloszaimis/service-mesh/internal/dispatcher"
)

// DispatchHandler exposes the dispatcher over HTTP: callers POST a
// dispatch request and the handler forwards it to a healthy instance of
// the target service with circuit breaker and retry protection.
type DispatchHandler struct {
	logger     *slog.Logger
	dispatcher *dispatcher.Dispatcher
}

// DispatchRequest is the payload accepted on the dispatch endpoint.
type DispatchRequest struct {
	Service  string          `json:"service"`
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func NewDispatchHandler(logger *slog.Logger, d *dispatcher.Dispatcher) *DispatchHandler {
	return &DispatchHandler{
		logger:     logger,
		dispatcher: d,
	}
}

func (h *DispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid dispatch request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Service == "" || req.Endpoint == "" {
		http.Error(w, "service and endpoint are required", http.StatusBadRequest)
		return
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}

	h.logger.Info("Dispatching on behalf of client",
		slog.String("from", clientIP),
		slog.String("service", req.Service),
		slog.String("endpoint", req.Endpoint),
		slog.String("method", req.Method))

	var data any
	if len(req.Data) > 0 {
		if err := decodeData(req.Method, req.Data, &data); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := h.dispatcher.Send(r.Context(), req.Service, req.Endpoint, req.Method, data)
	if err != nil {
		h.writeError(w, req.Service, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}

// writeError maps the dispatcher's error taxonomy to HTTP statuses.
func (h *DispatchHandler) writeError(w http.ResponseWriter, service string, err error) {
	var unavailable *dispatcher.ServiceUnavailableError
	var exhausted *dispatcher.RetriesExhaustedError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, circuitbreaker.ErrOpen):
		status = http.StatusServiceUnavailable
	case errors.As(err, &exhausted):
		status = http.StatusBadGateway
	}

	h.logger.Warn("Dispatch failed",
		slog.String("service", service),
		slog.Any("err", err))

	http.Error(w, err.Error(), status)
}

// decodeData prepares the payload for the transport: query parameters
// for GET/DELETE, arbitrary JSON for body-carrying methods.
func decodeData(method string, raw json.RawMessage, out *any) error {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete:
		params := map[string]string{}
		if err := json.Unmarshal(raw, &params); err != nil {
			return errors.New("data must be a flat string map for " + method + " requests")
		}
		*out = params
	default:
		var body any
		if err := json.Unmarshal(raw, &body); err != nil {
			return errors.New("data must be valid JSON")
		}
		*out = body
	}
	return nil
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
