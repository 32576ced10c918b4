// Package orders exposes the order-intake pipeline over HTTP.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"cg/internal/core"
	"cg/pkg/orderapi"
)

// Submitter is the intake surface consumed by the HTTP handler.
type Submitter interface {
	Submit(ctx context.Context, raw []byte, typ orderapi.OrderType) (*core.SubmissionResult, error)
	OrderTypes() []orderapi.OrderType
}

// Handler routes order submissions to the intake service.
type Handler struct {
	Service Submitter
	// MaxBodyBytes caps accepted payload size; zero means the default 8 MiB.
	MaxBodyBytes int64
}

// NewHandler constructs an order intake HTTP handler.
func NewHandler(s Submitter) *Handler {
	return &Handler{Service: s}
}

const defaultMaxBodyBytes = 8 << 20

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "order service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "/api/v1/orders/types":
		h.handleListTypes(w)
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/api/v1/orders/"):
		h.handleSubmit(w, r, strings.TrimPrefix(path, "/api/v1/orders/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"order_types": h.Service.OrderTypes()})
}

type violationPayload struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, rawType string) {
	typ := orderapi.OrderType(rawType)
	if typ.Family() == "" {
		writeError(w, http.StatusNotFound, "unknown order type "+rawType)
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	result, err := h.Service.Submit(r.Context(), payload, typ)
	if err != nil {
		var malformed orderapi.MalformedOrderError
		if errors.As(err, &malformed) {
			writeError(w, http.StatusBadRequest, malformed.Error())
			return
		}
		var rejected core.OrderError
		if errors.As(err, &rejected) {
			violations := make([]violationPayload, 0, len(rejected.Violations))
			for _, v := range rejected.Violations {
				violations = append(violations, violationPayload{
					Rule:     v.Rule,
					Severity: string(v.Severity),
					Message:  v.Message,
					EntityID: v.EntityID,
				})
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":      "order rejected",
				"violations": violations,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"result": result})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
