package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CloudNativeWorks/hwlicense/hwlicense"
	"github.com/CloudNativeWorks/hwlicense/hwlicense/recordstore"
	"github.com/CloudNativeWorks/hwlicense/metrics"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler serves license validation over HTTP. A nil store means the record
// store could not be reached at startup; every validation then answers 503.
type Handler struct {
	store     recordstore.RecordStore
	validator *hwlicense.Validator
	log       *slog.Logger
	today     func() time.Time
	metrics   *metrics.MetricsServer
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock sets the source of "today". Default: time.Now.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.today = now
	}
}

// WithMetrics counts validation outcomes on m.
func WithMetrics(m *metrics.MetricsServer) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a Handler. store may be nil.
func NewHandler(store recordstore.RecordStore, log *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		store: store,
		log:   log,
		today: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if store != nil {
		h.validator = hwlicense.NewValidator(store, hwlicense.WithLogger(log))
	}
	return h
}

// StoreReady reports whether the record store is configured and reachable.
func (h *Handler) StoreReady(ctx context.Context) error {
	if h.store == nil {
		return errStoreMissing
	}
	return h.store.Ping(ctx)
}

var errStoreMissing = errors.New("record store not connected")

// HandleStatus reports that the server is up.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "License server online"})
}

// HandleValidate validates {key, hwid} and answers with the outcome or an
// error envelope.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if h.validator == nil {
		h.observe(metrics.OutcomeUnavailable)
		writeError(w, http.StatusServiceUnavailable, hwlicense.ErrorDetail{
			Code:    hwlicense.CodeUnavailable,
			Message: "Service unavailable: could not connect to the database.",
		})
		return
	}

	var req hwlicense.ValidateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		h.observe(metrics.OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, hwlicense.ErrorDetail{
			Code:    hwlicense.CodeBadRequest,
			Message: "Invalid request body.",
		})
		return
	}

	h.log.Info("validation request", "key", req.Key)
	h.log.Debug("validation request hwid", "key", req.Key, "hwid", req.HWID)

	out, err := h.validator.Validate(r.Context(), req.Key, req.HWID, h.today())
	if err != nil {
		h.writeValidationError(w, req.Key, err)
		return
	}

	if out.KeyType == hwlicense.KeyTypePermanent {
		h.observe(metrics.OutcomePermanent)
	} else {
		h.observe(metrics.OutcomeTrial)
	}
	writeJSON(w, http.StatusOK, hwlicense.NewValidateResponse(out))
}

func (h *Handler) writeValidationError(w http.ResponseWriter, key string, err error) {
	var expired *hwlicense.ExpiredError
	switch {
	case errors.Is(err, hwlicense.ErrInvalidInput):
		h.observe(metrics.OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, hwlicense.ErrorDetail{
			Code:    hwlicense.CodeBadRequest,
			Message: "Both key and hwid are required.",
		})
	case errors.Is(err, hwlicense.ErrLicenseNotFound):
		h.observe(metrics.OutcomeNotFound)
		writeError(w, http.StatusNotFound, hwlicense.ErrorDetail{
			Code:    hwlicense.CodeNotFound,
			Message: "License key not found.",
		})
	case errors.Is(err, hwlicense.ErrHardwareMismatch):
		h.observe(metrics.OutcomeHWIDMismatch)
		writeError(w, http.StatusForbidden, hwlicense.ErrorDetail{
			Code:    hwlicense.CodeHWIDMismatch,
			Message: "This key is bound to another machine.",
		})
	case errors.As(err, &expired):
		h.observe(metrics.OutcomeExpired)
		date := recordstore.FormatDate(expired.ExpirationDate)
		writeError(w, http.StatusForbidden, hwlicense.ErrorDetail{
			Code:           hwlicense.CodeExpired,
			Message:        fmt.Sprintf("License expired on %s.", date),
			ExpirationDate: date,
		})
	default:
		h.observe(metrics.OutcomeUnavailable)
		h.log.Error("validation failed", "key", key, "err", err)
		writeError(w, http.StatusServiceUnavailable, hwlicense.ErrorDetail{
			Code:    hwlicense.CodeUnavailable,
			Message: "Service unavailable: the license database did not answer.",
		})
	}
}

func (h *Handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveValidation(outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail hwlicense.ErrorDetail) {
	writeJSON(w, status, hwlicense.ErrorBody{Error: detail})
}
