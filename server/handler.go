package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mscno/yaml2props"
	"github.com/mscno/yaml2props/pkg/properties"
	"github.com/mscno/yaml2props/pkg/yaml"
)

// DefaultMaxBodyBytes caps the size of a request body.
const DefaultMaxBodyBytes = 1 << 20

// Error kinds reported for request problems that are not conversion errors.
const (
	kindInvalidRequest = "invalid_request"
	kindTooLarge       = "too_large"
)

type Handler struct {
	logger       *slog.Logger
	cache        yaml2props.Cache
	defaults     yaml2props.Options
	maxBodyBytes int64
}

type HandlerOption func(*Handler)

// WithCache shares a conversion cache between requests.
func WithCache(cache yaml2props.Cache) HandlerOption {
	return func(h *Handler) {
		h.cache = cache
	}
}

// WithDefaults sets the options used when a request does not override them.
func WithDefaults(opts yaml2props.Options) HandlerOption {
	return func(h *Handler) {
		h.defaults = opts
	}
}

func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxBodyBytes = n
	}
}

func NewHandler(logger *slog.Logger, options ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type schemaResponse struct {
	Name string   `json:"name"`
	Safe bool     `json:"safe"`
	Tags []string `json:"tags"`
}

// Convert handles POST /v1/convert. The body is YAML and the response is the
// .properties text. The schema, safe and filename query parameters override
// the handler defaults.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	opts, err := h.requestOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, kindTooLarge,
				fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, kindInvalidRequest, err)
		return
	}

	converterOpts := []yaml2props.ConverterOption{yaml2props.WithLogger(h.logger)}
	if h.cache != nil {
		converterOpts = append(converterOpts, yaml2props.WithCache(h.cache))
	}
	c, err := yaml2props.NewConverter(opts, converterOpts...)
	if err != nil {
		h.writeConversionError(w, err)
		return
	}
	lines, err := c.Lines(data, opts.Filename)
	if err != nil {
		h.writeConversionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Property-Count", strconv.Itoa(len(lines)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(properties.Join(lines)); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}

func (h *Handler) requestOptions(r *http.Request) (yaml2props.Options, error) {
	opts := h.defaults
	q := r.URL.Query()
	if q.Has("schema") {
		opts.Schema = q.Get("schema")
	}
	if q.Has("safe") {
		safe, err := strconv.ParseBool(q.Get("safe"))
		if err != nil {
			return opts, fmt.Errorf("invalid safe parameter %q", q.Get("safe"))
		}
		opts.Unsafe = !safe
	}
	if q.Has("filename") {
		opts.Filename = q.Get("filename")
	}
	return opts, nil
}

func (h *Handler) writeConversionError(w http.ResponseWriter, err error) {
	kind := yaml2props.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case yaml2props.KindEmptyInput, yaml2props.KindParse, yaml2props.KindUnknownSchema:
		status = http.StatusBadRequest
	case yaml2props.KindSchemaViolation:
		status = http.StatusUnprocessableEntity
	default:
		h.logger.Error("conversion failed", "error", err)
	}
	writeError(w, status, string(kind), err)
}

// Schemas handles GET /v1/schemas.
func (h *Handler) Schemas(w http.ResponseWriter, r *http.Request) {
	resp := make([]schemaResponse, 0, len(yaml.Schemas()))
	for _, s := range yaml.Schemas() {
		resp = append(resp, schemaResponse{Name: s.String(), Safe: s.Safe(), Tags: s.Tags()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
