// Package http exposes the random generator over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/artpar/qrng/app"
	"github.com/artpar/qrng/domain/hexmath"
	"github.com/artpar/qrng/pkg/jsonapi"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Request limits.
const (
	MaxHexLength  = 4096
	MaxIterations = 10000
	MaxItems      = 10000
	maxBodyBytes  = 1 << 20
)

// itemsRequest is the body of the choice and shuffle endpoints.
type itemsRequest struct {
	Items []json.RawMessage `json:"items"`
}

// RandomHandler serves draws from a generator.
type RandomHandler struct {
	gen    *app.Generator
	logger zerolog.Logger
}

// NewRandomHandler creates a handler backed by gen.
func NewRandomHandler(gen *app.Generator, logger zerolog.Logger) *RandomHandler {
	return &RandomHandler{gen: gen, logger: logger}
}

// Integer handles GET /v1/integer?min=&max=.
func (h *RandomHandler) Integer(w http.ResponseWriter, r *http.Request) {
	min, ok := optionalInt(w, r, "min")
	if !ok {
		return
	}
	max, ok := optionalInt(w, r, "max")
	if !ok {
		return
	}

	v, err := h.gen.Integer(r.Context(), min, max)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := jsonapi.NewResource("integer", middleware.GetReqID(r.Context())).Attr("value", v)
	if min != nil {
		res.Attr("min", *min)
	}
	if max != nil {
		res.Attr("max", *max)
	}
	jsonapi.WriteResource(w, http.StatusOK, res.Build())
}

// Hex handles GET /v1/hex?length=.
func (h *RandomHandler) Hex(w http.ResponseWriter, r *http.Request) {
	length, ok := boundedInt(w, r, "length", 6, MaxHexLength)
	if !ok {
		return
	}

	v, err := h.gen.Hexadecimal(r.Context(), length)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("hex", middleware.GetReqID(r.Context())).
		Attr("value", v).
		Attr("length", len(v)).
		Build())
}

// Float handles GET /v1/float.
func (h *RandomHandler) Float(w http.ResponseWriter, r *http.Request) {
	v, err := h.gen.Float(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("float", middleware.GetReqID(r.Context())).
		Attr("value", v).
		Build())
}

// Boolean handles GET /v1/boolean.
func (h *RandomHandler) Boolean(w http.ResponseWriter, r *http.Request) {
	v, err := h.gen.Boolean(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("boolean", middleware.GetReqID(r.Context())).
		Attr("value", v).
		Build())
}

// AverageInteger handles GET /v1/average/integer?min=&max=&iterations=.
func (h *RandomHandler) AverageInteger(w http.ResponseWriter, r *http.Request) {
	min, ok := optionalInt(w, r, "min")
	if !ok {
		return
	}
	max, ok := optionalInt(w, r, "max")
	if !ok {
		return
	}
	iterations, ok := boundedInt(w, r, "iterations", 10, MaxIterations)
	if !ok {
		return
	}

	lo, hi, err := hexmath.ResolveBounds(min, max)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	v, err := h.gen.AverageInteger(r.Context(), lo, hi, iterations)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("average_integer", middleware.GetReqID(r.Context())).
		Attr("value", v).
		Attr("min", lo).
		Attr("max", hi).
		Attr("iterations", iterations).
		Build())
}

// AverageFloat handles GET /v1/average/float?iterations=.
func (h *RandomHandler) AverageFloat(w http.ResponseWriter, r *http.Request) {
	iterations, ok := boundedInt(w, r, "iterations", 10, MaxIterations)
	if !ok {
		return
	}

	v, err := h.gen.AverageFloat(r.Context(), iterations)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("average_float", middleware.GetReqID(r.Context())).
		Attr("value", v).
		Attr("iterations", iterations).
		Build())
}

// Choice handles POST /v1/choice with body {"items": [...]}.
func (h *RandomHandler) Choice(w http.ResponseWriter, r *http.Request) {
	items, ok := decodeItems(w, r)
	if !ok {
		return
	}

	v, err := app.Choice(r.Context(), h.gen, items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("choice", middleware.GetReqID(r.Context())).
		Attr("value", v).
		Build())
}

// Shuffle handles POST /v1/shuffle with body {"items": [...]}.
func (h *RandomHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	items, ok := decodeItems(w, r)
	if !ok {
		return
	}

	v, err := app.Shuffle(r.Context(), h.gen, items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteResource(w, http.StatusOK, jsonapi.NewResource("shuffle", middleware.GetReqID(r.Context())).
		Attr("items", v).
		Build())
}

// Stats handles GET /v1/stats.
func (h *RandomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.gen.Stats()

	res := jsonapi.NewResource("stats", "buffer").
		Attr("length", s.Length).
		Attr("capacity", s.Capacity).
		Attr("threshold", s.Threshold).
		Attr("ready", s.Ready).
		Attr("refilling", s.Refilling).
		Attr("mode", s.Mode).
		Attr("refills", s.Refills).
		Attr("failures", s.Failures)
	if !s.LastRefill.IsZero() {
		res.Attr("last_refill", s.LastRefill)
	}
	if s.LastError != "" {
		res.Attr("last_error", s.LastError)
	}
	jsonapi.WriteResource(w, http.StatusOK, res.Build())
}

// writeError maps generator errors to JSON:API error documents.
func (h *RandomHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidRange):
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter("max", "max must be greater than min"))
	case errors.Is(err, app.ErrEmptySequence):
		jsonapi.WriteError(w, jsonapi.ErrValidation("items", "items must not be empty"))
	case errors.Is(err, app.ErrUnavailable), errors.Is(err, app.ErrClosed):
		jsonapi.WriteServiceUnavailable(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		jsonapi.WriteServiceUnavailable(w, "request cancelled before random data was available")
	default:
		h.logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("draw failed")
		jsonapi.WriteInternalError(w, "")
	}
}

// optionalInt parses an optional integer query parameter. On failure it
// writes a 400 response and returns ok=false.
func optionalInt(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter(name, "must be an integer"))
		return nil, false
	}
	return &v, true
}

// boundedInt parses an integer query parameter in [1, limit], falling back
// to def when absent.
func boundedInt(w http.ResponseWriter, r *http.Request, name string, def, limit int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > limit {
		jsonapi.WriteError(w, jsonapi.ErrInvalidParameter(name, "must be an integer between 1 and "+strconv.Itoa(limit)))
		return 0, false
	}
	return v, true
}

func decodeItems(w http.ResponseWriter, r *http.Request) ([]json.RawMessage, bool) {
	var req itemsRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		jsonapi.WriteBadRequest(w, "request body must be a JSON object with an items array")
		return nil, false
	}
	if len(req.Items) > MaxItems {
		jsonapi.WriteError(w, jsonapi.ErrValidation("items", "at most "+strconv.Itoa(MaxItems)+" items are allowed"))
		return nil, false
	}
	return req.Items, true
}
