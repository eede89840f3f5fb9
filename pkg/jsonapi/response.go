package jsonapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteDocument writes a JSON:API document to the response.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource response.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewSingleResourceDocument(r))
}

// WriteError writes an error response with one or more errors.
// The HTTP status is derived from the first error's status field.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		WriteDocument(w, http.StatusInternalServerError, NewErrorDocument(ErrInternal("")))
		return
	}

	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}

	WriteDocument(w, status, NewErrorDocument(errs...))
}

// WriteMeta writes a response with only metadata (no data).
func WriteMeta(w http.ResponseWriter, status int, meta Meta) {
	WriteDocument(w, status, NewDocument().MetaAll(meta).Build())
}

// WriteBadRequest is a convenience for 400 errors.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, ErrBadRequest(detail))
}

// WriteNotFound is a convenience for 404 errors.
func WriteNotFound(w http.ResponseWriter, resourceType string) {
	WriteError(w, ErrNotFound(resourceType))
}

// WriteMethodNotAllowed is a convenience for 405 errors.
// It sets the Allow header per RFC 7231.
func WriteMethodNotAllowed(w http.ResponseWriter, method string, allowedMethods []string) {
	if len(allowedMethods) > 0 {
		w.Header().Set("Allow", strings.Join(allowedMethods, ", "))
	}
	WriteError(w, ErrMethodNotAllowed(method, allowedMethods))
}

// WriteServiceUnavailable is a convenience for 503 errors.
func WriteServiceUnavailable(w http.ResponseWriter, detail string) {
	WriteError(w, ErrServiceUnavailable(detail))
}

// WriteInternalError is a convenience for 500 errors.
func WriteInternalError(w http.ResponseWriter, detail string) {
	WriteError(w, ErrInternal(detail))
}

// WriteErrorFromGo converts a Go error to a JSON:API error response.
func WriteErrorFromGo(w http.ResponseWriter, err error) {
	WriteError(w, ErrFromError(err))
}
