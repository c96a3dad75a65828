package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/meowbet/core/internal/auth"
	"github.com/meowbet/core/internal/domain"
)

const maxBodyBytes = 64 << 10

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes a JSON error response, detecting domain.AppError anywhere
// in the chain for the status code.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		RespondJSON(w, appErr.Status, map[string]string{
			"code":    appErr.Code,
			"message": appErr.Message,
		})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, map[string]string{
		"code":    domain.CodeInternal,
		"message": "internal server error",
	})
}

// DecodeJSON reads and decodes a JSON request body into dst. Unknown fields
// and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	if dec.More() {
		return domain.ErrInvalidRequest("invalid request body: trailing data")
	}
	return nil
}

// SubjectID returns the authenticated account or operator ID.
func SubjectID(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	return id, nil
}

// Page is the cursor pagination input shared by list endpoints.
type Page struct {
	Cursor *uuid.UUID
	Limit  int
}

// ParsePage reads ?cursor=<uuid>&limit=<1..100>. Missing or out-of-range
// limits fall back to 20.
func ParsePage(r *http.Request) (Page, error) {
	p := Page{Limit: 20}
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			p.Limit = n
		}
	}
	if c := q.Get("cursor"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			return p, domain.ErrInvalidRequest("cursor must be a UUID")
		}
		p.Cursor = &id
	}
	return p, nil
}

// pathUUID parses a UUID path value.
func pathUUID(s, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidRequest(name + " must be a UUID")
	}
	return id, nil
}
