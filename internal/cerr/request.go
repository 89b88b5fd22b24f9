package cerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected with a 400.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return BadRequest("decode", "Request body is required")
		case errors.As(err, &maxErr):
			return BadRequest("decode", "Request body is too large")
		default:
			return &APIError{
				Op:         "decode",
				Code:       CodeValidation,
				Message:    "Invalid request body",
				Err:        err,
				StatusCode: http.StatusBadRequest,
			}
		}
	}

	if dec.More() {
		return BadRequest("decode", "Request body must contain a single JSON object")
	}
	return nil
}

// PathID parses the named path value as a positive integer id.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, Validation("path", FieldError{Field: name, Msg: fmt.Sprintf("must be a positive integer, got %q", r.PathValue(name))})
	}
	return id, nil
}

// QueryInt returns the named query parameter as an int, or def when absent or invalid.
func QueryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
