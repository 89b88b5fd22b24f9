package cerr

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Writer renders envelopes. In development the message of a 500 carries the underlying error.
type Writer struct {
	log *zap.Logger
	dev bool
}

func NewWriter(log *zap.Logger, development bool) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{log: log, dev: development}
}

// JSON writes a success envelope.
func (wr *Writer) JSON(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Status: StatusSuccess, Message: message, Data: data})
}

// Unavailable writes a 503 error envelope that still carries data, e.g. a failing health report.
func (wr *Writer) Unavailable(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusServiceUnavailable, Response{Status: StatusError, Message: message, Data: data})
}

// Error writes an error envelope for err.
func (wr *Writer) Error(w http.ResponseWriter, r *http.Request, err error) {
	ae := FromError(r.Method+" "+r.URL.Path, err)

	msg := ae.Message
	if ae.StatusCode >= http.StatusInternalServerError {
		wr.log.Error("Request failed",
			zap.String("op", ae.Op),
			zap.String("code", ae.Code.String()),
			zap.Error(err),
		)
		if wr.dev && ae.Err != nil {
			msg = ae.Err.Error()
		}
	}

	if ae.Code == CodeTooManyRequests {
		w.Header().Set(RetryAfter, strconv.Itoa(RetryAfterSec))
	}

	writeJSON(w, ae.StatusCode, Response{Status: StatusError, Message: msg, Errors: ae.Fields})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
