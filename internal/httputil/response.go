package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	svcerrors "github.com/R3E-Network/video_portal/internal/errors"
	"github.com/R3E-Network/video_portal/internal/logging"
)

const maxRequestBody = 1 << 20

// ErrorBody is the JSON error envelope returned by every endpoint.
type ErrorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON writes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the error envelope.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	body := ErrorBody{Error: message, Code: code, Details: details}
	if r != nil {
		body.TraceID = logging.GetTraceID(r.Context())
	}
	WriteJSON(w, status, body)
}

// WriteServiceError maps err onto the envelope. Errors that are not service
// errors become 500s with a generic message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	se := svcerrors.GetServiceError(err)
	if se == nil {
		se = svcerrors.Internal("internal error", err)
	}
	WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

// Unauthorized writes a 401 envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	se := svcerrors.Unauthorized(message)
	WriteErrorResponse(w, nil, se.HTTPStatus, string(se.Code), se.Message, nil)
}

// DecodeJSON decodes a bounded request body into dst, rejecting unknown fields.
func DecodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return svcerrors.BadRequest("invalid request body: " + err.Error())
	}
	return nil
}
