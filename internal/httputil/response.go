package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON marshals before touching the ResponseWriter so an encoding
// failure can still become a clean 500 instead of a truncated body.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// ProblemDetail is an RFC 7807 problem document. Extra fields are flattened
// into the top level of the serialized object.
type ProblemDetail struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Detail string         `json:"detail,omitempty"`
	Extra  map[string]any `json:"-"`
}

func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	doc := map[string]any{
		"type":   p.Type,
		"title":  p.Title,
		"status": p.Status,
	}
	if p.Detail != "" {
		doc["detail"] = p.Detail
	}
	for k, v := range p.Extra {
		doc[k] = v
	}
	return json.Marshal(doc)
}

// RespondError writes an RFC 7807 problem+json error response.
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes a problem+json error carrying additional
// top-level fields, e.g. the allowed character list on a gate rejection.
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]any) {
	payload, err := json.Marshal(ProblemDetail{
		Type:   problemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Extra:  extras,
	})
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	w.Write(payload)
}

// problemType maps a status code to the problem vocabulary of this API.
// Relative URIs, resolved against the API root per RFC 7807 §3.1.
func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "/problems/invalid-request"
	case http.StatusUnauthorized:
		return "/problems/unauthenticated"
	case http.StatusForbidden:
		return "/problems/action-not-allowed"
	case http.StatusNotFound:
		return "/problems/not-found"
	case http.StatusConflict:
		return "/problems/lifecycle-conflict"
	default:
		return "about:blank"
	}
}
