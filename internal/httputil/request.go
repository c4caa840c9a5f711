package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Request bodies on this API are small (actions are capped at 2000 chars);
// 1MB leaves generous headroom while bounding abuse.
const maxRequestBody = 1 << 20

// ParseJSON decodes the request body into dest. Unknown fields are rejected:
// every endpoint takes a fixed request shape, so a stray field is a client
// bug worth surfacing. The writer is needed for MaxBytesReader's 413.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
