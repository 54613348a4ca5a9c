package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"snaptext/internal/config"
)

// ParseJSON decodes JSON from the request body into the given destination,
// capping the body size.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
