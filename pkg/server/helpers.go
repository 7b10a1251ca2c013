// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// parseAtQuery reads the "at" query parameter, defaulting to now if absent.
func parseAtQuery(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// parseActionsQuery reads the comma-separated "actions" query parameter,
// defaulting to ["FINALIZE_CLOSING"] when absent, per §4.7.
func parseActionsQuery(r *http.Request) []string {
	raw := r.URL.Query().Get("actions")
	if raw == "" {
		return []string{"FINALIZE_CLOSING"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"FINALIZE_CLOSING"}
	}
	return out
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
