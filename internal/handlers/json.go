package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	applog "escandallo/internal/log"
)

// listMeta mirrors the pagination envelope the SPA already consumes.
type listMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

type listResponse struct {
	Data any      `json:"data"`
	Meta listMeta `json:"meta"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func newListMeta(total int64, skip, take int) listMeta {
	pages := int((total + int64(take) - 1) / int64(take))
	return listMeta{
		Total: total,
		Page:  skip/take + 1,
		Limit: take,
		Pages: pages,
	}
}

// listParams reads skip/take/search query parameters with the historical
// defaults and caps.
func listParams(r *http.Request) (skip, take int, search string) {
	take = defaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("take")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			take = parsed
		}
	}
	if take > maxPageSize {
		take = maxPageSize
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("skip")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			skip = parsed
		}
	}
	search = strings.TrimSpace(r.URL.Query().Get("search"))
	return skip, take, search
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
